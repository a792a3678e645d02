// Package services contains server-side business logic. This file implements
// UserService, which mediates all reads and writes of User records: it
// encrypts sensitive fields through the keyring before anything reaches the
// database, and guards every mutation with a version compare-and-swap.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/cryptox"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/dbx"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/repomanager"
)

// CreateUserRequest carries the plain-data inputs for user creation.
// Email and ExternalID are required; Role defaults to USER.
type CreateUserRequest struct {
	Email       string
	DisplayName string
	Role        models.Role
	ExternalID  string
}

// UserService provides user CRUD with field-level encryption and optimistic
// concurrency. It owns no storage; persistence goes through the repository
// manager, key material through the injected keyring.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	keyring     *cryptox.Keyring
	logger      logging.Logger
}

// NewUserService constructs a UserService bound to the given database,
// repositories, and keyring.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, keyring *cryptox.Keyring, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: m, keyring: keyring, logger: logger}
}

// CreateUser validates, encrypts, and persists a new user with version 1.
// A user with the same email yields common.ErrorAlreadyExists before any
// write is attempted. The returned User carries decrypted fields for the
// immediate caller; storage only ever sees ciphertext.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if req.Email == "" || req.ExternalID == "" {
		return nil, common.ErrMissingRequiredField
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, common.ErrInvalidParameter
	}

	emailHash, err := cryptox.Hash(req.Email)
	if err != nil {
		return nil, err
	}
	extIDHash, err := cryptox.Hash(req.ExternalID)
	if err != nil {
		return nil, err
	}

	// Duplicate check before encrypting anything.
	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmailHash(ctx, emailHash); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	row := &models.UserRow{
		ID:          uuid.NewString(),
		EmailHash:   emailHash,
		DisplayName: req.DisplayName,
		Role:        role,
		ExtIDHash:   extIDHash,
		Active:      true,
		Version:     1,
	}
	if err := s.sealSensitiveFields(row, req.Email, req.ExternalID); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditRecord{
			ActorID:  row.ID,
			Action:   models.AuditUserCreated,
			EntityID: row.ID,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user created", "user_id", row.ID)
	return s.openRow(row)
}

// GetUserByID returns the user with sensitive fields decrypted, or
// (nil, nil) when no such user exists.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.openRow(row)
}

// UpdateUser applies changes when the stored version equals expectedVersion,
// bumping the version by exactly one. A stale expectedVersion yields
// common.ErrVersionConflict and no mutation: the check-then-write is a
// single conditional UPDATE, so racing callers resolve to one winner.
func (s *UserService) UpdateUser(ctx context.Context, id string, changes models.UserChanges, expectedVersion int64) (*models.User, error) {
	row, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if changes.Email != nil {
		if *changes.Email == "" {
			return nil, common.ErrMissingRequiredField
		}
		hash, err := cryptox.Hash(*changes.Email)
		if err != nil {
			return nil, err
		}
		env, err := s.keyring.Encrypt(*changes.Email)
		if err != nil {
			return nil, err
		}
		row.EmailCT, row.EmailIV, row.EmailTag, row.EmailKeyID = env.Ciphertext, env.IV, env.Tag, env.KeyID
		row.EmailHash = hash
	}
	if changes.ExternalID != nil {
		if *changes.ExternalID == "" {
			return nil, common.ErrMissingRequiredField
		}
		hash, err := cryptox.Hash(*changes.ExternalID)
		if err != nil {
			return nil, err
		}
		env, err := s.keyring.Encrypt(*changes.ExternalID)
		if err != nil {
			return nil, err
		}
		row.ExtIDCT, row.ExtIDIV, row.ExtIDTag, row.ExtIDKeyID = env.Ciphertext, env.IV, env.Tag, env.KeyID
		row.ExtIDHash = hash
	}
	if changes.DisplayName != nil {
		row.DisplayName = *changes.DisplayName
	}
	if changes.Role != nil {
		if !changes.Role.Valid() {
			return nil, common.ErrInvalidParameter
		}
		row.Role = *changes.Role
	}
	if changes.Active != nil {
		row.Active = *changes.Active
	}
	if changes.LastLoginAt != nil {
		row.LastLoginAt = changes.LastLoginAt
	}

	action := models.AuditUserUpdated
	if changes.Active != nil && !*changes.Active {
		action = models.AuditUserDeactivated
	}

	if err := s.commitVersioned(ctx, row, expectedVersion, action, ""); err != nil {
		return nil, err
	}
	return s.openRow(row)
}

// DeactivateUser marks the user inactive; the version still increments and
// the record is never physically deleted.
func (s *UserService) DeactivateUser(ctx context.Context, id string, expectedVersion int64) (*models.User, error) {
	inactive := false
	return s.UpdateUser(ctx, id, models.UserChanges{Active: &inactive}, expectedVersion)
}

// ValidateUserRole reports whether the user's role meets or exceeds
// requiredRole in the fixed hierarchy USER < ANALYST < ADMIN. A missing or
// inactive user yields common.ErrInvalidOrInactiveUser. No side effects.
func (s *UserService) ValidateUserRole(ctx context.Context, id string, requiredRole models.Role) (bool, error) {
	if !requiredRole.Valid() {
		return false, common.ErrInvalidParameter
	}

	row, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.ErrInvalidOrInactiveUser
		}
		return false, err
	}
	if !row.Active {
		return false, common.ErrInvalidOrInactiveUser
	}

	return row.Role.AtLeast(requiredRole), nil
}

// RotateUserEncryption rotates the keyring and re-encrypts the user's
// sensitive fields under the new active key. The rewrite goes through the
// same version guard as any other mutation, so a concurrent writer surfaces
// as common.ErrVersionConflict.
func (s *UserService) RotateUserEncryption(ctx context.Context, id string) (*models.User, error) {
	row, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	email, err := s.keyring.Decrypt(&cryptox.Envelope{Ciphertext: row.EmailCT, IV: row.EmailIV, Tag: row.EmailTag, KeyID: row.EmailKeyID})
	if err != nil {
		return nil, err
	}
	extID, err := s.keyring.Decrypt(&cryptox.Envelope{Ciphertext: row.ExtIDCT, IV: row.ExtIDIV, Tag: row.ExtIDTag, KeyID: row.ExtIDKeyID})
	if err != nil {
		return nil, err
	}

	keyID, err := s.keyring.Rotate()
	if err != nil {
		return nil, err
	}

	if err := s.sealSensitiveFields(row, email, extID); err != nil {
		return nil, err
	}

	if err := s.commitVersioned(ctx, row, row.Version, models.AuditUserKeyRotated, "key_id="+keyID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user encryption rotated", "user_id", row.ID, "key_id", keyID)
	return s.openRow(row)
}

// AuthenticateExternal resolves a user by their external identity token and
// records the login time. The identity provider has already verified the
// token; this only maps it to a local account. A missing or inactive account
// yields common.ErrInvalidOrInactiveUser. Losing a concurrent version race
// on the last-login write does not fail the authentication.
func (s *UserService) AuthenticateExternal(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, common.ErrMissingRequiredField
	}

	hash, err := cryptox.Hash(externalID)
	if err != nil {
		return nil, err
	}

	row, err := s.repomanager.Users(s.db).GetByExtIDHash(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrInactiveUser
		}
		return nil, err
	}
	if !row.Active {
		return nil, common.ErrInvalidOrInactiveUser
	}

	now := time.Now().UTC()
	row.LastLoginAt = &now
	if err := s.commitVersioned(ctx, row, row.Version, models.AuditUserLoggedIn, ""); err != nil {
		if !errors.Is(err, common.ErrVersionConflict) {
			return nil, err
		}
	}

	return s.openRow(row)
}

// AuditTrail returns up to limit audit records for the given entity, newest
// first. Limit is clamped to [1, 500]; zero means the default of 50.
func (s *UserService) AuditTrail(ctx context.Context, entityID string, limit int) ([]*models.AuditRecord, error) {
	if entityID == "" {
		return nil, common.ErrMissingRequiredField
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.repomanager.Audit(s.db).ListByEntity(ctx, entityID, limit)
}

// --- helpers below ---

// sealSensitiveFields encrypts email and extID under the active key and
// writes the envelopes into row.
func (s *UserService) sealSensitiveFields(row *models.UserRow, email, extID string) error {
	emailEnv, err := s.keyring.Encrypt(email)
	if err != nil {
		return err
	}
	extIDEnv, err := s.keyring.Encrypt(extID)
	if err != nil {
		return err
	}
	row.EmailCT, row.EmailIV, row.EmailTag, row.EmailKeyID = emailEnv.Ciphertext, emailEnv.IV, emailEnv.Tag, emailEnv.KeyID
	row.ExtIDCT, row.ExtIDIV, row.ExtIDTag, row.ExtIDKeyID = extIDEnv.Ciphertext, extIDEnv.IV, extIDEnv.Tag, extIDEnv.KeyID
	return nil
}

// commitVersioned performs the conditional write and the audit append in one
// transaction. On version conflict the transaction rolls back, leaving the
// stored record and the audit log untouched.
func (s *UserService) commitVersioned(ctx context.Context, row *models.UserRow, expectedVersion int64, action, detail string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdateVersioned(ctx, row, expectedVersion); err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditRecord{
			ActorID:  row.ID,
			Action:   action,
			EntityID: row.ID,
			Detail:   detail,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			return common.ErrVersionConflict
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

// openRow decrypts the sensitive columns and converts the row to its domain
// representation.
func (s *UserService) openRow(row *models.UserRow) (*models.User, error) {
	email, err := s.keyring.Decrypt(&cryptox.Envelope{Ciphertext: row.EmailCT, IV: row.EmailIV, Tag: row.EmailTag, KeyID: row.EmailKeyID})
	if err != nil {
		return nil, err
	}
	extID, err := s.keyring.Decrypt(&cryptox.Envelope{Ciphertext: row.ExtIDCT, IV: row.ExtIDIV, Tag: row.ExtIDTag, KeyID: row.ExtIDKeyID})
	if err != nil {
		return nil, err
	}

	var lastLogin *time.Time
	if row.LastLoginAt != nil {
		t := *row.LastLoginAt
		lastLogin = &t
	}

	return &models.User{
		ID:          row.ID,
		Email:       email,
		EmailHash:   row.EmailHash,
		DisplayName: row.DisplayName,
		Role:        row.Role,
		ExternalID:  extID,
		ExtIDHash:   row.ExtIDHash,
		Active:      row.Active,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		LastLoginAt: lastLogin,
	}, nil
}
