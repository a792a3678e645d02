package models

import "time"

// AuditRecord is one append-only entry in the audit log. IDs are ULIDs so
// records sort by creation time.
type AuditRecord struct {
	ID        string
	ActorID   string
	Action    string
	EntityID  string
	Detail    string
	CreatedAt time.Time
}

// Audit actions recorded by the user service.
const (
	AuditUserCreated     = "user.created"
	AuditUserLoggedIn    = "user.logged_in"
	AuditUserUpdated     = "user.updated"
	AuditUserDeactivated = "user.deactivated"
	AuditUserKeyRotated  = "user.key_rotated"
)
