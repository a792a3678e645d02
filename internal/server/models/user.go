// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the user's place in the fixed authorization hierarchy.
// Ordering matters: a role satisfies a requirement when its rank is at
// least the required role's rank.
type Role string

const (
	RoleUser    Role = "USER"
	RoleAnalyst Role = "ANALYST"
	RoleAdmin   Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:    1,
	RoleAnalyst: 2,
	RoleAdmin:   3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r meets or exceeds required in the hierarchy.
// Unknown roles never satisfy anything.
func (r Role) AtLeast(required Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	qr, ok := roleRank[required]
	if !ok {
		return false
	}
	return rr >= qr
}

// User is an authenticated principal. Email and ExternalID are encrypted at
// rest; the *Hash columns are deterministic SHA-256 digests used for
// equality lookups without decrypting. Version increases by exactly one on
// every successful mutation and backs the optimistic-concurrency check.
type User struct {
	ID          string
	Email       string // plaintext in memory only, never persisted as-is
	EmailHash   string
	DisplayName string
	Role        Role
	ExternalID  string // external identity token; encrypted at rest
	ExtIDHash   string
	Active      bool
	Version     int64
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// UserRow is the persisted shape of a User: sensitive fields replaced by
// their envelope columns. Repositories speak UserRow; the user service
// converts to and from User at the encryption boundary.
type UserRow struct {
	ID          string
	EmailCT     []byte
	EmailIV     []byte
	EmailTag    []byte
	EmailKeyID  string
	EmailHash   string
	DisplayName string
	Role        Role
	ExtIDCT     []byte
	ExtIDIV     []byte
	ExtIDTag    []byte
	ExtIDKeyID  string
	ExtIDHash   string
	Active      bool
	Version     int64
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// UserChanges carries the mutable fields of an update request. Nil members
// are left untouched.
type UserChanges struct {
	Email       *string
	DisplayName *string
	Role        *Role
	ExternalID  *string
	Active      *bool
	LastLoginAt *time.Time
}
