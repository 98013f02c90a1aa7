package model

import "time"

// Roles carried in the JWT "role" claim.
const (
	RoleUser        = "USER"
	RoleTicketAdmin = "TICKET_ADMIN"
	RoleAdmin       = "ADMIN"
)

// IsElevated reports whether role may act on other users' reservations
// and invitations.
func IsElevated(role string) bool {
	return role == RoleTicketAdmin || role == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table.  The reservation core only needs the ID and role; the
// name fields are rendered in invitation emails ("<name> <surname>
// invited you to ...").
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  Name         – first name.
//  Surname      – last name.
//  PasswordHash – bcrypt hashed password.
//  Role         – USER, TICKET_ADMIN or ADMIN.
//  IsActive     – whether the account is active.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	Surname      string    // users.surname
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
