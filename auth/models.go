package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountOrigin is the channel through which an account was created.
// It is immutable after creation and governs which recovery flows are
// permitted for the account.
type AccountOrigin = string

const (
	// OriginRegister is a password registration confirmed over email or SMS.
	OriginRegister AccountOrigin = "register"
	// OriginGoogle is a federated Google sign-in account.
	OriginGoogle AccountOrigin = "google"
	// OriginSMS is an account created through an SMS one-time code.
	OriginSMS AccountOrigin = "sms"
)

// DefaultAvatarURL is the placeholder avatar assigned to new accounts.
const DefaultAvatarURL = "https://www.gravatar.com/avatar?d=mp&f=y"

// MaxNameLength is the display name limit enforced at registration.
const MaxNameLength = 20

// User is the persisted account model.
//
// PasswordHash is always set, including for google/sms accounts, which
// receive a random hash at creation (see RandomPasswordHash).
// RefreshToken holds the single active refresh token for the account;
// login and refresh overwrite it, logout clears it. That one slot is the
// entire revocation mechanism.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name         string        `bun:"name,notnull" json:"name,omitempty"`
	Account      string        `bun:"account,notnull,unique" json:"account,omitempty"`
	PasswordHash string        `bun:"password_hash,notnull" json:"-"`
	AvatarURL    string        `bun:"avatar" json:"avatar,omitempty"`
	Role         UserRole      `bun:"user_role,notnull" json:"role,omitempty"`
	Origin       AccountOrigin `bun:"origin,notnull" json:"origin,omitempty"`
	RefreshToken string        `bun:"rf_token" json:"-"`
	CreatedAt    *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureDefaults fills store-assigned and defaulted fields before insert.
func (u *User) EnsureDefaults() {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if !IsValidRole(u.Role) {
		u.Role = RoleUser
	}
	if u.Origin == "" {
		u.Origin = OriginRegister
	}
	if u.AvatarURL == "" {
		u.AvatarURL = DefaultAvatarURL
	}
}

// PendingUser is the draft account carried inside an activation token.
// It is never persisted on its own: it travels to the client at register
// time and is materialized into a User only when the activation token is
// presented back, proving ownership of the channel.
type PendingUser struct {
	Name         string `json:"name"`
	Account      string `json:"account"`
	PasswordHash string `json:"password"`
}

// Session is the result of a successful authentication: a short-lived
// access token plus the refresh token that was just persisted as the
// account's single active slot. The refresh token is delivered out of
// band (a path-scoped cookie) and is never serialized into JSON bodies.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
	User         *User  `json:"user,omitempty"`
}
