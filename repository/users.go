// Package repository implements the persistence layer on Bun.
package repository

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/hrj2233/blog-app-api/auth"
)

// notFound builds the not-found error the auth layer branches on.
// go-repository-bun's own NewRecordNotFound carries a library-private
// category that errors.IsNotFound does not recognize, so the adapter
// translates at the boundary.
func notFound(metadata map[string]any) error {
	return errors.New("record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound).
		WithMetadata(metadata)
}

// Users persists accounts. It satisfies auth.UserStore.
type Users struct {
	repository.Repository[*auth.User]
	db *bun.DB
}

var _ auth.UserStore = (*Users)(nil)

// NewUsers creates a new Users repository.
func NewUsers(db *bun.DB) *Users {
	repo := repository.NewRepository[*auth.User](db, repository.ModelHandlers[*auth.User]{
		NewRecord: func() *auth.User { return &auth.User{} },
		GetID: func(u *auth.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *auth.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "account"
		},
	})

	return &Users{Repository: repo, db: db}
}

// GetByAccount implements auth.UserStore.
func (r *Users) GetByAccount(ctx context.Context, account string) (*auth.User, error) {
	record := &auth.User{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.account = ?", account).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, notFound(map[string]any{"account": account})
		}
		return nil, err
	}

	return record, nil
}

// GetByID implements auth.UserStore.
func (r *Users) GetByID(ctx context.Context, id string) (*auth.User, error) {
	record := &auth.User{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, notFound(map[string]any{"id": id})
		}
		return nil, err
	}

	return record, nil
}

// Create implements auth.UserStore. The account column's unique
// constraint is the authoritative duplicate guard; a violation comes
// back as auth.ErrDuplicateAccount regardless of which driver raised it.
func (r *Users) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	user.EnsureDefaults()

	created, err := r.Repository.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			clone := auth.ErrDuplicateAccount.Clone()
			clone.Source = err
			return nil, clone
		}
		return nil, err
	}

	return created, nil
}

// SetRefreshToken implements auth.UserStore. An empty token clears the
// slot.
func (r *Users) SetRefreshToken(ctx context.Context, id string, token string) error {
	return r.setColumn(ctx, id, "rf_token", token)
}

// SetPasswordHash implements auth.UserStore.
func (r *Users) SetPasswordHash(ctx context.Context, id string, hash string) error {
	return r.setColumn(ctx, id, "password_hash", hash)
}

func (r *Users) setColumn(ctx context.Context, id, column, value string) error {
	res, err := r.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set(column+" = ?", value).
		Set("updated_at = current_timestamp").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return notFound(map[string]any{"id": id})
	}

	return nil
}

// CreateSchema creates the users table if it does not exist. Meant for
// local development and tests; production schemas are migrated.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// isUniqueViolation sniffs the driver error text since each driver
// reports constraint violations with its own error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
