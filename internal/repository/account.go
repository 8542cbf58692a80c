package repository

import (
	"context"
	"errors"
	"fmt"

	"account-service/internal/domain"
)

// ErrNotFound is returned by lookups when no account matches.
var ErrNotFound = errors.New("account not found")

// ConflictError reports a uniqueness-constraint violation detected by the
// store at write time. Field names the violated column: "loginId",
// "displayName" or "email".
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("account already exists: %s", e.Field)
}

// AsConflict unwraps err to a ConflictError if one is in its chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AccountFinder covers the unique-field lookups. Lookups return
// ErrNotFound when no account matches.
type AccountFinder interface {
	FindByLoginID(ctx context.Context, loginID string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByDisplayName(ctx context.Context, displayName string) (*domain.Account, error)
}

// AccountRepository defines persistence operations for Account entities.
// Create and Update are atomic per account: on error no partial write
// remains. Uniqueness of loginId, displayName and email is enforced by the
// store itself; a violating write fails with a ConflictError.
type AccountRepository interface {
	AccountFinder

	Init(ctx context.Context) error
	// Create inserts a new account, assigning its ID and CreatedAt.
	Create(ctx context.Context, account *domain.Account) (int64, error)
	// Update rewrites the mutable fields of an existing account.
	Update(ctx context.Context, account *domain.Account) error
	// ListPage returns one page of accounts in the requested order plus
	// the total account count.
	ListPage(ctx context.Context, req domain.PageRequest) ([]domain.Account, int64, error)
	// Delete removes an account by id. Nothing in the service calls this;
	// it exists for tests and operational cleanup.
	Delete(ctx context.Context, id int64) error
}
