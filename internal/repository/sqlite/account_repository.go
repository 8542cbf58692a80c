package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/internal/domain"
	"account-service/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	login_id TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	credential_hash TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (int64, error) {
	account.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (login_id, display_name, email, credential_hash, phone_number, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		account.LoginID,
		account.DisplayName,
		account.Email,
		account.CredentialHash,
		account.PhoneNumber,
		account.CreatedAt,
	)
	if err != nil {
		if ce := conflictError(err); ce != nil {
			return 0, ce
		}
		return 0, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account last insert id: %w", err)
	}
	account.ID = id
	return id, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET display_name = ?, credential_hash = ?, phone_number = ?
WHERE id = ?`,
		account.DisplayName,
		account.CredentialHash,
		account.PhoneNumber,
		account.ID,
	)
	if err != nil {
		if ce := conflictError(err); ce != nil {
			return ce
		}
		return fmt.Errorf("update account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) FindByLoginID(ctx context.Context, loginID string) (*domain.Account, error) {
	return r.findBy(ctx, "login_id", loginID)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findBy(ctx, "email", email)
}

func (r *AccountRepository) FindByDisplayName(ctx context.Context, displayName string) (*domain.Account, error) {
	return r.findBy(ctx, "display_name", displayName)
}

func (r *AccountRepository) findBy(ctx context.Context, column, value string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, login_id, display_name, email, credential_hash, phone_number, created_at
FROM accounts
WHERE `+column+` = ?`,
		value,
	)
	return scanAccount(row)
}

func (r *AccountRepository) ListPage(ctx context.Context, req domain.PageRequest) ([]domain.Account, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, login_id, display_name, email, credential_hash, phone_number, created_at
FROM accounts
ORDER BY `+orderClause(req.Sort)+`
LIMIT ? OFFSET ?`,
		req.PageSize,
		req.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("scan accounts page: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts page: %w", err)
	}
	return accounts, total, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// orderClause maps a sort spec onto whitelisted columns. The id tiebreaker
// keeps pages stable when accounts share a created_at timestamp.
func orderClause(sort domain.SortSpec) string {
	var keys []string
	if sort.CreatedAtDesc {
		keys = append(keys, "created_at DESC")
	}
	if sort.DisplayNameAsc {
		keys = append(keys, "display_name ASC")
	}
	if len(keys) == 0 {
		keys = append(keys, "created_at DESC")
	}
	keys = append(keys, "id DESC")
	return strings.Join(keys, ", ")
}

// conflictError maps a sqlite UNIQUE violation to the repository's typed
// conflict, naming the violated field. Returns nil when the error is not a
// uniqueness violation or the column cannot be identified; callers treat
// those as plain storage errors.
func conflictError(err error) *repository.ConflictError {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "accounts.login_id"):
		return &repository.ConflictError{Field: "loginId"}
	case strings.Contains(msg, "accounts.display_name"):
		return &repository.ConflictError{Field: "displayName"}
	case strings.Contains(msg, "accounts.email"):
		return &repository.ConflictError{Field: "email"}
	default:
		return nil
	}
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.LoginID,
		&account.DisplayName,
		&account.Email,
		&account.CredentialHash,
		&account.PhoneNumber,
		&account.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}
