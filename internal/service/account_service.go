package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"account-service/internal/domain"
	"account-service/internal/repository"
	"account-service/internal/validation"
)

// CredentialHasher turns a plaintext secret into an opaque one-way hash.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
}

// RegisterStatus is the outcome of a registration attempt.
type RegisterStatus int

const (
	RegisterCreated RegisterStatus = iota
	RegisterValidationFailed
	RegisterAlreadyExists
	RegisterStorageFailure
)

// RegisterResult carries the registration outcome. Rule is set when
// validation failed; Field names the conflicting column when the store
// rejected the write.
type RegisterResult struct {
	Status RegisterStatus
	Rule   validation.Rule
	Field  string
}

// UpdateStatus is the outcome of a profile update attempt.
type UpdateStatus int

const (
	UpdateOK UpdateStatus = iota
	UpdateInvalidUser
	UpdateValidationFailed
	UpdateStorageFailure
)

// UpdateResult carries the update outcome. Rule is set when validation
// failed.
type UpdateResult struct {
	Status UpdateStatus
	Rule   validation.Rule
}

// RegisterRequest is a complete registration candidate. No field is
// optional.
type RegisterRequest struct {
	LoginID     string
	DisplayName string
	Email       string
	Secret      string
	PhoneNumber string
}

// UpdateRequest names the fields to change. Nil fields are left untouched.
// Login id and email are immutable and cannot appear here.
type UpdateRequest struct {
	DisplayName *string
	Secret      *string
	PhoneNumber *string
}

// ListRequest addresses one page of the account listing. Page is zero
// based. The sort toggles compose with fixed precedence; see
// domain.ResolveSort.
type ListRequest struct {
	Page           int
	PageSize       int
	CreatedAtDesc  bool
	DisplayNameAsc bool
}

// AccountService implements account registration, profile update and
// listing.
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) RegisterResult
	Update(ctx context.Context, loginID string, req UpdateRequest) UpdateResult
	List(ctx context.Context, req ListRequest) (*domain.Page, error)
}

type accountService struct {
	accounts repository.AccountRepository
	rules    *validation.Engine
	hasher   CredentialHasher
	logger   *logrus.Logger
}

func NewAccountService(accounts repository.AccountRepository, rules *validation.Engine, hasher CredentialHasher, logger *logrus.Logger) AccountService {
	return &accountService{
		accounts: accounts,
		rules:    rules,
		hasher:   hasher,
		logger:   logger,
	}
}

// Register validates the candidate in full mode, hashes its secret and
// persists a new account. The validation pre-check and the store's unique
// constraints overlap on purpose: the pre-check gives the client the
// first-failure rule, the constraint closes the race between two
// concurrent registrations for the same identity.
func (s *accountService) Register(ctx context.Context, req RegisterRequest) RegisterResult {
	candidate := validation.Candidate{
		LoginID:     req.LoginID,
		Email:       req.Email,
		DisplayName: &req.DisplayName,
		Secret:      &req.Secret,
		PhoneNumber: &req.PhoneNumber,
	}

	rule, err := s.rules.Validate(ctx, candidate, validation.Full)
	if err != nil {
		s.logger.WithError(err).Error("register: validation lookup failed")
		return RegisterResult{Status: RegisterStorageFailure}
	}
	if rule != validation.RuleNone {
		return RegisterResult{Status: RegisterValidationFailed, Rule: rule}
	}

	credentialHash, err := s.hasher.Hash(req.Secret)
	if err != nil {
		s.logger.WithError(err).Error("register: hash secret failed")
		return RegisterResult{Status: RegisterStorageFailure}
	}

	account := &domain.Account{
		LoginID:        req.LoginID,
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		CredentialHash: credentialHash,
		PhoneNumber:    req.PhoneNumber,
	}

	if _, err := s.accounts.Create(ctx, account); err != nil {
		if ce, ok := repository.AsConflict(err); ok {
			return RegisterResult{Status: RegisterAlreadyExists, Field: ce.Field}
		}
		s.logger.WithError(err).Error("register: insert account failed")
		return RegisterResult{Status: RegisterStorageFailure}
	}

	return RegisterResult{Status: RegisterCreated}
}

// Update looks up the target account by login id and overwrites exactly
// the supplied fields. A supplied secret is re-hashed.
//
// The display-name duplicate check runs against all accounts including the
// target itself, so re-submitting the name an account already owns is
// reported as a conflict. That matches the upstream behavior this service
// replaces; do not "fix" it here without a product decision.
func (s *accountService) Update(ctx context.Context, loginID string, req UpdateRequest) UpdateResult {
	account, err := s.accounts.FindByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return UpdateResult{Status: UpdateInvalidUser}
		}
		s.logger.WithError(err).Error("update: find account failed")
		return UpdateResult{Status: UpdateStorageFailure}
	}

	candidate := validation.Candidate{
		DisplayName: req.DisplayName,
		Secret:      req.Secret,
		PhoneNumber: req.PhoneNumber,
	}

	rule, err := s.rules.Validate(ctx, candidate, validation.Partial)
	if err != nil {
		s.logger.WithError(err).Error("update: validation lookup failed")
		return UpdateResult{Status: UpdateStorageFailure}
	}
	if rule != validation.RuleNone {
		return UpdateResult{Status: UpdateValidationFailed, Rule: rule}
	}

	if req.DisplayName != nil {
		account.DisplayName = *req.DisplayName
	}
	if req.Secret != nil {
		credentialHash, err := s.hasher.Hash(*req.Secret)
		if err != nil {
			s.logger.WithError(err).Error("update: hash secret failed")
			return UpdateResult{Status: UpdateStorageFailure}
		}
		account.CredentialHash = credentialHash
	}
	if req.PhoneNumber != nil {
		account.PhoneNumber = *req.PhoneNumber
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if _, ok := repository.AsConflict(err); ok {
			// lost a display-name race after the pre-check passed
			return UpdateResult{Status: UpdateValidationFailed, Rule: validation.RuleDisplayNameTaken}
		}
		if errors.Is(err, repository.ErrNotFound) {
			return UpdateResult{Status: UpdateInvalidUser}
		}
		s.logger.WithError(err).Error("update: save account failed")
		return UpdateResult{Status: UpdateStorageFailure}
	}

	return UpdateResult{Status: UpdateOK}
}

// List returns one page of account views in the requested order. Page
// indexes are zero based; a non-positive page size falls back to
// defaultPageSize.
func (s *accountService) List(ctx context.Context, req ListRequest) (*domain.Page, error) {
	page := req.Page
	if page < 0 {
		page = 0
	}
	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	accounts, total, err := s.accounts.ListPage(ctx, domain.PageRequest{
		Page:     page,
		PageSize: size,
		Sort:     domain.ResolveSort(req.CreatedAtDesc, req.DisplayNameAsc),
	})
	if err != nil {
		s.logger.WithError(err).Error("list: scan accounts failed")
		return nil, err
	}

	views := make([]domain.AccountView, len(accounts))
	for i := range accounts {
		views[i] = accounts[i].View()
	}

	totalPages := total / int64(size)
	if total%int64(size) != 0 {
		totalPages++
	}

	return &domain.Page{
		Content:       views,
		Page:          page,
		PageSize:      size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

const defaultPageSize = 10
