package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/domain"
	"account-service/internal/repository"
	"account-service/internal/validation"
)

// fakeAccountRepo keeps accounts in a slice and supports forcing errors on
// specific operations.
type fakeAccountRepo struct {
	accounts []domain.Account
	nextID   int64

	createErr error
	updateErr error
	findErr   error
	listErr   error

	listOut   []domain.Account
	listTotal int64
	lastPage  domain.PageRequest
}

func (f *fakeAccountRepo) Init(ctx context.Context) error { return nil }

func (f *fakeAccountRepo) Create(ctx context.Context, account *domain.Account) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	account.ID = f.nextID
	f.accounts = append(f.accounts, *account)
	return account.ID, nil
}

func (f *fakeAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.accounts {
		if f.accounts[i].ID == account.ID {
			f.accounts[i] = *account
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeAccountRepo) FindByLoginID(ctx context.Context, loginID string) (*domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.LoginID == loginID })
}

func (f *fakeAccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.Email == email })
}

func (f *fakeAccountRepo) FindByDisplayName(ctx context.Context, name string) (*domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.DisplayName == name })
}

func (f *fakeAccountRepo) find(match func(domain.Account) bool) (*domain.Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := range f.accounts {
		if match(f.accounts[i]) {
			out := f.accounts[i]
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepo) ListPage(ctx context.Context, req domain.PageRequest) ([]domain.Account, int64, error) {
	f.lastPage = req
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listOut, f.listTotal, nil
}

func (f *fakeAccountRepo) Delete(ctx context.Context, id int64) error { return nil }

// fakeHasher makes the hash recognizable without bcrypt's cost.
type fakeHasher struct {
	err error
}

func (h *fakeHasher) Hash(plaintext string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plaintext, nil
}

func newService(t *testing.T, repo *fakeAccountRepo) AccountService {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAccountService(repo, validation.NewEngine(repo), &fakeHasher{}, logger)
}

func validRegister() RegisterRequest {
	return RegisterRequest{
		LoginID:     "tester01",
		DisplayName: "tester",
		Email:       "tester@example.com",
		Secret:      "Passw0rd!",
		PhoneNumber: "010-1234-5678",
	}
}

func TestRegisterCreatesAccount(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)

	result := svc.Register(context.Background(), validRegister())

	require.Equal(t, RegisterCreated, result.Status)
	require.Len(t, repo.accounts, 1)

	stored, err := repo.FindByLoginID(context.Background(), "tester01")
	require.NoError(t, err)
	assert.Equal(t, "tester", stored.DisplayName)
	assert.Equal(t, "tester@example.com", stored.Email)
	assert.NotEqual(t, "Passw0rd!", stored.CredentialHash)
	assert.NotEmpty(t, stored.CredentialHash)
}

func TestRegisterValidationFailure(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)

	req := validRegister()
	req.LoginID = "ab"
	result := svc.Register(context.Background(), req)

	assert.Equal(t, RegisterValidationFailed, result.Status)
	assert.Equal(t, validation.RuleLoginIDLength, result.Rule)
	assert.Empty(t, repo.accounts)
}

func TestRegisterDuplicateEmailPreCheck(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)

	require.Equal(t, RegisterCreated, svc.Register(context.Background(), validRegister()).Status)

	req := validRegister()
	req.LoginID = "tester02"
	req.DisplayName = "other"
	result := svc.Register(context.Background(), req)

	assert.Equal(t, RegisterValidationFailed, result.Status)
	assert.Equal(t, validation.RuleEmailTaken, result.Rule)
	assert.Len(t, repo.accounts, 1)
}

func TestRegisterConflictAtWrite(t *testing.T) {
	// The pre-check passed but another registration won the race; the
	// store's constraint rejection must surface, not read as success.
	repo := &fakeAccountRepo{createErr: &repository.ConflictError{Field: "email"}}
	svc := newService(t, repo)

	result := svc.Register(context.Background(), validRegister())

	assert.Equal(t, RegisterAlreadyExists, result.Status)
	assert.Equal(t, "email", result.Field)
}

func TestRegisterStorageFailure(t *testing.T) {
	repo := &fakeAccountRepo{createErr: errors.New("disk full")}
	svc := newService(t, repo)

	result := svc.Register(context.Background(), validRegister())

	assert.Equal(t, RegisterStorageFailure, result.Status)
}

func TestRegisterLookupFailure(t *testing.T) {
	repo := &fakeAccountRepo{findErr: errors.New("db down")}
	svc := newService(t, repo)

	result := svc.Register(context.Background(), validRegister())

	assert.Equal(t, RegisterStorageFailure, result.Status)
}

func TestRegisterHashFailure(t *testing.T) {
	repo := &fakeAccountRepo{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewAccountService(repo, validation.NewEngine(repo), &fakeHasher{err: errors.New("boom")}, logger)

	result := svc.Register(context.Background(), validRegister())

	assert.Equal(t, RegisterStorageFailure, result.Status)
	assert.Empty(t, repo.accounts)
}

func strPtr(s string) *string { return &s }

func seedAccount(t *testing.T, repo *fakeAccountRepo, svc AccountService) domain.Account {
	t.Helper()
	result := svc.Register(context.Background(), validRegister())
	require.Equal(t, RegisterCreated, result.Status)
	return repo.accounts[0]
}

func TestUpdateUnknownLoginID(t *testing.T) {
	svc := newService(t, &fakeAccountRepo{})

	result := svc.Update(context.Background(), "missing", UpdateRequest{DisplayName: strPtr("name")})

	assert.Equal(t, UpdateInvalidUser, result.Status)
}

func TestUpdatePhoneNumberOnlyLeavesRestUntouched(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)
	before := seedAccount(t, repo, svc)

	result := svc.Update(context.Background(), before.LoginID, UpdateRequest{PhoneNumber: strPtr("02-123-4567")})

	require.Equal(t, UpdateOK, result.Status)
	after, err := repo.FindByLoginID(context.Background(), before.LoginID)
	require.NoError(t, err)
	assert.Equal(t, "02-123-4567", after.PhoneNumber)
	assert.Equal(t, before.DisplayName, after.DisplayName)
	assert.Equal(t, before.CredentialHash, after.CredentialHash)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.LoginID, after.LoginID)
}

func TestUpdateRehashesSecret(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)
	before := seedAccount(t, repo, svc)

	result := svc.Update(context.Background(), before.LoginID, UpdateRequest{Secret: strPtr("NewPassw0rd!")})

	require.Equal(t, UpdateOK, result.Status)
	after, err := repo.FindByLoginID(context.Background(), before.LoginID)
	require.NoError(t, err)
	assert.NotEqual(t, before.CredentialHash, after.CredentialHash)
	assert.NotEqual(t, "NewPassw0rd!", after.CredentialHash)
}

func TestUpdateValidatesSuppliedFields(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)
	before := seedAccount(t, repo, svc)

	result := svc.Update(context.Background(), before.LoginID, UpdateRequest{Secret: strPtr("short")})

	assert.Equal(t, UpdateValidationFailed, result.Status)
	assert.Equal(t, validation.RuleSecretLength, result.Rule)
}

func TestUpdateOwnDisplayNameIsAConflict(t *testing.T) {
	// The duplicate lookup does not exclude the target account, so
	// re-submitting the current name conflicts with itself. Kept on
	// purpose; see the Update doc comment.
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)
	before := seedAccount(t, repo, svc)

	result := svc.Update(context.Background(), before.LoginID, UpdateRequest{DisplayName: &before.DisplayName})

	assert.Equal(t, UpdateValidationFailed, result.Status)
	assert.Equal(t, validation.RuleDisplayNameTaken, result.Rule)
}

func TestUpdateConflictAtWrite(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)
	before := seedAccount(t, repo, svc)
	repo.updateErr = &repository.ConflictError{Field: "displayName"}

	result := svc.Update(context.Background(), before.LoginID, UpdateRequest{DisplayName: strPtr("fresh")})

	assert.Equal(t, UpdateValidationFailed, result.Status)
	assert.Equal(t, validation.RuleDisplayNameTaken, result.Rule)
}

func TestUpdateStorageFailure(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newService(t, repo)
	before := seedAccount(t, repo, svc)
	repo.updateErr = errors.New("disk full")

	result := svc.Update(context.Background(), before.LoginID, UpdateRequest{PhoneNumber: strPtr("02-123-4567")})

	assert.Equal(t, UpdateStorageFailure, result.Status)
}

func TestListProjectsViewsWithoutCredentialHash(t *testing.T) {
	repo := &fakeAccountRepo{
		listOut: []domain.Account{
			{ID: 1, LoginID: "tester01", DisplayName: "tester", Email: "t@example.com", CredentialHash: "secret-hash", PhoneNumber: "010-1234-5678"},
		},
		listTotal: 1,
	}
	svc := newService(t, repo)

	page, err := svc.List(context.Background(), ListRequest{Page: 0, PageSize: 10})

	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	view := page.Content[0]
	assert.Equal(t, "tester01", view.LoginID)
	assert.Equal(t, "tester", view.DisplayName)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Equal(t, int64(1), page.TotalPages)
}

func TestListSortComposition(t *testing.T) {
	tests := []struct {
		name           string
		createdAtDesc  bool
		displayNameAsc bool
		want           domain.SortSpec
	}{
		{"both toggles", true, true, domain.SortSpec{CreatedAtDesc: true, DisplayNameAsc: true}},
		{"created at only", true, false, domain.SortSpec{CreatedAtDesc: true}},
		{"display name only", false, true, domain.SortSpec{DisplayNameAsc: true}},
		{"neither defaults to newest first", false, false, domain.SortSpec{CreatedAtDesc: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAccountRepo{}
			svc := newService(t, repo)

			_, err := svc.List(context.Background(), ListRequest{
				Page:           0,
				PageSize:       10,
				CreatedAtDesc:  tt.createdAtDesc,
				DisplayNameAsc: tt.displayNameAsc,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.lastPage.Sort)
		})
	}
}

func TestListPageMetadata(t *testing.T) {
	repo := &fakeAccountRepo{listTotal: 25}
	svc := newService(t, repo)

	page, err := svc.List(context.Background(), ListRequest{Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, int64(25), page.TotalElements)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, 10, repo.lastPage.Offset())
}

func TestListStorageFailure(t *testing.T) {
	repo := &fakeAccountRepo{listErr: errors.New("db down")}
	svc := newService(t, repo)

	_, err := svc.List(context.Background(), ListRequest{Page: 0, PageSize: 10})

	assert.Error(t, err)
}
