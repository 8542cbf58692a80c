package domain

import "time"

// Account is a registered user record. CredentialHash holds the bcrypt hash
// of the plaintext secret and must never leave the service boundary.
type Account struct {
	ID             int64
	LoginID        string
	DisplayName    string
	Email          string
	CredentialHash string
	PhoneNumber    string
	CreatedAt      time.Time
}

// AccountView is the outward projection of an Account. It carries every
// field except the credential hash.
type AccountView struct {
	ID          int64     `json:"id"`
	LoginID     string    `json:"loginId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

// View projects the account to its public shape.
func (a Account) View() AccountView {
	return AccountView{
		ID:          a.ID,
		LoginID:     a.LoginID,
		DisplayName: a.DisplayName,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		CreatedAt:   a.CreatedAt,
	}
}

// SortSpec describes the ordering of a listing scan. Keys compose with
// fixed precedence: created-at descending first when set, then display
// name ascending.
type SortSpec struct {
	CreatedAtDesc  bool
	DisplayNameAsc bool
}

// ResolveSort combines the two independent listing toggles into a SortSpec.
// When neither toggle is set the listing defaults to newest first.
func ResolveSort(createdAtDesc, displayNameAsc bool) SortSpec {
	if !createdAtDesc && !displayNameAsc {
		return SortSpec{CreatedAtDesc: true}
	}
	return SortSpec{CreatedAtDesc: createdAtDesc, DisplayNameAsc: displayNameAsc}
}

// PageRequest addresses one page of a listing scan. Page is zero based:
// page 0 is the first page.
type PageRequest struct {
	Page     int
	PageSize int
	Sort     SortSpec
}

// Offset returns the scan offset for the request.
func (p PageRequest) Offset() int {
	return p.Page * p.PageSize
}

// Page is one page of projected accounts plus paging metadata.
type Page struct {
	Content       []AccountView `json:"content"`
	Page          int           `json:"page"`
	PageSize      int           `json:"pageSize"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int64         `json:"totalPages"`
}
