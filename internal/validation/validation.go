// Package validation implements the ordered field-validation pipeline for
// account registration and update. Rules run in a fixed order and the
// pipeline stops at the first violation; callers depend on which rule
// surfaces when several are violated at once.
package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"account-service/internal/repository"
)

// Mode selects which rules apply.
type Mode int

const (
	// Full validates a complete registration candidate. Every field is
	// required and validated.
	Full Mode = iota
	// Partial validates an update candidate. Only supplied fields are
	// validated; login id and email never change and are not checked.
	Partial
)

// Rule identifies a violated validation rule. The value doubles as the
// client-facing message.
type Rule string

const (
	RuleLoginIDLength     Rule = "user Id length error"
	RuleEmailFormat       Rule = "email expression error"
	RuleEmailLength       Rule = "email length error"
	RuleEmailTaken        Rule = "email exist"
	RuleDisplayNameLength Rule = "userName length error"
	RuleDisplayNameTaken  Rule = "userName exist"
	RuleSecretLength      Rule = "password length error"
	RuleSecretCharset     Rule = "password combination error"
	RulePhoneFormat       Rule = "phone number format error"
)

// RuleNone is returned on a pass.
const RuleNone Rule = ""

// Conflict reports whether the rule is a uniqueness conflict rather than a
// malformed field.
func (r Rule) Conflict() bool {
	return r == RuleEmailTaken || r == RuleDisplayNameTaken
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9+\-_.]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
	phonePattern = regexp.MustCompile(`^\d{2,3}-\d{3,4}-\d{4}$`)
)

const secretSymbols = "@#$%^&+=!"

// Candidate carries the fields under validation. Pointer fields are
// optional: in Partial mode a nil field is skipped, in Full mode it is
// treated as empty and fails its rule.
type Candidate struct {
	LoginID     string
	Email       string
	DisplayName *string
	Secret      *string
	PhoneNumber *string
}

// Engine evaluates candidates against the rule pipeline. Uniqueness rules
// read the account store; no rule writes.
type Engine struct {
	accounts repository.AccountFinder
}

// NewEngine returns an Engine backed by the given account finder.
func NewEngine(accounts repository.AccountFinder) *Engine {
	return &Engine{accounts: accounts}
}

// Validate runs the pipeline and returns the first violated rule, or
// RuleNone when the candidate passes. A non-nil error means a store lookup
// failed; the rule result is meaningless in that case.
func (e *Engine) Validate(ctx context.Context, c Candidate, mode Mode) (Rule, error) {
	if mode == Full {
		if n := utf8.RuneCountInString(c.LoginID); n < 4 || n > 20 {
			return RuleLoginIDLength, nil
		}
		if !emailPattern.MatchString(c.Email) {
			return RuleEmailFormat, nil
		}
		// the pattern rule already restricts email to ASCII, so the
		// byte count is the character count
		if len(c.Email) > 500 {
			return RuleEmailLength, nil
		}
		taken, err := e.emailInUse(ctx, c.Email)
		if err != nil {
			return RuleNone, err
		}
		if taken {
			return RuleEmailTaken, nil
		}
	}

	if mode == Full || c.DisplayName != nil {
		name := deref(c.DisplayName)
		if n := utf8.RuneCountInString(name); n < 2 || n > 8 {
			return RuleDisplayNameLength, nil
		}
		taken, err := e.displayNameInUse(ctx, name)
		if err != nil {
			return RuleNone, err
		}
		if taken {
			return RuleDisplayNameTaken, nil
		}
	}

	if mode == Full || c.Secret != nil {
		secret := deref(c.Secret)
		if n := utf8.RuneCountInString(secret); n < 8 || n > 500 {
			return RuleSecretLength, nil
		}
		if !validSecretComposition(secret) {
			return RuleSecretCharset, nil
		}
	}

	if mode == Full || c.PhoneNumber != nil {
		if !phonePattern.MatchString(deref(c.PhoneNumber)) {
			return RulePhoneFormat, nil
		}
	}

	return RuleNone, nil
}

func (e *Engine) emailInUse(ctx context.Context, email string) (bool, error) {
	_, err := e.accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check email uniqueness: %w", err)
	}
	return true, nil
}

func (e *Engine) displayNameInUse(ctx context.Context, name string) (bool, error) {
	_, err := e.accounts.FindByDisplayName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check display name uniqueness: %w", err)
	}
	return true, nil
}

// validSecretComposition requires at least one digit, one lowercase letter,
// one uppercase letter, one symbol from secretSymbols, and no whitespace.
func validSecretComposition(secret string) bool {
	var digit, lower, upper, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsSpace(r):
			return false
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(secretSymbols, r):
			symbol = true
		}
	}
	return digit && lower && upper && symbol
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
