package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

// Field limits mirrored by the database schema.
const (
	MaxUsernameLength    = 80
	MinPasswordLength    = 6
	MaxDescriptionLength = 200
	MaxCategoryLength    = 50
)

type (
	UserID  int64
	EntryID int64

	EntryType string

	User struct {
		ID           UserID
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Entry struct {
		ID          EntryID
		UserID      UserID
		Amount      decimal.Decimal // signed: income > 0, expense < 0
		Description string
		Type        EntryType
		Category    string
		CreatedAt   time.Time
	}

	// NewEntry is the raw input of an entry submission.
	NewEntry struct {
		Amount      string
		Type        string
		Category    string
		Description string
	}

	// EntryPatch carries the optional fields of an edit. Nil means unchanged.
	EntryPatch struct {
		Amount      *string
		Description *string
		Category    *string
	}

	Session struct {
		ID        string
		UserID    UserID
		CreatedAt time.Time
		ExpiresAt time.Time
	}
)

// ParseEntryType accepts "income" or "expense" in any case.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", ErrInvalidEntryType
	}
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func (t EntryType) String() string {
	return string(t)
}

// Signed applies the sign implied by t to the magnitude of amount.
func (t EntryType) Signed(amount decimal.Decimal) decimal.Decimal {
	abs := amount.Abs()
	if t == Expense {
		return abs.Neg()
	}
	return abs
}

// Build validates in and produces an entry owned by owner. Amount sign comes
// from the type; an empty description falls back to the category.
func (in NewEntry) Build(owner UserID, now time.Time) (Entry, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Entry{}, err
	}
	if amount.IsNegative() {
		return Entry{}, ErrInvalidAmount
	}
	typ, err := ParseEntryType(in.Type)
	if err != nil {
		return Entry{}, err
	}
	category := strings.TrimSpace(in.Category)
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = category
	}
	e := Entry{
		UserID:      owner,
		Amount:      typ.Signed(amount),
		Description: description,
		Type:        typ,
		Category:    category,
		CreatedAt:   now.UTC(),
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Apply mutates e with the non-nil fields of p. The entry's type never
// changes, so a supplied amount is re-signed from the existing type.
func (p EntryPatch) Apply(e *Entry) error {
	if p.Amount != nil {
		amount, err := ParseAmount(*p.Amount)
		if err != nil {
			return err
		}
		e.Amount = e.Type.Signed(amount)
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
	}
	return e.Validate()
}

func (e Entry) Validate() error {
	if e.UserID == 0 {
		return ErrUnauthenticated
	}
	if !e.Type.Valid() {
		return ErrInvalidEntryType
	}
	if e.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if e.Amount.IsNegative() != (e.Type == Expense) {
		return ErrAmountSign
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if utf8.RuneCountInString(e.Category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}
	return nil
}

// IsIncome reports whether the entry adds to the balance.
func (e Entry) IsIncome() bool {
	return e.Type == Income
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
