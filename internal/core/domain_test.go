package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var now = time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)

func TestParseEntryType(t *testing.T) {
	cases := []struct {
		in   string
		want EntryType
		ok   bool
	}{
		{"income", Income, true},
		{"Expense", Expense, true},
		{" EXPENSE ", Expense, true},
		{"", "", false},
		{"transfer", "", false},
	}
	for _, tc := range cases {
		got, err := ParseEntryType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidEntryType) {
			t.Fatalf("%q expected ErrInvalidEntryType, got %v", tc.in, err)
		}
	}
}

func TestNewEntryBuildNormalizesSign(t *testing.T) {
	for _, amount := range []string{"12.5", "0.01", "999"} {
		exp, err := NewEntry{Amount: amount, Type: "expense", Category: "Food"}.Build(1, now)
		if err != nil {
			t.Fatalf("expense %s: %v", amount, err)
		}
		if !exp.Amount.IsNegative() {
			t.Fatalf("expense %s stored as %s", amount, exp.Amount)
		}

		inc, err := NewEntry{Amount: amount, Type: "income"}.Build(1, now)
		if err != nil {
			t.Fatalf("income %s: %v", amount, err)
		}
		if !inc.Amount.IsPositive() {
			t.Fatalf("income %s stored as %s", amount, inc.Amount)
		}
	}
}

func TestNewEntryBuildDescriptionFallback(t *testing.T) {
	e, err := NewEntry{Amount: "3", Type: "expense", Category: "Coffee"}.Build(7, now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if e.Description != "Coffee" {
		t.Fatalf("description = %q, want category fallback", e.Description)
	}
	if e.UserID != 7 || !e.CreatedAt.Equal(now) {
		t.Fatalf("unexpected owner/time: %+v", e)
	}

	e, err = NewEntry{Amount: "3", Type: "expense", Category: "Coffee", Description: "Flat white"}.Build(7, now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if e.Description != "Flat white" {
		t.Fatalf("description = %q", e.Description)
	}
}

func TestNewEntryBuildRejects(t *testing.T) {
	bads := []struct {
		in  NewEntry
		err error
	}{
		{NewEntry{Amount: "", Type: "income"}, ErrAmountRequired},
		{NewEntry{Amount: "abc", Type: "income"}, ErrInvalidAmount},
		{NewEntry{Amount: "-5", Type: "income"}, ErrInvalidAmount},
		{NewEntry{Amount: "0", Type: "expense"}, ErrInvalidAmount},
		{NewEntry{Amount: "5", Type: "gift"}, ErrInvalidEntryType},
		{NewEntry{Amount: "5", Type: "income", Category: string(make([]byte, MaxCategoryLength+1))}, ErrCategoryTooLong},
	}
	for i, tc := range bads {
		_, err := tc.in.Build(1, now)
		if !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestNewEntryBuildCountsCharacters(t *testing.T) {
	in := NewEntry{
		Amount:      "5",
		Type:        "expense",
		Category:    strings.Repeat("à", MaxCategoryLength),
		Description: strings.Repeat("é", MaxDescriptionLength),
	}
	if _, err := in.Build(1, now); err != nil {
		t.Fatalf("limits are in characters, got %v", err)
	}

	in.Description += "é"
	if _, err := in.Build(1, now); !errors.Is(err, ErrDescriptionTooLong) {
		t.Fatalf("expected %v, got %v", ErrDescriptionTooLong, err)
	}
}

func TestEntryPatchApply(t *testing.T) {
	str := func(s string) *string { return &s }

	e := Entry{UserID: 1, Type: Expense, Amount: decimal.NewFromInt(-10), Description: "Lunch", Category: "Food"}
	for _, in := range []string{"25", "-25", "25.00"} {
		if err := (EntryPatch{Amount: str(in)}).Apply(&e); err != nil {
			t.Fatalf("apply %q: %v", in, err)
		}
		if !e.Amount.Equal(decimal.NewFromInt(-25)) {
			t.Fatalf("apply %q: amount = %s, want -25", in, e.Amount)
		}
	}

	inc := Entry{UserID: 1, Type: Income, Amount: decimal.NewFromInt(10)}
	if err := (EntryPatch{Amount: str("-40")}).Apply(&inc); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !inc.Amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("income amount = %s, want 40", inc.Amount)
	}

	if err := (EntryPatch{Description: str(" Dinner "), Category: str("Out")}).Apply(&e); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if e.Description != "Dinner" || e.Category != "Out" || !e.Amount.Equal(decimal.NewFromInt(-25)) {
		t.Fatalf("unexpected entry after patch: %+v", e)
	}

	if err := (EntryPatch{Amount: str("0")}).Apply(&e); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	s := Session{ExpiresAt: now}
	if !s.Expired(now) {
		t.Fatal("session should be expired at its expiry instant")
	}
	if s.Expired(now.Add(-time.Second)) {
		t.Fatal("session should be valid before expiry")
	}
}
