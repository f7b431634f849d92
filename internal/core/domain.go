package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "ingreso"
	Expense Kind = "egreso"
)

// AutomaticSuffix is appended to the description of transactions generated
// from a recurring template so they remain distinguishable from user-entered
// ones. There is no separate provenance column.
const AutomaticSuffix = " (Automático)"

type (
	// Kind discriminates income from expense rows. Stored verbatim.
	Kind string

	Category struct {
		ID        int64
		Name      string
		Kind      Kind
		Color     string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		Description string
		Amount      Money
		Kind        Kind
		CategoryID  int64
		Date        Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// RecurringTemplate describes a recurring obligation that the processor
	// materializes into a concrete Transaction once per calendar month, on
	// DayOfMonth. LastProcessed is the idempotency marker.
	RecurringTemplate struct {
		ID            int64
		Description   string
		Amount        Money
		Kind          Kind
		CategoryID    int64
		DayOfMonth    int
		Active        bool
		LastProcessed Date
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDayOfMonth  = errors.New("day of month must be between 1 and 28")
	ErrInvalidCategory    = errors.New("invalid category reference")
	ErrInvalidColor       = errors.New("invalid color")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrEmptyName          = errors.New("empty name")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	if c.Color != "" && !validHexColor(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 255 {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(rt.Description) > 255 {
		return ErrDescriptionTooLong
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if err := rt.Kind.Validate(); err != nil {
		return err
	}
	if rt.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	// Capped at 28 so the anchor day exists in every month, February included.
	if rt.DayOfMonth < 1 || rt.DayOfMonth > 28 {
		return ErrInvalidDayOfMonth
	}
	return nil
}

// validHexColor accepts the "#rrggbb" form used by the dashboard palette.
func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
