package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"

	DateLayout = "2006-01-02"

	MaxCategoryNameLen = 30
	MaxDescriptionLen  = 200
)

type (
	CategoryType string

	Date struct {
		time.Time
	}

	Category struct {
		ID   int64
		Name string
		Type CategoryType
	}

	Transaction struct {
		ID          int64
		CategoryID  int64
		Description string
		Amount      decimal.Decimal // in the default currency
		Date        Date
	}

	Budget struct {
		ID      int64
		Scope   BudgetScope
		Current decimal.Decimal
		Total   decimal.Decimal
	}
)

func ParseCategoryType(s string) (CategoryType, error) {
	switch t := CategoryType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidCategoryType
	}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLen {
		return NewValidationError("name", fmt.Sprintf("too long (max %d characters)", MaxCategoryNameLen))
	}
	if _, err := ParseCategoryType(string(c.Type)); err != nil {
		return err
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.CategoryID < 1 {
		return NewValidationError("category_id", "is required")
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return NewValidationError("description", fmt.Sprintf("too long (max %d characters)", MaxDescriptionLen))
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	return nil
}

func (b Budget) Validate() error {
	return b.Scope.Validate()
}

// Exceeded reports whether the running total has gone past the ceiling.
// Informational only.
func (b Budget) Exceeded() bool {
	return !b.Total.IsZero() && b.Current.Abs().GreaterThan(b.Total.Abs())
}

// Remaining is the unspent part of the ceiling, compared by magnitude so
// that negative expense totals read naturally. It may be negative.
func (b Budget) Remaining() decimal.Decimal {
	return b.Total.Abs().Sub(b.Current.Abs())
}
