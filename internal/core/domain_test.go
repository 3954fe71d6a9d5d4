package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		wantErr error
	}{
		{"valid expense", Category{Name: "Food", Type: Expense}, nil},
		{"valid income", Category{Name: "Salary", Type: Income}, nil},
		{"empty name", Category{Name: "  ", Type: Expense}, ErrValidation},
		{"name too long", Category{Name: strings.Repeat("x", 31), Type: Expense}, ErrValidation},
		{"bad type", Category{Name: "Food", Type: "savings"}, ErrInvalidCategoryType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{CategoryID: 1, Date: NewDate(2024, 3, 1)}
	require.NoError(t, valid.Validate())

	missingCategory := valid
	missingCategory.CategoryID = 0
	var ve *ValidationError
	require.True(t, errors.As(missingCategory.Validate(), &ve))
	assert.Equal(t, "category_id", ve.Field)

	longDesc := valid
	longDesc.Description = strings.Repeat("a", MaxDescriptionLen+1)
	assert.ErrorIs(t, longDesc.Validate(), ErrValidation)

	noDate := valid
	noDate.Date = Date{}
	assert.ErrorIs(t, noDate.Validate(), ErrValidation)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseCategoryType(t *testing.T) {
	ct, err := ParseCategoryType(" Income ")
	require.NoError(t, err)
	assert.Equal(t, Income, ct)

	_, err = ParseCategoryType("other")
	assert.ErrorIs(t, err, ErrInvalidCategoryType)
}

func TestBudgetScope(t *testing.T) {
	agg := Aggregate()
	assert.True(t, agg.IsAggregate())
	assert.Equal(t, AggregateKey, agg.Key())
	assert.NoError(t, agg.Validate())

	food := PerCategory(7)
	id, ok := food.CategoryID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "category:7", food.String())

	assert.Equal(t, agg, ScopeFromKey(0))
	assert.Equal(t, food, ScopeFromKey(7))

	assert.ErrorIs(t, PerCategory(0).Validate(), ErrInvalidScope)
	assert.ErrorIs(t, BudgetScope{}.Validate(), ErrInvalidScope)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Pick a category", UserMessage(NewUserError("Pick a category", ErrValidation)))
	assert.Equal(t, "transaction 4 not found", UserMessage(NewNotFoundError("transaction", 4)))
	assert.Equal(t, "Invalid amount", UserMessage(ErrInvalidAmount))
	assert.Equal(t, "amount: is required", UserMessage(NewValidationError("amount", "is required")))
}
