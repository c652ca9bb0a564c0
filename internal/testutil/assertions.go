package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "famledger/internal/errors"
)

// AssertAppError requires err to carry an AppError with the given code.
func AssertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr, "want AppError %s", code)
	assert.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
}

// AssertNoError stops the test on any error.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// AssertDecimal compares money at two decimal places, so "450.00" matches 450.
func AssertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}
