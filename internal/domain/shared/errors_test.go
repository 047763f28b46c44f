package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError("CONCURRENCY_CONFLICT", "payment pay_1 was modified")

	assert.True(t, errors.Is(err, ErrConcurrencyConflict))
	assert.True(t, errors.Is(fmt.Errorf("save: %w", err), ErrConcurrencyConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(errors.New("CONCURRENCY_CONFLICT"), ErrConcurrencyConflict))
}

func TestAsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", ErrNotFound)

	domainErr, ok := AsDomainError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)

	_, ok = AsDomainError(errors.New("plain"))
	assert.False(t, ok)
}
