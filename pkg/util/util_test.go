package util

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDFormat(t *testing.T) {
	id := NewID("crd")

	assert.Regexp(t, `^crd_[0-9a-f]{32}$`, id)
	assert.NotEqual(t, id, NewID("crd"))
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return errors.New("still broken")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "still broken", err.Error())
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 5, time.Second, func() error {
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)

	assert.Equal(t, "NOT_FOUND", de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	original := NewValidationError("bad input", map[string]any{"field": "title"})

	de := ToDomainError(original)

	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Equal(t, map[string]any{"field": "title"}, de.Details)
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	de := ToDomainError(errors.New("surprise"))

	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
}

func TestUnauthorizedSenderCarriesSender(t *testing.T) {
	de := ToDomainError(NewUnauthorizedSender("stranger@evil.test"))

	assert.Equal(t, "UNAUTHORIZED_SENDER", de.Code)
	assert.Equal(t, "stranger@evil.test", de.Details["sender"])
	assert.Contains(t, de.Message, "stranger@evil.test")
}
