package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorMapping(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))

	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	stale := ToDomainError(fmt.Errorf("save: %w", ErrStaleVersion))
	assert.Equal(t, CodeVersionConflict, stale.Code)
	assert.Equal(t, http.StatusConflict, stale.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, "internal server error: boom", internal.Error())
}

func TestDomainErrorsPassThrough(t *testing.T) {
	original := NewInvalidTransition("Ready", "On Hold", []string{"In Progress"})
	got := ToDomainError(fmt.Errorf("wrapped: %w", original))
	require.NotNil(t, got)
	assert.Equal(t, CodeInvalidTransition, got.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, got.HTTPStatus)
	assert.Equal(t, []string{"In Progress"}, got.Details["allowed"])
}

func TestVersionConflictUnwrapsToSentinel(t *testing.T) {
	err := NewVersionConflict("wo-1", 3)
	assert.True(t, errors.Is(err, ErrStaleVersion))
	assert.Equal(t, int64(3), ToDomainError(err).Details["expected_version"])
}
