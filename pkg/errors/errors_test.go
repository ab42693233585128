package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrValidation, "month must be a school month between 3 and 12")

	assert.True(t, errors.Is(clone, ErrValidation))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, clone.Status)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestWrapMatchesSentinelAndCause(t *testing.T) {
	wrapped := fmt.Errorf("apply daily entry: %w",
		Wrap(sql.ErrNoRows, ErrRecordNotFound.Code, ErrRecordNotFound.Status, "no record for S1"))

	assert.True(t, errors.Is(wrapped, ErrRecordNotFound))
	assert.True(t, errors.Is(wrapped, sql.ErrNoRows))
	assert.Equal(t, "apply daily entry: no record for S1: sql: no rows in result set", wrapped.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)

	typed := FromError(fmt.Errorf("ctx: %w", ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, typed.Status)
}
