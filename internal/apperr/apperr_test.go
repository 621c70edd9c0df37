package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("approve: %w", InsufficientBalance("child does not have enough points"))

	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.False(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, KindInsufficientBalance, KindOf(err))
	assert.Equal(t, "child does not have enough points", MessageOf(err))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindOf(err)))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:3306")
	err := Internal("load account failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load account failed", MessageOf(err))
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestCodesRoundTrip(t *testing.T) {
	kinds := []Kind{
		KindAuthentication, KindAuthorization, KindValidation, KindInsufficientBalance,
		KindInvalidState, KindNotFound, KindConflict, KindRateLimited, KindInternal,
	}
	for _, k := range kinds {
		assert.Equal(t, k, KindForCode(Code(k)), "kind %s", k)
	}
	assert.Equal(t, KindInternal, KindForCode(9999))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindAuthentication))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindAuthorization))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindInvalidState))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
}
