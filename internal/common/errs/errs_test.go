package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndMessage(t *testing.T) {
	err := New(KindForbidden, "dealer accounts may only credit their own customers")
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "dealer accounts may only credit their own customers", Message(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindForbidden))
}

func TestUntypedErrorsStayGeneric(t *testing.T) {
	err := errors.New("pq: connection refused")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", Message(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("constraint violation")
	err := Wrap(KindConflict, "email already in use", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "email already in use", Message(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated:     http.StatusUnauthorized,
		KindForbidden:           http.StatusForbidden,
		KindRoleNotFound:        http.StatusForbidden,
		KindNotFound:            http.StatusNotFound,
		KindConflict:            http.StatusConflict,
		KindInsufficientBalance: http.StatusUnprocessableEntity,
		KindValidation:          http.StatusUnprocessableEntity,
		KindTransactionFailed:   http.StatusInternalServerError,
		KindInternal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "x")))
	}
}
