package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_HTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInvalidState: http.StatusUnprocessableEntity,
		KindUpstream:     http.StatusBadGateway,
		KindInternal:     http.StatusInternalServerError,
	}
	seen := map[int]Kind{}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
		if prev, dup := seen[want]; dup {
			t.Fatalf("%s and %s share status %d", prev, kind, want)
		}
		seen[want] = kind
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("enroll: %w", Wrap(KindConflict, CodeEventFull, "capacity exhausted", errors.New("0 rows")))

	assert.ErrorIs(t, wrapped, ErrEventFull)
	assert.NotErrorIs(t, wrapped, ErrAlreadyParticipating)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := Wrap(KindUpstream, CodeProviderUnavailable, "create payment intent", errors.New("timeout"))
	assert.Equal(t, "create payment intent: timeout", err.Error())
	assert.Equal(t, "event not found", ErrEventNotFound.Error())
}
