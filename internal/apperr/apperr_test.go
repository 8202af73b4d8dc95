package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("accept: %w", NotFound("no pending request"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, http.StatusNotFound, Status(KindOf(err)))
}

func TestKindOfContextErrors(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindCanceled, KindOf(fmt.Errorf("put: %w", context.Canceled)))
	assert.Equal(t, KindUpstream, KindOf(errors.New("boom")))
}

func TestDescribeHidesUpstreamCause(t *testing.T) {
	code, msg := Describe(errors.New("dial tcp 10.0.0.1:27017: refused"))
	assert.Equal(t, "UPSTREAM_ERROR", code)
	assert.Equal(t, "internal error", msg)

	code, msg = Describe(New(KindValidation, "SELF_REQUEST", "cannot befriend yourself", nil))
	assert.Equal(t, "SELF_REQUEST", code)
	assert.Equal(t, "cannot befriend yourself", msg)
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindCanceled:     StatusClientClosedRequest,
		KindUpstream:     http.StatusInternalServerError,
		KindTimeout:      http.StatusGatewayTimeout,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(kind), kind)
	}
}
