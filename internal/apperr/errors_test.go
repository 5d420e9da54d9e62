package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{NotFound("AAPL"), http.StatusNotFound, "not_found"},
		{Provider("yahoo", context.DeadlineExceeded), http.StatusServiceUnavailable, "provider_error"},
		{Malformed("price %s <= 0", "-1"), http.StatusBadGateway, "malformed_data"},
		{Insufficient("trend", 2, 0), http.StatusUnprocessableEntity, "insufficient_data"},
		{fmt.Errorf("%w: bad period", ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
		assert.Equal(t, tt.code, Code(tt.err), tt.err.Error())
	}
}

func TestProviderKeepsCause(t *testing.T) {
	err := Provider("yahoo", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
