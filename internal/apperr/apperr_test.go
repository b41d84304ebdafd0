package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create group: %w", Partial("ch-1", "persist group", errors.New("db down")))

	assert.Equal(t, KindPartialFailure, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindPartialFailure))
	assert.False(t, Is(wrapped, KindUpstreamUnavailable))
	assert.Equal(t, KindStoreUnavailable, KindOf(errors.New("plain")))

	var e *Error
	if assert.True(t, errors.As(wrapped, &e)) {
		assert.Equal(t, "ch-1", e.ChannelID)
	}
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInvalidOperation, http.StatusBadRequest},
		{KindAlreadyExists, http.StatusConflict},
		{KindNotFollowing, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindUpstreamUnavailable, http.StatusBadGateway},
		{KindPartialFailure, http.StatusInternalServerError},
		{KindStoreUnavailable, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.kind))
		})
	}
}
