package fanout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/merchantiq/catalogsync/internal/config"
)

func pushTo(t *testing.T, status int, body string) error {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	pusher := NewHTTPPusherFactory()(config.ProviderConfig{
		Name:     "test",
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	})
	return pusher.Push(context.Background(), PushRequest{
		TenantID: 1,
		Shop:     "shop.example.com",
		Items:    []PayloadItem{{ExternalID: "p1", Title: "One", Price: 2}},
	})
}

func TestPushStatusMapping(t *testing.T) {
	assert.NoError(t, pushTo(t, http.StatusOK, `{}`))
	assert.NoError(t, pushTo(t, http.StatusAccepted, ``))

	err := pushTo(t, http.StatusUnauthorized, ``)
	assert.ErrorIs(t, err, ErrAuthRejected)
	assert.True(t, IsTerminal(err))

	err = pushTo(t, http.StatusForbidden, ``)
	assert.ErrorIs(t, err, ErrAuthRejected)

	err = pushTo(t, http.StatusTooManyRequests, ``)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsTerminal(err))

	err = pushTo(t, http.StatusUnprocessableEntity, `{"error":"bad items"}`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "bad items")

	// 5xx is transient: an error, but not a terminal one.
	err = pushTo(t, http.StatusBadGateway, ``)
	assert.Error(t, err)
	assert.False(t, IsTerminal(err))
}

func TestPushNetworkErrorIsTransient(t *testing.T) {
	pusher := NewHTTPPusherFactory()(config.ProviderConfig{
		Name:     "test",
		Endpoint: "http://127.0.0.1:1",
		APIKey:   "k",
		Timeout:  time.Second,
	})

	err := pusher.Push(context.Background(), PushRequest{})
	assert.Error(t, err)
	assert.False(t, IsTerminal(err))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(ErrAuthRejected))
	assert.True(t, IsTerminal(ErrMalformedPayload))
	assert.True(t, IsTerminal(ErrRateLimited))
	assert.False(t, IsTerminal(errors.New("timeout")))
	assert.False(t, IsTerminal(nil))
}
