package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/orbitcommerce/auth-core/internal/config"
	"github.com/orbitcommerce/auth-core/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.IdentityConfig{
		BaseURL: srv.URL,
		Timeout: config.Duration(2 * time.Second),
	}, zap.NewNop())
	return client, srv
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, reason string, data interface{}) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"message": http.StatusText(status),
		"data":    json.RawMessage(raw),
		"reason":  reason,
		"success": success,
	})
}

func TestGetByIDDecodesUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/internal/42", r.URL.Path)
		writeEnvelope(w, http.StatusOK, true, "", User{
			ID:        42,
			Username:  "alice",
			Email:     "alice@example.com",
			Role:      "ADMIN",
			Activated: true,
		})
	}))

	user, err := client.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "ADMIN", user.Role)
	assert.True(t, user.Activated)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "404 is not-found", status: http.StatusNotFound, wantErr: apperrors.ErrRemoteNotFound},
		{name: "400 is bad request", status: http.StatusBadRequest, wantErr: apperrors.ErrBadRequest},
		{name: "401 is denied", status: http.StatusUnauthorized, wantErr: apperrors.ErrRemoteDenied},
		{name: "403 is denied", status: http.StatusForbidden, wantErr: apperrors.ErrRemoteDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.GetByUsername(context.Background(), "ghost")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFailedEnvelopeIsDenied(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, "bad credentials", nil)
	}))

	_, err := client.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrRemoteDenied)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestIdempotentReadRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "", User{ID: 1, Username: "alice"})
	}))

	user, err := client.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAuthenticateNeverRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Authenticate(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuthenticateSendsCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/authenticate", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "s3cret", body["password"])

		writeEnvelope(w, http.StatusOK, true, "", User{ID: 5, Username: "alice"})
	}))

	user, err := client.Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
}

func TestUpdateLastLogin(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/internal/42/last-login", r.URL.Path)
		writeEnvelope(w, http.StatusOK, true, "", nil)
	}))

	err := client.UpdateLastLogin(context.Background(), 42, time.Now())
	assert.NoError(t, err)
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(config.IdentityConfig{
		BaseURL: srv.URL,
		Timeout: config.Duration(time.Second),
	}, zap.NewNop())

	_, err := client.Authenticate(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)
}
