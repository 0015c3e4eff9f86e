package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/config"
	"github.com/orbitcommerce/auth-core/internal/middleware"
	jwtpkg "github.com/orbitcommerce/auth-core/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoedHeaders struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(echoedHeaders{
			UserID: r.Header.Get(middleware.HeaderUserID),
			Name:   r.Header.Get(middleware.HeaderUserName),
			Role:   r.Header.Get(middleware.HeaderUserRole),
			Email:  r.Header.Get(middleware.HeaderUserEmail),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGateway(t *testing.T, upstreamURL string) (*Gateway, *jwtpkg.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer := jwtpkg.NewIssuer(jwtpkg.Config{
		Secret:     base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	gw, err := New(config.GatewayConfig{
		PublicPrefixes: []string{"/api/auth/login", "/api/auth/register"},
		Routes: []config.GatewayRoute{
			{Prefix: "/api", Upstream: upstreamURL},
		},
	}, issuer, zap.NewNop())
	require.NoError(t, err)
	return gw, issuer
}

func doRequest(handler http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	// Give the request a cancelable context, as real server requests have;
	// otherwise ReverseProxy takes the http.CloseNotifier path, which the
	// httptest recorder does not implement.
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	req = req.WithContext(ctx)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestPublicPrefixPassesWithoutToken(t *testing.T) {
	upstream := newUpstream(t)
	gw, _ := newTestGateway(t, upstream.URL)

	rr := doRequest(gw.Handler(), http.MethodPost, "/api/auth/login", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestProtectedPathRejectsMissingToken(t *testing.T) {
	upstream := newUpstream(t)
	gw, _ := newTestGateway(t, upstream.URL)

	rr := doRequest(gw.Handler(), http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProtectedPathRejectsBadTokens(t *testing.T) {
	upstream := newUpstream(t)
	gw, _ := newTestGateway(t, upstream.URL)

	expiredIssuer := jwtpkg.NewIssuer(jwtpkg.Config{
		Secret:    base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
		AccessTTL: time.Nanosecond,
	})
	expired, err := expiredIssuer.IssueAccess(jwtpkg.Subject{ID: 1, Username: "alice"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	foreignIssuer := jwtpkg.NewIssuer(jwtpkg.Config{
		Secret: base64.StdEncoding.EncodeToString([]byte("another-secret-another-secret-00")),
	})
	foreign, err := foreignIssuer.IssueAccess(jwtpkg.Subject{ID: 1, Username: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed", token: "Bearer not-a-token"},
		{name: "expired", token: "Bearer " + expired},
		{name: "wrong key", token: "Bearer " + foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(gw.Handler(), http.MethodGet, "/api/orders", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestValidTokenInjectsIdentityHeaders(t *testing.T) {
	upstream := newUpstream(t)
	gw, issuer := newTestGateway(t, upstream.URL)

	token, err := issuer.IssueAccess(jwtpkg.Subject{
		ID:       42,
		Username: "alice",
		Email:    "alice@example.com",
		Role:     "ADMIN",
	})
	require.NoError(t, err)

	rr := doRequest(gw.Handler(), http.MethodGet, "/api/orders", "Bearer "+token)
	require.Equal(t, http.StatusOK, rr.Code)

	var echoed echoedHeaders
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &echoed))
	assert.Equal(t, "42", echoed.UserID)
	assert.Equal(t, "alice", echoed.Name)
	assert.Equal(t, "ADMIN", echoed.Role)
	assert.Equal(t, "alice@example.com", echoed.Email)
}

func TestInboundIdentityHeadersAreStripped(t *testing.T) {
	upstream := newUpstream(t)
	gw, _ := newTestGateway(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	req = req.WithContext(ctx)
	req.Header.Set(middleware.HeaderUserID, "999")
	req.Header.Set(middleware.HeaderUserRole, "ADMIN")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var echoed echoedHeaders
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &echoed))
	assert.Empty(t, echoed.UserID, "spoofed user id must not reach the upstream")
	assert.Empty(t, echoed.Role)
}

func TestUnroutedPathIs404(t *testing.T) {
	upstream := newUpstream(t)
	gw, issuer := newTestGateway(t, upstream.URL)

	token, err := issuer.IssueAccess(jwtpkg.Subject{ID: 1, Username: "alice"})
	require.NoError(t, err)

	rr := doRequest(gw.Handler(), http.MethodGet, "/elsewhere", "Bearer "+token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthz(t *testing.T) {
	upstream := newUpstream(t)
	gw, _ := newTestGateway(t, upstream.URL)

	rr := doRequest(gw.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRejectsRelativeUpstream(t *testing.T) {
	issuer := jwtpkg.NewIssuer(jwtpkg.Config{Secret: "c2VjcmV0"})
	_, err := New(config.GatewayConfig{
		Routes: []config.GatewayRoute{{Prefix: "/api", Upstream: "not-a-url"}},
	}, issuer, zap.NewNop())
	assert.Error(t, err)
}
