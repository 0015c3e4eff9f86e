package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func testIssuer(t *testing.T) *Issuer {
	t.Helper()
	return NewIssuer(Config{
		Secret:     testSecret(),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
}

func testSubject() Subject {
	return Subject{ID: 42, Username: "alice", Email: "alice@example.com", Role: "ADMIN"}
}

func TestIssueAccessRoundtrip(t *testing.T) {
	issuer := testIssuer(t)

	tokenStr, err := issuer.IssueAccess(testSubject())
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := issuer.Verify(tokenStr)
	require.NoError(t, err)

	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "alice", claims.Subject)
	assert.False(t, claims.IsRefresh())
	assert.Equal(t, testSubject(), claims.ToSubject())
}

func TestIssueRefreshMarksTokenType(t *testing.T) {
	issuer := testIssuer(t)

	tokenStr, err := issuer.IssueRefresh(testSubject())
	require.NoError(t, err)

	claims, err := issuer.Verify(tokenStr)
	require.NoError(t, err)
	assert.True(t, claims.IsRefresh())
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := NewIssuer(Config{Secret: testSecret(), AccessTTL: time.Nanosecond})

	tokenStr, err := issuer.IssueAccess(testSubject())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = issuer.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	issuer := testIssuer(t)

	for _, raw := range []string{"not-a-token", "a.b", "...."} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, "input %q", raw)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	issuer := testIssuer(t)

	tokenStr, err := issuer.IssueAccess(testSubject())
	require.NoError(t, err)

	// Flip one character of the signature segment.
	lastDot := strings.LastIndex(tokenStr, ".")
	sig := []byte(tokenStr[lastDot+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := tokenStr[:lastDot+1] + string(sig)

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongKey(t *testing.T) {
	issuer := testIssuer(t)
	other := NewIssuer(Config{
		Secret: base64.StdEncoding.EncodeToString([]byte("another-secret-another-secret-00")),
	})

	tokenStr, err := other.IssueAccess(testSubject())
	require.NoError(t, err)

	_, err = issuer.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	issuer := testIssuer(t)

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{
		UserID:   42,
		Username: "alice",
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenStr, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrUnsupportedToken)
}

func TestSigningKeyErrors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty secret", secret: ""},
		{name: "invalid base64", secret: "%%%not-base64%%%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := NewIssuer(Config{Secret: tt.secret})

			_, err := issuer.IssueAccess(testSubject())
			assert.ErrorIs(t, err, ErrSigningKey)

			_, err = issuer.Verify("whatever")
			assert.ErrorIs(t, err, ErrSigningKey)
		})
	}
}

func TestNewIssuerDefaultsTTLs(t *testing.T) {
	issuer := NewIssuer(Config{Secret: testSecret()})
	assert.Equal(t, DefaultAccessTTL, issuer.AccessTTL())
	assert.Equal(t, DefaultRefreshTTL, issuer.RefreshTTL())
}

func TestNormalizeBearer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{in: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{in: "  Bearer   abc  ", want: "abc"},
		{in: "abc.def.ghi", want: "abc.def.ghi"},
		{in: "   ", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBearer(tt.in), "input %q", tt.in)
	}
}
