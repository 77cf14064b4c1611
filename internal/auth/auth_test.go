package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var client = &types.User{ID: "2", Email: "client@dabur.com", Name: "Dabur Client", Role: types.RoleClient}

func TestIssuerRoundTrip(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	token, err := issuer.Issue(client)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)

	user := claims.User()
	assert.Equal(t, "2", user.ID)
	assert.Equal(t, "client@dabur.com", user.Email)
	assert.Equal(t, types.RoleClient, user.Role)
	assert.Equal(t, "dabur.com", user.Domain)
}

func TestIssuerRejectsExpired(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.Issue(client)
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Minute).Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssuerRejectsForeignSignature(t *testing.T) {
	token, err := NewIssuer("another-secret-of-enough-length", time.Hour).Issue(client)
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestIssuerRejectsUnsignedToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email:            client.Email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "2", Issuer: IssuerName, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	token, err := issuer.Issue(client)
	require.NoError(t, err)

	var seen *Claims
	handler := Middleware(issuer, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"garbage", "Bearer abc", "", http.StatusUnauthorized},
		{"valid header", "Bearer " + token, "", http.StatusNoContent},
		{"valid query", "", "?token=" + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/agents"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.NotEmpty(t, body["detail"])
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, client.Email, seen.Email)
			}
		})
	}
}

func googleKeys(t *testing.T) (*rsa.PrivateKey, keyfunc.Keyfunc) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	jwks, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   enc.EncodeToString(key.N.Bytes()),
			"e":   enc.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)

	k, err := keyfunc.NewJWKSetJSON(jwks)
	require.NoError(t, err)
	return key, k
}

func signGoogle(t *testing.T, key *rsa.PrivateKey, claims googleClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestGoogleVerifier(t *testing.T) {
	key, k := googleKeys(t)
	verifier := NewGoogleVerifier(k, "client-id.apps.googleusercontent.com")

	valid := googleClaims{
		Email:         "someone@dabur.com",
		EmailVerified: true,
		Name:          "Some One",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "g-123",
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{"client-id.apps.googleusercontent.com"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	id, err := verifier.Verify(signGoogle(t, key, valid))
	require.NoError(t, err)
	assert.Equal(t, &GoogleIdentity{Subject: "g-123", Email: "someone@dabur.com", Name: "Some One"}, id)

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}
	_, err = verifier.Verify(signGoogle(t, key, wrongAudience))
	assert.Error(t, err)

	wrongIssuer := valid
	wrongIssuer.Issuer = "https://evil.example"
	_, err = verifier.Verify(signGoogle(t, key, wrongIssuer))
	assert.Error(t, err)

	unverified := valid
	unverified.EmailVerified = false
	_, err = verifier.Verify(signGoogle(t, key, unverified))
	assert.Error(t, err)
}
