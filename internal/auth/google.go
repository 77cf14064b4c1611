package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleJWKSURL is where Google publishes its ID token signing keys
const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIdentity is what a verified Google ID token says about its holder
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// GoogleVerifier verifies Google ID tokens against a JWKS
type GoogleVerifier struct {
	jwks     keyfunc.Keyfunc
	clientID string
}

// NewGoogleVerifier verifies tokens with the keys of jwks issued to clientID
func NewGoogleVerifier(jwks keyfunc.Keyfunc, clientID string) *GoogleVerifier {
	return &GoogleVerifier{jwks: jwks, clientID: clientID}
}

// NewGoogleVerifierFromURL fetches and keeps refreshing the JWKS at jwksURL
func NewGoogleVerifierFromURL(ctx context.Context, jwksURL, clientID string) (*GoogleVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}
	return NewGoogleVerifier(k, clientID), nil
}

// Verify checks an ID token and returns the identity it asserts
func (v *GoogleVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	claims := &googleClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid id token")
	}
	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, errors.New("id token carries no verified email")
	}
	return &GoogleIdentity{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
