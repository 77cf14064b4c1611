package gateway

import (
	"context"
	"net/http"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// AuthService covers the /auth endpoints
type AuthService struct {
	client *Client
}

func NewAuthService(client *Client) *AuthService {
	return &AuthService{client: client}
}

// Login exchanges email and password for a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*types.AuthResponse, error) {
	var resp types.AuthResponse
	req := types.LoginRequest{Email: email, Password: password}
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", nil, req, &resp, WithoutAuth()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginWithGoogle exchanges a Google ID token for a token
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*types.AuthResponse, error) {
	var resp types.AuthResponse
	req := types.GoogleLoginRequest{IDToken: idToken}
	if err := s.client.Do(ctx, http.MethodPost, "/auth/google", nil, req, &resp, WithoutAuth()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user behind the current token
func (s *AuthService) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := s.client.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
