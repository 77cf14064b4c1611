package types

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest is the body of POST /auth/google
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// AuthResponse is returned by both login endpoints
type AuthResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type,omitempty"`
	User        User   `json:"user"`
}
