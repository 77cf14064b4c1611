package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every call to the API
const DefaultTimeout = 15 * time.Second

const maxBodyBytes = 4 << 20

var validate = validator.New()

// TokenSource supplies the bearer token and is told when the API rejects it
type TokenSource interface {
	Token() string
	// Invalidate drops the session if token is still the current one
	Invalidate(ctx context.Context, token string) bool
}

// Client is the single HTTP client of the call API
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
	logger  zerolog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout overrides DefaultTimeout; 0 keeps the default
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = l.With().Str("component", "gateway").Logger() }
}

// NewClient creates a client for the API at baseURL. tokens may be nil.
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	noAuth bool
}

// RequestOption configures one call
type RequestOption func(*requestOptions)

// WithoutAuth sends no bearer token and treats 401 as invalid credentials
// instead of an expired session. Used by the login endpoints.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) { o.noAuth = true }
}

// Do sends a JSON request and decodes a successful response into out.
// Every failure is returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	endpoint := method + " " + path

	err := c.do(ctx, method, path, query, body, out, o)

	outcome := "ok"
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		outcome = apiErr.Kind.Error()
	}
	metrics.Get().RecordUpstream(endpoint, outcome, time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, o requestOptions) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: ErrBadRequest, Message: "could not encode request", cause: err}
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &APIError{Kind: ErrNetwork, Message: "invalid request", cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token := ""
	if !o.noAuth && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &APIError{Kind: ErrNetwork, Message: "Network error. Please check your connection.", cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &APIError{Kind: ErrNetwork, Message: "could not read response", StatusCode: resp.StatusCode, cause: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := c.errorFromResponse(resp.StatusCode, data, !o.noAuth)
		if errors.Is(apiErr.Kind, ErrUnauthorized) && token != "" {
			// the session is over no matter which view asked
			if c.tokens.Invalidate(context.WithoutCancel(ctx), token) {
				c.logger.Info().Str("path", path).Msg("API rejected token, session cleared")
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Kind: ErrValidation, Message: "malformed response", StatusCode: resp.StatusCode, cause: err}
	}
	if err := validateValue(out); err != nil {
		return &APIError{Kind: ErrValidation, Message: "unexpected response shape", StatusCode: resp.StatusCode, Details: err.Error(), cause: err}
	}
	return nil
}

func (c *Client) errorFromResponse(status int, data []byte, authenticated bool) *APIError {
	apiErr := &APIError{
		Kind:       kindForStatus(status, authenticated),
		StatusCode: status,
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.message()
		apiErr.Details = body.Detail
	}
	if apiErr.Message == "" {
		apiErr.Message = statusText(status)
	}
	return apiErr
}

// validateValue runs struct validation on out, or on every struct element when
// out points to a slice
func validateValue(out any) error {
	v := reflect.Indirect(reflect.ValueOf(out))
	switch v.Kind() {
	case reflect.Struct:
		return validate.Struct(v.Interface())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			elem := reflect.Indirect(v.Index(i))
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := validate.Struct(elem.Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}
