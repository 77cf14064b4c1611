package mockapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	datasetOnce sync.Once
	dataset     *Dataset
	datasetErr  error
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	datasetOnce.Do(func() { dataset, datasetErr = DefaultDataset() })
	require.NoError(t, datasetErr)
	return dataset
}

type fakeGoogle struct {
	identity *auth.GoogleIdentity
	err      error
}

func (f fakeGoogle) Verify(string) (*auth.GoogleIdentity, error) { return f.identity, f.err }

func setupTestAPI(t *testing.T) (*API, *mux.Router) {
	t.Helper()
	api := NewAPI(testDataset(t), auth.NewIssuer("test-secret-0123456789", time.Hour), zerolog.Nop())
	router := mux.NewRouter()
	api.SetupRoutes(router)
	return api, router
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, router http.Handler, email, password string) string {
	t.Helper()
	rr := do(t, router, "POST", "/auth/login", "", types.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp types.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestDefaultDataset(t *testing.T) {
	d := testDataset(t)

	assert.Len(t, d.Users, 3)
	assert.Len(t, d.Agents, 5)
	assert.Len(t, d.Calls, 5)
	assert.Len(t, d.CallLogs, 6)
	for _, u := range d.Users {
		assert.Empty(t, u.Password, "plain passwords are dropped after hashing")
		assert.NotEmpty(t, u.PasswordHash)
	}

	records, ok := d.Transcript("1")
	require.True(t, ok)
	assert.Equal(t, "agent", records[0].Speaker)
	assert.Equal(t, "customer", records[1].Speaker)
	assert.Equal(t, 10*time.Second, records[1].Timestamp.Sub(records[0].Timestamp))

	_, ok = d.Transcript("2")
	assert.False(t, ok)
}

func TestParseDatasetRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not yaml", "users: ["},
		{"bad role", "users:\n  - {id: '1', email: a@b.com, role: root, password: x}\n"},
		{"no password", "users:\n  - {id: '1', email: a@b.com, role: admin}\n"},
		{"duplicate user", "users:\n  - {id: '1', email: a@b.com, role: admin, passwordHash: h}\n  - {id: '2', email: A@b.com, role: client, passwordHash: h}\n"},
		{"bad disposition", "callLogs:\n  - {id: '1', disposition: Voicemail}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestHealth(t *testing.T) {
	_, router := setupTestAPI(t)

	rr := do(t, router, "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogin(t *testing.T) {
	_, router := setupTestAPI(t)

	rr := do(t, router, "POST", "/auth/login", "", types.LoginRequest{Email: "admin@enterprise.com", Password: "admin123"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp types.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, types.RoleAdmin, resp.User.Role)
	assert.Equal(t, "Admin User", resp.User.Name)
}

func TestLoginRejected(t *testing.T) {
	_, router := setupTestAPI(t)

	tests := []struct {
		name string
		req  types.LoginRequest
		code int
	}{
		{"wrong password", types.LoginRequest{Email: "admin@enterprise.com", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", types.LoginRequest{Email: "ghost@enterprise.com", Password: "admin123"}, http.StatusUnauthorized},
		{"malformed email", types.LoginRequest{Email: "admin", Password: "admin123"}, http.StatusUnprocessableEntity},
		{"missing password", types.LoginRequest{Email: "admin@enterprise.com"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, "POST", "/auth/login", "", tt.req)
			assert.Equal(t, tt.code, rr.Code)
			if tt.code == http.StatusUnauthorized {
				assert.JSONEq(t, `{"message":"Invalid email or password"}`, rr.Body.String())
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, router := setupTestAPI(t)

	for _, path := range []string{"/auth/me", "/agents", "/calls", "/calls/recent", "/calls/metrics", "/calls/logs", "/calls/1/transcripts"} {
		rr := do(t, router, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)

		rr = do(t, router, "GET", path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestMe(t *testing.T) {
	_, router := setupTestAPI(t)
	token := login(t, router, "client@dabur.com", "client123")

	rr := do(t, router, "GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var user types.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, "client@dabur.com", user.Email)
	assert.Equal(t, types.RoleClient, user.Role)
	assert.Equal(t, "dabur.com", user.Domain)
}

func TestDataIsScopedPerUser(t *testing.T) {
	_, router := setupTestAPI(t)
	admin := login(t, router, "admin@enterprise.com", "admin123")
	client := login(t, router, "client@dabur.com", "client123")

	var agents []types.Agent
	rr := do(t, router, "GET", "/agents", admin, nil)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&agents))
	assert.Len(t, agents, 5)

	rr = do(t, router, "GET", "/agents", client, nil)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&agents))
	assert.Len(t, agents, 3)

	var calls []types.Call
	rr = do(t, router, "GET", "/calls", client, nil)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&calls))
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, "dabur.com", c.Domain)
	}

	var logs []types.CallLog
	rr = do(t, router, "GET", "/calls/logs", client, nil)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&logs))
	assert.Len(t, logs, 4)
}

func TestRecentCalls(t *testing.T) {
	_, router := setupTestAPI(t)
	token := login(t, router, "admin@enterprise.com", "admin123")

	rr := do(t, router, "GET", "/calls/recent?limit=3", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var calls []types.Call
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&calls))
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.False(t, calls[i].Date.After(calls[i-1].Date), "newest first")
	}

	rr = do(t, router, "GET", "/calls/recent?limit=abc", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestMetrics(t *testing.T) {
	api, router := setupTestAPI(t)
	api.now = func() time.Time { return time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC) }
	token := login(t, router, "admin@enterprise.com", "admin123")

	rr := do(t, router, "GET", "/calls/metrics", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var m types.CallMetrics
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
	assert.Equal(t, 8, m.TotalCalls)
	assert.Equal(t, 1, m.RecentCalls)
	assert.Equal(t, 3, m.StatusDistribution["completed"])
	assert.Equal(t, 2, m.StatusDistribution["in-progress"])
	assert.Equal(t, 1, m.StatusDistribution["failed"])
	assert.Equal(t, 2, m.StatusDistribution["missed"])
}

func TestTranscripts(t *testing.T) {
	_, router := setupTestAPI(t)
	client := login(t, router, "client@dabur.com", "client123")

	rr := do(t, router, "GET", "/calls/3/transcripts", client, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var records []types.TranscriptRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&records))
	require.Len(t, records, 6)
	assert.Equal(t, "3", records[0].CallID)

	// no transcript stored
	rr = do(t, router, "GET", "/calls/2/transcripts", client, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// another organization's call looks like a missing one
	rr = do(t, router, "GET", "/calls/5/transcripts", client, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGoogleLogin(t *testing.T) {
	api, router := setupTestAPI(t)

	rr := do(t, router, "POST", "/auth/google", "", types.GoogleLoginRequest{IDToken: "x"})
	assert.Equal(t, http.StatusNotImplemented, rr.Code, "disabled without a verifier")

	api.SetGoogleVerifier(fakeGoogle{identity: &auth.GoogleIdentity{Subject: "g-1", Email: "ops@newco.com", Name: "Ops"}})
	rr = do(t, router, "POST", "/auth/google", "", types.GoogleLoginRequest{IDToken: "x"})
	require.Equal(t, http.StatusOK, rr.Code)
	var resp types.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, types.RoleClient, resp.User.Role)
	assert.Equal(t, "google:g-1", resp.User.ID)
	assert.Equal(t, "newco.com", resp.User.Domain)

	api.SetGoogleVerifier(fakeGoogle{identity: &auth.GoogleIdentity{Subject: "g-2", Email: "admin@enterprise.com"}})
	rr = do(t, router, "POST", "/auth/google", "", types.GoogleLoginRequest{IDToken: "x"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, types.RoleAdmin, resp.User.Role, "known accounts keep their role")

	api.SetGoogleVerifier(fakeGoogle{err: errors.New("bad signature")})
	rr = do(t, router, "POST", "/auth/google", "", types.GoogleLoginRequest{IDToken: "x"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, "POST", "/auth/google", "", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
