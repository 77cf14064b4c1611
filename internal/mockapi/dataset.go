package mockapi

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/transcript"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

//go:embed data.yaml
var embeddedData []byte

var validate = validator.New()

// Account is a user that can sign in to the mock API
type Account struct {
	ID           string     `yaml:"id" validate:"required"`
	Email        string     `yaml:"email" validate:"required,email"`
	Name         string     `yaml:"name"`
	Role         types.Role `yaml:"role" validate:"required,oneof=admin client"`
	Password     string     `yaml:"password"`
	PasswordHash string     `yaml:"passwordHash"`
}

// User returns the public identity of the account
func (a *Account) User() *types.User {
	u := &types.User{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
	u.Domain = u.EmailDomain()
	return u
}

// Dataset is everything the mock API serves
type Dataset struct {
	Users       []Account       `yaml:"users" validate:"dive"`
	Agents      []types.Agent   `yaml:"agents" validate:"dive"`
	Calls       []types.Call    `yaml:"calls" validate:"dive"`
	CallLogs    []types.CallLog `yaml:"callLogs" validate:"dive"`
	ActiveCalls int             `yaml:"activeCalls" validate:"gte=0"`

	transcripts map[string][]types.TranscriptRecord
}

// DefaultDataset returns the embedded demo dataset
func DefaultDataset() (*Dataset, error) {
	return ParseDataset(embeddedData)
}

// LoadDataset reads a dataset from path, or the embedded one when path is empty
func LoadDataset(path string) (*Dataset, error) {
	if path == "" {
		return DefaultDataset()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return ParseDataset(raw)
}

// ParseDataset decodes and validates a YAML dataset. Plain passwords are
// replaced by their bcrypt hash.
func ParseDataset(raw []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}

	seen := make(map[string]bool, len(d.Users))
	for i := range d.Users {
		u := &d.Users[i]
		email := strings.ToLower(u.Email)
		if seen[email] {
			return nil, fmt.Errorf("invalid dataset: duplicate user %s", u.Email)
		}
		seen[email] = true

		if u.PasswordHash == "" {
			if u.Password == "" {
				return nil, fmt.Errorf("invalid dataset: user %s has no password", u.Email)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password of %s: %w", u.Email, err)
			}
			u.PasswordHash = string(hash)
		}
		u.Password = ""
	}

	d.transcripts = buildTranscripts(d.CallLogs)
	return &d, nil
}

// buildTranscripts splits the transcript text of each call log into stored
// segments, ten seconds apart from the time of the call.
func buildTranscripts(logs []types.CallLog) map[string][]types.TranscriptRecord {
	out := make(map[string][]types.TranscriptRecord)
	for _, l := range logs {
		if l.Transcript == nil {
			continue
		}
		turns := transcript.Parse(*l.Transcript)
		if len(turns) == 0 {
			continue
		}
		records := make([]types.TranscriptRecord, 0, len(turns))
		for i, t := range turns {
			records = append(records, types.TranscriptRecord{
				ID:        fmt.Sprintf("%s-%d", l.ID, i+1),
				CallID:    l.ID,
				Text:      t.Text,
				Speaker:   strings.ToLower(string(t.Speaker)),
				Timestamp: l.CalledAt.Add(time.Duration(i) * 10 * time.Second),
			})
		}
		out[l.ID] = records
	}
	return out
}

var errBadCredentials = errors.New("invalid email or password")

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("monti-insights"), bcrypt.DefaultCost)
	return hash
})

// Authenticate checks an email and password against the accounts
func (d *Dataset) Authenticate(email, password string) (*Account, error) {
	a := d.Account(email)
	if a == nil {
		// spend the same work on unknown users
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return a, nil
}

// Account looks up an account by email, ignoring case
func (d *Dataset) Account(email string) *Account {
	for i := range d.Users {
		if strings.EqualFold(d.Users[i].Email, strings.TrimSpace(email)) {
			return &d.Users[i]
		}
	}
	return nil
}

// RecentCalls returns up to limit calls, newest first
func (d *Dataset) RecentCalls(calls []types.Call, limit int) []types.Call {
	sorted := make([]types.Call, len(calls))
	copy(sorted, calls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if limit >= 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// Metrics reports status counters over the call logs
func (d *Dataset) Metrics(now time.Time) *types.CallMetrics {
	dist := map[string]int{
		"completed":   0,
		"in-progress": d.ActiveCalls,
		"failed":      0,
		"missed":      0,
	}
	recent := 0
	for _, l := range d.CallLogs {
		dist[statusOf(l.Disposition)]++
		if now.Sub(l.CalledAt) <= 24*time.Hour {
			recent++
		}
	}
	return &types.CallMetrics{
		TotalCalls:         len(d.CallLogs) + d.ActiveCalls,
		RecentCalls:        recent,
		StatusDistribution: dist,
	}
}

func statusOf(d types.Disposition) string {
	switch d {
	case types.DispositionAnswered:
		return "completed"
	case types.DispositionFailed:
		return "failed"
	default:
		return "missed"
	}
}

// Transcript returns the stored segments of a call
func (d *Dataset) Transcript(callID string) ([]types.TranscriptRecord, bool) {
	records, ok := d.transcripts[callID]
	return records, ok
}

// CallLog looks up a call log by id
func (d *Dataset) CallLog(id string) (*types.CallLog, bool) {
	for i := range d.CallLogs {
		if d.CallLogs[i].ID == id {
			return &d.CallLogs[i], true
		}
	}
	return nil, false
}
