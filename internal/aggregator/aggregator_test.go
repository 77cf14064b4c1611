package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	agents      []types.Agent
	calls       []types.Call
	logs        []types.CallLog
	transcripts map[string][]types.TranscriptRecord
	metrics     *types.CallMetrics
	err         error

	metricsCalls int
	recentLimit  int
}

func (f *fakeSource) Agents(context.Context) ([]types.Agent, error) { return f.agents, f.err }
func (f *fakeSource) Calls(context.Context) ([]types.Call, error)   { return f.calls, f.err }
func (f *fakeSource) CallLogs(context.Context) ([]types.CallLog, error) {
	return f.logs, f.err
}

func (f *fakeSource) RecentCalls(_ context.Context, limit int) ([]types.Call, error) {
	f.mu.Lock()
	f.recentLimit = limit
	f.mu.Unlock()
	if limit > len(f.calls) {
		limit = len(f.calls)
	}
	return f.calls[:limit], f.err
}

func (f *fakeSource) Metrics(context.Context) (*types.CallMetrics, error) {
	f.mu.Lock()
	f.metricsCalls++
	f.mu.Unlock()
	return f.metrics, f.err
}

func (f *fakeSource) Transcript(_ context.Context, id string) ([]types.TranscriptRecord, error) {
	return f.transcripts[id], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		agents: []types.Agent{
			{ID: "1", Domain: "dabur.com"},
			{ID: "2", Domain: "dabur.com"},
			{ID: "3", Domain: "techcorp.com"},
		},
		calls: sampleCalls(),
		logs:  sampleLogs(),
		metrics: &types.CallMetrics{
			TotalCalls:         10,
			StatusDistribution: map[string]int{"completed": 7, "in-progress": 2},
		},
		transcripts: map[string][]types.TranscriptRecord{},
	}
}

var (
	admin  = &types.User{ID: "1", Email: "admin@enterprise.com", Role: types.RoleAdmin}
	client = &types.User{ID: "2", Email: "client@dabur.com", Role: types.RoleClient}
)

func TestDashboardForAdmin(t *testing.T) {
	src := newFakeSource()
	agg := NewAggregator(src, zerolog.Nop())

	view, err := agg.Dashboard(context.Background(), admin)
	require.NoError(t, err)

	assert.Equal(t, 3, view.KPIs.TotalAgents)
	assert.Equal(t, 5, view.KPIs.TotalCallsAnalysed)
	assert.Equal(t, 82, view.KPIs.AverageScore)
	assert.Equal(t, 70, view.SuccessRate)
	assert.Equal(t, 2, view.ActiveCalls)
	assert.NotNil(t, view.Metrics)
	assert.Len(t, view.RecentCalls, DefaultRecentLimit)
	assert.Equal(t, DefaultRecentLimit, src.recentLimit)
	assert.False(t, view.GeneratedAt.IsZero())
}

func TestDashboardForClientIsScoped(t *testing.T) {
	src := newFakeSource()
	agg := NewAggregator(src, zerolog.Nop())

	view, err := agg.Dashboard(context.Background(), client)
	require.NoError(t, err)

	assert.Equal(t, 2, view.KPIs.TotalAgents)
	assert.Equal(t, 3, view.KPIs.TotalCallsAnalysed)
	for _, c := range view.RecentCalls {
		assert.Equal(t, "dabur.com", c.Domain)
	}
	assert.Nil(t, view.Metrics, "global counters are not shown to clients")
	assert.Zero(t, src.metricsCalls)
	assert.Zero(t, view.SuccessRate)
}

func TestDashboardPropagatesFetchError(t *testing.T) {
	src := newFakeSource()
	boom := errors.New("boom")
	src.err = boom
	agg := NewAggregator(src, zerolog.Nop())

	_, err := agg.Dashboard(context.Background(), admin)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAgentsScoped(t *testing.T) {
	agg := NewAggregator(newFakeSource(), zerolog.Nop())

	got, err := agg.Agents(context.Background(), client)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecentCalls(t *testing.T) {
	src := newFakeSource()
	agg := NewAggregator(src, zerolog.Nop())

	got, err := agg.RecentCalls(context.Background(), client, 4)
	require.NoError(t, err)
	for _, c := range got {
		assert.Equal(t, "dabur.com", c.Domain)
	}

	_, err = agg.RecentCalls(context.Background(), admin, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecentLimit, src.recentLimit)
}

func TestRecentCallsFillsLimitFromOwnDomain(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	src := newFakeSource()
	src.calls = []types.Call{
		{ID: "t1", Domain: "techcorp.com", Date: day(20)},
		{ID: "d1", Domain: "dabur.com", Date: day(10)},
		{ID: "t2", Domain: "techcorp.com", Date: day(19)},
		{ID: "d2", Domain: "dabur.com", Date: day(12)},
		{ID: "t3", Domain: "techcorp.com", Date: day(18)},
		{ID: "d3", Domain: "dabur.com", Date: day(11)},
	}
	agg := NewAggregator(src, zerolog.Nop())

	got, err := agg.RecentCalls(context.Background(), client, 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "d2", got[0].ID)
	assert.Equal(t, "d3", got[1].ID)
	assert.Equal(t, "dabur.com", src.calls[1].Domain, "source slice must not be reordered")
	assert.Equal(t, "d1", src.calls[1].ID)
}

func TestCallLogs(t *testing.T) {
	agg := NewAggregator(newFakeSource(), zerolog.Nop())

	page, err := agg.CallLogs(context.Background(), client, CallLogQuery{Disposition: "Answered"})
	require.NoError(t, err)

	require.Equal(t, 1, page.Total)
	row := page.Rows[0]
	assert.Equal(t, "1", row.ID)
	assert.Equal(t, "3:00", row.DurationLabel)
	assert.True(t, row.HasTranscript)
	// disposition counts cover the whole visible set, not the filtered rows
	assert.Equal(t, 1, page.Dispositions[types.DispositionBusy])
}

func TestTranscriptFallsBackToCallLogText(t *testing.T) {
	agg := NewAggregator(newFakeSource(), zerolog.Nop())

	view, err := agg.Transcript(context.Background(), client, "1")
	require.NoError(t, err)

	require.Len(t, view.Turns, 1)
	assert.Equal(t, types.SpeakerAgent, view.Turns[0].Speaker)
	assert.Equal(t, "hi", view.Turns[0].Text)
}

func TestTranscriptPrefersStoredSegments(t *testing.T) {
	src := newFakeSource()
	src.transcripts["1"] = []types.TranscriptRecord{{CallID: "1", Speaker: "customer", Text: "stored"}}
	agg := NewAggregator(src, zerolog.Nop())

	view, err := agg.Transcript(context.Background(), client, "1")
	require.NoError(t, err)

	require.Len(t, view.Turns, 1)
	assert.Equal(t, "stored", view.Turns[0].Text)
}

func TestTranscriptOutsideScope(t *testing.T) {
	agg := NewAggregator(newFakeSource(), zerolog.Nop())

	_, err := agg.Transcript(context.Background(), client, "5")
	assert.ErrorIs(t, err, ErrCallNotFound)

	_, err = agg.Transcript(context.Background(), admin, "5")
	assert.NoError(t, err)
}
