package aggregator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/access"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/transcript"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultRecentLimit is how many recent calls the dashboard asks for
const DefaultRecentLimit = 5

// ErrCallNotFound is returned when a call does not exist or is outside the user's scope
var ErrCallNotFound = errors.New("call not found")

// DataSource provides the raw, unscoped records of the call API
type DataSource interface {
	Agents(ctx context.Context) ([]types.Agent, error)
	Calls(ctx context.Context) ([]types.Call, error)
	RecentCalls(ctx context.Context, limit int) ([]types.Call, error)
	Metrics(ctx context.Context) (*types.CallMetrics, error)
	CallLogs(ctx context.Context) ([]types.CallLog, error)
	// Transcript returns the stored transcript segments of a call, or none
	Transcript(ctx context.Context, callID string) ([]types.TranscriptRecord, error)
}

// Aggregator fetches raw data, scopes it to a user and builds the view models
type Aggregator struct {
	source      DataSource
	recentLimit int
	logger      zerolog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(source DataSource, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source:      source,
		recentLimit: DefaultRecentLimit,
		logger:      logger.With().Str("component", "aggregator").Logger(),
	}
}

// Dashboard builds the KPI cards, charts and recent-call list for user.
// Agents, calls, recent calls and (for admins) metrics are fetched concurrently.
func (a *Aggregator) Dashboard(ctx context.Context, user *types.User) (*types.DashboardView, error) {
	start := time.Now()

	var (
		agents []types.Agent
		calls  []types.Call
		recent []types.Call
		counts *types.CallMetrics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		agents, err = a.source.Agents(gctx)
		return wrap("agents", err)
	})
	g.Go(func() (err error) {
		calls, err = a.source.Calls(gctx)
		return wrap("calls", err)
	})
	g.Go(func() (err error) {
		recent, err = a.source.RecentCalls(gctx, a.recentLimit)
		return wrap("recent calls", err)
	})
	if user.IsAdmin() {
		g.Go(func() (err error) {
			counts, err = a.source.Metrics(gctx)
			return wrap("call metrics", err)
		})
	}
	if err := g.Wait(); err != nil {
		metrics.Get().RecordAggregationError()
		return nil, err
	}

	agents, calls = access.Scope(user, agents, calls)
	_, recent = access.Scope(user, nil, recent)

	view := &types.DashboardView{
		User:        user,
		KPIs:        ComputeKPIs(agents, calls),
		Charts:      ComputeChartSummary(calls),
		Metrics:     counts,
		SuccessRate: SuccessRate(counts),
		ActiveCalls: ActiveCalls(counts),
		RecentCalls: recent,
		GeneratedAt: time.Now().UTC(),
	}

	metrics.Get().RecordAggregation(time.Since(start))
	a.logger.Debug().
		Str("user", user.Email).
		Int("agents", len(agents)).
		Int("calls", len(calls)).
		Int("recent", len(recent)).
		Dur("took", time.Since(start)).
		Msg("dashboard built")

	return view, nil
}

// Agents returns the agents visible to user
func (a *Aggregator) Agents(ctx context.Context, user *types.User) ([]types.Agent, error) {
	agents, err := a.source.Agents(ctx)
	if err != nil {
		return nil, wrap("agents", err)
	}
	scoped, _ := access.Scope(user, agents, nil)
	return scoped, nil
}

// RecentCalls returns up to limit of the newest calls visible to user.
// Admins read the recent endpoint directly. Everyone else is served from the
// full call list, scoped before the limit applies, since the newest calls
// overall may all belong to other domains.
func (a *Aggregator) RecentCalls(ctx context.Context, user *types.User, limit int) ([]types.Call, error) {
	if limit <= 0 {
		limit = a.recentLimit
	}
	if user.IsAdmin() {
		calls, err := a.source.RecentCalls(ctx, limit)
		if err != nil {
			return nil, wrap("recent calls", err)
		}
		return calls, nil
	}

	calls, err := a.source.Calls(ctx)
	if err != nil {
		return nil, wrap("recent calls", err)
	}
	_, scoped := access.Scope(user, nil, calls)
	slices.SortStableFunc(scoped, func(x, y types.Call) int { return y.Date.Compare(x.Date) })
	if len(scoped) > limit {
		scoped = scoped[:limit]
	}
	return scoped, nil
}

// CallLogs returns the call-log table visible to user, narrowed by q
func (a *Aggregator) CallLogs(ctx context.Context, user *types.User, q CallLogQuery) (*types.CallLogPage, error) {
	logs, err := a.source.CallLogs(ctx)
	if err != nil {
		return nil, wrap("call logs", err)
	}
	visible := access.ScopeCallLogs(user, logs)
	matched := FilterCallLogs(visible, q)

	rows := make([]types.CallLogRow, 0, len(matched))
	for _, l := range matched {
		rows = append(rows, types.CallLogRow{
			CallLog:       l,
			DurationLabel: FormatClock(l.Duration),
			HasTranscript: l.Transcript != nil && *l.Transcript != "",
		})
	}

	return &types.CallLogPage{
		Rows:         rows,
		Total:        len(rows),
		Dispositions: DispositionCounts(visible),
	}, nil
}

// Transcript returns the transcript of a call visible to user. Stored transcript
// segments win; the raw transcript text of the call log is the fallback.
func (a *Aggregator) Transcript(ctx context.Context, user *types.User, callID string) (*types.TranscriptView, error) {
	logs, err := a.source.CallLogs(ctx)
	if err != nil {
		return nil, wrap("call logs", err)
	}

	var found *types.CallLog
	for _, l := range access.ScopeCallLogs(user, logs) {
		if l.ID == callID {
			found = &l
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	records, err := a.source.Transcript(ctx, callID)
	if err != nil {
		return nil, wrap("transcript", err)
	}

	turns := transcript.FromRecords(records)
	if len(turns) == 0 && found.Transcript != nil {
		turns = transcript.Parse(*found.Transcript)
	}

	return &types.TranscriptView{
		CallID:    callID,
		Turns:     turns,
		Summary:   found.Summary,
		Recording: found.Recording,
	}, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("fetch %s: %w", what, err)
}
