package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// DataService covers the agent and call endpoints
type DataService struct {
	client *Client
}

func NewDataService(client *Client) *DataService {
	return &DataService{client: client}
}

func (s *DataService) Agents(ctx context.Context) ([]types.Agent, error) {
	var agents []types.Agent
	if err := s.client.Do(ctx, http.MethodGet, "/agents", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (s *DataService) Calls(ctx context.Context) ([]types.Call, error) {
	var calls []types.Call
	if err := s.client.Do(ctx, http.MethodGet, "/calls", nil, nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// RecentCalls returns the newest calls, at most limit
func (s *DataService) RecentCalls(ctx context.Context, limit int) ([]types.Call, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var calls []types.Call
	if err := s.client.Do(ctx, http.MethodGet, "/calls/recent", q, nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func (s *DataService) Metrics(ctx context.Context) (*types.CallMetrics, error) {
	var m types.CallMetrics
	if err := s.client.Do(ctx, http.MethodGet, "/calls/metrics", nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DataService) CallLogs(ctx context.Context) ([]types.CallLog, error) {
	var logs []types.CallLog
	if err := s.client.Do(ctx, http.MethodGet, "/calls/logs", nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Transcript returns the stored transcript segments of a call; a call without
// stored segments yields none rather than an error
func (s *DataService) Transcript(ctx context.Context, callID string) ([]types.TranscriptRecord, error) {
	var records []types.TranscriptRecord
	err := s.client.Do(ctx, http.MethodGet, "/calls/"+url.PathEscape(callID)+"/transcripts", nil, nil, &records)
	if errors.Is(err, ErrNotFound) {
		return []types.TranscriptRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
