package storage

import "context"

// NoopStore is used when persistence is disabled: nothing survives a restart
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) Get(_ context.Context, _ string) ([]byte, error) { return nil, ErrNotFound }
func (s *NoopStore) Put(_ context.Context, _ string, _ []byte) error { return nil }
func (s *NoopStore) Delete(_ context.Context, _ string) error        { return nil }
func (s *NoopStore) Close() error                                    { return nil }
