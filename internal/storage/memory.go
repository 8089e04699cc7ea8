package storage

import (
	"context"
	"sync"

	"tunecrawl/internal/catalog"
)

// Memory keeps the catalog for the lifetime of the process.
type Memory struct {
	mu      sync.Mutex
	stored  *catalog.Catalog
	saveErr error
	saves   int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (catalog.Catalog, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return catalog.Catalog{}, false, nil
	}
	return m.stored.Clone(), true, nil
}

func (m *Memory) Save(_ context.Context, cat catalog.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	c := cat.Clone()
	m.stored = &c
	m.saves++
	return nil
}

// FailSaves makes every subsequent Save return err until called with nil.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// Saves reports how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Describe() string { return "memory" }
