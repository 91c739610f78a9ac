package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemStore is an in-memory Store implementation used by tests and runs
// without a database.
type InMemStore struct {
	mu       sync.RWMutex
	trades   map[string]TradeExecution
	settings map[string]RiskSettings
}

// NewInMemStore creates an empty InMemStore.
func NewInMemStore() *InMemStore {
	return &InMemStore{
		trades:   make(map[string]TradeExecution),
		settings: make(map[string]RiskSettings),
	}
}

// SeedTrades adds trades for test setup.
func (s *InMemStore) SeedTrades(trades []TradeExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		s.trades[t.ID] = t
	}
}

// Trade returns a stored trade by id for test assertions.
func (s *InMemStore) Trade(id string) (TradeExecution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	return t, ok
}

// Insert stores a freshly placed trade.
func (s *InMemStore) Insert(ctx context.Context, trade *TradeExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trades[trade.ID]; exists {
		return fmt.Errorf("trade %s already exists", trade.ID)
	}
	s.trades[trade.ID] = *trade
	return nil
}

// UpdateStatus updates the lifecycle state and optional failure reason.
func (s *InMemStore) UpdateStatus(ctx context.Context, id string, status TradeStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return fmt.Errorf("trade %s not found", id)
	}
	t.Status = status
	t.Error = reason
	s.trades[id] = t
	return nil
}

// MarkClosed records the close-side fields; the closed-at null check and the
// write happen under one lock, mirroring the repository's atomic update.
func (s *InMemStore) MarkClosed(ctx context.Context, id string, exitPrice, pnl, pnlPercent float64, closedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return false, fmt.Errorf("trade %s not found", id)
	}
	if t.ClosedAt != nil {
		return false, nil
	}
	t.ExitPrice = &exitPrice
	t.PnL = &pnl
	t.PnLPercent = &pnlPercent
	t.ClosedAt = &closedAt
	s.trades[id] = t
	return true, nil
}

// OpenTrades lists every filled trade without a close timestamp.
func (s *InMemStore) OpenTrades(ctx context.Context) ([]TradeExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeExecution
	for _, t := range s.trades {
		if t.Open() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// OpenTradeForSymbol returns the open trade for one (user, symbol) pair.
func (s *InMemStore) OpenTradeForSymbol(ctx context.Context, userID, symbol string) (*TradeExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trades {
		if t.UserID == userID && t.Symbol == symbol && t.Open() {
			trade := t
			return &trade, nil
		}
	}
	return nil, nil
}

// ClosedTrades lists a user's closed trades ordered by close time.
func (s *InMemStore) ClosedTrades(ctx context.Context, userID string) ([]TradeExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeExecution
	for _, t := range s.trades {
		if t.UserID == userID && t.ClosedAt != nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.Before(*out[j].ClosedAt) })
	return out, nil
}

// RiskSettings loads a user's limits; nil when none are stored.
func (s *InMemStore) RiskSettings(ctx context.Context, userID string) (*RiskSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if settings, ok := s.settings[userID]; ok {
		return &settings, nil
	}
	return nil, nil
}

// SaveRiskSettings upserts a user's limits.
func (s *InMemStore) SaveRiskSettings(ctx context.Context, settings *RiskSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.UserID] = *settings
	return nil
}
