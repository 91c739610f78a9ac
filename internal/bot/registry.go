package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/your-org/candle-trade-bot/internal/exchange"
)

// Registry is the scheduler host: it owns every running bot, keyed by user
// id, with a lifecycle tied to the process. Collaborators are injected once
// at construction.
type Registry struct {
	deps Deps

	mu   sync.Mutex
	bots map[string]*Bot
}

// NewRegistry creates an empty registry over the shared collaborators.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps: deps,
		bots: make(map[string]*Bot),
	}
}

// Start launches a bot for the account. It fails when the configuration is
// invalid or a bot for the user is already running.
func (r *Registry) Start(ctx context.Context, account exchange.Account, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bots[account.UserID]; ok && existing.Status().Running {
		return fmt.Errorf("bot for user %s is already running", account.UserID)
	}

	b := New(account, cfg, r.deps)
	if err := b.Start(ctx); err != nil {
		return err
	}
	r.bots[account.UserID] = b
	return nil
}

// Stop cancels the user's bot. Stopping an unknown user is an error.
func (r *Registry) Stop(userID string) error {
	r.mu.Lock()
	b, ok := r.bots[userID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no bot for user %s", userID)
	}
	b.Stop()
	return nil
}

// Status returns a copy of the user's bot state.
func (r *Registry) Status(userID string) (Status, bool) {
	r.mu.Lock()
	b, ok := r.bots[userID]
	r.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return b.Status(), true
}

// StopAll cancels every bot and waits for their loops to exit.
func (r *Registry) StopAll() {
	r.mu.Lock()
	bots := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		bots = append(bots, b)
	}
	r.mu.Unlock()

	for _, b := range bots {
		b.Stop()
	}
	for _, b := range bots {
		if done := b.Done(); done != nil {
			<-done
		}
	}
}
