package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNotActive = errors.New("notification is not active")
	ErrNotViewed = errors.New("notification has not been viewed")
)

// Persister loads and saves a State. Implementations decide where it lives.
type Persister interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// Notification is the read model of one active entry.
type Notification struct {
	CoinID    string    `json:"coin_id"`
	Name      string    `json:"name"`
	Messages  []string  `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	Viewed    bool      `json:"viewed"`
}

// Manager applies alert evaluation passes and user interactions to a State,
// saving through its Persister after every change.
type Manager struct {
	mu        sync.Mutex
	state     State
	persister Persister
}

// NewManager loads the persisted state.
func NewManager(ctx context.Context, p Persister) (*Manager, error) {
	s, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notification state: %w", err)
	}
	return &Manager{state: s.normalize(), persister: p}, nil
}

// Apply merges one evaluation pass. Coins without a record in the pass leave
// the active set. A coin that was dismissed stays dismissed unless forced is
// set, in which case every record becomes active and unviewed.
func (m *Manager) Apply(ctx context.Context, records []models.AlertRecord, forced bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.clone()
	seen := make(map[string]bool, len(records))
	var surfaced []string

	for _, r := range records {
		if len(r.Messages) == 0 {
			continue
		}
		seen[r.CoinID] = true
		entry := Entry{Name: r.CryptoName, Messages: r.Messages, CreatedAt: r.CreatedAt}

		if forced {
			delete(next.Viewed, r.CoinID)
			next.Active[r.CoinID] = entry
			surfaced = append(surfaced, r.CoinID)
			continue
		}

		switch next.status(r.CoinID) {
		case StatusActiveUnviewed, StatusActiveViewed:
			prev := next.Active[r.CoinID]
			entry.CreatedAt = prev.CreatedAt
			next.Active[r.CoinID] = entry
		case StatusAbsent:
			next.Active[r.CoinID] = entry
			surfaced = append(surfaced, r.CoinID)
		case StatusDismissed:
		}
	}

	for id := range next.Active {
		if !seen[id] {
			delete(next.Active, id)
		}
	}

	if err := m.commit(ctx, next); err != nil {
		return nil, err
	}
	sort.Strings(surfaced)
	return surfaced, nil
}

// View marks an active notification as seen.
func (m *Manager) View(ctx context.Context, coinID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.Active[coinID]; !ok {
		return ErrNotActive
	}
	if m.state.Viewed[coinID] {
		return nil
	}
	next := m.state.clone()
	next.Viewed[coinID] = true
	return m.commit(ctx, next)
}

// Dismiss removes a viewed notification from the active set.
func (m *Manager) Dismiss(ctx context.Context, coinID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state.status(coinID) {
	case StatusActiveViewed:
	case StatusActiveUnviewed:
		return ErrNotViewed
	default:
		return ErrNotActive
	}
	next := m.state.clone()
	delete(next.Active, coinID)
	return m.commit(ctx, next)
}

// Reset clears both viewed and active mappings in one save.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(ctx, NewState())
}

// Reload resets the state and applies records as a forced pass.
func (m *Manager) Reload(ctx context.Context, records []models.AlertRecord) ([]string, error) {
	if err := m.Reset(ctx); err != nil {
		return nil, err
	}
	return m.Apply(ctx, records, true)
}

// HasUnread reports whether any active notification has not been viewed.
func (m *Manager) HasUnread() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.state.Active {
		if !m.state.Viewed[id] {
			return true
		}
	}
	return false
}

// StatusOf returns the lifecycle status of coinID.
func (m *Manager) StatusOf(coinID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.status(coinID)
}

// Active lists active notifications ordered by coin id.
func (m *Manager) Active() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Notification, 0, len(m.state.Active))
	for id, e := range m.state.Active {
		out = append(out, Notification{
			CoinID:    id,
			Name:      e.Name,
			Messages:  append([]string(nil), e.Messages...),
			CreatedAt: e.CreatedAt,
			Viewed:    m.state.Viewed[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CoinID < out[j].CoinID })
	return out
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// commit saves next and only then makes it current. Callers hold mu.
func (m *Manager) commit(ctx context.Context, next State) error {
	if err := m.persister.Save(ctx, next); err != nil {
		logger.Log.Error("Failed to save notification state", zap.Error(err))
		return fmt.Errorf("save notification state: %w", err)
	}
	m.state = next
	return nil
}
