package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cryptonite/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(id, name string, msgs ...string) models.AlertRecord {
	return models.AlertRecord{CoinID: id, CryptoName: name, Messages: msgs, CreatedAt: testNow}
}

func newFileManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifications.json")
	m, err := NewManager(context.Background(), NewFilePersister(path))
	require.NoError(t, err)
	return m, path
}

func TestApply_SurfacesNewCoinsAsUnviewed(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)

	surfaced, err := m.Apply(ctx, []models.AlertRecord{
		record("ethereum", "Ethereum", "Rank Alert"),
		record("bitcoin", "Bitcoin", "Rank Alert"),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, surfaced)
	assert.Equal(t, StatusActiveUnviewed, m.StatusOf("bitcoin"))
	assert.True(t, m.HasUnread())
}

func TestViewAndDismissLifecycle(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)
	_, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Dismiss(ctx, "bitcoin"), ErrNotViewed)
	assert.ErrorIs(t, m.View(ctx, "solana"), ErrNotActive)

	require.NoError(t, m.View(ctx, "bitcoin"))
	assert.Equal(t, StatusActiveViewed, m.StatusOf("bitcoin"))
	assert.False(t, m.HasUnread())

	require.NoError(t, m.Dismiss(ctx, "bitcoin"))
	assert.Equal(t, StatusDismissed, m.StatusOf("bitcoin"))
	assert.Empty(t, m.Active())

	// a normal pass does not bring a dismissed coin back
	surfaced, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.NoError(t, err)
	assert.Empty(t, surfaced)
	assert.Equal(t, StatusDismissed, m.StatusOf("bitcoin"))
}

func TestApply_KeepsViewedActiveEntryViewed(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)
	_, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "old")}, false)
	require.NoError(t, err)
	require.NoError(t, m.View(ctx, "bitcoin"))

	surfaced, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "new")}, false)
	require.NoError(t, err)
	assert.Empty(t, surfaced)
	assert.Equal(t, StatusActiveViewed, m.StatusOf("bitcoin"))
	require.Len(t, m.Active(), 1)
	assert.Equal(t, []string{"new"}, m.Active()[0].Messages)
}

func TestApply_DropsCoinsMissingFromPass(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)
	_, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a"), record("tether", "Tether", "b")}, false)
	require.NoError(t, err)

	_, err = m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, m.StatusOf("tether"))
}

func TestResetThenApplyResurfacesEverything(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)
	recs := []models.AlertRecord{record("bitcoin", "Bitcoin", "a"), record("ethereum", "Ethereum", "b")}
	_, err := m.Apply(ctx, recs, false)
	require.NoError(t, err)
	require.NoError(t, m.View(ctx, "bitcoin"))
	require.NoError(t, m.Dismiss(ctx, "bitcoin"))

	require.NoError(t, m.Reset(ctx))
	s := m.Snapshot()
	assert.Empty(t, s.Viewed)
	assert.Empty(t, s.Active)
	assert.False(t, m.HasUnread())

	surfaced, err := m.Apply(ctx, recs, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, surfaced)
	assert.Equal(t, StatusActiveUnviewed, m.StatusOf("bitcoin"))
	assert.Equal(t, StatusActiveUnviewed, m.StatusOf("ethereum"))
}

func TestForcedApplyIgnoresViewedStatus(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)
	recs := []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}
	_, err := m.Apply(ctx, recs, false)
	require.NoError(t, err)
	require.NoError(t, m.View(ctx, "bitcoin"))
	require.NoError(t, m.Dismiss(ctx, "bitcoin"))

	surfaced, err := m.Apply(ctx, recs, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, surfaced)
	assert.Equal(t, StatusActiveUnviewed, m.StatusOf("bitcoin"))
	assert.True(t, m.HasUnread())
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	m, _ := newFileManager(t)
	_, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.NoError(t, err)
	require.NoError(t, m.View(ctx, "bitcoin"))

	surfaced, err := m.Reload(ctx, []models.AlertRecord{record("ethereum", "Ethereum", "b")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum"}, surfaced)
	assert.Equal(t, StatusAbsent, m.StatusOf("bitcoin"))
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	m, path := newFileManager(t)
	_, err := m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.NoError(t, err)
	require.NoError(t, m.View(ctx, "bitcoin"))

	again, err := NewManager(ctx, NewFilePersister(path))
	require.NoError(t, err)
	assert.Equal(t, StatusActiveViewed, again.StatusOf("bitcoin"))
	assert.Equal(t, "Bitcoin", again.Active()[0].Name)
}

type failingPersister struct{}

func (f *failingPersister) Load(ctx context.Context) (State, error) { return NewState(), nil }
func (f *failingPersister) Save(ctx context.Context, s State) error {
	return errors.New("disk full")
}

func TestFailedSaveLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, &failingPersister{})
	require.NoError(t, err)

	_, err = m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.Error(t, err)
	assert.Equal(t, StatusAbsent, m.StatusOf("bitcoin"))
}

func TestRedisPersister(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisPersister(client, "user-1")
	s, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Active)

	m, err := NewManager(ctx, p)
	require.NoError(t, err)
	_, err = m.Apply(ctx, []models.AlertRecord{record("bitcoin", "Bitcoin", "a")}, false)
	require.NoError(t, err)

	assert.True(t, mr.Exists("notifications:user-1"))
	loaded, err := NewRedisPersister(client, "user-1").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded.Active["bitcoin"].Messages)
}
