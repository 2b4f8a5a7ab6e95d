package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cryptonite/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func coinDoc(t *testing.T, c models.Coin) []byte {
	t.Helper()
	b, err := json.Marshal(c)
	require.NoError(t, err)
	return b
}

func TestListCoins(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"doc"}).
		AddRow(coinDoc(t, models.Coin{ID: "bitcoin", MarketCap: 2000})).
		AddRow(coinDoc(t, models.Coin{ID: "ethereum", MarketCap: 1000}))
	mock.ExpectQuery("SELECT c.doc").WillReturnRows(rows)

	coins, err := s.ListCoins(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCoins_EmptyIsNotNil(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT c.doc").WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	coins, err := s.ListCoins(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, coins)
	assert.Empty(t, coins)
}

func TestListCoinsByIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("WHERE c.id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(coinDoc(t, models.Coin{ID: "bitcoin"})))

	coins, err := s.ListCoinsByIDs(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginGeneration(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("nextval").WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	gen, err := s.BeginGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), gen)
}

func TestUpsertCoin_KeepsNewestWrite(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	coin := models.Coin{ID: "bitcoin", MarketCap: 10, LastUpdated: now}

	mock.ExpectExec("INSERT INTO coins").
		WithArgs(int64(3), "bitcoin", now, 10.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertCoin(context.Background(), 3, coin))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitGeneration(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coin_generations").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM coins WHERE generation <").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectCommit()

	require.NoError(t, s.CommitGeneration(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitGeneration_RejectsStaleGeneration(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coin_generations").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.CommitGeneration(context.Background(), 4)
	assert.ErrorIs(t, err, ErrStaleGeneration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbortGeneration(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM coins WHERE generation =").WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, s.AbortGeneration(context.Background(), 9))
}

func TestCreateUser_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateUser(context.Background(), models.User{ID: "u1", Username: "alice"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
}

func TestUserByUsername_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM users").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}))

	_, err := s.UserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddFavourite_ReturnsUpdatedSet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO favourites").WithArgs("u1", "bitcoin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT coin_id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"coin_id"}).AddRow("bitcoin").AddRow("solana"))

	ids, err := s.AddFavourite(context.Background(), "u1", "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "solana"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
