package market

import (
	"context"
	"errors"
	"testing"

	"cryptonite/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) ListCoins(ctx context.Context) ([]models.Coin, error) {
	args := m.Called(ctx)
	coins, _ := args.Get(0).([]models.Coin)
	return coins, args.Error(1)
}

func (m *MockReader) ListCoinsByIDs(ctx context.Context, ids []string) ([]models.Coin, error) {
	args := m.Called(ctx, ids)
	coins, _ := args.Get(0).([]models.Coin)
	return coins, args.Error(1)
}

func TestListAll_SortsByMarketCapDescending(t *testing.T) {
	r := new(MockReader)
	r.On("ListCoins", mock.Anything).Return([]models.Coin{
		{ID: "tether", MarketCap: 5},
		{ID: "bitcoin", MarketCap: 100},
		{ID: "ethereum", MarketCap: 50},
	}, nil)

	coins, err := NewService(r).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 3)
	for i := 1; i < len(coins); i++ {
		assert.GreaterOrEqual(t, coins[i-1].MarketCap, coins[i].MarketCap)
	}
	assert.Equal(t, "bitcoin", coins[0].ID)
}

func TestListAll_EmptyIsNotAnError(t *testing.T) {
	r := new(MockReader)
	r.On("ListCoins", mock.Anything).Return(nil, nil)

	coins, err := NewService(r).ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, coins)
	assert.Empty(t, coins)
}

func TestListAll_StorageFailure(t *testing.T) {
	r := new(MockReader)
	r.On("ListCoins", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewService(r).ListAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestListByIDs(t *testing.T) {
	r := new(MockReader)
	r.On("ListCoinsByIDs", mock.Anything, []string{"ethereum", "bitcoin"}).Return([]models.Coin{
		{ID: "ethereum", MarketCap: 50},
		{ID: "bitcoin", MarketCap: 100},
	}, nil)

	coins, err := NewService(r).ListByIDs(context.Background(), []string{"ethereum", "bitcoin", "ethereum", ""})
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	r.AssertExpectations(t)
}

func TestListByIDs_EmptySetSkipsStore(t *testing.T) {
	r := new(MockReader)
	coins, err := NewService(r).ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, coins)
	r.AssertNotCalled(t, "ListCoinsByIDs", mock.Anything, mock.Anything)
}

func TestListByIDs_StorageFailure(t *testing.T) {
	r := new(MockReader)
	r.On("ListCoinsByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := NewService(r).ListByIDs(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, ErrStorage)
}
