package reports

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/shared"
)

type fakeRepo struct {
	balances []AccountBalance
	calls    int

	customers map[int64]string
	sales     map[int64][]StatementLine
}

func (f *fakeRepo) AccountBalances(ctx context.Context, rng DateRange) ([]AccountBalance, error) {
	f.calls++
	return f.balances, nil
}

func (f *fakeRepo) CustomerName(ctx context.Context, id int64) (string, error) {
	name, ok := f.customers[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func (f *fakeRepo) VendorName(ctx context.Context, id int64) (string, error) {
	return "", shared.ErrNotFound
}

func (f *fakeRepo) CustomerTransactions(ctx context.Context, customerID int64, rng DateRange) ([]StatementLine, error) {
	return f.sales[customerID], nil
}

func (f *fakeRepo) VendorTransactions(ctx context.Context, vendorID int64, rng DateRange) ([]StatementLine, error) {
	return nil, nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestProfitAndLossCachesResult(t *testing.T) {
	repo := &fakeRepo{balances: sampleBalances()}
	svc := NewService(repo, testCache(t), slog.Default())
	ctx := context.Background()

	first, err := svc.ProfitAndLoss(ctx, DateRange{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	second, err := svc.ProfitAndLoss(ctx, DateRange{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls, "second read served from cache")
	require.True(t, first.NetProfit.Equal(second.NetProfit))
}

func TestProfitAndLossRangeKeysAreDistinct(t *testing.T) {
	repo := &fakeRepo{balances: sampleBalances()}
	svc := NewService(repo, testCache(t), slog.Default())
	ctx := context.Background()

	_, err := svc.ProfitAndLoss(ctx, DateRange{})
	require.NoError(t, err)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.ProfitAndLoss(ctx, DateRange{From: &from})
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "different range misses the cache")
}

func TestInvalidateDropsCachedReports(t *testing.T) {
	repo := &fakeRepo{balances: sampleBalances()}
	cache := testCache(t)
	svc := NewService(repo, cache, slog.Default())
	ctx := context.Background()

	_, err := svc.ProfitAndLoss(ctx, DateRange{})
	require.NoError(t, err)
	_, err = svc.BalanceSheet(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)

	require.NoError(t, cache.Invalidate(ctx))

	_, err = svc.ProfitAndLoss(ctx, DateRange{})
	require.NoError(t, err)
	_, err = svc.BalanceSheet(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, repo.calls, "both reports rebuilt after invalidation")
}

func TestBalanceSheetWithoutCacheClient(t *testing.T) {
	repo := &fakeRepo{balances: sampleBalances()}
	svc := NewService(repo, NewCache(nil, 0), slog.Default())
	ctx := context.Background()

	_, err := svc.BalanceSheet(ctx)
	require.NoError(t, err)
	_, err = svc.BalanceSheet(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "nil client disables caching")
}

func TestCustomerReport(t *testing.T) {
	repo := &fakeRepo{
		customers: map[int64]string{7: "Acme Stores"},
		sales: map[int64][]StatementLine{
			7: {{ID: 1, Number: "INV-001", Total: dec("240"), Paid: dec("240")}},
		},
	}
	svc := NewService(repo, testCache(t), slog.Default())

	st, err := svc.CustomerReport(context.Background(), 7, DateRange{})
	require.NoError(t, err)
	require.Equal(t, "Acme Stores", st.CounterpartyName)
	require.Equal(t, 1, st.TransactionCount)
	require.True(t, st.Balance.Equal(decimal.Zero))
}

func TestCustomerReportUnknownCustomer(t *testing.T) {
	repo := &fakeRepo{customers: map[int64]string{}}
	svc := NewService(repo, testCache(t), slog.Default())

	_, err := svc.CustomerReport(context.Background(), 99, DateRange{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
