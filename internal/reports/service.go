package reports

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Service assembles reports from committed ledger reads. P&L and balance
// sheet responses are cached; concurrent misses for the same key collapse
// into one DB read.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds the reports Service.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ProfitAndLoss builds the P&L for the range.
func (s *Service) ProfitAndLoss(ctx context.Context, rng DateRange) (ProfitAndLoss, error) {
	key := keyPrefix + "pl:" + rng.Key()
	var cached ProfitAndLoss
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("report cache read failed", slog.Any("error", err))
	}
	if hit {
		return cached, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		accounts, err := s.repo.AccountBalances(ctx, rng)
		if err != nil {
			return ProfitAndLoss{}, err
		}
		report := BuildProfitAndLoss(accounts)
		if err := s.cache.Set(ctx, key, report); err != nil {
			s.logger.Warn("report cache write failed", slog.Any("error", err))
		}
		return report, nil
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return v.(ProfitAndLoss), nil
}

// BalanceSheet builds the all-time balance sheet.
func (s *Service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	const key = keyPrefix + "bs"
	var cached BalanceSheet
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("report cache read failed", slog.Any("error", err))
	}
	if hit {
		return cached, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		accounts, err := s.repo.AccountBalances(ctx, DateRange{})
		if err != nil {
			return BalanceSheet{}, err
		}
		report := BuildBalanceSheet(accounts)
		if err := s.cache.Set(ctx, key, report); err != nil {
			s.logger.Warn("report cache write failed", slog.Any("error", err))
		}
		return report, nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return v.(BalanceSheet), nil
}

// CustomerReport builds a statement of the customer's sales.
func (s *Service) CustomerReport(ctx context.Context, customerID int64, rng DateRange) (Statement, error) {
	name, err := s.repo.CustomerName(ctx, customerID)
	if err != nil {
		return Statement{}, err
	}
	lines, err := s.repo.CustomerTransactions(ctx, customerID, rng)
	if err != nil {
		return Statement{}, err
	}
	return BuildStatement(customerID, name, lines), nil
}

// VendorReport builds a statement of the vendor's purchases.
func (s *Service) VendorReport(ctx context.Context, vendorID int64, rng DateRange) (Statement, error) {
	name, err := s.repo.VendorName(ctx, vendorID)
	if err != nil {
		return Statement{}, err
	}
	lines, err := s.repo.VendorTransactions(ctx, vendorID, rng)
	if err != nil {
		return Statement{}, err
	}
	return BuildStatement(vendorID, name, lines), nil
}
