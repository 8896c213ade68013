package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"polymarket-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(id, marketID string, ts time.Time) *models.Trade {
	return &models.Trade{
		ID:          id,
		Timestamp:   ts,
		MarketID:    marketID,
		MarketTitle: "Sample market",
		TokenID:     "tok-yes",
		Side:        models.OrderSideBuy,
		Amount:      50,
		Price:       0.55,
		Status:      models.TradeStatusOpen,
		IsPaper:     true,
	}
}

func TestLogAndGetTrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := s.LogTrade(ctx, sampleTrade("t1", "mkt-1", base)); err != nil {
		t.Fatalf("LogTrade: %v", err)
	}
	if err := s.LogTrade(ctx, sampleTrade("t2", "mkt-2", base.Add(time.Hour))); err != nil {
		t.Fatalf("LogTrade: %v", err)
	}

	trades, err := s.GetTrades(ctx, TradeFilter{})
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	// Newest first.
	if trades[0].ID != "t2" || trades[1].ID != "t1" {
		t.Errorf("order = [%s, %s], want [t2, t1]", trades[0].ID, trades[1].ID)
	}
	if trades[0].PnL != nil {
		t.Error("open trade should have no realized pnl")
	}
	if !trades[0].IsPaper {
		t.Error("paper flag lost in round trip")
	}
}

func TestGetTradesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	s.LogTrade(ctx, sampleTrade("t1", "mkt-1", base))
	s.LogTrade(ctx, sampleTrade("t2", "mkt-2", base.Add(time.Hour)))
	sell := sampleTrade("t3", "mkt-2", base.Add(2*time.Hour))
	sell.Side = models.OrderSideSell
	s.LogTrade(ctx, sell)

	tests := []struct {
		name    string
		filter  TradeFilter
		wantIDs []string
	}{
		{"by market", TradeFilter{MarketID: "mkt-1"}, []string{"t1"}},
		{"by side", TradeFilter{Side: string(models.OrderSideSell)}, []string{"t3"}},
		{"by start date", TradeFilter{StartDate: base.Add(30 * time.Minute)}, []string{"t3", "t2"}},
		{"with limit", TradeFilter{Limit: 1}, []string{"t3"}},
		{"no match", TradeFilter{MarketID: "mkt-9"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades, err := s.GetTrades(ctx, tt.filter)
			if err != nil {
				t.Fatalf("GetTrades: %v", err)
			}
			if len(trades) != len(tt.wantIDs) {
				t.Fatalf("got %d trades, want %d", len(trades), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if trades[i].ID != id {
					t.Errorf("trades[%d].ID = %s, want %s", i, trades[i].ID, id)
				}
			}
		})
	}
}

func TestUpdateTradeOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.LogTrade(ctx, sampleTrade("t1", "mkt-1", time.Now().UTC()))
	if err := s.UpdateTradeOutcome(ctx, "t1", models.TradeStatusClosed, 12.5); err != nil {
		t.Fatalf("UpdateTradeOutcome: %v", err)
	}

	trades, err := s.GetTrades(ctx, TradeFilter{Status: string(models.TradeStatusClosed)})
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d closed trades, want 1", len(trades))
	}
	if trades[0].PnL == nil || *trades[0].PnL != 12.5 {
		t.Errorf("pnl = %v, want 12.5", trades[0].PnL)
	}
}

func TestSaveSnapshotAndCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveSnapshot(ctx, &models.PortfolioSummary{
		CurrentBalance: 10250,
		TotalPnL:       250,
		PeakBalance:    10300,
		OpenPositions:  2,
		TotalTrades:    7,
	})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	err = s.SaveCycle(ctx, &CycleRecord{
		Timestamp:       time.Now().UTC(),
		MarketsScanned:  100,
		Opportunities:   4,
		TradesAttempted: 3,
		TradesExecuted:  2,
		APICalls:        5,
		APIErrors:       1,
		Duration:        3 * time.Second,
	})
	if err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
}
