package engine

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	matchpublisherv1_mock "github.com/tradekit/clob/internal/domain/match-publisher/v1/mock"
	orderreaderv1 "github.com/tradekit/clob/internal/domain/order-reader/v1"
	orderreaderv1_mock "github.com/tradekit/clob/internal/domain/order-reader/v1/mock"
	snapshotv1_mock "github.com/tradekit/clob/internal/domain/snapshot/v1/mock"
	"github.com/tradekit/clob/internal/usecase/matching"
)

type benchmarkTestCase struct {
	name        string
	setupEngine func(*testing.B) *Engine
	setupData   func(*Engine, *testing.B)
	operation   func(*Engine, int)
}

func setupBenchmarkEngine(b *testing.B) *Engine {
	ctrl := gomock.NewController(b)

	mockOrderReader := orderreaderv1_mock.NewMockOrderReader(ctrl)
	mockSnapshotStore := snapshotv1_mock.NewMockStore(ctrl)
	mockMatchPublisher := matchpublisherv1_mock.NewMockMatchPublisher(ctrl)

	mockSnapshotStore.EXPECT().
		Store(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	mockMatchPublisher.EXPECT().
		PublishMatchEvent(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	e := NewEngine(matching.NewEngine(), mockOrderReader, mockSnapshotStore, mockMatchPublisher, testLogger(b), nil)
	e.ctx = context.Background()

	return e
}

// seedRestingBook rests n buy orders with ids 1..n spread over 500 price
// levels below the spread, so nothing crosses.
func seedRestingBook(e *Engine, n int) {
	for i := 0; i < n; i++ {
		_ = e.processOrder(addRequest(uint64(i+1), "BTC-USD", "buy", 49_000-int64(i%500), 10))
	}
}

func BenchmarkEngine_ProcessOrder(b *testing.B) {
	testCases := []benchmarkTestCase{
		{
			name:        "resting_limit_orders",
			setupEngine: setupBenchmarkEngine,
			setupData:   func(e *Engine, b *testing.B) {},
			operation: func(e *Engine, i int) {
				side := "buy"
				price := 49_000 - int64(i%100)
				if i%2 == 0 {
					side = "sell"
					price = 50_000 + int64(i%100)
				}
				_ = e.processOrder(addRequest(uint64(i+1), "BTC-USD", side, price, 10))
			},
		},
		{
			name:        "crossing_pairs",
			setupEngine: setupBenchmarkEngine,
			setupData:   func(e *Engine, b *testing.B) {},
			operation: func(e *Engine, i int) {
				_ = e.processOrder(addRequest(uint64(2*i+1), "BTC-USD", "sell", 50_000, 5))
				_ = e.processOrder(addRequest(uint64(2*i+2), "BTC-USD", "buy", 50_000, 5))
			},
		},
		{
			name:        "amend_resting_orders",
			setupEngine: setupBenchmarkEngine,
			setupData: func(e *Engine, b *testing.B) {
				seedRestingBook(e, 1000)
			},
			operation: func(e *Engine, i int) {
				id := uint64(i%1000) + 1
				_ = e.processOrder(&orderreaderv1.OrderRequest{
					Action:    orderreaderv1.ActionAmend,
					OrderID:   id,
					NewPrice:  49_000 - int64((id-1)%500),
					NewVolume: 10 - int64(i%2),
				})
			},
		},
		{
			name:        "pull_and_replace",
			setupEngine: setupBenchmarkEngine,
			setupData: func(e *Engine, b *testing.B) {
				seedRestingBook(e, 1000)
			},
			operation: func(e *Engine, i int) {
				id := uint64(i%1000) + 1
				_ = e.processOrder(&orderreaderv1.OrderRequest{
					Action:  orderreaderv1.ActionPull,
					OrderID: id,
				})
				_ = e.processOrder(addRequest(id, "BTC-USD", "buy", 49_000-int64(i%500), 10))
			},
		},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			e := tc.setupEngine(b)
			tc.setupData(e, b)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				tc.operation(e, i)
			}
		})
	}
}

func BenchmarkEngine_SnapshotCreation(b *testing.B) {
	testCases := []benchmarkTestCase{
		{
			name:        "snapshot_small_book",
			setupEngine: setupBenchmarkEngine,
			setupData: func(e *Engine, b *testing.B) {
				seedRestingBook(e, 100)
				e.setOrderOffset(100)
			},
			operation: func(e *Engine, i int) {
				e.createAndStoreSnapshot()
			},
		},
		{
			name:        "snapshot_large_book",
			setupEngine: setupBenchmarkEngine,
			setupData: func(e *Engine, b *testing.B) {
				seedRestingBook(e, 10_000)
				e.setOrderOffset(10_000)
			},
			operation: func(e *Engine, i int) {
				e.createAndStoreSnapshot()
			},
		},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			e := tc.setupEngine(b)
			tc.setupData(e, b)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				tc.operation(e, i)
			}
		})
	}
}

func BenchmarkEngine_MixedOperations(b *testing.B) {
	e := setupBenchmarkEngine(b)
	seedRestingBook(e, 100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		switch i % 10 {
		case 0, 1:
			// Aggressive order that eats into the resting buys.
			_ = e.processOrder(addRequest(uint64(i+10_000), "BTC-USD", "sell", 48_500, 5))
		case 2:
			_ = e.processOrder(&orderreaderv1.OrderRequest{
				Action:  orderreaderv1.ActionPull,
				OrderID: uint64(i%100) + 1,
			})
		default:
			_ = e.processOrder(addRequest(uint64(i+10_000), "BTC-USD", "buy", 49_000-int64(i%500), 10))
		}

		if i%100 == 0 {
			_ = e.GetOrderOffset()
			_ = e.GetLastSnapshotOffset()
			_ = e.GetTotalMatches()
		}
	}
}

func BenchmarkEngine_StateAccess(b *testing.B) {
	b.Run("offset_accessors", func(b *testing.B) {
		e := setupBenchmarkEngine(b)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			switch i % 3 {
			case 0:
				e.setOrderOffset(int64(i))
			case 1:
				e.setLastSnapshotOffset(int64(i))
			default:
				_ = e.GetOrderOffset()
				_ = e.GetLastSnapshotOffset()
			}
		}
	})

	b.Run("parallel_offset_reads", func(b *testing.B) {
		e := setupBenchmarkEngine(b)
		e.setOrderOffset(1_000_000)

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_ = e.GetOrderOffset()
				_ = e.GetLastSnapshotOffset()
				_ = e.GetTotalMatches()
			}
		})
	})
}
