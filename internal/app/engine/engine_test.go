package engine

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	matchpublisherv1 "github.com/tradekit/clob/internal/domain/match-publisher/v1"
	matchpublisherv1_mock "github.com/tradekit/clob/internal/domain/match-publisher/v1/mock"
	orderreaderv1 "github.com/tradekit/clob/internal/domain/order-reader/v1"
	orderreaderv1_mock "github.com/tradekit/clob/internal/domain/order-reader/v1/mock"
	snapshotv1 "github.com/tradekit/clob/internal/domain/snapshot/v1"
	snapshotv1_mock "github.com/tradekit/clob/internal/domain/snapshot/v1/mock"
	"github.com/tradekit/clob/internal/usecase/matching"
	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/logger"
)

type engineMocks struct {
	orderReader    *orderreaderv1_mock.MockOrderReader
	snapshotStore  *snapshotv1_mock.MockStore
	matchPublisher *matchpublisherv1_mock.MockMatchPublisher
}

func testLogger(t testing.TB) *logger.Logger {
	t.Helper()

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)
	return log
}

func newTestEngine(t *testing.T, options *Options) (*Engine, engineMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mocks := engineMocks{
		orderReader:    orderreaderv1_mock.NewMockOrderReader(ctrl),
		snapshotStore:  snapshotv1_mock.NewMockStore(ctrl),
		matchPublisher: matchpublisherv1_mock.NewMockMatchPublisher(ctrl),
	}

	e := NewEngine(matching.NewEngine(), mocks.orderReader, mocks.snapshotStore, mocks.matchPublisher, testLogger(t), options)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	return e, mocks
}

func addRequest(id uint64, symbol, side string, price, volume int64) *orderreaderv1.OrderRequest {
	return &orderreaderv1.OrderRequest{
		Action:  orderreaderv1.ActionAdd,
		OrderID: id,
		Symbol:  symbol,
		Side:    side,
		Price:   price,
		Volume:  volume,
	}
}

func TestEngine_ProcessOrder(t *testing.T) {
	t.Run("Resting add publishes nothing", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))

		assert.Equal(t, int64(0), e.GetTotalMatches())
	})

	t.Run("Crossing add publishes one event per fill", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "sell", 100, 5)))
		require.NoError(t, e.processOrder(addRequest(2, "BTC-USD", "sell", 101, 5)))

		var events []matchpublisherv1.MatchEvent
		mocks.matchPublisher.EXPECT().
			PublishMatchEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev *matchpublisherv1.MatchEvent) error {
				events = append(events, *ev)
				return nil
			}).
			Times(2)

		req := addRequest(3, "BTC-USD", "buy", 101, 8)
		req.Offset = 7
		require.NoError(t, e.processOrder(req))

		require.Len(t, events, 2)
		assert.Equal(t, uint64(3), events[0].TakerOrderID)
		assert.Equal(t, uint64(1), events[0].MakerOrderID)
		assert.Equal(t, int64(100), events[0].Price)
		assert.Equal(t, int64(5), events[0].Volume)
		assert.Equal(t, "buy", events[0].TakerSide)
		assert.Equal(t, int64(7), events[0].OrderOffset)

		assert.Equal(t, uint64(2), events[1].MakerOrderID)
		assert.Equal(t, int64(101), events[1].Price)
		assert.Equal(t, int64(3), events[1].Volume)

		assert.Equal(t, int64(2), e.GetTotalMatches())
	})

	t.Run("Amend into the spread publishes with the amended order as taker", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "sell", 105, 4)))
		require.NoError(t, e.processOrder(addRequest(2, "BTC-USD", "buy", 100, 4)))

		var event matchpublisherv1.MatchEvent
		mocks.matchPublisher.EXPECT().
			PublishMatchEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev *matchpublisherv1.MatchEvent) error {
				event = *ev
				return nil
			})

		require.NoError(t, e.processOrder(&orderreaderv1.OrderRequest{
			Action:    orderreaderv1.ActionAmend,
			OrderID:   2,
			NewPrice:  105,
			NewVolume: 4,
		}))

		assert.Equal(t, uint64(2), event.TakerOrderID)
		assert.Equal(t, uint64(1), event.MakerOrderID)
		assert.Equal(t, "buy", event.TakerSide)
		assert.Equal(t, "BTC-USD", event.Symbol)
		assert.Equal(t, int64(105), event.Price)
	})

	t.Run("Pull removes the order and publishes nothing", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))
		require.NoError(t, e.processOrder(&orderreaderv1.OrderRequest{
			Action:  orderreaderv1.ActionPull,
			OrderID: 1,
		}))

		err := e.processOrder(&orderreaderv1.OrderRequest{
			Action:  orderreaderv1.ActionPull,
			OrderID: 1,
		})
		assert.Error(t, err)
	})

	t.Run("Rejected requests surface the matcher error", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))

		err := e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5))
		assert.Error(t, err)

		err = e.processOrder(addRequest(2, "BTC-USD", "sideways", 100, 5))
		assert.Error(t, err)
	})

	t.Run("Unknown action is rejected as a decode error", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)

		err := e.processOrder(&orderreaderv1.OrderRequest{Action: "replace", OrderID: 1})

		assert.True(t, errors.ErrorCodeEquals(err, string(errors.OrderDecodeError)))
	})
}

func TestEngine_Restore(t *testing.T) {
	t.Run("Rebuilds books and repositions the reader", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().
			LoadStore(gomock.Any()).
			Return(&snapshotv1.Snapshot{
				OrderOffset: 42,
				Books: []snapshotv1.BookSnapshot{
					{
						Symbol: "BTC-USD",
						Unit:   1,
						Orders: []snapshotv1.BookOrder{
							{OrderID: 1, Side: "buy", Price: 100, Volume: 5},
							{OrderID: 2, Side: "sell", Price: 110, Volume: 3},
						},
					},
				},
			}, nil)
		mocks.orderReader.EXPECT().SetOffset(int64(43)).Return(nil)

		require.NoError(t, e.restore())

		assert.Equal(t, int64(42), e.GetOrderOffset())
		assert.Equal(t, int64(42), e.GetLastSnapshotOffset())
		assert.Equal(t, 2, e.matcher.OrderCount())

		order, symbol, ok := e.matcher.FindOrder(1)
		require.True(t, ok)
		assert.Equal(t, "BTC-USD", symbol)
		assert.Equal(t, int64(5), order.Volume)
	})

	t.Run("Starts fresh without a snapshot", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().LoadStore(gomock.Any()).Return(nil, nil)

		require.NoError(t, e.restore())

		assert.Equal(t, int64(0), e.GetOrderOffset())
		assert.Equal(t, 0, e.matcher.OrderCount())
	})

	t.Run("Aborts on a load failure", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().
			LoadStore(gomock.Any()).
			Return(nil, errors.NewTracer(string(errors.SnapshotLoadError)))

		assert.Error(t, e.restore())
	})

	t.Run("Aborts on a corrupt book snapshot", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().
			LoadStore(gomock.Any()).
			Return(&snapshotv1.Snapshot{
				OrderOffset: 1,
				Books: []snapshotv1.BookSnapshot{
					{
						Symbol: "BTC-USD",
						Unit:   1,
						Orders: []snapshotv1.BookOrder{
							{OrderID: 1, Side: "hold", Price: 100, Volume: 5},
						},
					},
				},
			}, nil)

		assert.Error(t, e.restore())
	})
}

func TestEngine_Snapshotting(t *testing.T) {
	options := &Options{SnapshotInterval: time.Hour, SnapshotOffsetDelta: 3}

	t.Run("Offset delta triggers a snapshot", func(t *testing.T) {
		e, mocks := newTestEngine(t, options)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))
		require.NoError(t, e.processOrder(addRequest(2, "ETH-USD", "sell", 200, 3)))
		e.setOrderOffset(3)

		var stored snapshotv1.Snapshot
		mocks.snapshotStore.EXPECT().
			Store(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, snap *snapshotv1.Snapshot) error {
				stored = *snap
				return nil
			})

		e.maybeSnapshot()

		assert.Equal(t, int64(3), stored.OrderOffset)
		require.Len(t, stored.Books, 2)
		assert.Equal(t, "BTC-USD", stored.Books[0].Symbol)
		assert.Equal(t, "ETH-USD", stored.Books[1].Symbol)
		require.Len(t, stored.Books[0].Orders, 1)
		assert.Equal(t, snapshotv1.BookOrder{OrderID: 1, Side: "buy", Price: 100, Volume: 5}, stored.Books[0].Orders[0])
		assert.Equal(t, int64(3), e.GetLastSnapshotOffset())
	})

	t.Run("Below the delta nothing is stored", func(t *testing.T) {
		e, _ := newTestEngine(t, options)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))
		e.setOrderOffset(2)

		e.maybeSnapshot()

		assert.Equal(t, int64(0), e.GetLastSnapshotOffset())
	})

	t.Run("Ticker flag forces a snapshot before the delta", func(t *testing.T) {
		e, mocks := newTestEngine(t, options)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))
		e.setOrderOffset(1)
		e.snapshotDue.Store(true)

		mocks.snapshotStore.EXPECT().Store(gomock.Any(), gomock.Any()).Return(nil)

		e.maybeSnapshot()

		assert.Equal(t, int64(1), e.GetLastSnapshotOffset())
	})

	t.Run("No applied offsets means no snapshot even when due", func(t *testing.T) {
		e, _ := newTestEngine(t, options)

		e.snapshotDue.Store(true)
		e.maybeSnapshot()

		assert.Equal(t, int64(0), e.GetLastSnapshotOffset())
	})

	t.Run("Failed store keeps the previous snapshot offset", func(t *testing.T) {
		e, mocks := newTestEngine(t, options)

		require.NoError(t, e.processOrder(addRequest(1, "BTC-USD", "buy", 100, 5)))
		e.setOrderOffset(5)
		e.snapshotDue.Store(true)

		mocks.snapshotStore.EXPECT().
			Store(gomock.Any(), gomock.Any()).
			Return(errors.NewTracer(string(errors.SnapshotStoreError)))

		e.maybeSnapshot()

		assert.Equal(t, int64(0), e.GetLastSnapshotOffset())
	})
}

func TestEngine_Start(t *testing.T) {
	t.Run("Consumes the order topic until cancelled", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().LoadStore(gomock.Any()).Return(nil, nil)
		mocks.orderReader.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		mocks.matchPublisher.EXPECT().PublishMatchEvent(gomock.Any(), gomock.Any()).Return(nil)

		gomock.InOrder(
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				Return(kafka.Message{Offset: 1}, addRequest(1, "BTC-USD", "sell", 100, 5), nil),
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				Return(kafka.Message{Offset: 2}, addRequest(2, "BTC-USD", "buy", 100, 5), nil),
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				DoAndReturn(func(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
					e.cancel()
					return kafka.Message{}, nil, context.Canceled
				}),
		)

		require.NoError(t, e.Start(context.Background()))

		assert.Equal(t, int64(2), e.GetOrderOffset())
		assert.Equal(t, int64(1), e.GetTotalMatches())
		assert.Equal(t, 0, e.matcher.OrderCount())
	})

	t.Run("Book validation runs behind the debug flag", func(t *testing.T) {
		options := DefaultEngineOptions()
		options.ValidateBooks = true
		e, mocks := newTestEngine(t, options)

		mocks.snapshotStore.EXPECT().LoadStore(gomock.Any()).Return(nil, nil)
		mocks.orderReader.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		gomock.InOrder(
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				Return(kafka.Message{Offset: 1}, addRequest(1, "BTC-USD", "buy", 100, 5), nil),
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				DoAndReturn(func(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
					e.cancel()
					return kafka.Message{}, nil, context.Canceled
				}),
		)

		require.NoError(t, e.Start(context.Background()))

		assert.Equal(t, 1, e.matcher.OrderCount())
	})

	t.Run("Skips poison messages by offset", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().LoadStore(gomock.Any()).Return(nil, nil)

		gomock.InOrder(
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				Return(kafka.Message{Offset: 5}, nil,
					errors.NewErrorDetails("malformed order payload", string(errors.OrderDecodeError), "ReadMessage")),
			mocks.orderReader.EXPECT().
				ReadMessage(gomock.Any()).
				DoAndReturn(func(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
					e.cancel()
					return kafka.Message{}, nil, context.Canceled
				}),
		)

		require.NoError(t, e.Start(context.Background()))

		assert.Equal(t, int64(5), e.GetOrderOffset())
	})

	t.Run("Aborts when the snapshot cannot be loaded", func(t *testing.T) {
		e, mocks := newTestEngine(t, nil)

		mocks.snapshotStore.EXPECT().
			LoadStore(gomock.Any()).
			Return(nil, errors.NewTracer(string(errors.SnapshotLoadError)))

		assert.Error(t, e.Start(context.Background()))
	})
}
