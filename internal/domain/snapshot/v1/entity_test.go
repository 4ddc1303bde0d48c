package snapshotv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/tradekit/clob/internal/domain/orderbook/v1"
)

// snapshotTestBook builds a book with two buy levels and two sell levels,
// with two orders queued at the 100 level.
func snapshotTestBook(t *testing.T) *orderbookv1.Book {
	t.Helper()

	book, err := orderbookv1.NewBook("BTC-USD", 1)
	require.NoError(t, err)

	for _, order := range []orderbookv1.Order{
		{ID: 11, Side: orderbookv1.Buy, Price: 100, Volume: 5},
		{ID: 12, Side: orderbookv1.Buy, Price: 100, Volume: 3},
		{ID: 10, Side: orderbookv1.Buy, Price: 90, Volume: 4},
		{ID: 20, Side: orderbookv1.Sell, Price: 110, Volume: 7},
		{ID: 21, Side: orderbookv1.Sell, Price: 120, Volume: 2},
	} {
		_, err := book.Insert(order)
		require.NoError(t, err)
	}

	return book
}

func TestBookSnapshotFrom(t *testing.T) {
	t.Run("Lists buys then sells in ascending price order", func(t *testing.T) {
		bs := BookSnapshotFrom(snapshotTestBook(t))

		assert.Equal(t, "BTC-USD", bs.Symbol)
		assert.Equal(t, int64(1), bs.Unit)
		assert.Equal(t, []BookOrder{
			{OrderID: 10, Side: "buy", Price: 90, Volume: 4},
			{OrderID: 11, Side: "buy", Price: 100, Volume: 5},
			{OrderID: 12, Side: "buy", Price: 100, Volume: 3},
			{OrderID: 20, Side: "sell", Price: 110, Volume: 7},
			{OrderID: 21, Side: "sell", Price: 120, Volume: 2},
		}, bs.Orders)
	})

	t.Run("Captures an empty book", func(t *testing.T) {
		book, err := orderbookv1.NewBook("ETH-USD", 5)
		require.NoError(t, err)

		bs := BookSnapshotFrom(book)

		assert.Equal(t, "ETH-USD", bs.Symbol)
		assert.Equal(t, int64(5), bs.Unit)
		assert.Empty(t, bs.Orders)
	})
}

func TestBookSnapshot_Restore(t *testing.T) {
	t.Run("Rebuilds the book with queue order intact", func(t *testing.T) {
		book := snapshotTestBook(t)

		restored, err := BookSnapshotFrom(book).Restore()

		require.NoError(t, err)
		require.NoError(t, restored.Validate())
		assert.Equal(t, book.Orders(), restored.Orders())
		assert.Equal(t, int64(100), restored.HighestPrice())
		assert.Equal(t, int64(110), restored.LowestPrice())

		// 11 rested before 12 at the 100 level and stays in front.
		assert.Equal(t, uint64(11), restored.BestOfferID(orderbookv1.Sell))
	})

	t.Run("Rejects an unknown side", func(t *testing.T) {
		bs := BookSnapshot{
			Symbol: "BTC-USD",
			Unit:   1,
			Orders: []BookOrder{{OrderID: 1, Side: "hold", Price: 100, Volume: 5}},
		}

		_, err := bs.Restore()

		require.ErrorIs(t, err, orderbookv1.ErrInvalidSide)
		assert.ErrorContains(t, err, "order 1")
	})

	t.Run("Rejects a duplicate order id", func(t *testing.T) {
		bs := BookSnapshot{
			Symbol: "BTC-USD",
			Unit:   1,
			Orders: []BookOrder{
				{OrderID: 1, Side: "buy", Price: 100, Volume: 5},
				{OrderID: 1, Side: "buy", Price: 90, Volume: 2},
			},
		}

		_, err := bs.Restore()

		require.ErrorIs(t, err, orderbookv1.ErrDuplicateID)
	})

	t.Run("Rejects an invalid unit", func(t *testing.T) {
		bs := BookSnapshot{Symbol: "BTC-USD", Unit: 0}

		_, err := bs.Restore()

		require.ErrorIs(t, err, orderbookv1.ErrInvalidUnit)
	})

	t.Run("Rejects an off grid price", func(t *testing.T) {
		bs := BookSnapshot{
			Symbol: "BTC-USD",
			Unit:   5,
			Orders: []BookOrder{{OrderID: 1, Side: "buy", Price: 102, Volume: 5}},
		}

		_, err := bs.Restore()

		require.ErrorIs(t, err, orderbookv1.ErrPriceNotOnGrid)
	})
}
