package snapshotv1

import (
	"fmt"

	orderbookv1 "github.com/tradekit/clob/internal/domain/orderbook/v1"
)

// Snapshot captures the full engine state at a single point of the order
// topic: every resting order of every book, plus the offset of the last
// applied order request. Replaying the topic from OrderOffset+1 on top of a
// restored snapshot reproduces the live state.
type Snapshot struct {
	OrderOffset int64          `json:"orderOffset"`
	TakenAt     int64          `json:"takenAt"`
	Books       []BookSnapshot `json:"books"`
}

// BookSnapshot captures one book. Orders are listed buys before sells, each
// side in ascending price order and FIFO within a level, so re-inserting
// them in sequence rebuilds identical queues.
type BookSnapshot struct {
	Symbol string      `json:"symbol"`
	Unit   int64       `json:"unit"`
	Orders []BookOrder `json:"orders"`
}

// BookOrder is one resting order inside a book snapshot.
type BookOrder struct {
	OrderID uint64 `json:"orderId"`
	Side    string `json:"side"`
	Price   int64  `json:"price"`
	Volume  int64  `json:"volume"`
}

// BookSnapshotFrom captures the resting state of a book.
func BookSnapshotFrom(book *orderbookv1.Book) BookSnapshot {
	resting := book.Orders()

	orders := make([]BookOrder, 0, len(resting))
	for _, o := range resting {
		orders = append(orders, BookOrder{
			OrderID: o.ID,
			Side:    o.Side.String(),
			Price:   o.Price,
			Volume:  o.Volume,
		})
	}

	return BookSnapshot{
		Symbol: book.Symbol(),
		Unit:   book.Unit(),
		Orders: orders,
	}
}

// Restore rebuilds the captured book, queue order included.
func (bs BookSnapshot) Restore() (*orderbookv1.Book, error) {
	book, err := orderbookv1.NewBook(bs.Symbol, bs.Unit)
	if err != nil {
		return nil, err
	}

	for _, o := range bs.Orders {
		side, err := orderbookv1.ParseSide(o.Side)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.OrderID, err)
		}
		if _, err := book.Insert(orderbookv1.Order{
			ID:     o.OrderID,
			Side:   side,
			Price:  o.Price,
			Volume: o.Volume,
		}); err != nil {
			return nil, fmt.Errorf("order %d: %w", o.OrderID, err)
		}
	}

	return book, nil
}
