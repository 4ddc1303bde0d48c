package matching

import (
	"errors"
	"fmt"
	"sort"

	orderbookv1 "github.com/tradekit/clob/internal/domain/orderbook/v1"
)

// ErrInvalidOrderID is returned when an order id of 0 is submitted. The zero
// id is reserved: best-offer lookups use it to signal an empty side.
var ErrInvalidOrderID = errors.New("order id must be non-zero")

// Engine matches incoming orders against per-symbol books and keeps a
// global order id index so amends and pulls need no symbol.
//
// The engine is not safe for concurrent use; drive it from a single loop.
type Engine struct {
	books      map[string]*orderbookv1.Book
	orderIndex map[uint64]*orderbookv1.Book
}

// NewEngine creates an engine with no books. Books are created on demand on
// the first add for a symbol.
func NewEngine() *Engine {
	return &Engine{
		books:      make(map[string]*orderbookv1.Book),
		orderIndex: make(map[uint64]*orderbookv1.Book),
	}
}

// NewEngineWithBooks creates an engine over pre-built books, indexing every
// order already resting in them. Used to resume from a snapshot.
func NewEngineWithBooks(books map[string]*orderbookv1.Book) *Engine {
	e := NewEngine()

	for symbol, book := range books {
		if book == nil {
			continue
		}
		e.books[symbol] = book
		for _, o := range book.Orders() {
			e.orderIndex[o.ID] = book
		}
	}

	return e
}

// AddOrder submits an order. It first trades against crossing resting
// orders, best price first and FIFO within a price, appending one fill per
// resting order hit; any remaining volume is then inserted into the book.
// Fills execute at the resting order's price.
func (e *Engine) AddOrder(orderID uint64, symbol string, side orderbookv1.Side, price, volume int64, fills *[]orderbookv1.Fill) error {
	if orderID == 0 {
		return ErrInvalidOrderID
	}
	if _, ok := e.orderIndex[orderID]; ok {
		return fmt.Errorf("%w: %d", orderbookv1.ErrDuplicateID, orderID)
	}
	if symbol == "" {
		return orderbookv1.ErrInvalidSymbol
	}
	if side != orderbookv1.Buy && side != orderbookv1.Sell {
		return orderbookv1.ErrInvalidSide
	}
	if price <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrInvalidPrice, price)
	}
	if volume <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrInvalidVolume, volume)
	}

	book, ok := e.books[symbol]
	if !ok {
		fresh, err := orderbookv1.NewBook(symbol, 1)
		if err != nil {
			return err
		}
		e.books[symbol] = fresh

		if _, err := fresh.Insert(orderbookv1.Order{ID: orderID, Side: side, Price: price, Volume: volume}); err != nil {
			return err
		}
		e.orderIndex[orderID] = fresh

		return nil
	}

	remaining := volume
	for remaining > 0 {
		bestID := book.BestOfferID(side)
		if bestID == 0 {
			break
		}

		best, ok := book.OrderByID(bestID)
		if !ok {
			break
		}
		if side == orderbookv1.Buy && best.Price > price {
			break
		}
		if side == orderbookv1.Sell && best.Price < price {
			break
		}

		if best.Volume > remaining {
			if _, err := book.Amend(bestID, best.Price, best.Volume-remaining); err != nil {
				return err
			}
			*fills = append(*fills, orderbookv1.Fill{
				OtherOrderID: bestID,
				TradePrice:   best.Price,
				TradeVolume:  remaining,
			})
			remaining = 0
			break
		}

		if err := book.Remove(bestID); err != nil {
			return err
		}
		delete(e.orderIndex, bestID)
		*fills = append(*fills, orderbookv1.Fill{
			OtherOrderID: bestID,
			TradePrice:   best.Price,
			TradeVolume:  best.Volume,
		})
		remaining -= best.Volume
	}

	if remaining > 0 {
		if _, err := book.Insert(orderbookv1.Order{ID: orderID, Side: side, Price: price, Volume: remaining}); err != nil {
			return err
		}
		e.orderIndex[orderID] = book
	}

	return nil
}

// AmendOrder changes the price or volume of a resting order. A same-price
// amend that does not raise the volume is applied in place and keeps the
// order's queue position; anything else pulls the order and resubmits it
// through AddOrder, so it can trade on re-entry and otherwise joins the back
// of its new queue.
func (e *Engine) AmendOrder(orderID uint64, newPrice, newVolume int64, fills *[]orderbookv1.Fill) error {
	if newPrice <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrInvalidPrice, newPrice)
	}
	if newVolume <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrInvalidVolume, newVolume)
	}

	book, ok := e.orderIndex[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", orderbookv1.ErrOrderNotFound, orderID)
	}

	existing, ok := book.OrderByID(orderID)
	if !ok {
		return fmt.Errorf("%w: %d", orderbookv1.ErrOrderNotFound, orderID)
	}

	if newPrice == existing.Price && newVolume <= existing.Volume {
		_, err := book.Amend(orderID, newPrice, newVolume)
		return err
	}

	if err := e.PullOrder(orderID); err != nil {
		return err
	}

	return e.AddOrder(orderID, book.Symbol(), existing.Side, newPrice, newVolume, fills)
}

// PullOrder removes a resting order from its book.
func (e *Engine) PullOrder(orderID uint64) error {
	book, ok := e.orderIndex[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", orderbookv1.ErrOrderNotFound, orderID)
	}

	delete(e.orderIndex, orderID)

	return book.Remove(orderID)
}

// FindOrder returns a copy of a resting order and the symbol of its book.
func (e *Engine) FindOrder(orderID uint64) (orderbookv1.Order, string, bool) {
	book, ok := e.orderIndex[orderID]
	if !ok {
		return orderbookv1.Order{}, "", false
	}

	order, ok := book.OrderByID(orderID)
	if !ok {
		return orderbookv1.Order{}, "", false
	}

	return order, book.Symbol(), true
}

// TopOfBook returns the best bid and ask with their level volumes. An
// unknown symbol or an empty side reads as zeros.
func (e *Engine) TopOfBook(symbol string) orderbookv1.BestBidOffer {
	book, ok := e.books[symbol]
	if !ok {
		return orderbookv1.BestBidOffer{}
	}

	highest := book.HighestPrice()
	lowest := book.LowestPrice()

	return orderbookv1.BestBidOffer{
		BidVolume: book.VolumeAtLimit(orderbookv1.Buy, highest),
		BidPrice:  highest,
		AskVolume: book.VolumeAtLimit(orderbookv1.Sell, lowest),
		AskPrice:  lowest,
	}
}

// Book returns the live book for a symbol. The book is a borrow into the
// engine; mutate it only through the engine.
func (e *Engine) Book(symbol string) (*orderbookv1.Book, bool) {
	book, ok := e.books[symbol]
	return book, ok
}

// Books returns the engine's books sorted by symbol.
func (e *Engine) Books() []*orderbookv1.Book {
	symbols := make([]string, 0, len(e.books))
	for symbol := range e.books {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	books := make([]*orderbookv1.Book, 0, len(symbols))
	for _, symbol := range symbols {
		books = append(books, e.books[symbol])
	}

	return books
}

// OrderCount returns the number of resting orders across all books.
func (e *Engine) OrderCount() int {
	return len(e.orderIndex)
}
