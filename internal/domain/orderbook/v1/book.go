package orderbookv1

import (
	"fmt"
	"strings"
)

// Book is a central limit order book for a single symbol.
//
// Orders rest in per-price limits held by two sparse level stores, one per
// side, addressed by price divided by the book's unit. Every mutation keeps
// the order map, the per-limit queues, the aggregate counters, and the best
// bid / best sell pointers consistent, so lookups and top-of-book reads are
// O(1); the only non-constant path is the best-price rescan when the best
// limit on a side empties.
//
// A Book is not safe for concurrent use. Callers serialise access, typically
// by driving it from a single loop.
type Book struct {
	symbol string
	unit   int64

	orders map[uint64]*Order
	buys   *PagedArray[*Limit]
	sells  *PagedArray[*Limit]

	orderCount uint64
	buyVolume  int64
	sellVolume int64

	bestBuy  *Limit
	bestSell *Limit
}

// NewBook creates an empty book for the given symbol. The unit is the price
// granularity: every order price must be a positive exact multiple of it.
func NewBook(symbol string, unit int64) (*Book, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if unit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidUnit, unit)
	}

	return &Book{
		symbol: symbol,
		unit:   unit,
		orders: make(map[uint64]*Order),
		buys:   NewPagedArray[*Limit](DefaultPageSize),
		sells:  NewPagedArray[*Limit](DefaultPageSize),
	}, nil
}

// Symbol returns the book's immutable symbol.
func (b *Book) Symbol() string {
	return b.symbol
}

// Unit returns the book's immutable price unit.
func (b *Book) Unit() int64 {
	return b.unit
}

// Insert places a new resting order into its price limit, creating the limit
// if this is the first order at that price. The returned pointer is a borrow
// into the book and is valid only until the next mutating call.
func (b *Book) Insert(order Order) (*Order, error) {
	if _, ok := b.orders[order.ID]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateID, order.ID)
	}
	if order.Side != Buy && order.Side != Sell {
		return nil, ErrInvalidSide
	}
	if order.Price <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPrice, order.Price)
	}
	if order.Price%b.unit != 0 {
		return nil, fmt.Errorf("%w: price %d, unit %d", ErrPriceNotOnGrid, order.Price, b.unit)
	}
	if order.Volume <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVolume, order.Volume)
	}

	node := NewOrder(order.ID, order.Side, order.Price, order.Volume)
	b.attach(node)

	return node, nil
}

// Amend updates an existing order. A price change detaches the order and
// re-inserts it at the new limit, so it joins the back of that queue; a pure
// volume change is applied in place and keeps the order's queue position.
func (b *Book) Amend(orderID uint64, newPrice, newVolume int64) (*Order, error) {
	node, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	if newPrice <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPrice, newPrice)
	}
	if newPrice%b.unit != 0 {
		return nil, fmt.Errorf("%w: price %d, unit %d", ErrPriceNotOnGrid, newPrice, b.unit)
	}
	if newVolume <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVolume, newVolume)
	}

	if node.Price != newPrice {
		b.detachNode(node)
		node.Price = newPrice
		node.Volume = newVolume
		b.attach(node)
		return node, nil
	}

	delta := newVolume - node.Volume
	node.limit.Volume += delta
	if node.Side == Buy {
		b.buyVolume += delta
	} else {
		b.sellVolume += delta
	}
	node.Volume = newVolume

	return node, nil
}

// Detach unlinks the order from its limit queue and from the order map
// without destroying it. The caller owns the returned order until it is
// re-inserted.
func (b *Book) Detach(orderID uint64) (*Order, error) {
	node, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}

	b.detachNode(node)

	return node, nil
}

// Remove detaches the order and discards it.
func (b *Book) Remove(orderID uint64) error {
	_, err := b.Detach(orderID)
	return err
}

// BestOfferID answers "what is the best order I could trade against" for an
// incoming order on the given side: Buy returns the front of the best sell
// limit, Sell returns the front of the best buy limit. Returns 0 when the
// opposite side has no liquidity.
func (b *Book) BestOfferID(side Side) uint64 {
	if side == Buy {
		if b.bestSell == nil || b.bestSell.front == nil {
			return 0
		}
		return b.bestSell.front.ID
	}

	if b.bestBuy == nil || b.bestBuy.front == nil {
		return 0
	}
	return b.bestBuy.front.ID
}

// OrderByID returns a detached value copy of a resting order. The copy is
// safe to hold across mutating calls.
func (b *Book) OrderByID(orderID uint64) (Order, bool) {
	node, ok := b.orders[orderID]
	if !ok {
		return Order{}, false
	}

	return node.Snapshot(), true
}

// VolumeAtLimit returns the resting volume at the given price on the given
// side, or 0 when no such limit exists.
func (b *Book) VolumeAtLimit(side Side, price int64) int64 {
	if price <= 0 {
		return 0
	}

	limit := b.sideStore(side).Get(uint64(price / b.unit))
	if limit == nil {
		return 0
	}

	return limit.Volume
}

// HighestPrice returns the best buy price, or 0 when the buy side is empty.
func (b *Book) HighestPrice() int64 {
	if b.bestBuy == nil {
		return 0
	}
	return b.bestBuy.Price
}

// LowestPrice returns the best sell price, or 0 when the sell side is empty.
func (b *Book) LowestPrice() int64 {
	if b.bestSell == nil {
		return 0
	}
	return b.bestSell.Price
}

// OrderCount returns the number of resting orders.
func (b *Book) OrderCount() uint64 {
	return b.orderCount
}

// BuyVolume returns the total resting volume on the buy side.
func (b *Book) BuyVolume() int64 {
	return b.buyVolume
}

// SellVolume returns the total resting volume on the sell side.
func (b *Book) SellVolume() int64 {
	return b.sellVolume
}

// Orders returns value copies of every resting order, buys before sells,
// each side in ascending price order and FIFO within a limit. Re-inserting
// them into an empty book in this order rebuilds identical queues.
func (b *Book) Orders() []Order {
	orders := make([]Order, 0, b.orderCount)

	for _, store := range []*PagedArray[*Limit]{b.buys, b.sells} {
		for idx := uint64(0); idx < store.Size(); idx++ {
			limit := store.Get(idx)
			if limit == nil || limit.Size == 0 {
				continue
			}
			for o := limit.front; o != nil; o = o.next {
				orders = append(orders, o.Snapshot())
			}
		}
	}

	return orders
}

// String renders the book and all resting orders for operator inspection.
func (b *Book) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "book[symbol=%s unit=%d orders=%d buy_volume=%d sell_volume=%d highest_buy=%d lowest_sell=%d]\n",
		b.symbol, b.unit, b.orderCount, b.buyVolume, b.sellVolume, b.HighestPrice(), b.LowestPrice())

	for _, store := range []*PagedArray[*Limit]{b.buys, b.sells} {
		for idx := uint64(0); idx < store.Size(); idx++ {
			limit := store.Get(idx)
			if limit == nil || limit.Size == 0 {
				continue
			}
			for o := limit.front; o != nil; o = o.next {
				sb.WriteString(o.String())
				sb.WriteByte('\n')
			}
		}
	}

	return sb.String()
}

// Validate recomputes every aggregate from the queues and reports the first
// inconsistency found. Meant for tests and debug assertions; an error here
// is a programmer error, not an operational condition.
func (b *Book) Validate() error {
	var (
		count      uint64
		buyVolume  int64
		sellVolume int64
		bestBuy    *Limit
		bestSell   *Limit
	)

	for _, side := range []Side{Buy, Sell} {
		store := b.sideStore(side)
		for idx := uint64(0); idx < store.Size(); idx++ {
			limit := store.Get(idx)
			if limit == nil {
				continue
			}
			if err := limit.Validate(); err != nil {
				return err
			}
			if limit.Size == 0 {
				continue
			}

			for o := limit.front; o != nil; o = o.next {
				if o.Side != side {
					return fmt.Errorf("order %d with side %s stored on the %s side", o.ID, o.Side, side)
				}
				mapped, ok := b.orders[o.ID]
				if !ok {
					return fmt.Errorf("order %d is queued but not in the order map", o.ID)
				}
				if mapped != o {
					return fmt.Errorf("order map entry %d points at a different order", o.ID)
				}
				count++
			}

			if side == Buy {
				buyVolume += limit.Volume
				if bestBuy == nil || limit.Price > bestBuy.Price {
					bestBuy = limit
				}
			} else {
				sellVolume += limit.Volume
				if bestSell == nil || limit.Price < bestSell.Price {
					bestSell = limit
				}
			}
		}
	}

	if count != b.orderCount {
		return fmt.Errorf("counted %d resting orders, order count says %d", count, b.orderCount)
	}
	if len(b.orders) != int(b.orderCount) {
		return fmt.Errorf("order map holds %d entries, order count says %d", len(b.orders), b.orderCount)
	}
	if buyVolume != b.buyVolume {
		return fmt.Errorf("counted buy volume %d, stored %d", buyVolume, b.buyVolume)
	}
	if sellVolume != b.sellVolume {
		return fmt.Errorf("counted sell volume %d, stored %d", sellVolume, b.sellVolume)
	}
	if bestBuy != b.bestBuy {
		return fmt.Errorf("best buy limit is stale: stored %v, actual %v", limitPrice(b.bestBuy), limitPrice(bestBuy))
	}
	if bestSell != b.bestSell {
		return fmt.Errorf("best sell limit is stale: stored %v, actual %v", limitPrice(b.bestSell), limitPrice(bestSell))
	}

	return nil
}

func limitPrice(l *Limit) any {
	if l == nil {
		return "none"
	}
	return l.Price
}

func (b *Book) sideStore(side Side) *PagedArray[*Limit] {
	if side == Buy {
		return b.buys
	}
	return b.sells
}

// attach links a detached order into its price limit, creating the limit on
// first use, and updates the book's counters and best pointers.
func (b *Book) attach(node *Order) {
	store := b.sideStore(node.Side)
	idx := uint64(node.Price / b.unit)

	limit := store.Get(idx)
	if limit == nil {
		limit = NewLimit(node.Price)
		store.Set(idx, limit)
	}

	limit.push(node)

	b.orders[node.ID] = node
	b.orderCount++

	if node.Side == Buy {
		b.buyVolume += node.Volume
		if b.bestBuy == nil || limit.Price > b.bestBuy.Price {
			b.bestBuy = limit
		}
	} else {
		b.sellVolume += node.Volume
		if b.bestSell == nil || limit.Price < b.bestSell.Price {
			b.bestSell = limit
		}
	}
}

// detachNode unlinks a resting order and repairs the best pointer for its
// side if its limit was the best and is now empty. The rescan walks from the
// order's level index toward worse prices and stops at the first non-empty
// limit; it is the only non-O(1) path in the book.
func (b *Book) detachNode(node *Order) {
	limit := node.limit
	idx := uint64(node.Price / b.unit)

	delete(b.orders, node.ID)
	limit.unlink(node)

	b.orderCount--

	if node.Side == Buy {
		b.buyVolume -= node.Volume

		if b.bestBuy != nil && b.bestBuy.Size == 0 {
			b.bestBuy = nil
			for i := int64(idx) - 1; i >= 0; i-- {
				if l := b.buys.Get(uint64(i)); l != nil && l.Size > 0 {
					b.bestBuy = l
					break
				}
			}
		}
		return
	}

	b.sellVolume -= node.Volume

	if b.bestSell != nil && b.bestSell.Size == 0 {
		b.bestSell = nil
		for i := idx + 1; i < b.sells.Size(); i++ {
			if l := b.sells.Get(i); l != nil && l.Size > 0 {
				b.bestSell = l
				break
			}
		}
	}
}
