package orderbookv1

import "fmt"

// Order represents a single resting order in the order book.
//
// ID and Side are fixed for the life of the order; Price and Volume are
// mutated by Book.Amend and by the matching loop. The unexported link fields
// chain the order into its limit's time-priority queue and are only valid
// while the order rests in a book.
type Order struct {
	ID     uint64
	Side   Side
	Price  int64
	Volume int64

	limit *Limit
	prev  *Order
	next  *Order
}

// NewOrder creates a new order with the given parameters.
func NewOrder(id uint64, side Side, price, volume int64) *Order {
	return &Order{
		ID:     id,
		Side:   side,
		Price:  price,
		Volume: volume,
	}
}

// Limit returns the limit this order currently rests in, or nil.
func (o *Order) Limit() *Limit {
	return o.limit
}

// Next returns the order behind this one in its limit queue, or nil.
func (o *Order) Next() *Order {
	return o.next
}

// Prev returns the order ahead of this one in its limit queue, or nil.
func (o *Order) Prev() *Order {
	return o.prev
}

// Snapshot returns a detached value copy of the order. The copy carries no
// queue links, so mutating it never touches book state.
func (o *Order) Snapshot() Order {
	return Order{
		ID:     o.ID,
		Side:   o.Side,
		Price:  o.Price,
		Volume: o.Volume,
	}
}

// String renders the order on a single line for operator inspection.
func (o *Order) String() string {
	prev := "nil"
	if o.prev != nil {
		prev = fmt.Sprintf("%d", o.prev.ID)
	}
	next := "nil"
	if o.next != nil {
		next = fmt.Sprintf("%d", o.next.ID)
	}
	return fmt.Sprintf("order[id=%d side=%s price=%d volume=%d prev=%s next=%s]",
		o.ID, o.Side, o.Price, o.Volume, prev, next)
}
