package orderbookv1

import "fmt"

// Limit represents a single price level: all resting orders at one price on
// one side of the book, chained in arrival order.
//
// A limit is created the first time an order arrives at its price and stays
// in the level store for the life of the book; an emptied limit simply has
// Size == 0 and is skipped by best-price selection.
type Limit struct {
	Price  int64
	Size   int
	Volume int64

	front *Order
	tail  *Order
}

// NewLimit creates an empty limit at the given price.
func NewLimit(price int64) *Limit {
	return &Limit{
		Price: price,
	}
}

// Front returns the highest-priority (oldest) order in the limit, or nil.
func (l *Limit) Front() *Order {
	return l.front
}

// Tail returns the lowest-priority (newest) order in the limit, or nil.
func (l *Limit) Tail() *Order {
	return l.tail
}

// push appends the order at the tail of the queue and updates the limit's
// counters. The order must not be linked anywhere else.
func (l *Limit) push(o *Order) {
	if l.Size == 0 {
		l.front = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}

	l.Size++
	l.Volume += o.Volume
	o.limit = l
}

// unlink splices the order out of the queue and updates the limit's
// counters. The order's links are cleared; the order itself is untouched.
func (l *Limit) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.front = o.next
	}

	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}

	o.prev = nil
	o.next = nil
	o.limit = nil

	l.Size--
	l.Volume -= o.Volume
}

// Validate walks the queue and checks the limit's bookkeeping against it.
func (l *Limit) Validate() error {
	if l.Price <= 0 {
		return fmt.Errorf("%w: limit price %d", ErrInvalidPrice, l.Price)
	}

	if l.Size == 0 {
		if l.front != nil || l.tail != nil {
			return fmt.Errorf("empty limit %d has queued orders", l.Price)
		}
		if l.Volume != 0 {
			return fmt.Errorf("empty limit %d has volume %d", l.Price, l.Volume)
		}
		return nil
	}

	if l.front == nil || l.tail == nil {
		return fmt.Errorf("limit %d has size %d but a nil queue end", l.Price, l.Size)
	}
	if l.front.prev != nil {
		return fmt.Errorf("limit %d front order %d has a predecessor", l.Price, l.front.ID)
	}
	if l.tail.next != nil {
		return fmt.Errorf("limit %d tail order %d has a successor", l.Price, l.tail.ID)
	}

	count := 0
	volume := int64(0)
	for o := l.front; o != nil; o = o.next {
		if o.limit != l {
			return fmt.Errorf("order %d in limit %d points at another limit", o.ID, l.Price)
		}
		if o.Price != l.Price {
			return fmt.Errorf("order %d has price %d inside limit %d", o.ID, o.Price, l.Price)
		}
		if o.Volume <= 0 {
			return fmt.Errorf("%w: order %d has volume %d", ErrInvalidVolume, o.ID, o.Volume)
		}
		if o.next != nil && o.next.prev != o {
			return fmt.Errorf("broken back link after order %d in limit %d", o.ID, l.Price)
		}
		count++
		volume += o.Volume
	}

	if count != l.Size {
		return fmt.Errorf("limit %d counted %d orders, size says %d", l.Price, count, l.Size)
	}
	if volume != l.Volume {
		return fmt.Errorf("limit %d counted volume %d, stored %d", l.Price, volume, l.Volume)
	}

	return nil
}
