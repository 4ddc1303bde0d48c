package orderbookv1

import "fmt"

// Side identifies which half of the book an order belongs to.
type Side int8

const (
	// Buy is the bid side.
	Buy Side = iota
	// Sell is the ask side.
	Sell
)

// String returns the lowercase wire name of the side.
func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int8(s))
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide converts a wire name into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return Buy, fmt.Errorf("%w: got %q", ErrInvalidSide, s)
	}
}
