package orderbookv1

import "errors"

var (
	// ErrInvalidSymbol is returned when a book is created with an empty symbol.
	ErrInvalidSymbol = errors.New("symbol cannot be empty")
	// ErrInvalidUnit is returned when a book is created with a non-positive price unit.
	ErrInvalidUnit = errors.New("price unit must be positive")
	// ErrInvalidPrice is returned when an order price is not positive.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrInvalidVolume is returned when an order volume is not positive.
	ErrInvalidVolume = errors.New("volume must be positive")
	// ErrInvalidSide is returned when a side value is neither buy nor sell.
	ErrInvalidSide = errors.New("side must be buy or sell")
	// ErrDuplicateID is returned when an order id already rests in the book.
	ErrDuplicateID = errors.New("order id already exists")
	// ErrOrderNotFound is returned when an order id does not rest in the book.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPriceNotOnGrid is returned when a price is not an exact multiple of the book's unit.
	ErrPriceNotOnGrid = errors.New("price is not a multiple of the book unit")
)
