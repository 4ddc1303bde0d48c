package orderbookv1

import (
	"fmt"
	"math/bits"
)

// DefaultPageSize is the page size used by books for their level stores.
const DefaultPageSize = 4096

// PagedArray is a sparse direct-addressed array organised in fixed-size
// pages. Reads and writes are O(1); writing past the current extent grows
// the page sequence with a doubling strategy and allocates only the pages
// actually touched. Unset slots read back as the zero value of T.
//
// Level indices cluster around the prevailing price, so page granularity
// keeps memory proportional to the price range actually traded rather than
// the highest index seen.
type PagedArray[T any] struct {
	pageSize  uint64
	pageShift uint64
	slotMask  uint64
	pages     []*arrayPage[T]
}

type arrayPage[T any] struct {
	slots []T
}

// NewPagedArray creates an empty array with the given page size, which must
// be a power of two. A non-power-of-two page size is a programmer error and
// panics.
func NewPagedArray[T any](pageSize uint64) *PagedArray[T] {
	if pageSize == 0 || pageSize&(pageSize-1) != 0 {
		panic(fmt.Sprintf("orderbook: page size %d is not a power of two", pageSize))
	}

	return &PagedArray[T]{
		pageSize:  pageSize,
		pageShift: uint64(bits.TrailingZeros64(pageSize)),
		slotMask:  pageSize - 1,
	}
}

// Get returns the element at index, or the zero value of T when the index
// lies beyond the current extent or inside an unallocated page. Never fails.
func (p *PagedArray[T]) Get(index uint64) T {
	var zero T

	pageIdx := index >> p.pageShift
	if pageIdx >= uint64(len(p.pages)) {
		return zero
	}

	page := p.pages[pageIdx]
	if page == nil {
		return zero
	}

	return page.slots[index&p.slotMask]
}

// Set writes the element at index, growing the page sequence and allocating
// the target page as needed. Amortised O(1).
func (p *PagedArray[T]) Set(index uint64, element T) {
	pageIdx := index >> p.pageShift

	if pageIdx >= uint64(len(p.pages)) {
		grown := max(2*pageIdx, pageIdx+1)
		pages := make([]*arrayPage[T], grown)
		copy(pages, p.pages)
		p.pages = pages
	}

	page := p.pages[pageIdx]
	if page == nil {
		page = &arrayPage[T]{slots: make([]T, p.pageSize)}
		p.pages[pageIdx] = page
	}

	page.slots[index&p.slotMask] = element
}

// Size returns the current extent of the array: page size times the number
// of page slots, allocated or not. Not the count of elements written.
func (p *PagedArray[T]) Size() uint64 {
	return p.pageSize * uint64(len(p.pages))
}
