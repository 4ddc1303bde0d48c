package orderbookv1

// Fill records that an incoming order traded against the resting order
// OtherOrderID. Fills are appended in execution order, which equals
// descending priority on the passive side.
type Fill struct {
	OtherOrderID uint64
	TradePrice   int64
	TradeVolume  int64
}

// BestBidOffer carries the top of book for one symbol. A side with no
// resting liquidity reports a (0, 0) pair.
type BestBidOffer struct {
	BidVolume int64
	BidPrice  int64
	AskVolume int64
	AskPrice  int64
}
