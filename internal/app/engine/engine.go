package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	matchpublisherv1 "github.com/tradekit/clob/internal/domain/match-publisher/v1"
	orderreaderv1 "github.com/tradekit/clob/internal/domain/order-reader/v1"
	orderbookv1 "github.com/tradekit/clob/internal/domain/orderbook/v1"
	snapshotv1 "github.com/tradekit/clob/internal/domain/snapshot/v1"
	"github.com/tradekit/clob/internal/usecase/matching"
	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/logger"
)

// Engine drives the matching core from the order topic: restore the last
// snapshot, replay and consume order requests, publish a match event per
// fill, and snapshot periodically so a restart replays only the tail of the
// topic.
//
// All book access happens on the run loop's goroutine. The snapshot ticker
// only raises a flag that the loop picks up between messages, which keeps
// the core free of locks.
type Engine struct {
	matcher        *matching.Engine
	orderReader    orderreaderv1.OrderReader
	snapshotStore  snapshotv1.Store
	matchPublisher matchpublisherv1.MatchPublisher
	logger         logger.Interface
	options        *Options

	ctx    context.Context
	cancel context.CancelFunc

	mu                 sync.RWMutex
	orderOffset        int64
	lastSnapshotOffset int64
	totalMatches       int64

	snapshotDue atomic.Bool
	fills       []orderbookv1.Fill
}

// NewEngine wires the matching core to its reader, publisher and snapshot
// store. Nil options fall back to DefaultEngineOptions.
func NewEngine(
	matcher *matching.Engine,
	orderReader orderreaderv1.OrderReader,
	snapshotStore snapshotv1.Store,
	matchPublisher matchpublisherv1.MatchPublisher,
	log logger.Interface,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultEngineOptions()
	}

	return &Engine{
		matcher:        matcher,
		orderReader:    orderReader,
		snapshotStore:  snapshotStore,
		matchPublisher: matchPublisher,
		logger:         log,
		options:        options,
		fills:          make([]orderbookv1.Fill, 0, 16),
	}
}

// Start restores the last snapshot and consumes the order topic until the
// context is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.restore(); err != nil {
		return err
	}

	go e.snapshotTicker()

	return e.run()
}

// Stop cancels the run loop and releases the reader, publisher and
// snapshot store.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}

	if err := e.orderReader.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "operation", Value: "CloseReader"})
	}
	if err := e.matchPublisher.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "operation", Value: "ClosePublisher"})
	}
	if err := e.snapshotStore.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "operation", Value: "CloseSnapshotStore"})
	}
}

// restore loads the last snapshot, rebuilds the books, and repositions the
// reader just past the snapshot's offset. Without a snapshot the reader
// stays at its configured start and the books build from replay.
func (e *Engine) restore() error {
	snap, err := e.snapshotStore.LoadStore(e.ctx)
	if err != nil {
		return err
	}

	if snap == nil {
		e.logger.InfoContext(e.ctx, "no snapshot, starting with empty books")
		return nil
	}

	books := make(map[string]*orderbookv1.Book, len(snap.Books))
	for _, bs := range snap.Books {
		book, err := bs.Restore()
		if err != nil {
			e.logger.ErrorContext(e.ctx, errors.TracerFromError(err), logger.Field{Key: "symbol", Value: bs.Symbol})
			return err
		}
		books[bs.Symbol] = book
	}

	e.matcher = matching.NewEngineWithBooks(books)
	e.setOrderOffset(snap.OrderOffset)
	e.setLastSnapshotOffset(snap.OrderOffset)

	if err := e.orderReader.SetOffset(snap.OrderOffset + 1); err != nil {
		return err
	}

	e.logger.InfoContext(e.ctx, "restored from snapshot",
		logger.Field{Key: "orderOffset", Value: snap.OrderOffset},
		logger.Field{Key: "books", Value: len(books)},
		logger.Field{Key: "orders", Value: e.matcher.OrderCount()},
	)

	return nil
}

func (e *Engine) run() error {
	for {
		msg, req, err := e.orderReader.ReadMessage(e.ctx)
		if err != nil {
			if e.ctx.Err() != nil {
				return nil
			}
			if errors.ErrorCodeEquals(err, string(errors.OrderDecodeError)) {
				// Poison message: record the offset and move on.
				e.setOrderOffset(msg.Offset)
				continue
			}
			continue
		}

		if err := e.processOrder(req); err != nil {
			e.logger.WarnContext(e.ctx, "order request rejected",
				logger.Field{Key: "action", Value: req.Action},
				logger.Field{Key: "orderId", Value: req.OrderID},
				logger.Field{Key: "offset", Value: req.Offset},
				logger.Field{Key: "reason", Value: err.Error()},
			)
		} else if e.options.ValidateBooks {
			e.validateBooks(req.Offset)
		}

		e.setOrderOffset(msg.Offset)

		if err := e.orderReader.CommitMessages(e.ctx, msg); err != nil {
			e.logger.ErrorContext(e.ctx, err, logger.Field{Key: "operation", Value: "CommitMessages"})
		}

		e.maybeSnapshot()
	}
}

// processOrder applies a single order request to the matching core and
// publishes a match event per fill. The returned error means the request
// was rejected; book state is unchanged in that case.
func (e *Engine) processOrder(req *orderreaderv1.OrderRequest) error {
	e.fills = e.fills[:0]

	switch req.Action {
	case orderreaderv1.ActionAdd:
		side, err := orderbookv1.ParseSide(req.Side)
		if err != nil {
			return err
		}
		if err := e.matcher.AddOrder(req.OrderID, req.Symbol, side, req.Price, req.Volume, &e.fills); err != nil {
			return err
		}
		e.publishFills(req.Symbol, req.OrderID, side, req.Offset)
		return nil

	case orderreaderv1.ActionAmend:
		existing, symbol, _ := e.matcher.FindOrder(req.OrderID)
		if err := e.matcher.AmendOrder(req.OrderID, req.NewPrice, req.NewVolume, &e.fills); err != nil {
			return err
		}
		e.publishFills(symbol, req.OrderID, existing.Side, req.Offset)
		return nil

	case orderreaderv1.ActionPull:
		return e.matcher.PullOrder(req.OrderID)

	default:
		return errors.NewErrorDetails("unknown action", string(errors.OrderDecodeError), req.Action)
	}
}

// publishFills emits one match event per fill. Publish failures are logged
// and skipped: the trades already happened in the book, and the state
// pipeline is rebuilt from snapshots plus replay, not from the match topic.
func (e *Engine) publishFills(symbol string, takerID uint64, takerSide orderbookv1.Side, offset int64) {
	if len(e.fills) == 0 {
		return
	}

	for i := range e.fills {
		fill := e.fills[i]
		event := &matchpublisherv1.MatchEvent{
			Symbol:       symbol,
			TakerOrderID: takerID,
			MakerOrderID: fill.OtherOrderID,
			TakerSide:    takerSide.String(),
			Price:        fill.TradePrice,
			Volume:       fill.TradeVolume,
			OrderOffset:  offset,
		}
		if err := e.matchPublisher.PublishMatchEvent(e.ctx, event); err != nil {
			e.logger.ErrorContext(e.ctx, err,
				logger.Field{Key: "takerOrderId", Value: takerID},
				logger.Field{Key: "makerOrderId", Value: fill.OtherOrderID},
			)
		}
	}

	e.bumpTotalMatches(int64(len(e.fills)))
}

// maybeSnapshot takes a snapshot when the ticker flagged one or enough
// offsets have been applied since the last one. Runs on the loop goroutine
// so it reads a quiescent book.
func (e *Engine) maybeSnapshot() {
	due := e.snapshotDue.Swap(false)

	offset := e.GetOrderOffset()
	last := e.GetLastSnapshotOffset()

	if offset == last {
		return
	}
	if !due && offset-last < e.options.SnapshotOffsetDelta {
		return
	}

	e.createAndStoreSnapshot()
}

func (e *Engine) createAndStoreSnapshot() {
	offset := e.GetOrderOffset()
	books := e.matcher.Books()

	snap := &snapshotv1.Snapshot{
		OrderOffset: offset,
		TakenAt:     time.Now().UnixMilli(),
		Books:       make([]snapshotv1.BookSnapshot, 0, len(books)),
	}
	for _, book := range books {
		snap.Books = append(snap.Books, snapshotv1.BookSnapshotFrom(book))
	}

	if err := e.snapshotStore.Store(e.ctx, snap); err != nil {
		// Keep the old snapshot offset so the next pass retries.
		e.logger.ErrorContext(e.ctx, err, logger.Field{Key: "orderOffset", Value: offset})
		return
	}

	e.setLastSnapshotOffset(offset)
}

// validateBooks checks every book's invariants and logs any breach with
// the offending request's offset, so it can be located in the topic.
func (e *Engine) validateBooks(offset int64) {
	for _, book := range e.matcher.Books() {
		if err := book.Validate(); err != nil {
			e.logger.ErrorContext(e.ctx, err,
				logger.Field{Key: "symbol", Value: book.Symbol()},
				logger.Field{Key: "offset", Value: offset},
			)
		}
	}
}

func (e *Engine) snapshotTicker() {
	ticker := time.NewTicker(e.options.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.snapshotDue.Store(true)
		}
	}
}

// GetOrderOffset returns the offset of the last applied order request.
func (e *Engine) GetOrderOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orderOffset
}

func (e *Engine) setOrderOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderOffset = offset
}

// GetLastSnapshotOffset returns the order offset of the last stored snapshot.
func (e *Engine) GetLastSnapshotOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSnapshotOffset
}

func (e *Engine) setLastSnapshotOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSnapshotOffset = offset
}

// GetTotalMatches returns the number of fills published since start.
func (e *Engine) GetTotalMatches() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalMatches
}

func (e *Engine) bumpTotalMatches(n int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalMatches += n
}
