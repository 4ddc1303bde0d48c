package orderreaderv1

import (
	"encoding/json"
	"fmt"
)

// Actions accepted on the order topic.
const (
	// ActionAdd places a new order.
	ActionAdd = "add"
	// ActionAmend changes the price or volume of a resting order.
	ActionAmend = "amend"
	// ActionPull removes a resting order.
	ActionPull = "pull"
)

// OrderRequest is the wire payload consumed from the order topic. Add
// requests carry symbol, side, price and volume; amend requests carry
// newPrice and newVolume; pull requests carry only the order id.
type OrderRequest struct {
	Action    string `json:"action"`
	OrderID   uint64 `json:"orderId"`
	Symbol    string `json:"symbol,omitempty"`
	Side      string `json:"side,omitempty"`
	Price     int64  `json:"price,omitempty"`
	Volume    int64  `json:"volume,omitempty"`
	NewPrice  int64  `json:"newPrice,omitempty"`
	NewVolume int64  `json:"newVolume,omitempty"`

	// Offset is the position of the request on the order topic, stamped by
	// the reader. It never travels on the wire.
	Offset int64 `json:"-"`
}

// FromBytes parses a wire payload into an OrderRequest.
func FromBytes(data []byte) (*OrderRequest, error) {
	var req OrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}

	switch req.Action {
	case ActionAdd, ActionAmend, ActionPull:
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}

	return &req, nil
}

// ToBytes serialises the request for the order topic.
func (r *OrderRequest) ToBytes() []byte {
	buf, _ := json.Marshal(r)
	return buf
}
