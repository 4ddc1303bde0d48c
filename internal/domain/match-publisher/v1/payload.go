package matchpublisherv1

import "encoding/json"

// MatchEvent is the wire payload published to the match topic, one event per
// fill. The taker is the incoming order, the maker the resting order it
// traded against; the trade executes at the maker's price.
type MatchEvent struct {
	EventID      string `json:"eventId"`
	Symbol       string `json:"symbol"`
	TakerOrderID uint64 `json:"takerOrderId"`
	MakerOrderID uint64 `json:"makerOrderId"`
	TakerSide    string `json:"takerSide"`
	Price        int64  `json:"price"`
	Volume       int64  `json:"volume"`

	// OrderOffset is the offset of the order-topic message that produced
	// this fill, for downstream replay dedup.
	OrderOffset int64 `json:"orderOffset"`
	Timestamp   int64 `json:"timestamp"`
}

// ToBytes serialises the event for the match topic.
func ToBytes(event *MatchEvent) []byte {
	buf, _ := json.Marshal(event)
	return buf
}

// FromBytes parses a match topic payload.
func FromBytes(data []byte) (*MatchEvent, error) {
	var event MatchEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
