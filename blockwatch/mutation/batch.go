package mutation

import "encoding/json"

// UnitSnapshot is the serialized state of one editable unit at resolution
// time. Produced by the Serializer collaborator; immutable once created.
type UnitSnapshot struct {
	ToolID    string          `json:"tool"`
	UnitID    string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"time"` // epoch milliseconds
}

// Batch is the atomic unit delivered per notification. One batch = every
// snapshot resolved during a single quiet window. Consumers must tolerate
// duplicate snapshots for the same unit: resolution is not deduplicated, so
// a burst against one unit captures its intermediate states.
type Batch struct {
	ID          string         `json:"id"`  // UUIDv7
	Seq         uint64         `json:"seq"` // monotonically increasing per watcher
	Updates     []UnitSnapshot `json:"updates"`
	InputEvents int            `json:"input_events,omitempty"` // native-input change markers in this window
	Timestamp   int64          `json:"timestamp"`              // epoch milliseconds at flush
}

// MarshalBatch serialises a Batch to JSON.
func MarshalBatch(b *Batch) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBatch deserialises a Batch from JSON.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
