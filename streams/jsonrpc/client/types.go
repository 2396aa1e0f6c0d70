package client

import (
	"encoding/json"

	"github.com/defistate/position-ledger-go/engine"
)

// clientState mirrors engine.State but strictly types the Data field as RawMessage.
// This prevents the Go JSON decoder from unmarshaling into map[string]interface{}.
type clientState struct {
	LedgerID   uint64                                      `json:"ledgerId"`
	Timestamp  uint64                                      `json:"timestamp"`
	Summary    engine.LedgerSummary                        `json:"summary"`
	Components map[engine.ComponentID]clientComponentState `json:"components"`
}

type clientComponentState struct {
	Meta           engine.ComponentMeta   `json:"meta"`
	SyncedSequence *uint64                `json:"syncedSequence,omitempty"`
	Schema         engine.ComponentSchema `json:"schema"`
	Error          string                 `json:"error,omitempty"`

	// Data is kept as raw bytes. We decode this later using the specific Schema.
	Data json.RawMessage `json:"data,omitempty"`
}

type clientComponentDiff struct {
	Meta           engine.ComponentMeta   `json:"meta"`
	SyncedSequence *uint64                `json:"syncedSequence,omitempty"`
	Schema         engine.ComponentSchema `json:"schema"`
	Error          string                 `json:"error,omitempty"`

	// Data is kept as raw bytes. We decode this later using the specific Schema.
	Data json.RawMessage `json:"data,omitempty"`
}

// clientStateDiff mirrors differ.StateDiff but keeps the component diffs as raw bytes.
type clientStateDiff struct {
	FromSequence uint64                                     `json:"fromSequence"`
	ToSummary    engine.LedgerSummary                       `json:"toSummary"`
	Timestamp    uint64                                     `json:"timestamp"`
	Components   map[engine.ComponentID]clientComponentDiff `json:"components"`
}
