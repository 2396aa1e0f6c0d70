package engine

type ComponentName string
type ComponentID string

// ComponentSchema defines the decode contract for a component's data
type ComponentSchema string

type ComponentMeta struct {
	Name ComponentName `json:"name"`           // human label
	Tags []string      `json:"tags,omitempty"` // "positions", "registry", etc.
}

type ComponentState struct {
	Meta ComponentMeta `json:"meta"`

	// what is the current sequence of the component's data?
	SyncedSequence *uint64 `json:"syncedSequence,omitempty"`

	// Schema is the decode contract for Data.
	// Example:
	// "defistate/position-ledger/LedgerView@v1"
	Schema ComponentSchema `json:"schema"`

	// Data is the component view, shaped by Schema.
	Data any `json:"data,omitempty"`

	// Error is populated if this component is out-of-sync or failed at this sequence.
	Error string `json:"error,omitempty"`
}

// LedgerSummary contains only the essential ordering information for clients.
// Sequence is the position of the snapshot in the total order the execution
// environment assigns to mutating operations; it plays the role a block
// number plays for chain state.
type LedgerSummary struct {
	Sequence   uint64 `json:"sequence"`
	Timestamp  uint64 `json:"timestamp"`
	ReceivedAt int64  `json:"receivedAt"` // The Unix nanosecond timestamp when the engine started processing the sequence.
	Operations uint64 `json:"operations"` // Cumulative count of mutating operations applied.
}

// State is the main data structure broadcast to subscribers.
type State struct {
	LedgerID   uint64                         `json:"ledgerId"`
	Timestamp  uint64                         `json:"timestamp"`
	Summary    LedgerSummary                  `json:"summary"`
	Components map[ComponentID]ComponentState `json:"components"`
}

func (state *State) HasErrors() bool {
	// Check component-level errors
	for _, cs := range state.Components {
		if cs.Error != "" {
			return true
		}
	}
	return false
}
