package differ

import "github.com/defistate/position-ledger-go/engine"

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type ComponentDiff struct {
	Meta engine.ComponentMeta `json:"meta"`

	// what is the current sequence of the component's data?
	SyncedSequence *uint64 `json:"syncedSequence,omitempty"`

	// Schema is the decode contract for Data.
	// Examples:
	// "defistate/position-ledger/LedgerView@v1"
	// "defistate/position-ledger/PoolRegistryView@v1"
	Schema engine.ComponentSchema `json:"schema"`

	// Data is the component diff, shaped by Schema.
	Data any `json:"data,omitempty"`

	// Error is populated if this component is out-of-sync or failed at this sequence.
	Error string `json:"error,omitempty"`
}

// StateDiff represents a summary of changes FromSequence to ToSummary.
type StateDiff struct {
	Timestamp    uint64                               `json:"timestamp"`
	FromSequence uint64                               `json:"fromSequence"`
	ToSummary    engine.LedgerSummary                 `json:"toSummary"`
	Components   map[engine.ComponentID]ComponentDiff `json:"components"`
}
