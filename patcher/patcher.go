package patcher

import (
	"errors"
	"fmt"

	"github.com/defistate/position-ledger-go/differ"
	"github.com/defistate/position-ledger-go/engine"
)

// PatcherFunc applies a diff to a previous component view to produce a new one.
//
// CONTRACT:
// 1. Immutability: Implementations MUST NOT mutate 'prevState'. They must create a copy.
// 2. nil Handling: 'prevState' may be nil if this is a newly added component.
type PatcherFunc func(prevState any, diffData any) (newState any, err error)

type StatePatcherConfig struct {
	// Map Schema -> Patcher Function
	// Example: "defistate/position-ledger/LedgerView@v1" -> ledger.Patcher
	Patchers map[engine.ComponentSchema]PatcherFunc
}

func (c *StatePatcherConfig) validate() error {
	for _, patcher := range c.Patchers {
		if patcher == nil {
			return errors.New("patcher cannot be nil")
		}
	}
	return nil
}

// StatePatcher is the generic engine for applying state updates.
type StatePatcher struct {
	patchers map[engine.ComponentSchema]PatcherFunc
}

// NewStatePatcher constructs a new patcher from a configuration.
func NewStatePatcher(cfg *StatePatcherConfig) (*StatePatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	patchers := make(map[engine.ComponentSchema]PatcherFunc, len(cfg.Patchers))
	for k, v := range cfg.Patchers {
		patchers[k] = v
	}

	return &StatePatcher{
		patchers: patchers,
	}, nil
}

// Patch creates a new State by applying the Diff to the old State.
// It uses "Structural Sharing": parts of the state that didn't change are
// shared by reference. Parts that changed are replaced by the PatcherFunc.
func (p *StatePatcher) Patch(oldState *engine.State, diff *differ.StateDiff) (*engine.State, error) {
	// 1. Integrity Check
	if oldState.Summary.Sequence != diff.FromSequence {
		return nil, fmt.Errorf("patcher: mismatch fromSequence (state=%d, diff=%d)", oldState.Summary.Sequence, diff.FromSequence)
	}

	// 2. Initialize the new components map as a shallow copy of the old one.
	// This preserves all unchanged data efficiently.
	newComponents := make(map[engine.ComponentID]engine.ComponentState, len(oldState.Components))
	for k, v := range oldState.Components {
		newComponents[k] = v
	}

	// 3. Apply diffs, iterating only over the components that have changes.
	for componentID, componentDiff := range diff.Components {

		patcherFunc, ok := p.patchers[componentDiff.Schema]
		if !ok {
			return nil, fmt.Errorf("patcher: no patcher registered for schema %q (component=%s)", componentDiff.Schema, componentID)
		}

		var oldData any
		if oldResult, exists := oldState.Components[componentID]; exists {
			// Schema migration is complex; for now schemas must match.
			if oldResult.Schema != componentDiff.Schema {
				return nil, fmt.Errorf("patcher: schema mismatch for component %s (old=%s, diff=%s)", componentID, oldResult.Schema, componentDiff.Schema)
			}
			oldData = oldResult.Data
		}

		// The PatcherFunc is responsible for deep-copying oldData and
		// applying diffData.
		newData, err := patcherFunc(oldData, componentDiff.Data)
		if err != nil {
			return nil, fmt.Errorf("patcher: failed to patch component %s: %w", componentID, err)
		}

		// Metadata comes from the diff, as it represents the latest truth.
		newComponents[componentID] = engine.ComponentState{
			Meta:           componentDiff.Meta,
			SyncedSequence: componentDiff.SyncedSequence,
			Schema:         componentDiff.Schema,
			Data:           newData,
			Error:          componentDiff.Error,
		}
	}

	// 4. Return the final state.
	return &engine.State{
		LedgerID:   oldState.LedgerID, // Ledger identity never changes across patches.
		Timestamp:  diff.Timestamp,    // The time the diff was calculated.
		Summary:    diff.ToSummary,    // The new target sequence.
		Components: newComponents,
	}, nil
}
