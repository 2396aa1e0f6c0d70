package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/position-ledger-go/engine"
)

// ComponentDiffer computes a schema-shaped diff between two component views.
type ComponentDiffer func(old, new any) (diff any, err error)

// StateDifferConfig holds the individual differ functions and dependencies.
type StateDifferConfig struct {
	// One differ per schema (data contract), not per component identity.
	ComponentDiffers map[engine.ComponentSchema]ComponentDiffer
	Registry         prometheus.Registerer
	Logger           Logger
}

// validate checks if the configuration is valid.
func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// StateDiffer computes sequence-to-sequence diffs over full ledger states.
type StateDiffer struct {
	metrics          *Metrics
	logger           Logger
	componentDiffers map[engine.ComponentSchema]ComponentDiffer
}

// NewStateDiffer constructs a new differ from a configuration.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	componentDiffers := make(map[engine.ComponentSchema]ComponentDiffer, len(cfg.ComponentDiffers))
	for schema, componentDiffer := range cfg.ComponentDiffers {
		componentDiffers[schema] = componentDiffer
	}

	return &StateDiffer{
		metrics:          NewMetrics(cfg.Registry),
		logger:           cfg.Logger,
		componentDiffers: componentDiffers,
	}, nil
}

// Diff is the main orchestrator method. It operates under the guarantee that
// it only receives valid, error-free states to compare.
func (d *StateDiffer) Diff(old, new *engine.State) (*StateDiff, error) {
	totalTimer := prometheus.NewTimer(d.metrics.diffDuration)
	defer totalTimer.ObserveDuration()

	if old.HasErrors() || new.HasErrors() {
		return nil, errors.New("StateDiffer received state with error")
	}

	componentDiffs := make(map[engine.ComponentID]ComponentDiff)
	for componentID, newComponentState := range new.Components {
		oldComponentState, ok := old.Components[componentID]
		if !ok {
			return nil, fmt.Errorf("componentID %s does not exist in old state", componentID)
		}

		differFunc, exists := d.componentDiffers[newComponentState.Schema]
		if !exists {
			return nil, fmt.Errorf("no differ registered for schema %q", newComponentState.Schema)
		}
		diffData, err := differFunc(oldComponentState.Data, newComponentState.Data)
		if err != nil {
			d.metrics.diffErrors.WithLabelValues(string(componentID)).Inc()
			return nil, err
		}

		componentDiffs[componentID] = ComponentDiff{
			Meta:           newComponentState.Meta,
			SyncedSequence: newComponentState.SyncedSequence,
			Schema:         newComponentState.Schema,
			Data:           diffData,
		}
	}

	stateDiff := &StateDiff{
		Timestamp:    uint64(time.Now().UnixNano()),
		FromSequence: old.Summary.Sequence,
		ToSummary:    new.Summary,
		Components:   componentDiffs,
	}

	d.logger.Debug("state diff computed",
		"fromSequence", stateDiff.FromSequence, "toSequence", new.Summary.Sequence,
		"components", len(componentDiffs))

	return stateDiff, nil
}
