package stateops

import (
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/position-ledger-go/differ"
	"github.com/defistate/position-ledger-go/engine"
	"github.com/defistate/position-ledger-go/ledger"
	"github.com/defistate/position-ledger-go/patcher"
	"github.com/defistate/position-ledger-go/poolregistry"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StateOps encapsulates the core logic for processing ledger state.
//
// It acts as a unified facade for two critical operations:
// 1. Differ: Calculating the delta between two states (used by the server).
// 2. Patcher: Applying a delta to a previous state to reconstruct the present (used by a client).
type StateOps struct {
	*differ.StateDiffer
	*patcher.StatePatcher
}

func NewStateOps(
	logger Logger,
	prometheusRegistry prometheus.Registerer,
) (*StateOps, error) {
	componentDiffers := map[engine.ComponentSchema]differ.ComponentDiffer{
		ledger.Schema: func(old, new any) (diff any, err error) {
			return ledger.Differ(old.(ledger.LedgerView), new.(ledger.LedgerView)), nil
		},
		poolregistry.Schema: func(old, new any) (diff any, err error) {
			return poolregistry.Differ(old.(poolregistry.PoolRegistryView), new.(poolregistry.PoolRegistryView)), nil
		},
	}

	componentPatchers := map[engine.ComponentSchema]patcher.PatcherFunc{
		ledger.Schema: func(prevState, diff any) (newState any, err error) {
			return ledger.Patcher(prevState.(ledger.LedgerView), diff.(ledger.LedgerDiff))
		},
		poolregistry.Schema: func(prevState, diff any) (newState any, err error) {
			return poolregistry.Patcher(prevState.(poolregistry.PoolRegistryView), diff.(poolregistry.PoolRegistryDiff))
		},
	}

	stateDiffer, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		ComponentDiffers: componentDiffers,
		Logger:           logger,
		Registry:         prometheusRegistry,
	})
	if err != nil {
		return nil, err
	}

	statePatcher, err := patcher.NewStatePatcher(&patcher.StatePatcherConfig{
		Patchers: componentPatchers,
	})
	if err != nil {
		return nil, err
	}

	return &StateOps{
		StateDiffer:  stateDiffer,
		StatePatcher: statePatcher,
	}, nil
}

func (ops *StateOps) DecodeStateJSON(
	schema engine.ComponentSchema,
	data json.RawMessage,
) (any, error) {
	switch schema {
	case ledger.Schema:
		var typedData ledger.LedgerView
		err := json.Unmarshal(data, &typedData)
		if err != nil {
			return nil, err
		}
		return typedData, nil

	case poolregistry.Schema:
		var typedData poolregistry.PoolRegistryView
		err := json.Unmarshal(data, &typedData)
		if err != nil {
			return nil, err
		}
		return typedData, nil
	default:
		return nil, errors.New("unknown schema")
	}
}

func (ops *StateOps) DecodeStateDiffJSON(
	schema engine.ComponentSchema,
	data json.RawMessage,
) (any, error) {
	switch schema {
	case ledger.Schema:
		var typedData ledger.LedgerDiff
		err := json.Unmarshal(data, &typedData)
		if err != nil {
			return nil, err
		}
		return typedData, nil

	case poolregistry.Schema:
		var typedData poolregistry.PoolRegistryDiff
		err := json.Unmarshal(data, &typedData)
		if err != nil {
			return nil, err
		}
		return typedData, nil
	default:
		return nil, errors.New("unknown schema")
	}
}
