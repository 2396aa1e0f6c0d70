package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/defistate/position-ledger-go/differ"
	"github.com/defistate/position-ledger-go/engine"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	// RpcNamespace is the namespace under which the streamer is registered.
	RpcNamespace                  = "ledger"
	StateStreamSubscriptionMethod = "subscribeStateStream"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StatePatcherFunc defines the function signature for a method that safely applies
// a diff to a previous state.
type StatePatcherFunc func(prevState *engine.State, diff *differ.StateDiff) (newState *engine.State, err error)

type DecoderFunc func(schema engine.ComponentSchema, data json.RawMessage) (any, error)

// Config holds the configuration for the client.
type Config struct {
	URL              string
	Logger           Logger
	BufferSize       uint
	StatePatcher     StatePatcherFunc
	StateDecoder     DecoderFunc
	StateDiffDecoder DecoderFunc
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.StatePatcher == nil {
		return errors.New("config: StatePatcher is required")
	}
	if c.StateDecoder == nil {
		return errors.New("config: StateDecoder is required")
	}
	if c.StateDiffDecoder == nil {
		return errors.New("config: StateDiffDecoder is required")
	}
	return nil
}

// SubscriptionEvent is the wrapper object received from the server.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// -----------------------------------------------------------------------------
// StreamProcessor
// -----------------------------------------------------------------------------

// StreamProcessor handles the business logic of parsing events, maintaining
// the latest state, applying diffs, and broadcasting updates.
// It is decoupled from the networking layer.
type StreamProcessor struct {
	lastState        *engine.State
	statePatcher     StatePatcherFunc
	stateDecoder     DecoderFunc
	stateDiffDecoder DecoderFunc
	stateCh          chan *engine.State
	logger           Logger
}

// NewStreamProcessor creates a pure logic processor without networking.
func NewStreamProcessor(
	logger Logger,
	bufferSize uint,
	statePatcher StatePatcherFunc,
	stateDecoder DecoderFunc,
	stateDiffDecoder DecoderFunc,
) *StreamProcessor {
	return &StreamProcessor{
		logger:           logger,
		stateCh:          make(chan *engine.State, bufferSize),
		statePatcher:     statePatcher,
		stateDecoder:     stateDecoder,
		stateDiffDecoder: stateDiffDecoder,
	}
}

// State returns a read-only channel for receiving new states.
func (sp *StreamProcessor) State() <-chan *engine.State {
	return sp.stateCh
}

// ProcessMessage accepts a raw JSON message (from WS or file), processes it,
// and updates the internal state.
func (sp *StreamProcessor) ProcessMessage(rawData json.RawMessage) error {
	processingStart := time.Now()
	var event SubscriptionEvent

	if err := json.Unmarshal(rawData, &event); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	switch event.Type {
	case "full":
		return sp.handleFullState(event, processingStart)
	case "diff":
		return sp.handleDiff(event, processingStart)
	default:
		return fmt.Errorf("received unknown event type: %s", event.Type)
	}
}

func (sp *StreamProcessor) handleFullState(event SubscriptionEvent, start time.Time) error {
	var cState clientState
	if err := json.Unmarshal(event.Payload, &cState); err != nil {
		return fmt.Errorf("failed to unmarshal full state payload: %w", err)
	}

	state := engine.State{
		LedgerID:   cState.LedgerID,
		Timestamp:  cState.Timestamp,
		Summary:    cState.Summary,
		Components: map[engine.ComponentID]engine.ComponentState{},
	}

	for cID, componentState := range cState.Components {
		typedData, err := sp.stateDecoder(componentState.Schema, componentState.Data)
		if err != nil {
			return fmt.Errorf("failed to decode state for component %s: %w", cID, err)
		}

		state.Components[cID] = engine.ComponentState{
			Meta:           componentState.Meta,
			SyncedSequence: componentState.SyncedSequence,
			Schema:         componentState.Schema,
			Data:           typedData,
			Error:          componentState.Error,
		}
	}

	processingDur := time.Since(start)
	sp.logMetrics(&state, processingDur, event.SentAt, "full")

	sp.storeState(&state)
	sp.stateCh <- &state
	return nil
}

func (sp *StreamProcessor) handleDiff(event SubscriptionEvent, start time.Time) error {
	var cDiff clientStateDiff
	if err := json.Unmarshal(event.Payload, &cDiff); err != nil {
		return fmt.Errorf("failed to unmarshal diff payload: %w", err)
	}

	if sp.lastState == nil {
		return fmt.Errorf("received diff before full state; from_sequence: %d, to_sequence: %d", cDiff.FromSequence, cDiff.ToSummary.Sequence)
	}

	diff := differ.StateDiff{
		FromSequence: cDiff.FromSequence,
		ToSummary:    cDiff.ToSummary,
		Timestamp:    cDiff.Timestamp,
		Components:   make(map[engine.ComponentID]differ.ComponentDiff),
	}

	for cID, componentDiff := range cDiff.Components {
		typedData, err := sp.stateDiffDecoder(componentDiff.Schema, componentDiff.Data)
		if err != nil {
			return fmt.Errorf("failed to decode diff data for component %s: %w", cID, err)
		}

		diff.Components[cID] = differ.ComponentDiff{
			Meta:           componentDiff.Meta,
			SyncedSequence: componentDiff.SyncedSequence,
			Schema:         componentDiff.Schema,
			Data:           typedData,
			Error:          componentDiff.Error,
		}
	}

	lastSequence := sp.lastState.Summary.Sequence
	if diff.FromSequence != lastSequence {
		sp.logger.Warn(
			"Received out-of-order diff; state may be out of sync. Discarding.",
			"last_known_sequence", lastSequence,
			"diff_from_sequence", diff.FromSequence,
			"diff_to_sequence", diff.ToSummary.Sequence,
		)
		return nil // Non-fatal, just ignored
	}

	newState, err := sp.statePatcher(sp.lastState, &diff)
	if err != nil {
		return fmt.Errorf("failed to patch state: %w", err)
	}

	newState.Timestamp = diff.Timestamp

	processingDur := time.Since(start)
	sp.logMetrics(newState, processingDur, event.SentAt, "diff")

	sp.storeState(newState)
	sp.stateCh <- newState
	return nil
}

func (sp *StreamProcessor) storeState(state *engine.State) {
	sp.lastState = state
}

func (sp *StreamProcessor) logMetrics(state *engine.State, processingDur time.Duration, sentAt int64, stateType string) {
	if state == nil {
		return
	}

	clientFinishTime := time.Now()
	clientStartTime := clientFinishTime.Add(-processingDur)
	serverFinishTime := time.Unix(0, sentAt)

	transportTime := clientStartTime.Sub(serverFinishTime)
	serverProcessingMs := serverFinishTime.Sub(time.Unix(0, state.Summary.ReceivedAt)).Milliseconds()

	errorCount := 0
	for _, cs := range state.Components {
		if cs.Error != "" {
			errorCount++
		}
	}

	sp.logger.Debug("State Processed",
		"sequence", state.Summary.Sequence,
		"type", stateType,
		"components", len(state.Components),
		"errors", errorCount,
		"latency_transport_ms", transportTime.Milliseconds(),
		"latency_proc_ms", processingDur.Milliseconds(),
		"latency_server_ms", serverProcessingMs,
	)
}

// -----------------------------------------------------------------------------
// Client (Networking Wrapper)
// -----------------------------------------------------------------------------

// Client manages the connection and uses StreamProcessor for logic.
type Client struct {
	processor *StreamProcessor
	errCh     chan error
	logger    Logger
}

// NewClient creates a new client with networking enabled.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	processor := NewStreamProcessor(
		cfg.Logger,
		cfg.BufferSize,
		cfg.StatePatcher,
		cfg.StateDecoder,
		cfg.StateDiffDecoder,
	)

	client := &Client{
		processor: processor,
		errCh:     make(chan error, 1),
		logger:    cfg.Logger,
	}

	go client.run(ctx, cfg.URL)
	return client, nil
}

// State delegates to the processor's state channel.
func (c *Client) State() <-chan *engine.State {
	return c.processor.State()
}

// Err returns a read-only channel for receiving fatal (unrecoverable) errors.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// run handles the networking lifecycle and feeds data to the processor.
func (c *Client) run(ctx context.Context, url string) {
	defer close(c.errCh)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			c.logger.Info("Client context canceled, shutting down.")
			return
		}

		c.logger.Info("Attempting to connect to RPC server", "url", url)
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			c.logger.Error("Failed to connect to RPC server, will retry...", "error", err, "delay", reconnectDelay)
			time.Sleep(reconnectDelay)
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("Successfully connected to RPC server.")
		reconnectDelay = initialReconnectDelay

		err = c.subscribeAndProcess(ctx, rpcClient)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context canceled, shutting down.")
				return
			}
			c.logger.Error("Subscription failed, will reconnect...", "error", err, "delay", reconnectDelay)
			time.Sleep(reconnectDelay)
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (c *Client) subscribeAndProcess(ctx context.Context, rpcClient *rpc.Client) error {
	defer rpcClient.Close()

	rawCh := make(chan json.RawMessage)
	sub, err := rpcClient.Subscribe(ctx, RpcNamespace, rawCh, StateStreamSubscriptionMethod)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	c.logger.Info("Successfully subscribed. Waiting for data...")
	for {
		select {
		case rawData := <-rawCh:
			if err := c.processor.ProcessMessage(rawData); err != nil {
				c.logger.Error("Error processing message", "error", err)
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping subscription.")
			return ctx.Err()
		}
	}
}
