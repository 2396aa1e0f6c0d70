package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/position-ledger-go/differ"
	"github.com/defistate/position-ledger-go/engine"
)

// --- Test Setup: Mock RPC Server ---

type MockStateStreamer struct {
	events chan *SubscriptionEvent
	t      *testing.T
}

func SetupMockStateStreamer(ctx context.Context, t *testing.T, port int, events []*SubscriptionEvent) (<-chan error, error) {
	eventChan := make(chan *SubscriptionEvent, len(events))
	for _, e := range events {
		eventChan <- e
	}
	close(eventChan)

	api := &MockStateStreamer{events: eventChan, t: t}
	server := rpc.NewServer()
	if err := server.RegisterName(RpcNamespace, api); err != nil {
		return nil, fmt.Errorf("failed to register API: %v", err)
	}

	wsHandler := server.WebsocketHandler([]string{"*"})
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: wsHandler}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	go func() {
		<-ctx.Done()
		server.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	return errChan, nil
}

func (api *MockStateStreamer) SubscribeStateStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		for event := range api.events {
			select {
			case <-rpcSub.Err():
				return
			default:
				if err := notifier.Notify(rpcSub.ID, event); err != nil {
					api.t.Logf("Error notifying subscriber: %v", err)
					return
				}
			}
		}
	}()
	return rpcSub, nil
}

// --- Test Helpers & Data Generation ---

var mockDecoder = func(schema engine.ComponentSchema, data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var genericMap map[string]any
	err := json.Unmarshal(data, &genericMap)
	return genericMap, err
}

func generateTestEvents(t *testing.T) []*SubscriptionEvent {
	mustMarshal := func(v interface{}) json.RawMessage {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}

	cID := engine.ComponentID("positions")
	schema := engine.ComponentSchema("positions@v1")

	// --- Event 1: Full View ---
	fullViewPayload := engine.State{
		Summary: engine.LedgerSummary{
			Sequence:   100,
			ReceivedAt: time.Now().UnixNano(),
		},
		Components: map[engine.ComponentID]engine.ComponentState{
			cID: {
				Meta:   engine.ComponentMeta{Name: "Positions"},
				Schema: schema,
				Data:   map[string]interface{}{"id": 1, "liquidity": 1000},
			},
		},
	}
	event1 := &SubscriptionEvent{Type: "full", Payload: mustMarshal(fullViewPayload)}

	// --- Event 2: Diff ---
	event2 := &SubscriptionEvent{Type: "diff", Payload: mustMarshal(differ.StateDiff{
		FromSequence: 100,
		ToSummary: engine.LedgerSummary{
			Sequence:   101,
			ReceivedAt: time.Now().UnixNano(),
		},
		Timestamp: uint64(time.Now().Unix()),
		Components: map[engine.ComponentID]differ.ComponentDiff{
			cID: {
				Schema: schema,
				Data:   map[string]interface{}{"id": 1, "liquidity": 12345},
			},
		},
	})}

	// --- Event 3: Malformed ---
	malformedPayload := json.RawMessage(`{"summary":{"sequence":"not-a-number"}}`)
	event3 := &SubscriptionEvent{Type: "full", Payload: malformedPayload}

	// --- Event 4: Another Full ---
	goodViewPayload2 := engine.State{
		Summary: engine.LedgerSummary{
			Sequence:   2,
			ReceivedAt: time.Now().UnixNano(),
		},
	}
	event4 := &SubscriptionEvent{Type: "full", Payload: mustMarshal(goodViewPayload2)}

	return []*SubscriptionEvent{event1, event2, event3, event4}
}

// --- Tests ---

var noopStatePatcher = func(prevView *engine.State, diff *differ.StateDiff) (*engine.State, error) {
	return &engine.State{
		Summary:    diff.ToSummary,
		Components: map[engine.ComponentID]engine.ComponentState{},
	}, nil
}

func TestClient_SuccessfulSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testEvents := generateTestEvents(t)
	_, err := SetupMockStateStreamer(ctx, t, 9988, testEvents[:1])
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{
		URL:              "ws://localhost:9988",
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		BufferSize:       10,
		StatePatcher:     noopStatePatcher,
		StateDecoder:     mockDecoder,
		StateDiffDecoder: mockDecoder,
	})
	require.NoError(t, err)

	select {
	case view := <-client.State():
		assert.Equal(t, uint64(100), view.Summary.Sequence)
		componentData, ok := view.Components["positions"]
		require.True(t, ok, "Component data should exist")
		dataMap := componentData.Data.(map[string]any)
		assert.Equal(t, float64(1), dataMap["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for state view")
	}
}

func TestClient_DiffReconstruction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testEvents := generateTestEvents(t)
	_, err := SetupMockStateStreamer(ctx, t, 9987, testEvents[:2])
	require.NoError(t, err)

	patcherCalled := false

	mockPatcher := func(prevView *engine.State, diff *differ.StateDiff) (*engine.State, error) {
		patcherCalled = true
		require.NotNil(t, prevView)
		require.NotNil(t, diff)

		assert.Equal(t, uint64(100), prevView.Summary.Sequence)
		assert.Equal(t, uint64(100), diff.FromSequence)
		assert.Equal(t, uint64(101), diff.ToSummary.Sequence)

		cDiff, ok := diff.Components["positions"]
		require.True(t, ok)
		dataMap := cDiff.Data.(map[string]any)
		assert.Equal(t, float64(12345), dataMap["liquidity"])

		return &engine.State{
			Summary:    diff.ToSummary,
			Components: make(map[engine.ComponentID]engine.ComponentState),
		}, nil
	}

	client, err := NewClient(ctx, Config{
		URL:              "ws://localhost:9987",
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		BufferSize:       10,
		StatePatcher:     mockPatcher,
		StateDecoder:     mockDecoder,
		StateDiffDecoder: mockDecoder,
	})
	require.NoError(t, err)

	select {
	case view1 := <-client.State():
		assert.Equal(t, uint64(100), view1.Summary.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for initial full view")
	}

	select {
	case view2 := <-client.State():
		assert.Equal(t, uint64(101), view2.Summary.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for reconstructed diff view")
	}

	assert.True(t, patcherCalled, "The injected state patcher should have been called")
}

func TestClient_DropsMalformedMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testEvents := generateTestEvents(t)
	_, err := SetupMockStateStreamer(ctx, t, 9989, append(testEvents[0:1], testEvents[2:4]...))
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{
		URL:              "ws://localhost:9989",
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		BufferSize:       10,
		StatePatcher:     noopStatePatcher,
		StateDecoder:     mockDecoder,
		StateDiffDecoder: mockDecoder,
	})
	require.NoError(t, err)

	receivedCount := 0
	expectedSequences := map[uint64]bool{100: false, 2: false}

	for i := 0; i < 2; i++ {
		select {
		case view := <-client.State():
			receivedCount++
			expectedSequences[view.Summary.Sequence] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("Test timed out waiting for view %d", i+1)
		}
	}
	assert.Equal(t, 2, receivedCount)
	assert.True(t, expectedSequences[100])
	assert.True(t, expectedSequences[2])
}

func TestClient_Reconnection(t *testing.T) {
	const testPort = 9990
	clientCtx, clientCancel := context.WithCancel(context.Background())
	defer clientCancel()

	client, err := NewClient(clientCtx, Config{
		URL:              fmt.Sprintf("ws://localhost:%d", testPort),
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		BufferSize:       10,
		StatePatcher:     noopStatePatcher,
		StateDecoder:     mockDecoder,
		StateDiffDecoder: mockDecoder,
	})
	require.NoError(t, err)

	server1Ctx, server1Cancel := context.WithCancel(clientCtx)
	event1 := []*SubscriptionEvent{{Type: "full", Payload: json.RawMessage(`{"summary":{"sequence":1}}`)}}
	_, err = SetupMockStateStreamer(server1Ctx, t, testPort, event1)
	require.NoError(t, err)

	select {
	case view := <-client.State():
		assert.Equal(t, uint64(1), view.Summary.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for first message")
	}

	server1Cancel()
	time.Sleep(100 * time.Millisecond)

	server2Ctx, server2Cancel := context.WithCancel(clientCtx)
	defer server2Cancel()
	event2 := []*SubscriptionEvent{{Type: "full", Payload: json.RawMessage(`{"summary":{"sequence":2}}`)}}
	_, err = SetupMockStateStreamer(server2Ctx, t, testPort, event2)
	require.NoError(t, err)

	select {
	case view := <-client.State():
		assert.Equal(t, uint64(2), view.Summary.Sequence)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for client to reconnect")
	}
}

// --- StreamProcessor Tests ---

func TestStreamProcessor_FullAndDiffFlow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Use a patcher that actually advances the sequence so diffs can be verified.
	statePatcher := func(prev *engine.State, diff *differ.StateDiff) (*engine.State, error) {
		return &engine.State{
			Summary:    diff.ToSummary,
			Components: prev.Components,
		}, nil
	}

	sp := NewStreamProcessor(logger, 10, statePatcher, mockDecoder, mockDecoder)

	events := generateTestEvents(t)
	// Event 0: Full (Sequence 100)
	// Event 1: Diff (100->101)

	fullEventBytes, err := json.Marshal(events[0])
	require.NoError(t, err)

	err = sp.ProcessMessage(fullEventBytes)
	require.NoError(t, err)

	select {
	case state := <-sp.State():
		assert.Equal(t, uint64(100), state.Summary.Sequence)
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for full state")
	}

	diffEventBytes, err := json.Marshal(events[1])
	require.NoError(t, err)

	err = sp.ProcessMessage(diffEventBytes)
	require.NoError(t, err)

	select {
	case state := <-sp.State():
		assert.Equal(t, uint64(101), state.Summary.Sequence)
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for diff state")
	}
}

func TestStreamProcessor_ValidationErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sp := NewStreamProcessor(logger, 10, noopStatePatcher, mockDecoder, mockDecoder)

	events := generateTestEvents(t)
	// Event 1 is Diff (100->101)

	// 1. Diff before Full
	diffEventBytes, _ := json.Marshal(events[1])
	err := sp.ProcessMessage(diffEventBytes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received diff before full state")

	// 2. Malformed JSON
	err = sp.ProcessMessage([]byte(`{not-json}`))
	require.Error(t, err)
}

func TestStreamProcessor_OutOfOrderDiff(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sp := NewStreamProcessor(logger, 10, noopStatePatcher, mockDecoder, mockDecoder)

	events := generateTestEvents(t)
	// Process Full first (sequence 100).
	fullEventBytes, _ := json.Marshal(events[0])
	require.NoError(t, sp.ProcessMessage(fullEventBytes))
	<-sp.State() // Drain

	// Create a gap diff (105 -> 106).
	payload, _ := json.Marshal(differ.StateDiff{
		FromSequence: 105,
		ToSummary:    engine.LedgerSummary{Sequence: 106},
		Timestamp:    uint64(time.Now().Unix()),
		Components:   map[engine.ComponentID]differ.ComponentDiff{},
	})
	gapEvent := &SubscriptionEvent{Type: "diff", Payload: payload}
	gapBytes, _ := json.Marshal(gapEvent)

	// Should not error, but log a warning and not emit state.
	err := sp.ProcessMessage(gapBytes)
	require.NoError(t, err)

	select {
	case <-sp.State():
		t.Fatal("Should not emit state for out-of-order diff")
	default:
		// OK
	}
}
