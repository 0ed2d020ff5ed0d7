package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBusSink_PublishesToSubscribers(t *testing.T) {
	bus := NewBus(1)
	ch := bus.Subscribe(EventPapersFound)
	sink := NewBusSink(bus)

	if err := sink.Emit(context.Background(), Event{Type: EventPapersFound, BranchID: "b1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case got := <-ch:
		if got.BranchID != "b1" {
			t.Fatalf("expected branch b1, got %s", got.BranchID)
		}
	default:
		t.Fatal("expected an event on the subscriber channel")
	}
}

func TestHTTPSink_PostsJSONEnvelope(t *testing.T) {
	var received httpSinkEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, 0)
	err := sink.Emit(context.Background(), Event{
		SessionID: "s1", Type: EventBranchCreated, BranchID: "b1", Payload: map[string]string{"query": "q"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.SessionID != "s1" || received.EventType != EventBranchCreated {
		t.Fatalf("unexpected envelope: %+v", received)
	}
}

func TestHTTPSink_NonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, 0)
	if err := sink.Emit(context.Background(), Event{Type: EventPapersFound}); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestMultiSink_ContinuesPastAFailingSink(t *testing.T) {
	failing := &MockSink{Err: errBoom}
	ok := NewMockSink()
	multi := NewMultiSink(failing, ok)

	if err := multi.Emit(context.Background(), Event{Type: EventIterationCompleted}); err != nil {
		t.Fatalf("MultiSink.Emit must not propagate a wrapped sink's error: %v", err)
	}
	if len(ok.Events) != 1 {
		t.Fatalf("expected the healthy sink to still record the event, got %d", len(ok.Events))
	}
}

var errBoom = errors.New("boom")
