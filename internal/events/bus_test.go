package events

import "testing"

func TestBus_SubscribeSession_OnlySeesMatchingSession(t *testing.T) {
	bus := NewBus(1)
	mine := bus.SubscribeSession("s1", EventPapersFound)
	other := bus.SubscribeSession("s2", EventPapersFound)

	bus.Publish(Event{Type: EventPapersFound, SessionID: "s1", BranchID: "b1"})

	select {
	case got := <-mine:
		if got.BranchID != "b1" {
			t.Fatalf("expected branch b1, got %s", got.BranchID)
		}
	default:
		t.Fatal("expected the matching session's subscriber to receive the event")
	}
	select {
	case got := <-other:
		t.Fatalf("expected no event for a different session, got %+v", got)
	default:
	}
}

func TestBus_Subscribe_SeesEveryMatchingSession(t *testing.T) {
	bus := NewBus(2)
	all := bus.Subscribe(EventIterationCompleted)

	bus.Publish(Event{Type: EventIterationCompleted, SessionID: "s1"})
	bus.Publish(Event{Type: EventIterationCompleted, SessionID: "s2"})

	got := 0
	for {
		select {
		case <-all:
			got++
		default:
			if got != 2 {
				t.Fatalf("expected both sessions' events (buffer size 2), got %d", got)
			}
			return
		}
	}
}

func TestBus_Close_ClosesEveryDistinctChannelOnce(t *testing.T) {
	bus := NewBus(1)
	ch := bus.Subscribe(EventPapersFound, EventBranchCreated)

	bus.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
}
