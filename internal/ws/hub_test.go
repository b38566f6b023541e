package ws

import (
	"encoding/json"
	"testing"

	"prepcoach-service/internal/domain/session"

	"go.uber.org/zap"
)

func newTestClient(buf int) *client {
	return &client{send: make(chan []byte, buf)}
}

func TestPublishTurnReachesSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(4)
	h.add("s1", c)

	qn := 2
	h.PublishTurn("s1", session.Turn{SessionID: "s1", Position: 5, Role: session.RoleAssistant, QuestionNumber: &qn})

	select {
	case raw := <-c.send:
		var msg feedMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("bad feed payload: %v", err)
		}
		if msg.Type != "turn" || msg.Turn.Position != 5 {
			t.Errorf("unexpected message %+v", msg)
		}
	default:
		t.Fatal("subscriber received nothing")
	}
}

func TestPublishTurnScopedToSession(t *testing.T) {
	h := NewHub(zap.NewNop())
	mine := newTestClient(4)
	other := newTestClient(4)
	h.add("s1", mine)
	h.add("s2", other)

	h.PublishTurn("s1", session.Turn{SessionID: "s1", Position: 1})

	if len(mine.send) != 1 {
		t.Errorf("s1 subscriber got %d messages, want 1", len(mine.send))
	}
	if len(other.send) != 0 {
		t.Errorf("s2 subscriber got %d messages, want 0", len(other.send))
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := NewHub(zap.NewNop())
	slow := newTestClient(1)
	h.add("s1", slow)

	h.PublishTurn("s1", session.Turn{SessionID: "s1", Position: 1})
	h.PublishTurn("s1", session.Turn{SessionID: "s1", Position: 2}) // buffer full, client dropped

	if h.Subscribers("s1") != 0 {
		t.Errorf("slow subscriber still registered, count = %d", h.Subscribers("s1"))
	}

	// Publishing after the drop must not panic on the closed channel.
	h.PublishTurn("s1", session.Turn{SessionID: "s1", Position: 3})
}

func TestRemoveAndCloseIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(1)
	h.add("s1", c)

	h.removeAndClose("s1", c)
	h.removeAndClose("s1", c)

	if h.Subscribers("s1") != 0 {
		t.Errorf("subscriber count = %d, want 0", h.Subscribers("s1"))
	}
}
