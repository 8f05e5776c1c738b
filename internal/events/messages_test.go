package events

import (
	"testing"
	"time"
)

func TestChangeMessageJSONRoundTrip(t *testing.T) {
	msg := NewChangeMessage("owner-1", "rec-42", ActionUpdated)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be stamped")
	}
	msg.Timestamp = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *got != *msg {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, msg)
	}
}

func TestChangeMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte("{nope")); err == nil {
		t.Fatal("expected parse error")
	}
}
