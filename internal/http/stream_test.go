package http

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"flowledger/internal/core"
	"flowledger/internal/store"
)

func dialStream(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPayload(t *testing.T, conn *websocket.Conn) dashboardPayload {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var payload dashboardPayload
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	return payload
}

func TestStreamDeliversInitialSnapshot(t *testing.T) {
	_, ts := newTestServer(t)
	seedScenario(t, ts.URL)

	conn := dialStream(t, ts.URL)
	payload := readPayload(t, conn)

	if payload.Mode != store.ModeLocal {
		t.Fatalf("mode = %q, want local", payload.Mode)
	}
	if len(payload.Records) != 4 {
		t.Fatalf("initial snapshot has %d records, want 4", len(payload.Records))
	}
	if payload.Summary.Balance != 770 {
		t.Fatalf("balance = %v, want 770", payload.Summary.Balance)
	}
	if payload.Formatted.Balance == "" {
		t.Fatal("formatted totals missing")
	}
	if payload.Error != "" {
		t.Fatalf("unexpected error payload: %q", payload.Error)
	}
}

func TestStreamReflectsWrites(t *testing.T) {
	_, ts := newTestServer(t)

	conn := dialStream(t, ts.URL)
	initial := readPayload(t, conn)
	if len(initial.Records) != 0 {
		t.Fatalf("fresh owner should start empty, got %d records", len(initial.Records))
	}

	resp := postJSON(t, ts.URL+"/api/transactions", core.Input{
		Title: "Coffee", Amount: "40", Kind: "expense", Category: "Food",
	})
	resp.Body.Close()

	next := readPayload(t, conn)
	if len(next.Records) != 1 || next.Records[0].Title != "Coffee" {
		t.Fatalf("stream did not reflect the write: %+v", next.Records)
	}
	if next.Summary.Expense != 40 {
		t.Fatalf("expense = %v, want 40", next.Summary.Expense)
	}
}
