package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type stubVerifier struct {
	userID uuid.UUID
}

func (s stubVerifier) ParseToken(token string) (uuid.UUID, error) {
	if token != "good" {
		return uuid.Nil, errors.New("bad token")
	}
	return s.userID, nil
}

func TestHandleWebSocket_RejectsBadToken(t *testing.T) {
	hub := NewHub(nil, stubVerifier{userID: uuid.New()})

	for _, q := range []string{"", "?token=bad"} {
		rr := httptest.NewRecorder()
		hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws"+q, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("query %q: expected 401, got %d", q, rr.Code)
		}
	}
}

func TestHub_SendToUser(t *testing.T) {
	userID := uuid.New()
	hub := NewHub(nil, stubVerifier{userID: userID})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.SendToUser(userID, map[string]string{"type": "article_ready"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]string
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["type"] != "article_ready" {
		t.Errorf("Expected article_ready, got %q", msg["type"])
	}
}
