package httpapi

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSessionWSCountdown(t *testing.T) {
	env := newTestEnv(t)
	created := createSession(t, env)
	sessionID := created["session_id"].(string)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/v1/sessions/" + sessionID + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	defer res.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev countdownEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read countdown event: %v", err)
	}
	if ev.Type != "countdown" {
		t.Fatalf("event type = %q, want %q", ev.Type, "countdown")
	}
	if ev.SecondsLeft <= 0 || ev.SecondsLeft > 600 {
		t.Fatalf("seconds_left = %d, want within (0,600]", ev.SecondsLeft)
	}
}

func TestSessionWSUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/v1/sessions/ghost/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatalf("dial succeeded for unknown session")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %+v, want 404", res)
	}
	if res != nil {
		res.Body.Close()
	}
}
