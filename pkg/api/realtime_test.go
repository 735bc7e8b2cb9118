package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/kritgpt/matstat/pkg/broadcast/message"
)

type wsClient struct {
	net.Conn
	r io.Reader
}

func (c *wsClient) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (s *testServer) dial(t *testing.T) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/realtime"
	conn, br, _, err := ws.Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() {
		conn.Close()
	})

	c := &wsClient{Conn: conn, r: conn}
	if br != nil {
		c.r = br
	}
	return c
}

func (s *testServer) waitForSubscribers(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", s.hub.Count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (c *wsClient) send(t *testing.T, event string, payload interface{}) {
	t.Helper()

	data, err := message.Marshal(event, payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wsutil.WriteClientText(c, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (c *wsClient) expect(t *testing.T, event string, out interface{}) {
	t.Helper()

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := wsutil.ReadServerText(c)
	if err != nil {
		t.Fatalf("read %s: %v", event, err)
	}

	env := message.Envelope{}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Event != event {
		t.Fatalf("event = %q (%s), want %q", env.Event, env.Data, event)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("unmarshal %s: %v", event, err)
		}
	}
}

func TestRealtimeBroadcast(t *testing.T) {
	s := newTestServer(t)

	a := s.dial(t)
	s.waitForSubscribers(t, 1)

	s.do(t, http.MethodPost, "/api/sessions/start", "", nil)
	started := message.SessionStarted{}
	a.expect(t, message.EventSessionStarted, &started)

	// Late joiners are greeted with the active session.
	b := s.dial(t)
	greeting := message.SessionStarted{}
	b.expect(t, message.EventSessionStarted, &greeting)
	if greeting.SessionID != started.SessionID {
		t.Fatalf("greeting session_id = %d, want %d", greeting.SessionID, started.SessionID)
	}

	payload := `{"timestamp": 1000, "sensors": [{"id": 0, "output": 90.1}, {"id": "bad"}]}`
	if code := s.do(t, http.MethodPost, "/api/sensor_data", payload, nil); code != http.StatusCreated {
		t.Fatalf("submit status = %d, want %d", code, http.StatusCreated)
	}
	for _, c := range []*wsClient{a, b} {
		u := message.SensorUpdate{}
		c.expect(t, message.EventSensorUpdate, &u)
		if u.SessionID != started.SessionID || u.Timestamp != 1000 || len(u.Sensors) != 2 {
			t.Fatalf("sensor_update = %+v, want session %d with 2 sensors", u, started.SessionID)
		}
	}

	// Command errors only go back to the sender.
	b.send(t, message.EventSessionStart, &message.SessionStart{TrainingType: "sprint"})
	failure := message.SessionError{}
	b.expect(t, message.EventSessionError, &failure)
	if failure.Message != "Another session is already active" {
		t.Fatalf("session_error = %q", failure.Message)
	}

	a.send(t, message.EventSessionEnd, struct{}{})
	for _, c := range []*wsClient{a, b} {
		ended := message.SessionEnded{}
		c.expect(t, message.EventSessionEnded, &ended)
		if ended.SessionID != started.SessionID {
			t.Fatalf("session_ended id = %d, want %d", ended.SessionID, started.SessionID)
		}
	}
}

func TestRealtimeStartSession(t *testing.T) {
	s := newTestServer(t)

	c := s.dial(t)
	s.waitForSubscribers(t, 1)

	c.send(t, message.EventSessionStart, &message.SessionStart{TrainingType: "sprint"})
	started := message.SessionStarted{}
	c.expect(t, message.EventSessionStarted, &started)
	if started.TrainingType != "sprint" {
		t.Fatalf("training_type = %q, want %q", started.TrainingType, "sprint")
	}

	c.send(t, message.EventSessionEnd, nil)
	c.expect(t, message.EventSessionEnded, nil)

	c.send(t, message.EventSessionEnd, nil)
	failure := message.SessionError{}
	c.expect(t, message.EventSessionError, &failure)
	if failure.Message != "No active session to end" {
		t.Fatalf("session_error = %q", failure.Message)
	}
}

func TestRealtimeUnknownEvent(t *testing.T) {
	s := newTestServer(t)

	c := s.dial(t)
	s.waitForSubscribers(t, 1)

	c.send(t, "session_pause", nil)
	c.expect(t, message.EventSessionError, nil)

	if err := wsutil.WriteClientText(c, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.expect(t, message.EventSessionError, nil)
}

func TestRealtimeDisconnectUnregisters(t *testing.T) {
	s := newTestServer(t)

	c := s.dial(t)
	s.waitForSubscribers(t, 1)

	c.Close()
	s.waitForSubscribers(t, 0)

	// Publishing after the disconnect must not affect the request.
	if code := s.do(t, http.MethodPost, "/api/sessions/start", "", nil); code != http.StatusCreated {
		t.Fatalf("start status = %d, want %d", code, http.StatusCreated)
	}
}
