package bridge

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/dispatcher"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/logging"
)

// testServer upgrades to WebSocket, records the subscribe handshake, and
// streams the given envelopes to the client.
func testServer(t *testing.T, envelopes []Envelope) (*httptest.Server, *handshakeLog) {
	t.Helper()
	hl := &handshakeLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hl.setSecret(r.URL.Query().Get("secret"))

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		// First frame must be the subscribe message
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var sub subscribeMessage
		if err := json.Unmarshal(msg, &sub); err == nil {
			hl.setSubscribe(sub)
		}

		for _, env := range envelopes {
			data, _ := json.Marshal(env)
			if err := c.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		}

		// Hold the connection open until the client closes it
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))

	return srv, hl
}

type handshakeLog struct {
	mu        sync.Mutex
	secret    string
	subscribe subscribeMessage
}

func (h *handshakeLog) setSecret(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.secret = s
}

func (h *handshakeLog) setSubscribe(sub subscribeMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribe = sub
}

func (h *handshakeLog) snapshot() (string, subscribeMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.secret, h.subscribe
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.New(io.Discard)))
	require.NoError(t, err)
	return d
}

func TestConnect_SubscribesAndDispatches(t *testing.T) {
	envelopes := []Envelope{
		{Topic: ":SIM:TICK:", Payload: json.RawMessage(`{"tick": 1}`)},
		{Topic: ":SIM:TICK:", Payload: json.RawMessage(`{"tick": 2}`)},
	}
	srv, hl := testServer(t, envelopes)
	defer srv.Close()

	d := testDispatcher(t)

	var mu sync.Mutex
	var received []string
	d.Register(":SIM:TICK:", func(e dispatcher.Event) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(e.Payload))
		return nil, nil
	})

	c := New(Config{
		URL:    wsURL(srv),
		APIKey: "streamsecret",
		Topics: []string{":SIM:TICK:"},
	}, d, testLogger())
	require.NoError(t, c.Connect())
	defer c.Close()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 2*time.Second, 10*time.Millisecond)

	secret, sub := hl.snapshot()
	assert.Equal(t, "streamsecret", secret)
	assert.Equal(t, "subscribe", sub.Op)
	assert.Equal(t, []string{":SIM:TICK:"}, sub.Topics)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"tick": 1}`, received[0])
	assert.JSONEq(t, `{"tick": 2}`, received[1])
}

func TestConnect_UnknownTopicIgnored(t *testing.T) {
	envelopes := []Envelope{
		{Topic: ":UNKNOWN:", Payload: json.RawMessage(`{}`)},
		{Topic: ":SIM:TICK:", Payload: json.RawMessage(`{"tick": 7}`)},
	}
	srv, _ := testServer(t, envelopes)
	defer srv.Close()

	d := testDispatcher(t)

	var mu sync.Mutex
	var ticks int
	d.Register(":SIM:TICK:", func(e dispatcher.Event) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return nil, nil
	})

	c := New(Config{URL: wsURL(srv), Topics: []string{":SIM:TICK:"}}, d, testLogger())
	require.NoError(t, c.Connect())
	defer c.Close()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnect_DialFailure(t *testing.T) {
	d := testDispatcher(t)

	c := New(Config{URL: "ws://localhost:59999/events"}, d, testLogger())
	err := c.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial failed")
}

func TestConnect_InvalidURL(t *testing.T) {
	d := testDispatcher(t)

	c := New(Config{URL: "://bad"}, d, testLogger())
	err := c.Connect()
	require.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t, nil)
	defer srv.Close()

	d := testDispatcher(t)
	c := New(Config{URL: wsURL(srv)}, d, testLogger())
	require.NoError(t, c.Connect())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
