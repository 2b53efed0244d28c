// Package testhelpers provides common utilities and helper functions for testing the memory server.
//
// It wraps the HTTP and WebSocket plumbing shared by the server tests: dialing
// game connections, sending actions, and reading "<action>|<state>" frames.
package testhelpers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gomemory/internal/game"
	"github.com/Tyrowin/gomemory/internal/protocol"
)

// DefaultTimeout bounds every blocking read in the helpers.
const DefaultTimeout = 2 * time.Second

// CreateTestServer creates a test HTTP server with the given handler.
// The server is closed when the test finishes.
func CreateTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// WebSocketURL turns an httptest URL into a ws:// URL for path.
func WebSocketURL(t *testing.T, serverURL, path string) string {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = path
	return u.String()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

// ConnectWebSocket dials url with origin as the Origin header. An empty
// origin dials like a native client.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials a native client connection and closes it at cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, "")
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendAction writes msg as a JSON text frame.
func SendAction(t *testing.T, conn *websocket.Conn, msg protocol.ActionMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to send %s: %v", msg.ActionType, err)
	}
}

// Frame is a decoded server broadcast.
type Frame struct {
	Action protocol.ActionMessage
	State  game.State
}

// ParseFrame splits and decodes a raw server frame.
func ParseFrame(t *testing.T, raw []byte) Frame {
	t.Helper()
	action, rawState, err := protocol.DecodeFrame(raw)
	if err != nil {
		t.Fatalf("Failed to decode frame %q: %v", raw, err)
	}
	var state game.State
	if err := json.Unmarshal(rawState, &state); err != nil {
		t.Fatalf("Failed to decode state %s: %v", rawState, err)
	}
	return Frame{Action: action, State: state}
}

// ReadFrame reads the next frame from conn.
func ReadFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	kind, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("Expected a text frame, got type %d", kind)
	}
	return ParseFrame(t, raw)
}

// ExpectFrame reads the next frame and checks its action type.
func ExpectFrame(t *testing.T, conn *websocket.Conn, want protocol.ActionType) Frame {
	t.Helper()
	f := ReadFrame(t, conn)
	if f.Action.ActionType != want {
		t.Fatalf("Expected %s frame, got %s", want, f.Action.ActionType)
	}
	return f
}

// ExpectNoFrame fails if conn receives anything within timeout.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no frame, but received %q", raw)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of a frame: %v", err)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Condition not met within %s: %s", timeout, msg)
}
