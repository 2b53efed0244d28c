package server_test

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tyrowin/gomemory/internal/protocol"
	"github.com/Tyrowin/gomemory/internal/server"
	"github.com/Tyrowin/gomemory/test/testhelpers"
)

// newTestServer runs a hub behind the real router and returns the HTTP
// base URL and the game's ws:// URL.
func newTestServer(t *testing.T, cfg server.Config) (*server.Hub, string, string) {
	t.Helper()
	reg := prometheus.NewRegistry()
	hub := startHub(t, cfg, server.WithMetrics(server.NewMetrics(reg)))
	srv := testhelpers.CreateTestServer(t, server.SetupRoutes(hub, reg))
	return hub, srv.URL, testhelpers.WebSocketURL(t, srv.URL, hub.Config().Path)
}

// registerOver connects and registers name, waiting until the hub has
// bound it so join order follows call order.
func registerOver(t *testing.T, hub *server.Hub, wsURL, name string) *websocket.Conn {
	t.Helper()
	before := hub.Stats().Players
	conn := testhelpers.MustConnect(t, wsURL)
	testhelpers.SendAction(t, conn, protocol.ActionMessage{ActionType: protocol.Register, Name: name})
	testhelpers.Eventually(t, time.Second, func() bool {
		return hub.Stats().Players > before
	}, name+" never registered")
	return conn
}

func TestHealthEndpoint(t *testing.T) {
	_, baseURL, _ := newTestServer(t, testConfig(2, 2))

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/healthz")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/plain; charset=utf-8")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "connections=0 players=0") {
		t.Errorf("health body = %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, baseURL, _ := newTestServer(t, testConfig(2, 2))

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/metrics")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "memory_connections") {
		t.Error("metrics output lacks memory_connections")
	}
}

func TestWebSocketEndpointRejectsPlainHTTP(t *testing.T) {
	_, baseURL, _ := newTestServer(t, testConfig(2, 2))

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/")
	testhelpers.AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestOriginPolicy(t *testing.T) {
	cfg := testConfig(2, 2)
	cfg.AllowedOrigins = []string{"http://allowed.example"}
	_, _, wsURL := newTestServer(t, cfg)

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"native client without origin", "", true},
		{"allow-listed origin", "http://ALLOWED.example", true},
		{"foreign origin", "http://evil.example", false},
		{"garbage origin", "not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := testhelpers.ConnectWebSocket(wsURL, tt.origin)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial failed: %v", err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatal("dial succeeded for a disallowed origin")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("expected 403, got %+v", resp)
			}
		})
	}
}

func TestTwoPlayerGameOverWebSocket(t *testing.T) {
	hub, _, wsURL := newTestServer(t, testConfig(2, 2))

	a := registerOver(t, hub, wsURL, "A")
	b := registerOver(t, hub, wsURL, "B")

	start := testhelpers.ExpectFrame(t, a, protocol.StarteGame)
	testhelpers.ExpectFrame(t, b, protocol.StarteGame)
	if start.State.CurrentPlayer.Name != "B" || len(start.State.Cards) != 4 {
		t.Fatalf("start state = %+v", start.State)
	}

	// Garbage is dropped without closing the connection.
	if err := a.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("Failed to send garbage: %v", err)
	}
	testhelpers.SendAction(t, a, protocol.ActionMessage{ActionType: protocol.FirstCard, ClickedCardIndex: 0})

	steps := []struct {
		conn  *websocket.Conn
		click int
		want  []protocol.ActionType
	}{
		{b, 0, []protocol.ActionType{protocol.FirstCard}},
		{b, 1, []protocol.ActionType{protocol.SecondCard, protocol.NoMatch}},
		{a, 0, []protocol.ActionType{protocol.FirstCard}},
		{a, 2, []protocol.ActionType{protocol.SecondCard, protocol.MatchFound}},
		{a, 1, []protocol.ActionType{protocol.FirstCard}},
		{a, 3, []protocol.ActionType{protocol.SecondCard, protocol.MatchFound, protocol.Chat, protocol.NewGame}},
	}

	var last testhelpers.Frame
	for _, step := range steps {
		testhelpers.SendAction(t, step.conn, click(step.click))
		for _, want := range step.want {
			last = testhelpers.ExpectFrame(t, a, want)
			testhelpers.ExpectFrame(t, b, want)
		}
	}

	if last.State.Players[0].Score != 2 || last.State.Players[1].Score != 0 {
		t.Errorf("final scores = %d:%d", last.State.Players[0].Score, last.State.Players[1].Score)
	}
	for _, card := range last.State.Cards {
		if !card.IsMatched {
			t.Errorf("card %d not matched at game over", card.CardIndex)
		}
	}

	testhelpers.SendAction(t, a, protocol.ActionMessage{ActionType: protocol.ReadyForNewGame})
	testhelpers.SendAction(t, b, protocol.ActionMessage{ActionType: protocol.ReadyForNewGame})
	testhelpers.ExpectFrame(t, a, protocol.StarteGame)
	welcome := testhelpers.ExpectFrame(t, a, protocol.Chat)
	if welcome.Action.ChatMessage[0].Content != "Willkommen zum neuen Spiel!" {
		t.Errorf("welcome = %+v", welcome.Action.ChatMessage)
	}
}

func TestChatOverWebSocket(t *testing.T) {
	hub, _, wsURL := newTestServer(t, testConfig(2, 2))

	a := registerOver(t, hub, wsURL, "A")
	b := registerOver(t, hub, wsURL, "B")
	testhelpers.ExpectFrame(t, a, protocol.StarteGame)
	testhelpers.ExpectFrame(t, b, protocol.StarteGame)

	// Legacy clients send the enum ordinal.
	raw := `{"actionType":11,"clickedCardIndex":0,"name":"B","chatMessage":[{"type":"Text","content":"a|b"}]}`
	if err := b.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("Failed to send chat: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		f := testhelpers.ExpectFrame(t, conn, protocol.Chat)
		if f.Action.ChatMessage[0].Content != "a|b" || f.Action.Name != "B" {
			t.Errorf("chat = %+v", f.Action)
		}
	}
}

func TestDisconnectPrunesConnection(t *testing.T) {
	hub, _, wsURL := newTestServer(t, testConfig(2, 2))

	a := registerOver(t, hub, wsURL, "A")
	b := registerOver(t, hub, wsURL, "B")
	testhelpers.ExpectFrame(t, a, protocol.StarteGame)
	testhelpers.ExpectFrame(t, b, protocol.StarteGame)

	if err := testhelpers.CloseWebSocket(a); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	f := testhelpers.ExpectFrame(t, b, protocol.Chat)
	if got := f.Action.ChatMessage[0].Content; got != "A hat das Spiel verlassen." {
		t.Errorf("notice = %q", got)
	}
	if f.State.CurrentPlayer.Name != "B" {
		t.Errorf("current = %s, want B", f.State.CurrentPlayer.Name)
	}

	testhelpers.Eventually(t, time.Second, func() bool {
		return hub.Stats().Connections == 1
	}, "closed connection still registered")
}

func TestRateLimitDropsExcessMessages(t *testing.T) {
	cfg := testConfig(1, 2)
	cfg.RateLimit.Burst = 3
	cfg.RateLimit.RefillInterval = time.Hour
	hub, _, wsURL := newTestServer(t, cfg)

	a := registerOver(t, hub, wsURL, "A")
	testhelpers.ExpectFrame(t, a, protocol.StarteGame)

	for i := 0; i < 4; i++ {
		testhelpers.SendAction(t, a, protocol.NewChat(protocol.Text("spam")))
	}
	testhelpers.ExpectFrame(t, a, protocol.Chat)
	testhelpers.ExpectFrame(t, a, protocol.Chat)
	testhelpers.ExpectNoFrame(t, a, 100*time.Millisecond)
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	cfg := testConfig(2, 2)
	cfg.MaxMessageSize = 128
	hub, _, wsURL := newTestServer(t, cfg)

	conn := testhelpers.MustConnect(t, wsURL)
	testhelpers.Eventually(t, time.Second, func() bool {
		return hub.Stats().Connections == 1
	}, "connection never attached")

	big := protocol.NewChat(protocol.Text(strings.Repeat("x", 512)))
	testhelpers.SendAction(t, conn, big)

	if err := conn.SetReadDeadline(time.Now().Add(testhelpers.DefaultTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection")
	}
	testhelpers.Eventually(t, time.Second, func() bool {
		return hub.Stats().Connections == 0
	}, "oversized sender still attached")
}

func TestShutdownStopsServedConnections(t *testing.T) {
	hub, _, wsURL := newTestServer(t, testConfig(2, 2))

	conns := make([]*websocket.Conn, 4)
	for i := range conns {
		conns[i] = testhelpers.MustConnect(t, wsURL)
	}
	testhelpers.Eventually(t, time.Second, func() bool {
		return hub.Stats().Connections == len(conns)
	}, "connections never attached")

	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	for i, conn := range conns {
		if err := conn.SetReadDeadline(time.Now().Add(testhelpers.DefaultTimeout)); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Errorf("connection %d still open after shutdown", i)
		}
	}

	// Upgrades racing the shutdown are refused instead of leaking pumps.
	late, _, err := testhelpers.ConnectWebSocket(wsURL, "")
	if err == nil {
		defer func() { _ = late.Close() }()
		if err := late.SetReadDeadline(time.Now().Add(testhelpers.DefaultTimeout)); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		if _, _, err := late.ReadMessage(); err == nil {
			t.Error("late connection was served after shutdown")
		}
	}
	if got := hub.Stats().Connections; got != 0 {
		t.Errorf("connections after shutdown = %d", got)
	}
}
