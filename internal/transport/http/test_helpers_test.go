package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/fanout"
	"github.com/vovakirdan/wirechat-presence/internal/fanout/redisbus"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
	"github.com/vovakirdan/wirechat-presence/internal/presence/redisstore"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
	"github.com/vovakirdan/wirechat-presence/internal/store/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testCluster is a set of server processes sharing one Redis and one user directory.
type testCluster struct {
	mr        *miniredis.Miniredis
	directory *sqlite.SQLiteStore
	jwt       *auth.JWTConfig
	auth      *auth.Service
}

type testNode struct {
	server  *Server
	ts      *httptest.Server
	hub     *core.Hub
	metrics *metrics.Metrics
}

type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error,omitempty"`
}

var (
	alice = auth.Identity{Firstname: "Alice", Lastname: "Liddell", Email: "alice@x.com"}
	bob   = auth.Identity{Firstname: "Bob", Lastname: "Builder", Email: "bob@x.com"}
)

func newTestCluster(t *testing.T) *testCluster {
	t.Helper()

	directory, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = directory.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret: []byte("test-secret-change-me"),
		TTL:    time.Hour,
	}

	return &testCluster{
		mr:        miniredis.RunT(t),
		directory: directory,
		jwt:       jwtConfig,
		auth:      auth.NewService(directory, jwtConfig),
	}
}

func testConfig(serverID string) *config.Config {
	cfg := config.Default()
	cfg.ServerID = serverID
	return &cfg
}

func (c *testCluster) startNode(t *testing.T, cfg *config.Config) *testNode {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nop := zerolog.Nop()
	m := metrics.New()

	st := redisstore.New(redis.NewClient(&redis.Options{Addr: c.mr.Addr()}), cfg.Presence.Key)
	bus := redisbus.New(redis.NewClient(&redis.Options{Addr: c.mr.Addr()}))
	t.Cleanup(func() {
		_ = st.Close()
		_ = bus.Close()
	})

	hub := core.NewHub(&nop, m)
	go hub.Run(ctx)

	if err := bus.Subscribe(ctx, cfg.Bus.Channel, hub.HandleFanout); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	server := NewServer(cfg, Deps{
		Hub:     hub,
		Tracker: core.NewTracker(st, fanout.NewPublisher(bus, cfg.Bus.Channel), &nop, m),
		Query:   core.NewQuery(st, c.directory, &nop),
		Auth:    c.auth,
		Metrics: m,
	}, &nop)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testNode{server: server, ts: ts, hub: hub, metrics: m}
}

func (c *testCluster) token(t *testing.T, id auth.Identity) string {
	t.Helper()

	token, err := auth.GenerateToken(c.jwt, id)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dialWithToken(ctx context.Context, ts *httptest.Server, token string) (*websocket.Conn, *stdhttp.Response, error) {
	header := stdhttp.Header{}
	if token != "" {
		header.Set("Cookie", "token="+token)
	}
	return websocket.Dial(ctx, wsURL(ts), &websocket.DialOptions{HTTPHeader: header})
}

func mustDial(t *testing.T, ctx context.Context, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := dialWithToken(ctx, ts, token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()

	in := proto.Inbound{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal data: %v", err)
		}
		in.Data = raw
	}
	if err := wsjson.Write(ctx, conn, in); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// mustRead returns the next event named name, skipping others.
func mustRead(t *testing.T, ctx context.Context, conn *websocket.Conn, name string) wsEvent {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for {
		var ev wsEvent
		if err := wsjson.Read(readCtx, conn, &ev); err != nil {
			t.Fatalf("waiting for %q: %v", name, err)
		}
		if ev.Event == name {
			return ev
		}
	}
}

func decodeIdentity(t *testing.T, raw json.RawMessage) proto.Identity {
	t.Helper()

	var id proto.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		t.Fatalf("decode identity %s: %v", raw, err)
	}
	return id
}

func decodeIdentities(t *testing.T, raw json.RawMessage) []proto.Identity {
	t.Helper()

	var ids []proto.Identity
	if err := json.Unmarshal(raw, &ids); err != nil {
		t.Fatalf("decode identities %s: %v", raw, err)
	}
	return ids
}

func emails(ids []proto.Identity) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Email)
	}
	return out
}
