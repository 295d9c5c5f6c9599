package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"zwave-go-home/internal/automation"
	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
	"zwave-go-home/internal/store"
)

type testEnv struct {
	srv     *Server
	net     *network.Network
	mem     *manager.Memory
	db      *store.BoltStore
	engine  *automation.Engine
	scripts *automation.Manager
}

func setupTestServer(t *testing.T, apiKey string, opts ...ServerOption) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	classes := commandclass.NewStandardRegistry(logger)

	f, err := manager.LoadFixture("../manager/testdata/network.yaml")
	if err != nil {
		t.Fatal(err)
	}
	mem := manager.NewMemory(f, classes.Descriptions(), logger)

	db, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	net := network.New(mem, db, network.NewEventBus(logger), network.Config{Device: "/dev/ttyACM0"}, logger)
	if err := net.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := net.WaitReady(context.Background()); err != nil {
		t.Fatal(err)
	}

	scripts, err := automation.NewManager(filepath.Join(t.TempDir(), "scripts"))
	if err != nil {
		t.Fatal(err)
	}
	engine := automation.NewEngine(net, scripts, logger)
	engine.Start()
	t.Cleanup(engine.Stop)

	opts = append(opts, WithAutomation(engine, scripts), WithVersion("1.2.3"))
	if apiKey != "" {
		opts = append(opts, WithAPIKey(apiKey))
	}
	srv := NewServer(net, classes, logger, opts...)
	t.Cleanup(srv.Stop)

	return &testEnv{srv: srv, net: net, mem: mem, db: db, engine: engine, scripts: scripts}
}

func (env *testEnv) node(t *testing.T, id uint8) *network.Node {
	t.Helper()
	n, ok := env.net.Node(id)
	if !ok {
		t.Fatalf("node %d not found", id)
	}
	return n
}

// do serves one request and returns the recorded response.
func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestAPINetworkInfo(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/network", "")
	expectStatus(t, w, http.StatusOK)

	var info network.Info
	decode(t, w, &info)
	if info.HomeID != "0x014d0ef5" {
		t.Errorf("home_id = %q, want 0x014d0ef5", info.HomeID)
	}
	if info.NodeCount != 3 {
		t.Errorf("node_count = %d, want 3", info.NodeCount)
	}
}

func TestAPIRefreshNetwork(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/network/refresh", "")
	expectStatus(t, w, http.StatusOK)
}

func TestAPIListCommandClasses(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/command-classes", "")
	expectStatus(t, w, http.StatusOK)

	var classes []struct {
		ID    uint8  `json:"id"`
		Name  string `json:"name"`
		Short string `json:"short"`
	}
	decode(t, w, &classes)
	if len(classes) != len(commandclass.Standard) {
		t.Fatalf("class count = %d, want %d", len(classes), len(commandclass.Standard))
	}
	for _, c := range classes {
		if c.ID == commandclass.SwitchBinary && c.Short != "switch_binary" {
			t.Errorf("short = %q, want switch_binary", c.Short)
		}
	}
}

func TestAPIListNodes(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/nodes", "")
	expectStatus(t, w, http.StatusOK)

	var nodes []network.NodeInfo
	decode(t, w, &nodes)
	if len(nodes) != 3 {
		t.Fatalf("node count = %d, want 3", len(nodes))
	}
	if nodes[1].ID != 2 || nodes[1].Name != "Hall Switch" {
		t.Errorf("nodes[1] = %d %q, want 2 Hall Switch", nodes[1].ID, nodes[1].Name)
	}
}

func TestAPIKnownNodes(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/nodes/known", "")
	expectStatus(t, w, http.StatusOK)

	var records []store.NodeRecord
	decode(t, w, &records)
	if len(records) != 3 {
		t.Errorf("record count = %d, want 3", len(records))
	}
}

func TestAPIGetNode(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/nodes/2", "")
	expectStatus(t, w, http.StatusOK)

	var detail struct {
		Name              string              `json:"name"`
		CommandClassNames []string            `json:"command_class_names"`
		Groups            []network.GroupInfo `json:"groups"`
	}
	decode(t, w, &detail)
	if detail.Name != "Hall Switch" {
		t.Errorf("name = %q", detail.Name)
	}
	if len(detail.CommandClassNames) != 7 {
		t.Errorf("class names = %v", detail.CommandClassNames)
	}
	if len(detail.Groups) != 2 || detail.Groups[0].Label != "Lifeline" {
		t.Errorf("groups = %+v", detail.Groups)
	}
}

func TestAPIGetNodeErrors(t *testing.T) {
	env := setupTestServer(t, "")

	tests := []struct {
		path string
		want int
	}{
		{"/api/nodes/42", http.StatusNotFound},
		{"/api/nodes/abc", http.StatusBadRequest},
		{"/api/nodes/0", http.StatusBadRequest},
		{"/api/nodes/300", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do(t, "GET", tt.path, "")
			expectStatus(t, w, tt.want)
		})
	}
}

func TestAPIUpdateNode(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "PATCH", "/api/nodes/2", `{"name": "Kitchen Light", "location": "Kitchen", "bogus_field": "x"}`)
	expectStatus(t, w, http.StatusOK)

	var info network.NodeInfo
	decode(t, w, &info)
	if info.Name != "Kitchen Light" || info.Location != "Kitchen" {
		t.Errorf("name/location = %q/%q", info.Name, info.Location)
	}

	// Persisted through the naming notification.
	rec, err := env.db.GetNode(env.net.HomeID(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Kitchen Light" {
		t.Errorf("stored name = %q, want Kitchen Light", rec.Name)
	}
}

func TestAPIUpdateNodeInvalidBody(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "PATCH", "/api/nodes/2", `{"name": 5}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAPIListValues(t *testing.T) {
	env := setupTestServer(t, "")

	tests := []struct {
		query   string
		wantIDs []network.ValueID
	}{
		{"", []network.ValueID{1001, 1002, 1003, 1004}},
		{"?genre=user", []network.ValueID{1001, 1002}},
		{"?command_class=switch_binary", []network.ValueID{1001}},
		{"?command_class=0x32", []network.ValueID{1002}},
		{"?genre=User&readonly=false", []network.ValueID{1001}},
		{"?type=String", []network.ValueID{1004}},
		{"?writeonly=true", []network.ValueID{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, "GET", "/api/nodes/2/values"+tt.query, "")
			expectStatus(t, w, http.StatusOK)

			var values []network.Value
			decode(t, w, &values)
			if len(values) != len(tt.wantIDs) {
				t.Fatalf("value count = %d, want %d", len(values), len(tt.wantIDs))
			}
			for i, v := range values {
				if v.ID != tt.wantIDs[i] {
					t.Errorf("values[%d].ID = %d, want %d", i, v.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestAPIListValuesGrouped(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/nodes/2/values?grouped=true&genre=User", "")
	expectStatus(t, w, http.StatusOK)

	var grouped map[string][]network.Value
	decode(t, w, &grouped)
	if len(grouped) != 2 {
		t.Fatalf("group count = %d, want 2", len(grouped))
	}
	if vs := grouped["37"]; len(vs) != 1 || vs[0].Label != "Switch" {
		t.Errorf("class 0x25 = %+v", vs)
	}
	if vs := grouped["50"]; len(vs) != 1 || vs[0].Label != "Power" {
		t.Errorf("class 0x32 = %+v", vs)
	}
}

func TestAPIListValuesBadFilter(t *testing.T) {
	env := setupTestServer(t, "")

	for _, q := range []string{"?genre=bogus", "?type=bogus", "?command_class=nope", "?readonly=maybe"} {
		t.Run(q, func(t *testing.T) {
			w := env.do(t, "GET", "/api/nodes/2/values"+q, "")
			expectStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestAPISetValue(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "PUT", "/api/nodes/2/values/1001", `{"data": true}`)
	expectStatus(t, w, http.StatusOK)

	var v network.Value
	decode(t, w, &v)
	if v.Data != true {
		t.Errorf("data = %v, want true", v.Data)
	}
	if on, ok := env.node(t, 2).Switch().IsOn(); !ok || !on {
		t.Errorf("switch on = %v/%v, want true/true", on, ok)
	}
}

func TestAPISetValueErrors(t *testing.T) {
	env := setupTestServer(t, "")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"read-only", "/api/nodes/2/values/1002", `{"data": 5}`, http.StatusBadRequest},
		{"wrong type", "/api/nodes/2/values/1001", `{"data": "maybe"}`, http.StatusBadRequest},
		{"unknown value", "/api/nodes/2/values/9999", `{"data": true}`, http.StatusNotFound},
		{"value of other node", "/api/nodes/3/values/1001", `{"data": true}`, http.StatusNotFound},
		{"bad value id", "/api/nodes/2/values/x", `{"data": true}`, http.StatusBadRequest},
		{"bad body", "/api/nodes/2/values/1001", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "PUT", tt.path, tt.body)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestAPIRemoveValue(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "DELETE", "/api/nodes/2/values/1004", "")
	expectStatus(t, w, http.StatusOK)

	if _, ok := env.node(t, 2).Value(1004); ok {
		t.Error("value 1004 still indexed")
	}

	w = env.do(t, "DELETE", "/api/nodes/2/values/1004", "")
	expectStatus(t, w, http.StatusNotFound)
}

func TestAPIRefreshValue(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/nodes/2/values/1002/refresh", "")
	expectStatus(t, w, http.StatusOK)
}

func TestAPIGroupsAndAssociations(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/nodes/2/groups", "")
	expectStatus(t, w, http.StatusOK)
	var groups []network.GroupInfo
	decode(t, w, &groups)
	if len(groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(groups))
	}

	w = env.do(t, "POST", "/api/nodes/2/groups/2/associations", `{"node_id": 3}`)
	expectStatus(t, w, http.StatusOK)
	var g network.GroupInfo
	decode(t, w, &g)
	if len(g.Associations) != 1 || g.Associations[0] != 3 {
		t.Errorf("associations = %v, want [3]", g.Associations)
	}

	w = env.do(t, "DELETE", "/api/nodes/2/groups/2/associations/3", "")
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &g)
	if len(g.Associations) != 0 {
		t.Errorf("associations = %v, want empty", g.Associations)
	}
}

func TestAPIAssociationErrors(t *testing.T) {
	env := setupTestServer(t, "")
	// Node 3 group 1 holds a single association.
	expectStatus(t, env.do(t, "POST", "/api/nodes/3/groups/1/associations", `{"node_id": 1}`), http.StatusOK)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown group", "POST", "/api/nodes/2/groups/9/associations", `{"node_id": 3}`, http.StatusNotFound},
		{"missing node_id", "POST", "/api/nodes/2/groups/1/associations", `{}`, http.StatusBadRequest},
		{"already member", "POST", "/api/nodes/2/groups/1/associations", `{"node_id": 1}`, http.StatusOK},
		{"not a member", "DELETE", "/api/nodes/2/groups/2/associations/3", "", http.StatusOK},
		{"group full", "POST", "/api/nodes/3/groups/1/associations", `{"node_id": 2}`, http.StatusBadRequest},
		{"bad target", "DELETE", "/api/nodes/2/groups/1/associations/x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestAPIConfig(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/nodes/2/config", `{"param": 80, "value": 1, "size": 1}`)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, "POST", "/api/nodes/2/config", `{"param": 80, "value": 1, "size": 3}`)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, "POST", "/api/nodes/2/config/request", "")
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, "POST", "/api/nodes/2/config/request", `{"param": 80}`)
	expectStatus(t, w, http.StatusOK)
}

func TestAPINodeRefreshAndTest(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "POST", "/api/nodes/2/refresh", "")
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, "POST", "/api/nodes/2/test", `{"count": 3}`)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, "POST", "/api/nodes/2/test", "")
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, "POST", "/api/nodes/2/test", `{"count": 0}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAPIVersion(t *testing.T) {
	env := setupTestServer(t, "")

	w := env.do(t, "GET", "/api/version", "")
	expectStatus(t, w, http.StatusOK)

	var resp map[string]string
	decode(t, w, &resp)
	if resp["version"] != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", resp["version"])
	}
}

func TestAuthMiddlewareHeader(t *testing.T) {
	env := setupTestServer(t, "secret-key")

	req := httptest.NewRequest("GET", "/api/nodes", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("correct header key: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthMiddlewareMissing(t *testing.T) {
	env := setupTestServer(t, "secret-key")

	w := env.do(t, "GET", "/api/nodes", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareWrongKey(t *testing.T) {
	env := setupTestServer(t, "secret-key")

	req := httptest.NewRequest("GET", "/api/nodes", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestCORSOrigins(t *testing.T) {
	env := setupTestServer(t, "", WithAllowedOrigins([]string{"http://panel.local"}))

	tests := []struct {
		name   string
		method string
		origin string
		want   int
	}{
		{"preflight allowed", "OPTIONS", "http://panel.local", http.StatusNoContent},
		{"preflight denied", "OPTIONS", "http://evil.example", http.StatusForbidden},
		{"mutation denied", "POST", "http://evil.example", http.StatusForbidden},
		{"mutation allowed", "POST", "http://panel.local", http.StatusOK},
		{"read from any origin", "GET", "http://evil.example", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/api/nodes/2/refresh"
			if tt.method == "GET" {
				path = "/api/nodes/2"
			}
			req := httptest.NewRequest(tt.method, path, nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			env.srv.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
