package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/midnam-core/internal/editor"
	"github.com/nerrad567/midnam-core/internal/infrastructure/config"
	"github.com/nerrad567/midnam-core/internal/infrastructure/database"
	"github.com/nerrad567/midnam-core/internal/infrastructure/logging"
	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/midi"
	"github.com/nerrad567/midnam-core/internal/midnam"
	"github.com/nerrad567/midnam-core/internal/preview"
	"github.com/nerrad567/midnam-core/internal/remote"
)

const testDoc = `<?xml version="1.0" encoding="UTF-8"?>
<MIDINameDocument>
  <MasterDeviceNames>
    <Manufacturer>Roland</Manufacturer>
    <Model>JV-1080</Model>
    <ChannelNameSet Name="Main">
      <AvailableForChannels>
        <AvailableChannel Channel="1" Available="true"/>
      </AvailableForChannels>
      <PatchBank Name="Preset A">
        <PatchNameList>
          <Patch Number="A11" Name="Pianos" ProgramChange="0"/>
        </PatchNameList>
      </PatchBank>
    </ChannelNameSet>
  </MasterDeviceNames>
</MIDINameDocument>`

var testWSConfig = config.WebSocketConfig{
	Path:           "/ws",
	MaxMessageSize: 8192,
	PingInterval:   30,
	PongTimeout:    10,
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// testServer creates a Server over a private in-memory local store.
func testServer(t *testing.T, storeOpts ...localstore.Option) *Server {
	t.Helper()
	store := localstore.New(localstore.SQLiteOpener(database.Config{Path: database.MemoryPath}), storeOpts...)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck // Test cleanup
	return newTestServer(t, store)
}

func newTestServer(t *testing.T, store *localstore.Store) *Server {
	t.Helper()
	log := testLogger()
	hub := NewHub(testWSConfig, log)
	svc := editor.NewService(store, editor.WithNotifier(hub))

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:      testWSConfig,
		Logger:  log,
		Editor:  svc,
		Store:   store,
		Hub:     hub,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger error = nil")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without editor error = nil")
	}
}

func TestHealth(t *testing.T) {
	router := testServer(t).buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Status     string            `json:"status"`
		Version    string            `json:"version"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v", resp)
	}
	if resp.Components["store"] != "ok" || resp.Components["mqtt"] != "disabled" || resp.Components["remote"] != "disabled" {
		t.Errorf("components = %v", resp.Components)
	}
}

func TestHealth_StoreUnavailable(t *testing.T) {
	store := localstore.New(func(context.Context) (*sql.DB, error) { return nil, errors.New("disk gone") })
	router := newTestServer(t, store).buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/health", "", "")
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", resp["status"])
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	router := testServer(t).buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/health", "", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := testServer(t).buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/records", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestNotFound(t *testing.T) {
	router := testServer(t).buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if e := decodeError(t, w); e.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeNotFound)
	}
}

func TestBodyLimit(t *testing.T) {
	srv := testServer(t)
	srv.cfg.MaxBodyBytes = 64
	router := srv.buildRouter()

	w := do(t, router, http.MethodPut, "/api/v1/records/big.midnam", "application/xml", strings.Repeat("x", 100))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

// ─── Record Tests ──────────────────────────────────────────────────

func TestRecords_CRUD(t *testing.T) {
	router := testServer(t).buildRouter()
	const target = "/api/v1/records/Roland/JV-1080.midnam"

	w := do(t, router, http.MethodPut, target, "application/xml", testDoc)
	if w.Code != http.StatusCreated {
		t.Fatalf("first PUT status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID       string `json:"id"`
		Path     string `json:"path"`
		IsUpdate bool   `json:"isUpdate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Path != "Roland/JV-1080.midnam" || created.IsUpdate || created.ID == "" {
		t.Errorf("PUT = %+v", created)
	}

	body, _ := json.Marshal(documentBody{Document: testDoc}) //nolint:errcheck // Static input
	w = do(t, router, http.MethodPut, target, "application/json", string(body))
	if w.Code != http.StatusOK {
		t.Errorf("second PUT status = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodGet, target, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var rec localstore.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ID != created.ID || rec.Manufacturer != "Roland" || rec.Document != testDoc {
		t.Errorf("GET record = %+v", rec)
	}

	w = do(t, router, http.MethodGet, "/api/v1/records", "", "")
	var list struct {
		Records []recordSummary `json:"records"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list.Count != 1 || list.Records[0].Size != len(testDoc) {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/api/v1/records/stats", "", "")
	var stats localstore.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Count != 1 || stats.DistinctManufacturers != 1 {
		t.Errorf("stats = %+v", stats)
	}

	for i, wantDeleted := range []bool{true, false} {
		w = do(t, router, http.MethodDelete, target, "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("DELETE #%d status = %d, want 200", i+1, w.Code)
		}
		var body struct {
			Path    string `json:"path"`
			Deleted bool   `json:"deleted"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("DELETE #%d body %q: %v", i+1, w.Body.String(), err)
		}
		if body.Deleted != wantDeleted {
			t.Errorf("DELETE #%d deleted = %v, want %v", i+1, body.Deleted, wantDeleted)
		}
	}
	if w = do(t, router, http.MethodGet, target, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", w.Code)
	}
}

func TestRecords_Clear(t *testing.T) {
	router := testServer(t).buildRouter()
	for _, p := range []string{"a.midnam", "b/c.midnam"} {
		if w := do(t, router, http.MethodPut, "/api/v1/records/"+p, "", testDoc); w.Code != http.StatusCreated {
			t.Fatalf("PUT %s status = %d", p, w.Code)
		}
	}

	if w := do(t, router, http.MethodDelete, "/api/v1/records", "", ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE /records status = %d, want 204", w.Code)
	}
	w := do(t, router, http.MethodGet, "/api/v1/records", "", "")
	if !strings.Contains(w.Body.String(), `"count":0`) {
		t.Errorf("records after clear = %s", w.Body.String())
	}
}

func TestDownload(t *testing.T) {
	router := testServer(t).buildRouter()
	do(t, router, http.MethodPut, "/api/v1/records/Roland/JV%201080.midnam", "", testDoc)

	w := do(t, router, http.MethodGet, "/api/v1/download/Roland/JV%201080.midnam", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="JV 1080.midnam"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != testDoc {
		t.Error("download body differs from stored document")
	}
}

func TestRecords_QuotaExceeded(t *testing.T) {
	router := testServer(t, localstore.WithQuota(16)).buildRouter()

	w := do(t, router, http.MethodPut, "/api/v1/records/a.midnam", "", testDoc)
	if w.Code != http.StatusInsufficientStorage {
		t.Fatalf("status = %d, want 507", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeQuotaExceeded || e.Status != http.StatusInsufficientStorage {
		t.Errorf("error = %+v", e)
	}
}

func TestRecords_StoreUnavailable(t *testing.T) {
	store := localstore.New(func(context.Context) (*sql.DB, error) { return nil, errors.New("disk gone") })
	router := newTestServer(t, store).buildRouter()

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/v1/records"},
		{http.MethodPut, "/api/v1/records/a.midnam"},
		{http.MethodGet, "/api/v1/catalog"},
	} {
		w := do(t, router, tc.method, tc.target, "", testDoc)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", tc.method, tc.target, w.Code)
			continue
		}
		if e := decodeError(t, w); e.Code != ErrCodeStoreUnavailable {
			t.Errorf("%s %s code = %q", tc.method, tc.target, e.Code)
		}
	}
}

// ─── Device Tests ──────────────────────────────────────────────────

func TestNormalize(t *testing.T) {
	router := testServer(t).buildRouter()

	w := do(t, router, http.MethodPost, "/api/v1/normalize", "application/xml", testDoc)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		View   midnam.ViewModel  `json:"view"`
		Device midnam.DeviceInfo `json:"device"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.View.Model != "JV-1080" || len(resp.View.PatchLists) != 1 {
		t.Errorf("view = %+v", resp.View)
	}
	if resp.Device.Kind != midnam.KindMaster {
		t.Errorf("device = %+v", resp.Device)
	}

	w = do(t, router, http.MethodPost, "/api/v1/normalize", "", "<MIDINameDocument><oops>")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed status = %d, want 422", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeMalformedDocument {
		t.Errorf("malformed code = %q", e.Code)
	}
}

func TestSelectDevice(t *testing.T) {
	router := testServer(t).buildRouter()
	do(t, router, http.MethodPut, "/api/v1/records/jv.midnam", "", testDoc)

	w := do(t, router, http.MethodGet, "/api/v1/device?path=jv.midnam", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var sel editor.Selection
	if err := json.Unmarshal(w.Body.Bytes(), &sel); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sel.Source != editor.SourceLocal || sel.Key != "Roland|JV-1080" || sel.View == nil {
		t.Errorf("selection = %+v", sel)
	}

	if w = do(t, router, http.MethodGet, "/api/v1/device?path=missing.midnam", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
	if w = do(t, router, http.MethodGet, "/api/v1/device", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty ref status = %d, want 400", w.Code)
	}
}

func TestCreateDevice(t *testing.T) {
	router := testServer(t).buildRouter()
	body := `{"manufacturer":"Korg","model":"M1","author":"me"}`

	w := do(t, router, http.MethodPost, "/api/v1/devices", "application/json", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var sel editor.Selection
	if err := json.Unmarshal(w.Body.Bytes(), &sel); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sel.Path != "korg/m1.midnam" || sel.View.Author != "me" {
		t.Errorf("selection = %+v", sel)
	}

	if w = do(t, router, http.MethodPost, "/api/v1/devices", "application/json", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
	if w = do(t, router, http.MethodPost, "/api/v1/devices", "application/json", "{"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/v1/catalog", "", "")
	if !strings.Contains(w.Body.String(), `"Korg|M1"`) {
		t.Errorf("catalog = %s, want Korg|M1", w.Body.String())
	}
}

// ─── Session Tests ─────────────────────────────────────────────────

func TestSessions(t *testing.T) {
	router := testServer(t).buildRouter()
	do(t, router, http.MethodPut, "/api/v1/records/jv.midnam", "", testDoc)

	w := do(t, router, http.MethodPost, "/api/v1/sessions", "application/json", `{"path":"jv.midnam"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d: %s", w.Code, w.Body.String())
	}
	var sess editor.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sess.ID == "" || sess.Device == nil {
		t.Fatalf("session = %+v", sess)
	}
	base := "/api/v1/sessions/" + sess.ID

	if w = do(t, router, http.MethodGet, base, "", ""); w.Code != http.StatusOK {
		t.Errorf("GET session status = %d", w.Code)
	}

	w = do(t, router, http.MethodPut, base+"/patch", "application/json", `{"patchListIndex":0,"patchIndex":0,"channel":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("select patch status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"preview":null`) {
		t.Errorf("select patch body = %s, want null preview without MQTT", w.Body.String())
	}

	if w = do(t, router, http.MethodPut, base+"/patch", "application/json", `{"patchIndex":5}`); w.Code != http.StatusBadRequest {
		t.Errorf("out of range status = %d, want 400", w.Code)
	}
	if w = do(t, router, http.MethodPost, base+"/notes/36", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("audition without preview status = %d, want 503", w.Code)
	}
	if w = do(t, router, http.MethodPost, base+"/notes/kick", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad note status = %d, want 400", w.Code)
	}

	if w = do(t, router, http.MethodDelete, base, "", ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE session status = %d, want 204", w.Code)
	}
	if w = do(t, router, http.MethodGet, base, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET closed session status = %d, want 404", w.Code)
	}
}

func TestOpenSession_EmptyBody(t *testing.T) {
	router := testServer(t).buildRouter()

	w := do(t, router, http.MethodPost, "/api/v1/sessions", "", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var sess editor.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sess.Device != nil {
		t.Errorf("Device = %+v, want none", sess.Device)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{localstore.ErrStoreUnavailable, 503, ErrCodeStoreUnavailable},
		{fmt.Errorf("saving: %w", localstore.ErrQuotaExceeded), 507, ErrCodeQuotaExceeded},
		{midnam.ErrMalformedDocument, 422, ErrCodeMalformedDocument},
		{editor.ErrDeviceNotFound, 404, ErrCodeNotFound},
		{editor.ErrSessionNotFound, 404, ErrCodeNotFound},
		{editor.ErrPathExists, 409, ErrCodeConflict},
		{editor.ErrPatchOutOfRange, 400, ErrCodeBadRequest},
		{midi.ErrInvalidData, 400, ErrCodeBadRequest},
		{preview.ErrPublishFailed, 503, ErrCodeUnavailable},
		{remote.ErrUnavailable, 503, ErrCodeUnavailable},
		{context.DeadlineExceeded, 504, ErrCodeTimeout},
		{errors.New("boom"), 500, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := classifyError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classifyError() = %d/%s, want %d/%s", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	router := testServer(t).buildRouter()
	do(t, router, http.MethodPut, "/api/v1/records/a.midnam", "", testDoc)

	w := do(t, router, http.MethodGet, "/api/v1/metrics", "", "")
	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.Store.Available || m.Store.Stats.Count != 1 || m.MQTT.Enabled {
		t.Errorf("metrics = %+v", m)
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func newMockClient(hub *Hub, channels ...string) *WSClient {
	return newWSClient(hub, nil, channels)
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(testWSConfig, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newMockClient(hub, editor.EventSaved)
	other := newMockClient(hub, editor.EventCleared)
	hub.Register(client)
	hub.Register(other)

	hub.Broadcast(editor.EventSaved, editor.Event{Type: editor.EventSaved, Path: "a.midnam"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != editor.EventSaved {
			t.Errorf("message = %+v", wsMsg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}

	select {
	case <-other.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(testWSConfig, testLogger())

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}
	client := newMockClient(hub)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}
	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestWebSocket_StoreEvents(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	// A pong proves the client is registered.
	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline
	var pong WSMessage
	if err := ws.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != WSTypePong || pong.ID != "p1" {
		t.Fatalf("pong = %+v", pong)
	}

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/records/Roland/JV-1080.midnam", strings.NewReader(testDoc)) //nolint:errcheck // Static request
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	putResp.Body.Close()

	var ev struct {
		Type      string       `json:"type"`
		EventType string       `json:"event_type"`
		Payload   editor.Event `json:"payload"`
	}
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.EventType != editor.EventSaved || ev.Payload.Path != "Roland/JV-1080.midnam" || ev.Payload.IsUpdate {
		t.Errorf("event = %+v", ev)
	}
	if ev.Payload.Manufacturer != "Roland" || ev.Payload.ID == "" {
		t.Errorf("event payload = %+v", ev.Payload)
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	hub := NewHub(testWSConfig, testLogger())
	client := newMockClient(hub, editor.EventSaved)
	hub.Register(client)

	client.handleMessage([]byte(`{"type":"unsubscribe","id":"u1","payload":{"channels":["store.saved"]}}`))
	<-client.send // response

	if client.isSubscribed(editor.EventSaved) {
		t.Error("client still subscribed after unsubscribe")
	}

	client.handleMessage([]byte(`{"type":"bogus","id":"b1"}`))
	var msg WSMessage
	if err := json.Unmarshal(<-client.send, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != WSTypeError || msg.ID != "b1" {
		t.Errorf("reply = %+v, want error", msg)
	}
}
