// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/elliottw/singularsync/internal/config"
	"github.com/elliottw/singularsync/internal/registry"
	"github.com/elliottw/singularsync/internal/singular"
	syncer "github.com/elliottw/singularsync/internal/sync"
	"github.com/elliottw/singularsync/internal/tricaster"
)

type fakeFetcher struct {
	comps []singular.Composition
	err   error
}

func (f *fakeFetcher) FetchModel(_ context.Context, _ string) ([]singular.Composition, error) {
	return f.comps, f.err
}

type fakePatcher struct {
	calls []struct {
		token  string
		groups []singular.PatchGroup
	}
	err error
}

func (p *fakePatcher) Patch(_ context.Context, token string, groups []singular.PatchGroup) error {
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, struct {
		token  string
		groups []singular.PatchGroup
	}{token, groups})
	return nil
}

type fakeDevice struct {
	configured bool
	version    string
	shortcuts  []string
	err        error
}

func (d *fakeDevice) Configured() bool                   { return d.configured }
func (d *fakeDevice) Host() string                       { return "10.0.0.5" }
func (d *fakeDevice) State() string                      { return "closed" }
func (d *fakeDevice) UpdateConfig(config.TriCasterConfig) {}

func (d *fakeDevice) Version(context.Context) (string, error) {
	return d.version, d.err
}

func (d *fakeDevice) Dictionary(_ context.Context, key string) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	return []byte("<" + key + "/>"), nil
}

func (d *fakeDevice) Shortcut(_ context.Context, name string, _ map[string]string) error {
	if d.err != nil {
		return d.err
	}
	d.shortcuts = append(d.shortcuts, name)
	return nil
}

func (d *fakeDevice) DDRInfo(context.Context) (map[int]tricaster.SlotStatus, error) {
	if d.err != nil {
		return nil, d.err
	}
	return map[int]tricaster.SlotStatus{1: {Duration: "0:01:00.00", Playing: true}}, nil
}

func (d *fakeDevice) Tally(context.Context) (*tricaster.TallyStatus, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &tricaster.TallyStatus{Program: []string{"input1"}, Preview: []string{}}, nil
}

type fakeSync struct {
	oneErr   error
	commands []string
}

func (s *fakeSync) SyncOne(_ context.Context, slot int) (*syncer.Result, error) {
	if s.oneErr != nil {
		return nil, s.oneErr
	}
	return &syncer.Result{Slot: slot, Minutes: 2, Seconds: 5.0}, nil
}

func (s *fakeSync) SyncAll(context.Context) *syncer.AllResult {
	return &syncer.AllResult{Results: map[int]*syncer.Result{1: {Slot: 1}}}
}

func (s *fakeSync) SendTimerCommand(_ context.Context, slot int, command string) error {
	s.commands = append(s.commands, fmt.Sprintf("%d:%s", slot, command))
	return nil
}

func (s *fakeSync) Restart(ctx context.Context, slot int) error {
	_ = s.SendTimerCommand(ctx, slot, "pause")
	_ = s.SendTimerCommand(ctx, slot, "reset")
	return nil
}

func (s *fakeSync) RestartAll(context.Context) map[int]string {
	return map[int]string{}
}

type fakePoller struct {
	running bool
}

func (p *fakePoller) Start()   { p.running = true }
func (p *fakePoller) Stop()    { p.running = false }
func (p *fakePoller) Restart() { p.running = true }
func (p *fakePoller) Running() bool { return p.running }
func (p *fakePoller) Status() syncer.PollerStatus {
	return syncer.PollerStatus{Running: p.running}
}
func (p *fakePoller) ResetState() {}

type testEnv struct {
	handler http.Handler
	cfg     *config.Manager
	patcher *fakePatcher
	device  *fakeDevice
	sync    *fakeSync
	poller  *fakePoller
	reg     *registry.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Singular.Apps = map[string]string{"main": "tok-main"}
	cfg.TimerSync.Token = "tok-main"
	manager := config.NewManager(cfg, "")

	fetcher := &fakeFetcher{comps: []singular.Composition{
		{
			ID:   "comp-1",
			Name: "Lower Third",
			Model: []singular.Field{
				{ID: "f-title", Title: "Title", Type: "text"},
				{ID: "f-count", Title: "Count", Type: "number"},
				{ID: "f-clock", Title: "Clock", Type: "timecontrol"},
			},
		},
	}}
	reg := registry.New(fetcher)
	if _, err := reg.RebuildApp(context.Background(), "main", "tok-main"); err != nil {
		t.Fatalf("registry build: %v", err)
	}

	env := &testEnv{
		cfg:     manager,
		patcher: &fakePatcher{},
		device:  &fakeDevice{configured: true, version: "TriCaster TC1 7.2"},
		sync:    &fakeSync{},
		poller:  &fakePoller{},
		reg:     reg,
	}
	env.handler = NewRouter(NewHandlers(manager, reg, env.patcher, env.device, env.sync, env.poller))
	return env
}

func (e *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v: %s", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if body := decodeResponse(t, rec); body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestCompositionInOut(t *testing.T) {
	env := newTestEnv(t)

	for _, tt := range []struct {
		path  string
		state string
	}{
		{"/main/lower-third/in", "In"},
		{"/main/lower-third/out", "Out"},
		{"/main/comp-1/in", "In"}, // raw id works too
	} {
		rec := env.request(t, http.MethodPost, tt.path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", tt.path, rec.Code, rec.Body.String())
		}
	}

	if len(env.patcher.calls) != 3 {
		t.Fatalf("expected 3 patches, got %d", len(env.patcher.calls))
	}
	first := env.patcher.calls[0]
	if first.token != "tok-main" || first.groups[0].State != "In" || first.groups[0].SubCompositionID != "comp-1" {
		t.Errorf("first patch: %+v", first)
	}
}

func TestCompositionNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/main/nope/in", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: %d", rec.Code)
	}
}

func TestCompositionSet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/main/lower-third/set?field=f-count&value=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	// Number fields are coerced before the patch is built.
	payload := env.patcher.calls[0].groups[0].Payload
	if v, ok := payload["f-count"].(int); !ok || v != 42 {
		t.Errorf("payload: %#v", payload)
	}

	// Unknown field is 404.
	rec = env.request(t, http.MethodGet, "/main/lower-third/set?field=ghost&value=1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown field status: %d", rec.Code)
	}

	// Missing value is 400.
	rec = env.request(t, http.MethodGet, "/main/lower-third/set?field=f-count", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing value status: %d", rec.Code)
	}
}

func TestCompositionTimecontrol(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/main/lower-third/timecontrol?field=f-clock&run=true&value=0&seconds=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	payload := env.patcher.calls[0].groups[0].Payload
	if payload["Countdown Seconds"] != "10" {
		t.Errorf("countdown: %#v", payload)
	}
	clock, ok := payload["f-clock"].(map[string]any)
	if !ok || clock["isRunning"] != true {
		t.Errorf("clock payload: %#v", payload)
	}

	// Non-timecontrol field is rejected.
	rec = env.request(t, http.MethodGet, "/main/lower-third/timecontrol?field=f-count", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong type status: %d", rec.Code)
	}
}

func TestSyncSlotErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not configured", fmt.Errorf("%w: no token", syncer.ErrNotConfigured), http.StatusBadRequest},
		{"slot missing", fmt.Errorf("%w: ddr9", tricaster.ErrSlotNotFound), http.StatusNotFound},
		{"device down", fmt.Errorf("%w: refused", tricaster.ErrUnavailable), http.StatusServiceUnavailable},
		{"bad xml", fmt.Errorf("%w: truncated", tricaster.ErrParse), http.StatusBadGateway},
		{"unresolved field", fmt.Errorf("%w: sec-1", syncer.ErrFieldNotResolved), http.StatusConflict},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.sync.oneErr = tt.err
			rec := env.request(t, http.MethodGet, "/tricaster/sync/1", "")
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSyncSlotSuccess(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/tricaster/sync/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	if body["ok"] != true {
		t.Errorf("body: %v", body)
	}
}

func TestTimerEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/tricaster/timer/1/start",
		"/tricaster/timer/1/pause",
		"/tricaster/timer/2/reset",
		"/tricaster/timer/1/restart",
	} {
		rec := env.request(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}

	want := []string{"1:start", "1:pause", "2:reset", "1:pause", "1:reset"}
	if fmt.Sprint(env.sync.commands) != fmt.Sprint(want) {
		t.Errorf("commands: %v, want %v", env.sync.commands, want)
	}

	rec := env.request(t, http.MethodGet, "/tricaster/timer/zero/start", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad slot status: %d", rec.Code)
	}
}

func TestTriCasterPassthroughs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/tricaster/test", "")
	body := decodeResponse(t, rec)
	if body["ok"] != true || body["response"] != "TriCaster TC1 7.2" {
		t.Errorf("test: %v", body)
	}

	rec = env.request(t, http.MethodGet, "/tricaster/ddr", "")
	if rec.Code != http.StatusOK {
		t.Errorf("ddr status: %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/tricaster/dictionary/tally", "")
	body = decodeResponse(t, rec)
	if body["raw_xml"] != "<tally/>" {
		t.Errorf("dictionary: %v", body)
	}

	rec = env.request(t, http.MethodGet, "/tricaster/record/start", "")
	if rec.Code != http.StatusOK {
		t.Errorf("record start status: %d", rec.Code)
	}
	rec = env.request(t, http.MethodGet, "/tricaster/ddr/2/play", "")
	if rec.Code != http.StatusOK {
		t.Errorf("ddr play status: %d", rec.Code)
	}
	want := []string{"record_start", "ddr2_play"}
	if fmt.Sprint(env.device.shortcuts) != fmt.Sprint(want) {
		t.Errorf("shortcuts: %v", env.device.shortcuts)
	}
}

func TestTriCasterDeviceDown(t *testing.T) {
	env := newTestEnv(t)
	env.device.err = fmt.Errorf("%w: refused", tricaster.ErrUnavailable)

	rec := env.request(t, http.MethodGet, "/tricaster/ddr", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: %d", rec.Code)
	}

	// The connection test reports failure in the body, not the status.
	rec = env.request(t, http.MethodGet, "/tricaster/test", "")
	if rec.Code != http.StatusOK {
		t.Errorf("test status: %d", rec.Code)
	}
	if body := decodeResponse(t, rec); body["ok"] != false {
		t.Errorf("test body: %v", body)
	}
}

func TestAutoSyncToggle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/tricaster/auto-sync", `{"enabled":true,"interval":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !env.poller.running {
		t.Error("poller should be started")
	}
	body := decodeResponse(t, rec)
	if body["interval"] != 5.0 {
		t.Errorf("interval: %v", body["interval"])
	}

	// Out-of-range interval clamps.
	rec = env.request(t, http.MethodPost, "/tricaster/auto-sync", `{"enabled":true,"interval":30}`)
	body = decodeResponse(t, rec)
	if body["interval"] != 10.0 {
		t.Errorf("clamped interval: %v", body["interval"])
	}

	rec = env.request(t, http.MethodPost, "/tricaster/auto-sync", `{"enabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("disable status: %d", rec.Code)
	}
	if env.poller.running {
		t.Error("poller should be stopped")
	}
}

func TestTimerSyncConfigRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"token":"tok-new","round_mode":"none","slots":{"1":{"minutes_field":"m","seconds_field":"s","timer_field":"t"}}}`
	rec := env.request(t, http.MethodPost, "/config/tricaster/timer-sync", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, http.MethodGet, "/config/tricaster/timer-sync", "")
	body := decodeResponse(t, rec)
	if body["round_mode"] != "none" || body["token_set"] != true {
		t.Errorf("config: %v", body)
	}
	slots, ok := body["slots"].(map[string]any)
	if !ok || slots["1"] == nil {
		t.Errorf("slots: %v", body["slots"])
	}
}

func TestSingularList(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/singular/list", "")
	body := decodeResponse(t, rec)
	entry, ok := body["main/lower-third"].(map[string]any)
	if !ok {
		t.Fatalf("catalog: %v", body)
	}
	if entry["id"] != "comp-1" {
		t.Errorf("entry: %v", entry)
	}
}

func TestSingularControlRequiresApp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/singular/control", `[{"subCompositionId":"comp-1","state":"In"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("single app should not need ?app=: %d %s", rec.Code, rec.Body.String())
	}

	// With two apps the target becomes ambiguous.
	if _, err := env.cfg.Update(func(c *config.Config) {
		c.Singular.Apps["second"] = "tok-second"
	}); err != nil {
		t.Fatalf("add app: %v", err)
	}
	rec = env.request(t, http.MethodPost, "/singular/control", `[{"subCompositionId":"comp-1","state":"In"}]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ambiguous app status: %d", rec.Code)
	}
}

func TestAddRemoveApp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/config/singular/add", `{"name":"backup","token":"tok-backup"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := env.cfg.Current().Singular.Apps["backup"]; !ok {
		t.Error("app not saved")
	}

	rec = env.request(t, http.MethodPost, "/config/singular/add", `{"name":"backup","token":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate add status: %d", rec.Code)
	}

	rec = env.request(t, http.MethodPost, "/config/singular/remove?name=backup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status: %d", rec.Code)
	}
	if _, ok := env.cfg.Current().Singular.Apps["backup"]; ok {
		t.Error("app not removed")
	}

	rec = env.request(t, http.MethodPost, "/config/singular/remove?name=ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove missing status: %d", rec.Code)
	}
}
