package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/daemon/tray"
	"github.com/AdbAutoPlayer/shell/internal/daemon/window"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/models"
	"github.com/AdbAutoPlayer/shell/internal/settings"
)

type fixture struct {
	srv      *Server
	base     string
	bus      *events.Bus
	store    *settings.Store
	hub      *Hub
	tray     *tray.Controller
	dir      string
	shutdown chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.ConfigDirEnv, dir)

	bus := events.NewBus()
	store := settings.NewStore(filepath.Join(dir, models.AppSettingsFileName), bus)
	hub := NewHub(bus)
	trayCtrl := tray.NewController(nil, func(int) { t.Error("unexpected exit") })
	win := window.NewController(hub.Window(), trayCtrl, store, bus)
	trayCtrl.Attach(win)

	shutdown := make(chan struct{}, 1)
	srv, err := New(Config{
		Store:    store,
		Bus:      bus,
		Hub:      hub,
		Window:   win,
		Shutdown: func() { shutdown <- struct{}{} },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = srv.Stop(stopCtx)
	})

	return &fixture{
		srv:      srv,
		base:     fmt.Sprintf("http://%s:%d", Host, srv.Port()),
		bus:      bus,
		store:    store,
		hub:      hub,
		tray:     trayCtrl,
		dir:      dir,
		shutdown: shutdown,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.base+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s:%d/ws", Host, f.srv.Port())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return f.hub.ClientCount() > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

// readUntil reads frames until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Frame) bool) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func isCommand(name string) func(Frame) bool {
	return func(f Frame) bool { return f.Type == FrameCommand && f.Name == name }
}

func isEvent(name events.Name) func(Frame) bool {
	return func(f Frame) bool { return f.Type == FrameEvent && f.Name == string(name) }
}

func TestShowWindowWithoutUI(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/window/show", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEqual(t, tray.MenuFor(true), f.tray.Items())

	status := decode[Status](t, f.do(t, http.MethodGet, "/api/status", ""))
	assert.False(t, status.WindowVisible)
}

func TestShowWindowSendsCommands(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	f.do(t, http.MethodPost, "/api/window/show", "")

	readUntil(t, conn, isCommand(CommandUnminimize))
	readUntil(t, conn, isCommand(CommandShow))
	readUntil(t, conn, isCommand(CommandFocus))
	visible := readUntil(t, conn, isEvent(events.WindowIsVisible))
	assert.JSONEq(t, "true", string(visible.Payload))
}

func TestSaveDocument(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/settings/1/AFKJourney.toml", `{"general": {"retries": 2}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[SaveDocumentResponse](t, resp)
	assert.Equal(t, filepath.Join(f.dir, "1", "AFKJourney.toml"), got.Path)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "retries = 2")
}

func TestSaveDocumentBadRequests(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		path string
		body string
	}{
		"profile out of range": {path: "/api/settings/256/a.toml", body: `{}`},
		"profile not a number": {path: "/api/settings/main/a.toml", body: `{}`},
		"malformed json":       {path: "/api/settings/0/a.toml", body: `{"a":`},
		"not an object":        {path: "/api/settings/0/a.toml", body: `"text"`},
		"nested file name":     {path: "/api/settings/0/a%2Fb.toml", body: `{}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestSettingsForm(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/app-settings/form", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	form := decode[settings.Form](t, resp)
	assert.Equal(t, "App.toml", form.FileName)
	assert.Equal(t, models.AppSettingsSchema(), form.Schema)
	assert.Equal(t, *models.NewAppSettings(), form.Settings)
}

func TestSaveAppSettings(t *testing.T) {
	f := newFixture(t)
	logs := f.bus.Subscribe(events.LogMessage)

	body := `{"profiles": {"profiles": ["Main", "Alt"]}, "ui": {"theme": "pine", "locale": "jp", "close_should_minimize": true}}`
	resp := f.do(t, http.MethodPut, "/api/app-settings", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved := decode[models.AppSettings](t, resp)
	assert.Equal(t, []string{"Main", "Alt"}, saved.Profiles.Profiles)
	assert.Equal(t, "pine", saved.UI.Theme)
	assert.Equal(t, models.LogLevelInfo, saved.Logging.Level)
	assert.Equal(t, saved, f.store.Get())

	select {
	case e := <-logs:
		var msg models.LogMessage
		require.NoError(t, json.Unmarshal(e.Payload, &msg))
		assert.Contains(t, msg.Message, "App Settings saved")
	case <-time.After(time.Second):
		t.Fatal("no log-message after save")
	}
}

func TestSaveAppSettingsRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	for name, body := range map[string]string{
		"malformed":      `{"ui":`,
		"unknown theme":  `{"ui": {"theme": "neon", "locale": "en"}}`,
		"no profiles":    `{"profiles": {"profiles": []}}`,
		"bad webhook":    `{"notifications": {"discord_webhook": "not a url"}}`,
		"unknown locale": `{"ui": {"theme": "pine", "locale": "de"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := f.do(t, http.MethodPut, "/api/app-settings", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Equal(t, *models.NewAppSettings(), f.store.Get())
}

func TestEmitEvents(t *testing.T) {
	f := newFixture(t)
	done := f.bus.Subscribe(events.TaskCompleted)
	all := f.bus.Subscribe(events.AllTasksCompleted)

	resp := f.do(t, http.MethodPost, "/api/events/task-completed", `{"msg": "ok", "exit_code": 0}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/api/events/all-tasks-completed", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	e := <-done
	assert.JSONEq(t, `{"msg": "ok", "exit_code": 0}`, string(e.Payload))
	e = <-all
	assert.Empty(t, e.Payload)
}

func TestEmitRejects(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/events/kill-python", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/events/task-completed", "{nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[Status](t, resp)
	assert.Equal(t, f.srv.Port(), status.Port)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.False(t, status.WindowVisible)
	assert.Equal(t, 0, status.Clients)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/shutdown", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case <-f.shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown not requested")
	}
}

func TestCloseRequestMinimizes(t *testing.T) {
	f := newFixture(t)
	s := *models.NewAppSettings()
	s.UI.CloseShouldMinimize = true
	require.NoError(t, f.store.Save(s))

	conn := f.dial(t)
	require.NoError(t, conn.WriteJSON(Frame{Type: FrameState, Payload: json.RawMessage(`{"visible": true}`)}))
	require.Eventually(t, func() bool { return f.hub.Window().IsVisible() }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameCloseRequested, ID: "c1"}))

	readUntil(t, conn, isCommand(CommandHide))
	resp := readUntil(t, conn, func(f Frame) bool { return f.Type == FrameCloseResponse })
	assert.Equal(t, "c1", resp.ID)
	assert.JSONEq(t, `{"allow": false}`, string(resp.Payload))
	assert.Equal(t, tray.MenuFor(false), f.tray.Items())
}

func TestCloseRequestAllowsAndBroadcastsKill(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		kills := f.bus.Subscribe(events.KillPython)
		conn := f.dial(t)
		other := f.dial(t)
		require.Eventually(t, func() bool { return f.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

		require.NoError(t, conn.WriteJSON(Frame{Type: FrameCloseRequested, ID: "c2"}))

		// Running tasks are told to stop before the UI may close.
		first := readUntil(t, conn, func(f Frame) bool {
			return f.Type == FrameCloseResponse || isEvent(events.KillPython)(f)
		})
		require.True(t, isEvent(events.KillPython)(first), "got %s before kill-python", first.Type)

		resp := readUntil(t, conn, func(f Frame) bool { return f.Type == FrameCloseResponse })
		assert.Equal(t, "c2", resp.ID)
		assert.JSONEq(t, `{"allow": true}`, string(resp.Payload))

		readUntil(t, other, isEvent(events.KillPython))

		select {
		case <-kills:
		case <-time.After(time.Second):
			t.Fatal("kill-python not published in process")
		}
	}
}

func TestKillPythonSentOnce(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameCloseRequested, ID: "c3"}))
	readUntil(t, conn, func(f Frame) bool { return f.Type == FrameCloseResponse })

	// A forwarded copy would reach the UI ahead of this later log message.
	require.NoError(t, f.bus.Emit(events.LogMessage, models.NewLogMessage(models.LogLevelInfo, "marker")))
	readUntil(t, conn, func(fr Frame) bool {
		if isEvent(events.KillPython)(fr) {
			t.Error("kill-python delivered twice")
		}
		return isEvent(events.LogMessage)(fr)
	})
}

func TestStateFrameUpdatesTray(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(Frame{
		Type:    FrameState,
		Payload: json.RawMessage(`{"visible": true, "placement": {"x": 1, "y": 2, "width": 640, "height": 480}}`),
	}))
	require.Eventually(t, func() bool {
		items := f.tray.Items()
		return len(items) > 0 && items[0] == tray.ItemMinimize
	}, time.Second, 10*time.Millisecond)

	p, err := f.hub.Window().Placement()
	require.NoError(t, err)
	assert.Equal(t, models.WindowPlacement{X: 1, Y: 2, Width: 640, Height: 480}, p)

	// The window counts as hidden once the UI goes away.
	conn.Close()
	require.Eventually(t, func() bool {
		items := f.tray.Items()
		return len(items) > 0 && items[0] == tray.ItemShow
	}, time.Second, 10*time.Millisecond)
}

func TestEventFrameIsPublished(t *testing.T) {
	f := newFixture(t)
	done := f.bus.Subscribe(events.TaskCompleted)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameEvent, Name: "task-completed", Payload: json.RawMessage(`{"msg":"x"}`)}))

	select {
	case e := <-done:
		assert.JSONEq(t, `{"msg":"x"}`, string(e.Payload))
	case <-time.After(time.Second):
		t.Fatal("event frame not published")
	}
}

func TestRemoteWindowWithoutUI(t *testing.T) {
	h := NewHub(nil)
	w := h.Window()

	assert.ErrorIs(t, w.Show(), window.ErrNoWindow)
	assert.False(t, w.IsVisible())
	assert.ErrorIs(t, w.Hide(), window.ErrNoWindow)
	assert.False(t, w.IsVisible())

	_, err := w.Placement()
	assert.ErrorIs(t, err, window.ErrNoWindow)

	p := models.WindowPlacement{Width: 10, Height: 10}
	assert.ErrorIs(t, w.SetPlacement(p), window.ErrNoWindow)
	got, err := w.Placement()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCheckOrigin(t *testing.T) {
	tests := map[string]bool{
		"":                        true,
		"http://localhost:5173":   true,
		"http://127.0.0.1:1420":   true,
		"tauri://localhost":       true,
		"http://tauri.localhost":  true,
		"https://example.com":     false,
		"http://evil.localhost.x": false,
	}
	for origin, want := range tests {
		r, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, checkOrigin(r), origin)
	}
}
