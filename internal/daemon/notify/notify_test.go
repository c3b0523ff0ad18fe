package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

type popupCall struct {
	title string
	body  string
}

type fakePopup struct {
	mu    sync.Mutex
	calls []popupCall
}

func (p *fakePopup) Notify(title, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, popupCall{title, body})
	return nil
}

func (p *fakePopup) recorded() []popupCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]popupCall(nil), p.calls...)
}

type fakeSettings struct {
	s models.AppSettings
}

func (f fakeSettings) Get() models.AppSettings { return f.s }

func settingsWith(desktop bool, webhook string) fakeSettings {
	s := *models.NewAppSettings()
	s.Notifications.DesktopNotifications = desktop
	s.Notifications.DiscordWebhook = webhook
	return fakeSettings{s: s}
}

type webhookServer struct {
	*httptest.Server
	mu       sync.Mutex
	payloads []webhookPayload
}

func newWebhookServer(t *testing.T) *webhookServer {
	t.Helper()
	ws := &webhookServer{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var p webhookPayload
		assert.NoError(t, json.Unmarshal(body, &p))
		ws.mu.Lock()
		ws.payloads = append(ws.payloads, p)
		ws.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *webhookServer) received() []webhookPayload {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]webhookPayload(nil), ws.payloads...)
}

func taskCompleted(t *testing.T, msg *string, code *int64) events.Event {
	t.Helper()
	e, err := events.New(events.TaskCompleted, models.TaskCompletedPayload{Msg: msg, ExitCode: code})
	require.NoError(t, err)
	return e
}

func ptr[T any](v T) *T { return &v }

func TestDesktopNotification(t *testing.T) {
	popup := &fakePopup{}
	d := NewDispatcher(settingsWith(true, ""), popup, nil)

	d.Handle(taskCompleted(t, ptr("Farmed 3 stages"), ptr[int64](0)))

	assert.Equal(t, []popupCall{{title: "Task Completed", body: "Farmed 3 stages"}}, popup.recorded())
}

func TestDesktopNotificationOmitsEmptyBody(t *testing.T) {
	popup := &fakePopup{}
	d := NewDispatcher(settingsWith(true, ""), popup, nil)

	d.Handle(events.Event{Name: events.TaskCompleted})

	assert.Equal(t, []popupCall{{title: "Task Completed"}}, popup.recorded())
}

func TestWebhookWithoutPopup(t *testing.T) {
	server := newWebhookServer(t)
	popup := &fakePopup{}
	webhook := NewWebhook(time.Second)
	d := NewDispatcher(settingsWith(false, server.URL), popup, webhook)

	d.Handle(taskCompleted(t, ptr("done"), nil))
	webhook.Wait()

	assert.Empty(t, popup.recorded())
	require.Len(t, server.received(), 1)
	got := server.received()[0]
	assert.Equal(t, "Task Completed\ndone", got.Content)
	assert.Equal(t, "AdbAutoPlayer", got.Username)
	assert.Equal(t, webhookAvatarURL, got.AvatarURL)
}

func TestBothChannels(t *testing.T) {
	server := newWebhookServer(t)
	popup := &fakePopup{}
	webhook := NewWebhook(time.Second)
	d := NewDispatcher(settingsWith(true, server.URL), popup, webhook)

	d.Handle(taskCompleted(t, nil, ptr[int64](1)))
	webhook.Wait()

	assert.Len(t, popup.recorded(), 1)
	require.Len(t, server.received(), 1)
	assert.Equal(t, "Task Completed\n", server.received()[0].Content)
}

func TestSignalTerminationIsIgnored(t *testing.T) {
	server := newWebhookServer(t)
	popup := &fakePopup{}
	webhook := NewWebhook(time.Second)
	d := NewDispatcher(settingsWith(true, server.URL), popup, webhook)

	d.Handle(taskCompleted(t, ptr("stopped"), ptr(models.SignalTerminationExitCode)))
	webhook.Wait()

	assert.Empty(t, popup.recorded())
	assert.Empty(t, server.received())
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	popup := &fakePopup{}
	d := NewDispatcher(settingsWith(true, ""), popup, nil)

	d.Handle(events.Event{Name: events.TaskCompleted, Payload: json.RawMessage(`{"exit_code": "nope"}`)})

	assert.Empty(t, popup.recorded())
}

func TestNothingEnabled(t *testing.T) {
	popup := &fakePopup{}
	d := NewDispatcher(settingsWith(false, ""), popup, nil)
	d.Handle(taskCompleted(t, ptr("x"), nil))
	assert.Empty(t, popup.recorded())
}

func TestWebhookErrorsAreDiscarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	webhook := NewWebhook(time.Second)
	assert.Error(t, webhook.Post(context.Background(), server.URL, "x"))

	assert.NotPanics(t, func() {
		webhook.Send(server.URL, "x")
		webhook.Send("http://127.0.0.1:0/unreachable", "x")
		webhook.Wait()
	})
}

func TestWebhookTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	webhook := NewWebhook(50 * time.Millisecond)
	start := time.Now()
	err := webhook.Post(context.Background(), server.URL, "x")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewWebhookDefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultWebhookTimeout, NewWebhook(0).client.Timeout)
}

func TestRunConsumesSubscription(t *testing.T) {
	popup := &fakePopup{}
	d := NewDispatcher(settingsWith(true, ""), popup, nil)
	bus := events.NewBus()
	ch := bus.Subscribe(events.TaskCompleted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, ch)

	require.NoError(t, bus.Emit(events.TaskCompleted, models.TaskCompletedPayload{Msg: ptr("a")}))
	require.NoError(t, bus.Emit(events.TaskCompleted, models.TaskCompletedPayload{Msg: ptr("b")}))

	require.Eventually(t, func() bool { return len(popup.recorded()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "a", popup.recorded()[0].body)
	assert.Equal(t, "b", popup.recorded()[1].body)
}

type slowPopup struct {
	fakePopup
	delay time.Duration
}

func (p *slowPopup) Notify(title, body string) error {
	time.Sleep(p.delay)
	return p.fakePopup.Notify(title, body)
}

func TestRunHandlesBurstBehindSlowPopup(t *testing.T) {
	popup := &slowPopup{delay: 5 * time.Millisecond}
	d := NewDispatcher(settingsWith(true, ""), popup, nil)
	bus := events.NewBus()
	ch := bus.Subscribe(events.TaskCompleted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, ch)

	const n = events.DefaultBuffer + 18
	for i := 0; i < n; i++ {
		require.NoError(t, bus.Emit(events.TaskCompleted, models.TaskCompletedPayload{Msg: ptr(fmt.Sprint(i))}))
	}

	require.Eventually(t, func() bool { return len(popup.recorded()) == n }, 5*time.Second, 20*time.Millisecond)
	for i, call := range popup.recorded() {
		assert.Equal(t, fmt.Sprint(i), call.body)
	}
}
