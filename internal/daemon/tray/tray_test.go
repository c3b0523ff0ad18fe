package tray

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMenu struct {
	mu     sync.Mutex
	items  []Item
	clicks chan Item
}

func newFakeMenu() *fakeMenu {
	return &fakeMenu{clicks: make(chan Item)}
}

func (m *fakeMenu) SetItems(items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func (m *fakeMenu) Clicks() <-chan Item { return m.clicks }

func (m *fakeMenu) titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, it := range m.items {
		out = append(out, it.Title())
	}
	return out
}

type fakeWindow struct {
	mu    sync.Mutex
	shown int
	hid   int
}

func (w *fakeWindow) Show() { w.mu.Lock(); w.shown++; w.mu.Unlock() }
func (w *fakeWindow) Hide() { w.mu.Lock(); w.hid++; w.mu.Unlock() }

func (w *fakeWindow) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown, w.hid
}

func TestItemTitles(t *testing.T) {
	assert.Equal(t, "Minimize to Tray", ItemMinimize.Title())
	assert.Equal(t, "Show AdbAutoPlayer", ItemShow.Title())
	assert.Equal(t, "Exit", ItemExit.Title())
	assert.Empty(t, Item(42).Title())
}

func TestRebuildMenu(t *testing.T) {
	menu := newFakeMenu()
	c := NewController(menu, func(int) {})

	c.RebuildMenu(true)
	assert.Equal(t, []string{"Minimize to Tray", "Exit"}, menu.titles())
	assert.Equal(t, []Item{ItemMinimize, ItemExit}, c.Items())

	c.RebuildMenu(false)
	assert.Equal(t, []string{"Show AdbAutoPlayer", "Exit"}, menu.titles())
	assert.Equal(t, []Item{ItemShow, ItemExit}, c.Items())
}

func TestRebuildMenuWithoutTray(t *testing.T) {
	c := NewController(nil, func(int) {})
	assert.NotPanics(t, func() { c.RebuildMenu(false) })
	assert.Equal(t, []Item{ItemShow, ItemExit}, c.Items())

	// Run returns immediately without a tray.
	c.Run(context.Background())
}

func TestHandleDelegatesToWindow(t *testing.T) {
	w := &fakeWindow{}
	c := NewController(newFakeMenu(), func(int) { t.Fatal("unexpected exit") })
	c.Attach(w)

	c.Handle(ItemMinimize)
	c.Handle(ItemShow)
	c.Activate()

	shown, hid := w.counts()
	assert.Equal(t, 2, shown)
	assert.Equal(t, 1, hid)
}

func TestHandleWithoutWindow(t *testing.T) {
	c := NewController(newFakeMenu(), func(int) { t.Fatal("unexpected exit") })
	assert.NotPanics(t, func() { c.Handle(ItemShow) })
}

func TestExitUsesCodeZero(t *testing.T) {
	code := -1
	c := NewController(newFakeMenu(), func(c int) { code = c })
	c.Handle(ItemExit)
	assert.Equal(t, 0, code)
}

func TestRunDispatchesClicks(t *testing.T) {
	menu := newFakeMenu()
	w := &fakeWindow{}
	exited := make(chan int, 1)
	c := NewController(menu, func(code int) { exited <- code })
	c.Attach(w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	menu.clicks <- ItemMinimize
	menu.clicks <- ItemExit

	select {
	case code := <-exited:
		assert.Equal(t, 0, code)
	case <-time.After(time.Second):
		t.Fatal("exit not dispatched")
	}
	_, hid := w.counts()
	assert.Equal(t, 1, hid)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Run did not stop")
	}
}

func TestSystraySetItemsBeforeReady(t *testing.T) {
	s := NewSystray()
	s.SetItems(MenuFor(false))
	assert.Equal(t, []Item{ItemShow, ItemExit}, s.pending)
	assert.NotEmpty(t, iconData)
}
