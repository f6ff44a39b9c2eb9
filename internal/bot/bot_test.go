package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/EgorLis/botlolicute/internal/game"
	"github.com/EgorLis/botlolicute/internal/game/gametest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// быстрые тайминги для тестов
func testConfig() Config {
	return Config{
		Modes: ModesConfig{
			TeleportCheck: 10 * time.Millisecond,
			BuffCheck:     10 * time.Millisecond,
			PlanPause:     time.Millisecond,
			EnchantPause:  time.Millisecond,
		},
		Respawn: RespawnConfig{
			SettleDelay:     time.Millisecond,
			PermissionCheck: 10 * time.Millisecond,
			TeleportCheck:   10 * time.Millisecond,
			RetryDelay:      time.Millisecond,
		},
	}
}

func newTestBot(t *testing.T, opts ...Option) (*Bot, *gametest.World) {
	t.Helper()
	w := gametest.NewWorld("Lolicute")
	b := New(w, append([]Option{WithConfig(testConfig())}, opts...)...)
	t.Cleanup(b.Stop)
	return b, w
}

type notifyRecorder struct {
	mu     sync.Mutex
	events []string
}

func (n *notifyRecorder) Notify(event, _ string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *notifyRecorder) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

// scripted — управляемая Activity для проверки раннера.
type scripted struct {
	mode    Mode
	ticks   atomic.Int32
	ended   atomic.Bool
	result  func(n int32) error
	beginFn func() error
}

func (s *scripted) Mode() Mode              { return s.mode }
func (s *scripted) Interval() time.Duration { return 5 * time.Millisecond }
func (s *scripted) Begin(context.Context) error {
	if s.beginFn != nil {
		return s.beginFn()
	}
	return nil
}
func (s *scripted) End() { s.ended.Store(true) }
func (s *scripted) Tick(context.Context) error {
	n := s.ticks.Add(1)
	if s.result != nil {
		return s.result(n)
	}
	return nil
}

func TestStartModeReplacesRunningMode(t *testing.T) {
	b, _ := newTestBot(t)
	first := &scripted{mode: ModeFarming}
	second := &scripted{mode: ModeFishing}

	require.NoError(t, b.StartMode(first))
	require.Eventually(t, func() bool { return first.ticks.Load() > 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.StartMode(second))

	// первый режим остановлен до старта второго
	assert.True(t, first.ended.Load())
	assert.Equal(t, ModeFishing, b.Mode())
	stopped := first.ticks.Load()
	require.Eventually(t, func() bool { return second.ticks.Load() > 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, stopped, first.ticks.Load())
}

func TestActivityDoneReturnsToIdle(t *testing.T) {
	b, _ := newTestBot(t)
	a := &scripted{mode: ModeMining, result: func(n int32) error {
		if n == 3 {
			return ErrDone
		}
		return nil
	}}
	require.NoError(t, b.StartMode(a))
	require.Eventually(t, func() bool { return b.Mode() == ModeIdle }, time.Second, 5*time.Millisecond)
	assert.True(t, a.ended.Load())
	assert.EqualValues(t, 3, a.ticks.Load())
}

func TestActivityErrorIsReportedInChat(t *testing.T) {
	b, w := newTestBot(t)
	a := &scripted{mode: ModeExploring, result: func(int32) error { return errors.New("boom") }}
	require.NoError(t, b.StartMode(a))
	require.Eventually(t, func() bool { return b.Mode() == ModeIdle }, time.Second, 5*time.Millisecond)
	assert.True(t, w.ChatContains("err: boom"))
}

func TestBeginErrorKeepsIdle(t *testing.T) {
	b, _ := newTestBot(t)
	a := &scripted{mode: ModeMining, beginFn: func() error { return errNoPickaxe }}
	require.ErrorIs(t, b.StartMode(a), errNoPickaxe)
	assert.Equal(t, ModeIdle, b.Mode())
	assert.Zero(t, a.ticks.Load())
}

func TestStopAllSaysOnce(t *testing.T) {
	b, w := newTestBot(t)
	require.NoError(t, b.StartMode(&scripted{mode: ModeFarming}))
	b.StopAll(false)
	b.StopAll(true)
	assert.Equal(t, ModeIdle, b.Mode())
	n := 0
	for _, c := range w.Chats() {
		if c == "Đã dừng mọi hoạt động ✋" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestStartStopLoops(t *testing.T) {
	b, _ := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	require.Error(t, b.Start(context.Background()))
	b.Stop()
	b.Stop()
}

func TestChatQueueRunsCommands(t *testing.T) {
	b, w := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	b.OnChat("Steve", "say xin chào")
	require.Eventually(t, func() bool { return w.ChatContains("xin chào") }, time.Second, 5*time.Millisecond)
}

func TestPlayerLeftStopsFollowing(t *testing.T) {
	b, w := newTestBot(t)
	pos := game.V(3, 64, 3)
	w.AddPlayer(2, "Steve", &pos)
	require.NoError(t, b.StartMode(b.Follow("Steve")))
	require.NoError(t, b.Start(context.Background()))

	w.RemovePlayer("Steve")
	b.OnPlayerLeft("Steve")
	require.Eventually(t, func() bool { return b.Mode() == ModeIdle }, time.Second, 5*time.Millisecond)
}

type reconnectCounter struct{ n atomic.Int32 }

func (r *reconnectCounter) Reconnect(context.Context) error {
	r.n.Add(1)
	return nil
}

func TestPresenceReconnectsAfterThreeFailures(t *testing.T) {
	rc := &reconnectCounter{}
	b, w := newTestBot(t, WithReconnector(rc))
	ctx := context.Background()

	w.SetConnected(false)
	b.checkPresence(ctx)
	b.checkPresence(ctx)
	assert.Zero(t, rc.n.Load())
	b.checkPresence(ctx)
	assert.EqualValues(t, 1, rc.n.Load())

	// успешная проверка сбрасывает счётчик
	b.checkPresence(ctx)
	w.SetConnected(true)
	b.checkPresence(ctx)
	w.SetConnected(false)
	b.checkPresence(ctx)
	b.checkPresence(ctx)
	assert.EqualValues(t, 1, rc.n.Load())
}

// counted считает, сколько режимов живо одновременно.
type counted struct {
	active, peak *atomic.Int32
}

func (c *counted) Mode() Mode              { return ModeFarming }
func (c *counted) Interval() time.Duration { return time.Millisecond }
func (c *counted) Begin(context.Context) error {
	n := c.active.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(30 * time.Millisecond)
	return nil
}
func (c *counted) Tick(context.Context) error { return nil }
func (c *counted) End()                       { c.active.Add(-1) }

func TestConcurrentStartModeRunsOneActivity(t *testing.T) {
	b, _ := newTestBot(t)
	var active, peak atomic.Int32

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.StartMode(&counted{active: &active, peak: &peak}))
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, peak.Load())
	assert.EqualValues(t, 1, active.Load())

	b.StopAll(false)
	assert.Zero(t, active.Load())
	assert.Equal(t, ModeIdle, b.Mode())
}

func TestStoppedBotRefusesWork(t *testing.T) {
	b, _ := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	b.Stop()

	a := &scripted{mode: ModeMining}
	require.ErrorIs(t, b.StartMode(a), errStopped)
	assert.Equal(t, ModeIdle, b.Mode())

	var ran atomic.Bool
	b.goTask(func(context.Context) { ran.Store(true) })
	assert.False(t, ran.Load())

	// перезапуск снова принимает режимы
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.StartMode(a))
	require.Eventually(t, func() bool { return a.ticks.Load() > 0 }, time.Second, 5*time.Millisecond)
}
