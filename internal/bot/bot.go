package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// Responder отвечает на свободный текст в чате (ИИ).
type Responder interface {
	Reply(ctx context.Context, user, message string) (string, error)
}

// Planner разбирает свободную просьбу в план действий (ИИ).
type Planner interface {
	Plan(ctx context.Context, user, request string) (Plan, error)
}

// Notifier пересылает события бота наружу (Discord и т.п.).
type Notifier interface {
	Notify(event, text string)
}

// StatusSink принимает снимки состояния бота (дашборд).
type StatusSink interface {
	PublishStatus(st Status)
}

// Reconnector принудительно переподключает клиента.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

type Option func(*Bot)

func WithLogger(l *zap.Logger) Option { return func(b *Bot) { b.log = l } }

func WithResponder(r Responder) Option { return func(b *Bot) { b.responder = r } }

func WithPlanner(p Planner) Option { return func(b *Bot) { b.planner = p } }

func WithNotifier(n Notifier) Option { return func(b *Bot) { b.notifier = n } }

func WithStatusSink(s StatusSink) Option { return func(b *Bot) { b.sink = s } }

func WithReconnector(r Reconnector) Option { return func(b *Bot) { b.reconnector = r } }

// WithConfig применяет конфиг без файла (файл — через UseConfig).
func WithConfig(c Config) Option { return func(b *Bot) { b.conf = c.withDefaults() } }

type Bot struct {
	w           game.World
	log         *zap.Logger
	responder   Responder
	planner     Planner
	notifier    Notifier
	sink        StatusSink
	reconnector Reconnector

	cfg    *configStore
	confMu sync.RWMutex
	conf   Config

	// активный режим; modeMu держится на всё время смены режима
	modeMu     sync.Mutex
	mu         sync.Mutex
	mode       Mode
	activity   Activity
	modeCancel context.CancelFunc
	modeDone   chan struct{}
	statusText string
	target     string

	startedAt    time.Time
	lastActivity atomic.Int64

	respawn respawnTracker
	buff    permission

	eating       atomic.Bool
	presenceFail atomic.Int32

	// сундуки, которые уже обчистили (живёт между запусками режима)
	lootMu sync.Mutex
	looted map[game.BlockPos]bool

	alerts map[string]func() // событие -> звук

	chatCh  chan chatMsg
	ctx     context.Context
	cancel  context.CancelFunc
	stopCh  chan struct{}
	closing bool // после Stop новые задачи не принимаются
	wg      sync.WaitGroup
	runMu   sync.Mutex
}

type chatMsg struct {
	sender, text string
}

func New(w game.World, opts ...Option) *Bot {
	b := &Bot{
		w:      w,
		log:    zap.NewNop(),
		mode:   ModeIdle,
		conf:   Config{}.withDefaults(),
		looted: make(map[game.BlockPos]bool),
		chatCh: make(chan chatMsg, 32),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With(zap.String("bot", w.Username()))
	b.alerts = b.buildAlerts(b.config().Hooks)
	return b
}

func (b *Bot) Start(ctx context.Context) error {
	if b == nil {
		return errors.New("бот не инициализирован")
	}
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.stopCh != nil {
		return errors.New("уже запущен")
	}
	b.stopCh = make(chan struct{})
	b.closing = false
	ctx, cancel := context.WithCancel(ctx)
	b.ctx, b.cancel = ctx, cancel
	b.startedAt = time.Now()
	b.touch()

	// always — цикл работает и без соединения
	loops := []struct {
		every  time.Duration
		always bool
		fn     func(ctx context.Context)
	}{
		{2 * time.Second, true, b.publishStatus},
		{5 * time.Second, true, b.checkPresence},
		{3 * time.Second, false, b.autoEat},
		{15 * time.Second, false, b.autoEquip},
		{2 * time.Second, false, b.collectItems},
	}
	for _, l := range loops {
		b.loop(ctx, l.every, l.always, l.fn)
	}

	if b.cfg != nil {
		b.watchConfig(ctx)
	}

	// чат-команды обрабатываются по одной, вне горутины сетевого клиента
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-b.chatCh:
				b.handleChat(m.sender, m.text)
			}
		}
	}()

	// сторож для остановки
	stop := b.stopCh
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		select {
		case <-stop:
		case <-ctx.Done():
		}
		cancel()
	}()

	b.log.Info("bot started")
	return nil
}

func (b *Bot) Stop() {
	b.runMu.Lock()
	ch := b.stopCh
	b.stopCh = nil
	b.closing = true
	cancel := b.cancel
	b.runMu.Unlock()

	cancel()
	b.stopMode()
	if ch != nil {
		close(ch) // безопасно: повторный Stop() ничего не делает
	}
	b.wg.Wait()
	if ch != nil {
		b.log.Info("bot stopped")
	}
}

// loop запускает фоновый цикл с интервалом every.
func (b *Bot) loop(ctx context.Context, every time.Duration, always bool, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if always || b.w.Connected() {
					fn(ctx)
				}
			}
		}
	}()
}

// goTask — фоновая задача, которую дождётся Stop.
func (b *Bot) goTask(fn func(ctx context.Context)) {
	ctx, ok := b.track()
	if !ok {
		return
	}
	go func() {
		defer b.wg.Done()
		fn(ctx)
	}()
}

// ========================= события клиента =========================

// OnChat ставит сообщение в очередь обработки.
func (b *Bot) OnChat(sender, text string) {
	select {
	case b.chatCh <- chatMsg{sender, text}:
	default:
		b.log.Warn("chat queue full, message dropped", zap.String("sender", sender))
	}
}

func (b *Bot) OnSpawn() {
	b.touch()
	b.log.Info("spawned", zap.Stringer("pos", b.w.Position()))
	if b.respawn.pending() {
		b.goTask(b.recoverAfterRespawn)
	}
}

func (b *Bot) OnDeath() {
	b.log.Warn("bot died", zap.Stringer("pos", b.w.Position()))
	b.rememberDeath()
	b.stopMode()
	b.say("Mình chết rồi 💀 sẽ quay lại ngay")
	b.notify("death", fmt.Sprintf("%s died at %v", b.w.Username(), b.w.Position()))
	// на сервере без автовозрождения жмём «Respawn» сами
	b.goTask(func(ctx context.Context) {
		if err := game.Sleep(ctx, time.Second); err != nil {
			return
		}
		if b.w.Health() <= 0 {
			_ = b.w.Respawn()
		}
	})
}

func (b *Bot) OnDisconnected(reason string) {
	b.log.Warn("disconnected", zap.String("reason", reason))
	b.notify("disconnected", reason)
}

func (b *Bot) OnConnected() {
	b.presenceFail.Store(0)
	b.notify("connected", b.w.Username()+" connected")
}

func (b *Bot) OnPlayerJoined(name string) {
	b.log.Info("player joined", zap.String("player", name))
	if strings.EqualFold(name, b.config().Owner) {
		b.say(fmt.Sprintf("Chào %s! 👋", name))
	}
}

func (b *Bot) OnPlayerLeft(name string) {
	b.log.Info("player left", zap.String("player", name))
	b.mu.Lock()
	lost := b.target != "" && strings.EqualFold(b.target, name) && (b.mode == ModeFollowing || b.mode == ModeProtecting)
	b.mu.Unlock()
	if lost {
		b.say(name + " đã rời server, dừng lại")
		b.goTask(func(context.Context) { b.StopAll(true) })
	}
}

// ========================= helpers =========================

func (b *Bot) say(msg string) {
	if err := b.w.Chat(msg); err != nil {
		b.log.Debug("chat failed", zap.Error(err))
	}
}

func (b *Bot) notify(event, text string) {
	b.fireAlert(event)
	if b.notifier != nil {
		b.notifier.Notify(event, text)
	}
}

func (b *Bot) touch() { b.lastActivity.Store(time.Now().UnixNano()) }

func (b *Bot) setStatus(s string) {
	b.mu.Lock()
	b.statusText = s
	b.mu.Unlock()
	b.touch()
}

// track регистрирует горутину в wg; после Stop отказывает.
// Add и проверка closing под одним runMu, поэтому не гоняются с wg.Wait в Stop.
func (b *Bot) track() (context.Context, bool) {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.closing {
		return nil, false
	}
	b.wg.Add(1)
	return b.ctx, true
}

func (b *Bot) World() game.World { return b.w }

func (b *Bot) Username() string { return b.w.Username() }
