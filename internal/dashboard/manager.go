package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/store"
)

var (
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrNotRunning     = errors.New("bot is not running")
)

// снимок старше этого считается устаревшим: бот offline
const statusTTL = 30 * time.Second

const consoleSender = "console"

// Runner — запущенный бот.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
	Status() bot.Status
	HandleCommand(sender, text string) error
	Say(text string) error
	Players() string
}

// Factory собирает Runner по конфигу записи.
type Factory func(ctx context.Context, id string, cfg bot.Config, sink bot.StatusSink) (Runner, error)

// Manager владеет запущенными ботами.
type Manager struct {
	ctx     context.Context
	store   *store.Store
	hub     *Hub
	factory Factory
	log     *zap.Logger

	mu      sync.Mutex
	running map[string]*instance

	statuses cache.Cache[string, bot.Status]
}

// instance — бот в реестре запущенных; r == nil, пока он подключается.
type instance struct {
	r      Runner
	cancel context.CancelFunc
}

// NewManager; ctx живёт столько же, сколько процесс, и передаётся ботам.
func NewManager(ctx context.Context, st *store.Store, hub *Hub, factory Factory, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		ctx:      ctx,
		store:    st,
		hub:      hub,
		factory:  factory,
		log:      log,
		running:  make(map[string]*instance),
		statuses: cache.NewCache[string, bot.Status]().WithTTL(statusTTL).WithMaxKeys(1000),
	}
}

// ConfigFor собирает конфиг бота: YAML записи + сервер и ник из самой записи.
func ConfigFor(rec store.Bot) (bot.Config, error) {
	cfg, err := bot.ParseConfig([]byte(rec.Config))
	if err != nil {
		return bot.Config{}, err
	}
	cfg.Server.Server = rec.Server
	cfg.Server.Port = rec.Port
	cfg.Server.Username = rec.Username
	cfg.Server.Version = rec.Version
	return cfg, nil
}

// Start подключает бота. Подключение идёт без m.mu: остальные операции
// дашборда в это время не ждут; Stop прерывает подключение.
func (m *Manager) Start(ctx context.Context, id string) error {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	cfg, err := ConfigFor(*rec)
	if err != nil {
		return &store.ValidationError{Problems: []string{"config: " + err.Error()}}
	}

	m.mu.Lock()
	if _, ok := m.running[id]; ok {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(m.ctx)
	inst := &instance{cancel: cancel}
	m.running[id] = inst
	m.mu.Unlock()

	if err := m.store.UpdateStatus(ctx, id, store.StatusStarting); err != nil {
		m.release(id, inst)
		return err
	}
	m.hub.Console(id, "info", "system", "Bot đang khởi động...")

	r, err := m.factory(runCtx, id, cfg, statusSink{m: m, id: id})
	if err == nil {
		err = r.Start(runCtx)
		if err == nil && !m.publishRunner(id, inst, r) {
			// остановлен, пока подключался
			r.Stop()
			return fmt.Errorf("start %s: %w", rec.Name, context.Canceled)
		}
	}
	if err != nil {
		stopped := !m.release(id, inst)
		m.log.Warn("bot start failed", zap.String("botId", id), zap.Error(err))
		if !stopped {
			if uerr := m.store.UpdateStatus(ctx, id, store.StatusError); uerr != nil {
				m.log.Warn("status update failed", zap.String("botId", id), zap.Error(uerr))
			}
		}
		return fmt.Errorf("start %s: %w", rec.Name, err)
	}
	m.log.Info("bot started", zap.String("botId", id), zap.String("name", rec.Name))
	return m.store.UpdateStatus(ctx, id, store.StatusOnline)
}

// publishRunner делает запущенного бота доступным командам; false — его уже остановили.
func (m *Manager) publishRunner(id string, inst *instance, r Runner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[id] != inst {
		return false
	}
	inst.r = r
	return true
}

// release снимает неудачный запуск; false — запись уже снял Stop.
func (m *Manager) release(id string, inst *instance) bool {
	inst.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[id] != inst {
		return false
	}
	delete(m.running, id)
	return true
}

// Stop останавливает бота; незапущенный бот — не ошибка.
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	inst, ok := m.running[id]
	var r Runner
	if ok {
		r = inst.r
		delete(m.running, id)
	}
	m.mu.Unlock()

	if !ok {
		_, err := m.store.Get(ctx, id)
		return err
	}
	inst.cancel()
	if r != nil {
		r.Stop()
	}
	m.statuses.Invalidate(id)
	m.hub.Console(id, "success", "system", "Bot đã dừng.")
	m.log.Info("bot stopped", zap.String("botId", id))
	return m.store.UpdateStatus(ctx, id, store.StatusOffline)
}

// StopAll — при остановке сервера.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.Stop(ctx, id); err != nil {
			m.log.Warn("stop failed", zap.String("botId", id), zap.Error(err))
		}
	}
}

// Delete останавливает и удаляет бота.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.Stop(ctx, id); err != nil {
		return err
	}
	return m.store.Delete(ctx, id)
}

// UpdateConfig сохраняет конфиг; запущенный бот перезапускается с новым.
func (m *Manager) UpdateConfig(ctx context.Context, rec *store.Bot) error {
	if _, err := ConfigFor(*rec); err != nil {
		return &store.ValidationError{Problems: []string{"config: " + err.Error()}}
	}
	if err := m.store.Update(ctx, rec); err != nil {
		return err
	}
	if !m.IsRunning(rec.ID) {
		return nil
	}
	if err := m.Stop(ctx, rec.ID); err != nil {
		return err
	}
	return m.Start(ctx, rec.ID)
}

// IsRunning — бот подключён (подключающийся ещё не считается).
func (m *Manager) IsRunning(id string) bool {
	_, err := m.runner(id)
	return err == nil
}

func (m *Manager) runner(id string) (Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.running[id]
	if !ok || inst.r == nil {
		return nil, ErrNotRunning
	}
	return inst.r, nil
}

// Status — последний снимок; устаревший или отсутствующий значит offline.
func (m *Manager) Status(id string) (bot.Status, bool) {
	return m.statuses.Get(id)
}

// Command выполняет чат-команду от имени sender.
func (m *Manager) Command(id, sender, text string) error {
	r, err := m.runner(id)
	if err != nil {
		return err
	}
	return r.HandleCommand(sender, text)
}

// Say пишет в чат от имени бота.
func (m *Manager) Say(id, text string) error {
	r, err := m.runner(id)
	if err != nil {
		return err
	}
	return r.Say(text)
}

// Players — онлайн-список с сервера бота.
func (m *Manager) Players(id string) (string, error) {
	r, err := m.runner(id)
	if err != nil {
		return "", err
	}
	return r.Players(), nil
}

// Owner — от чьего имени выполнять команды из дашборда.
func (m *Manager) Owner(ctx context.Context, id string) string {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return consoleSender
	}
	cfg, err := ConfigFor(*rec)
	if err != nil || cfg.Owner == "" {
		return consoleSender
	}
	return cfg.Owner
}

func (m *Manager) publish(id string, st bot.Status) {
	m.statuses.Set(id, st, 0)
	m.hub.Send(Message{Type: "status", BotID: id, Status: &st, Timestamp: st.Timestamp})
}

// statusSink — bot.StatusSink конкретного бота.
type statusSink struct {
	m  *Manager
	id string
}

func (s statusSink) PublishStatus(st bot.Status) { s.m.publish(s.id, st) }
