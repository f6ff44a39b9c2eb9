package bot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/EgorLis/botlolicute/internal/mcclient"
)

type ModesConfig struct {
	// переопределение интервалов режимов: following: 1s
	Intervals map[Mode]time.Duration `yaml:"intervals,omitempty"`
	// через сколько проверять, сработал ли /tp
	TeleportCheck time.Duration `yaml:"teleport_check,omitempty"`
	// через сколько проверять, сработал ли /effect
	BuffCheck time.Duration `yaml:"buff_check,omitempty"`
	// радиус поиска структур в explore
	ScanRadius float64 `yaml:"scan_radius,omitempty"`
	// пауза между шагами плана ИИ
	PlanPause time.Duration `yaml:"plan_pause,omitempty"`
	// пауза между командами /enchant
	EnchantPause time.Duration `yaml:"enchant_pause,omitempty"`
}

type RespawnConfig struct {
	SettleDelay     time.Duration `yaml:"settle_delay,omitempty"`
	PermissionCheck time.Duration `yaml:"permission_check,omitempty"`
	TeleportCheck   time.Duration `yaml:"teleport_check,omitempty"`
	RetryDelay      time.Duration `yaml:"retry_delay,omitempty"`
	MaxFailures     int           `yaml:"max_failures,omitempty"`
}

type AIConfig struct {
	Provider string `yaml:"provider,omitempty"` // gemini | openai | ""
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

type DiscordConfig struct {
	Token     string `yaml:"token,omitempty"`
	ChannelID string `yaml:"channel_id,omitempty"`
}

type HooksConfig struct {
	OnDeath string `yaml:"on_death,omitempty"` // "none" или "death.mp3"
	// звуки на остальные события: structure: found.mp3
	Sounds map[string]string `yaml:"sounds,omitempty"`
}

type Config struct {
	Server  mcclient.Config `yaml:"server"`
	Owner   string          `yaml:"owner,omitempty"`
	Modes   ModesConfig     `yaml:"modes,omitempty"`
	Respawn RespawnConfig   `yaml:"respawn,omitempty"`
	AI      AIConfig        `yaml:"ai,omitempty"`
	Discord DiscordConfig   `yaml:"discord,omitempty"`
	Hooks   HooksConfig     `yaml:"hooks,omitempty"`
}

func (c Config) withDefaults() Config {
	if c.Modes.TeleportCheck == 0 {
		c.Modes.TeleportCheck = 2500 * time.Millisecond
	}
	if c.Modes.BuffCheck == 0 {
		c.Modes.BuffCheck = 3 * time.Second
	}
	if c.Modes.ScanRadius == 0 {
		c.Modes.ScanRadius = 48
	}
	if c.Modes.PlanPause == 0 {
		c.Modes.PlanPause = time.Second
	}
	if c.Modes.EnchantPause == 0 {
		c.Modes.EnchantPause = 1200 * time.Millisecond
	}
	if c.Respawn.SettleDelay == 0 {
		c.Respawn.SettleDelay = 2 * time.Second
	}
	if c.Respawn.PermissionCheck == 0 {
		c.Respawn.PermissionCheck = 2 * time.Second
	}
	if c.Respawn.TeleportCheck == 0 {
		c.Respawn.TeleportCheck = 3 * time.Second
	}
	if c.Respawn.RetryDelay == 0 {
		c.Respawn.RetryDelay = 2 * time.Second
	}
	if c.Respawn.MaxFailures == 0 {
		c.Respawn.MaxFailures = 3
	}
	return c
}

// ApplyEnv — переменные окружения перекрывают файл.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("MINECRAFT_SERVER_HOST"); v != "" {
		c.Server.Server = v
	}
	if v := os.Getenv("MINECRAFT_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("MINECRAFT_BOT_USERNAME"); v != "" {
		c.Server.Username = v
	}
	if v := os.Getenv("MINECRAFT_VERSION"); v != "" {
		c.Server.Version = v
	}
	switch {
	case c.AI.APIKey != "":
	case os.Getenv("GEMINI_API_KEY") != "":
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		if c.AI.Provider == "" {
			c.AI.Provider = "gemini"
		}
	case os.Getenv("OPENAI_API_KEY") != "":
		c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		if c.AI.Provider == "" {
			c.AI.Provider = "openai"
		}
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" && c.Discord.Token == "" {
		c.Discord.Token = v
	}
	return c
}

// ParseConfig разбирает YAML (пустой текст — конфиг по умолчанию).
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(&c)
}

type configStore struct {
	mu   sync.Mutex
	path string
	data Config
}

func newConfigStore(path string) *configStore {
	return &configStore{path: path}
}

// LoadConfig читает файл конфига (создаёт пустой, если его нет) и применяет env.
func LoadConfig(path string) (Config, error) {
	cs := newConfigStore(path)
	if err := cs.Load(); err != nil {
		return Config{}, err
	}
	return cs.data.ApplyEnv(), nil
}

func (cs *configStore) Load() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	f := cs.path
	_ = os.MkdirAll(filepath.Dir(f), 0755)
	b, err := os.ReadFile(f)
	if err != nil {
		if os.IsNotExist(err) {
			return cs.saveLocked() // создаём пустой
		}
		return err
	}
	c, err := ParseConfig(b)
	if err != nil {
		return err
	}
	cs.data = c
	return nil
}

func (cs *configStore) Save() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.saveLocked()
}

func (cs *configStore) saveLocked() error {
	b, err := cs.data.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(cs.path, b, 0644)
}

func (cs *configStore) get() Config {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.data
}

// watch следит за файлом (через каталог: редакторы пишут через rename)
// и вызывает onChange после серии изменений.
func (cs *configStore) watch(ctx context.Context, wg *sync.WaitGroup, log *zap.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(cs.path)); err != nil {
		_ = w.Close()
		return err
	}
	target := filepath.Clean(cs.path)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.Close()
		const debounce = 300 * time.Millisecond
		var timer *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				if err := cs.Load(); err != nil {
					log.Warn("config reload failed", zap.Error(err))
					continue
				}
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher", zap.Error(err))
			}
		}
	}()
	return nil
}

// UseConfig загружает конфиг из файла и применяет его. Слежение за файлом
// живёт в пределах запуска: его поднимает Start (или сразу, если бот уже запущен).
func (b *Bot) UseConfig(path string) error {
	cs := newConfigStore(path)
	if err := cs.Load(); err != nil {
		return err
	}
	b.runMu.Lock()
	defer b.runMu.Unlock()
	b.cfg = cs
	b.applyConfig(cs.get())
	if b.stopCh != nil {
		b.watchConfig(b.ctx)
	}
	return nil
}

// watchConfig вызывается под runMu.
func (b *Bot) watchConfig(ctx context.Context) {
	cs := b.cfg
	err := cs.watch(ctx, &b.wg, b.log, func() {
		b.log.Info("config reloaded", zap.String("path", cs.path))
		b.applyConfig(cs.get())
	})
	if err != nil {
		b.log.Warn("config watch failed", zap.String("path", cs.path), zap.Error(err))
	}
}

// SaveConfig записывает текущий конфиг обратно в файл.
func (b *Bot) SaveConfig() error {
	if b.cfg == nil {
		return errNoConfig
	}
	return b.cfg.Save()
}

func (b *Bot) applyConfig(c Config) {
	c = c.ApplyEnv().withDefaults()
	alerts := b.buildAlerts(c.Hooks)
	b.confMu.Lock()
	b.conf = c
	b.alerts = alerts
	b.confMu.Unlock()
}

func (b *Bot) config() Config {
	b.confMu.RLock()
	defer b.confMu.RUnlock()
	return b.conf
}
