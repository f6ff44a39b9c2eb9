package roster

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Tnze/go-mc/bot"
	"go.uber.org/zap"
)

// Pinger делает server-list ping и возвращает сырой JSON статуса.
type Pinger func(ctx context.Context, addr string) ([]byte, time.Duration, error)

type Client struct {
	addr     string
	interval time.Duration
	ping     Pinger
	log      *zap.Logger

	mu              sync.RWMutex
	playersToDetect map[string]string // кого отслеживаем (lower->имя); пусто — всех
	lastPlayersScan map[string]string // последний снимок (lower->имя)
	latest          ServerStatus
	latency         time.Duration
	running         bool
	stopCh          chan struct{}
	done            chan struct{}
}

type Option func(*Client)

func WithInterval(d time.Duration) Option { return func(c *Client) { c.interval = d } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

func WithPinger(p Pinger) Option { return func(c *Client) { c.ping = p } }

// WithPlayers — отслеживать только этих игроков.
func WithPlayers(names ...string) Option { return func(c *Client) { c.AddPlayer(names...) } }

// NewClient создаёт поллер сервера addr (host:port).
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr:            addr,
		interval:        30 * time.Second,
		ping:            bot.PingAndListContext,
		log:             zap.NewNop(),
		playersToDetect: map[string]string{},
		lastPlayersScan: map[string]string{},
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With(zap.String("server", addr))
	return c
}

// AddPlayer добавляет игроков для отслеживания.
func (c *Client) AddPlayer(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			c.playersToDetect[strings.ToLower(n)] = n
		}
	}
}

// RemovePlayer убирает игрока из отслеживаемых.
func (c *Client) RemovePlayer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.playersToDetect, strings.ToLower(name))
}

// Players — отслеживаемые игроки в сети на момент последнего скана.
func (c *Client) Players() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.lastPlayersScan))
	for _, name := range c.lastPlayersScan {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Latest — последний успешный статус сервера и пинг.
func (c *Client) Latest() (ServerStatus, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.latency
}

// Online — кто из отслеживаемых сейчас на сервере (имя -> онлайн).
// Без списка отслеживания — все из последнего скана.
func (c *Client) Online() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.playersToDetect) == 0 {
		status := make(map[string]bool, len(c.lastPlayersScan))
		for _, name := range c.lastPlayersScan {
			status[name] = true
		}
		return status
	}
	status := make(map[string]bool, len(c.playersToDetect))
	for key, name := range c.playersToDetect {
		_, online := c.lastPlayersScan[key]
		status[name] = online
	}
	return status
}

// FormatOnlineInfo — строка для чата: кто в сети, кто нет.
func FormatOnlineInfo(players map[string]bool) string {
	var online, offline []string
	for name, isOnline := range players {
		if isOnline {
			online = append(online, name)
		} else {
			offline = append(offline, name)
		}
	}
	sort.Strings(online)
	sort.Strings(offline)
	return "Online: " + strings.Join(online, ", ") + " | Offline: " + strings.Join(offline, ", ")
}
