package mcclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tnze/go-mc/bot"
	"github.com/google/uuid"

	"github.com/EgorLis/botlolicute/internal/game"
)

type Config struct {
	Server         string        `yaml:"server"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Version        string        `yaml:"version"`
	WorldHeight    int           `yaml:"world_height"`
	WorldMinY      int           `yaml:"world_min_y"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	StableAfter    time.Duration `yaml:"stable_after"`
	DigTime        time.Duration `yaml:"dig_time"`
	LoginTimeout   time.Duration `yaml:"login_timeout"`
}

// WithDefaults заполняет незаданные поля.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 25565
	}
	if c.Username == "" {
		c.Username = "botlolicute"
	}
	if c.Version == "" {
		c.Version = "1.20.2"
	}
	if c.WorldHeight == 0 {
		c.WorldHeight = 384
	}
	if c.WorldMinY == 0 {
		c.WorldMinY = -64
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 5
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.StableAfter == 0 {
		c.StableAfter = 10 * time.Minute
	}
	if c.DigTime == 0 {
		c.DigTime = 1200 * time.Millisecond
	}
	if c.LoginTimeout == 0 {
		c.LoginTimeout = 30 * time.Second
	}
	return c
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// Client — соединение с сервером Minecraft и модель мира вокруг бота.
type Client struct {
	cfg Config

	connMu sync.RWMutex
	mc     *bot.Client
	w      packetWriter
	closed atomic.Bool
	done   chan struct{}

	wmu          sync.Mutex    // сериализует запись пакетов
	watchStop    chan struct{} // стоп-канал сторожа активности
	lastActivity atomic.Int64
	seq          atomic.Int32 // sequence для действий с блоками

	mu       sync.RWMutex
	self     selfState
	entities map[int32]*game.Entity
	players  map[uuid.UUID]string
	inv      inventory
	chunks   *chunkStore
	screen   *screen
	screenCh chan *screen

	moveMu     sync.Mutex
	moveCancel context.CancelFunc
	moveGen    uint64

	// Probe проверяет доступность сервера перед реконнектом.
	Probe func(ctx context.Context, addr string) error

	// "События"
	OnConnecting   func()
	OnConnected    func()
	OnSpawn        func()
	OnDisconnected func(reason string)
	OnError        func(error)
	OnChat         func(sender, text string)
	OnDeath        func()
	OnHealth       func(health float64, food int)
	OnPlayerJoined func(name string)
	OnPlayerLeft   func(name string)
}

type selfState struct {
	entityID   int32
	pos        game.Vec3
	yaw        float32
	pitch      float32
	onGround   bool
	health     float64
	food       int
	timeOfDay  int64
	spawned    bool
	dead       bool
	kickReason string
}

func New(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		cfg:      cfg,
		entities: make(map[int32]*game.Entity),
		players:  make(map[uuid.UUID]string),
		inv:      newInventory(),
		chunks:   newChunkStore(cfg.WorldMinY, cfg.WorldHeight),
		screenCh: make(chan *screen, 1),
	}
}

func (c *Client) Config() Config { return c.cfg }

// Connect — логинится на сервер и запускает игровой цикл.
// Отмена ctx прерывает логин и останавливает цикл.
func (c *Client) Connect(ctx context.Context) error {
	if c.OnConnecting != nil {
		c.OnConnecting()
	}
	mc, err := c.dialAndSetup(ctx)
	if err != nil {
		return err
	}
	c.setConn(mc)
	c.closed.Store(false)
	c.done = make(chan struct{})

	if c.OnConnected != nil {
		c.OnConnected()
	}

	go c.gameLoop(ctx, c.done)
	return nil
}

// Disconnect закрывает соединение без реконнекта и ждёт выхода игрового цикла.
func (c *Client) Disconnect() {
	c.closed.Store(true)
	c.StopMoving()
	c.closeConn()
	if c.done != nil {
		select {
		case <-c.done:
		case <-time.After(5 * time.Second):
		}
	}
}

// Reconnect рвёт текущее соединение; игровой цикл переподключится сам.
// Если цикл уже завершён — подключаемся заново.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.closed.Load() {
		return c.Connect(ctx)
	}
	c.closeConn()
	return nil
}

func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.w != nil && !c.closed.Load()
}

func (c *Client) setConn(mc *bot.Client) {
	c.connMu.Lock()
	c.mc = mc
	if mc != nil {
		c.w = mc.Conn
	} else {
		c.w = nil
	}
	c.connMu.Unlock()
	c.touchActivity()
	c.startWatchdog()
}

func (c *Client) emitError(err error) {
	if c.OnError != nil && err != nil {
		c.OnError(err)
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%s@%s", c.cfg.Username, c.cfg.Addr())
}

var _ game.World = (*Client)(nil)
