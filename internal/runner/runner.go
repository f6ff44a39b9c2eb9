// Package runner собирает один экземпляр бота: клиент сервера, поведение,
// опрос списка игроков, ИИ-ответы и уведомления в Discord.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/ai"
	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/mcclient"
	"github.com/EgorLis/botlolicute/internal/notify"
	"github.com/EgorLis/botlolicute/internal/roster"
)

var ErrNotRunning = errors.New("bot is not running")

type Options struct {
	// ID записи в реестре; пусто для одиночного запуска
	ID     string
	Config bot.Config
	// файл конфига: перечитывается при изменении
	ConfigPath string
	Logger     *zap.Logger
	Status     bot.StatusSink
	// дополнительные получатели событий
	Notifiers []notify.Notifier
}

type Instance struct {
	configPath string
	log        *zap.Logger

	client  *mcclient.Client
	bot     *bot.Bot
	roster  *roster.Client
	discord *notify.Discord
	events  notify.Fanout

	mu      sync.Mutex
	running bool
}

func New(ctx context.Context, o Options) (*Instance, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.ID != "" {
		log = log.With(zap.String("botId", o.ID))
	}
	cfg := o.Config.ApplyEnv()

	client := mcclient.New(cfg.Server)
	client.Probe = roster.Reachable
	in := &Instance{
		configPath: o.ConfigPath,
		log:        log,
		client:     client,
		events:     append(notify.Fanout{}, o.Notifiers...),
	}

	if cfg.Discord.Token != "" {
		d, err := notify.NewDiscord(cfg.Discord.Token, cfg.Discord.ChannelID, client.Config().Username, log)
		if err != nil {
			return nil, fmt.Errorf("discord: %w", err)
		}
		in.discord = d
		in.events = append(in.events, d)
	}

	opts := []bot.Option{
		bot.WithLogger(log),
		bot.WithConfig(cfg),
		bot.WithReconnector(client),
		bot.WithNotifier(in.events),
	}
	if o.Status != nil {
		opts = append(opts, bot.WithStatusSink(o.Status))
	}
	if cfg.AI.APIKey != "" {
		chat, err := ai.New(ctx, ai.Config(cfg.AI), log.Named("ai"))
		if err != nil {
			log.Warn("ai responder disabled", zap.Error(err))
		} else {
			opts = append(opts, bot.WithResponder(chat), bot.WithPlanner(chat))
		}
	}
	in.bot = bot.New(client, opts...)
	in.roster = roster.NewClient(client.Config().Addr(), roster.WithLogger(log.Named("roster")))

	in.wire()
	return in, nil
}

// wire связывает события клиента с ботом.
func (in *Instance) wire() {
	c, b, log := in.client, in.bot, in.log
	c.OnConnecting = func() { log.Info("connecting", zap.Stringer("client", c)) }
	c.OnConnected = b.OnConnected
	c.OnSpawn = b.OnSpawn
	c.OnDeath = b.OnDeath
	c.OnDisconnected = b.OnDisconnected
	c.OnChat = b.OnChat
	c.OnPlayerJoined = b.OnPlayerJoined
	c.OnPlayerLeft = b.OnPlayerLeft
	c.OnError = func(err error) { log.Warn("client error", zap.Error(err)) }
}

// Start подключается к серверу и запускает все циклы бота.
func (in *Instance) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.running {
		return nil
	}
	if in.configPath != "" {
		if err := in.bot.UseConfig(in.configPath); err != nil {
			return fmt.Errorf("config %s: %w", in.configPath, err)
		}
	}
	if err := in.bot.Start(ctx); err != nil {
		return err
	}
	if in.discord != nil {
		in.discord.Start(ctx)
	}
	if err := in.client.Connect(ctx); err != nil {
		in.bot.Stop()
		if in.discord != nil {
			in.discord.Close()
		}
		return fmt.Errorf("connect %s: %w", in.client, err)
	}
	if err := in.roster.StartScan(ctx, func(e roster.Event) {
		in.events.Notify("player", e.String())
	}); err != nil {
		in.log.Warn("player scan disabled", zap.Error(err))
	}
	in.running = true
	in.log.Info("instance started", zap.Stringer("client", in.client))
	return nil
}

func (in *Instance) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.running {
		return
	}
	in.running = false
	in.roster.Stop()
	in.bot.Stop()
	in.client.Disconnect()
	if in.discord != nil {
		in.discord.Close()
	}
	in.log.Info("instance stopped")
}

func (in *Instance) Status() bot.Status { return in.bot.Status() }

func (in *Instance) HandleCommand(sender, text string) error {
	if !in.isRunning() {
		return ErrNotRunning
	}
	return in.bot.HandleCommand(sender, text)
}

// Say пишет в чат от имени бота.
func (in *Instance) Say(text string) error {
	if !in.isRunning() {
		return ErrNotRunning
	}
	return in.client.Chat(text)
}

// Players — кто онлайн по последнему опросу сервера.
func (in *Instance) Players() string {
	return roster.FormatOnlineInfo(in.roster.Online())
}

func (in *Instance) isRunning() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.running
}
