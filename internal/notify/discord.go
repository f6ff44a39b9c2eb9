// Package notify пересылает события бота в Discord.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// размер очереди; при переполнении события теряются
const queueSize = 64

var eventIcons = map[string]string{
	"connected":    "🟢",
	"disconnected": "🔴",
	"death":        "💀",
	"respawn":      "🔄",
	"mode":         "🎮",
	"structure":    "🏛️",
	"chest":        "📦",
	"build":        "🏗️",
	"player":       "👤",
}

// sender — часть discordgo.Session, которая нужна для отправки.
type sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type message struct {
	event, text string
}

type Discord struct {
	s       sender
	channel string
	prefix  string
	log     *zap.Logger

	queue chan message
	once  sync.Once
	wg    sync.WaitGroup
}

// NewDiscord создаёт сессию бота Discord; prefix — имя Minecraft-бота в сообщениях.
func NewDiscord(token, channelID, prefix string, log *zap.Logger) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, fmt.Errorf("discord: token and channel are required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return newDiscord(session, channelID, prefix, log), nil
}

func newDiscord(s sender, channelID, prefix string, log *zap.Logger) *Discord {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discord{
		s:       s,
		channel: channelID,
		prefix:  prefix,
		log:     log.With(zap.String("channel", channelID)),
		queue:   make(chan message, queueSize),
	}
}

// Start запускает отправку из очереди, пока ctx жив или очередь не закрыта.
func (d *Discord) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Discord) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-d.queue:
			if !ok {
				return
			}
			d.send(m)
		}
	}
}

func (d *Discord) send(m message) {
	if _, err := d.s.ChannelMessageSend(d.channel, d.format(m)); err != nil {
		d.log.Warn("discord send failed", zap.String("event", m.event), zap.Error(err))
		return
	}
	d.log.Debug("discord sent", zap.String("event", m.event))
}

func (d *Discord) format(m message) string {
	icon, ok := eventIcons[m.event]
	if !ok {
		icon = "ℹ️"
	}
	ts := time.Now().Format("15:04:05")
	if d.prefix == "" {
		return fmt.Sprintf("%s `%s` %s", icon, ts, m.text)
	}
	return fmt.Sprintf("%s `%s` **%s**: %s", icon, ts, d.prefix, m.text)
}

// Notify не блокирует: при полной очереди событие выбрасывается.
func (d *Discord) Notify(event, text string) {
	select {
	case d.queue <- message{event, text}:
	default:
		d.log.Warn("discord queue full, event dropped", zap.String("event", event))
	}
}

// Close закрывает очередь и ждёт отправки оставшегося.
func (d *Discord) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}
