package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message — кадр консоли в обе стороны.
type Message struct {
	Type      string      `json:"type"` // welcome | console | status | command
	BotID     string      `json:"botId,omitempty"`
	Level     string      `json:"level,omitempty"`
	Message   string      `json:"message,omitempty"`
	Source    string      `json:"source,omitempty"`
	Command   string      `json:"command,omitempty"`
	Status    *bot.Status `json:"status,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub рассылает сообщения всем подключённым консолям.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}

	// команды из консоли
	OnCommand func(m Message)
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// SetLogger — логгер обычно строится уже с хабом в качестве sink.
func (h *Hub) SetLogger(l *zap.Logger) { h.log = l }

// Run обслуживает подписчиков до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// не успевает читать
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Send ставит сообщение в рассылку; при переполнении сообщение теряется.
// Сам ничего не логирует: сюда же приходят записи логгера.
func (h *Hub) Send(m Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// Broadcast — logging.Sink: записи логов уходят в консоль.
func (h *Hub) Broadcast(e logging.Entry) {
	m := Message{
		Type:      "console",
		BotID:     "system",
		Level:     e.Level,
		Message:   e.Message,
		Source:    "bot",
		Timestamp: e.Time,
	}
	if id, ok := e.Fields["botId"]; ok {
		m.BotID = fmt.Sprint(id)
	} else {
		m.Source = "system"
	}
	if e.Logger != "" {
		m.Source = e.Logger
	}
	h.Send(m)
}

// Console — строка в консоль от имени системы.
func (h *Hub) Console(botID, level, source, text string) {
	h.Send(Message{Type: "console", BotID: botID, Level: level, Message: text, Source: source})
}

// ServeHTTP поднимает websocket и держит его до закрытия.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	welcome, _ := json.Marshal(Message{
		Type:      "welcome",
		Message:   "🎮 Chào mừng đến với bot loli! 💕",
		Timestamp: time.Now(),
	})
	c.send <- welcome

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	h.log.Debug("console connected", zap.String("remote", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var m Message
		if err := json.Unmarshal(payload, &m); err != nil {
			h.log.Debug("discarding malformed console message", zap.Error(err))
			continue
		}
		if m.Type == "command" && m.BotID != "" && h.OnCommand != nil {
			h.OnCommand(m)
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	t := time.NewTicker(pingPeriod)
	defer func() {
		t.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-t.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
