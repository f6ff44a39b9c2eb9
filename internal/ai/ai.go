// Package ai — ответы бота на свободный текст в чате через Gemini или OpenAI.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("too many requests from this player")

const (
	// одна строка чата
	maxReplyRunes = 240
	userCooldown  = 5 * time.Second
	replyTokens   = 100
	planTokens    = 600
	temperature   = 0.8
)

// персона бота
const persona = `Bạn là bot Minecraft tên Loli, rất đáng yêu và kawaii!
Hãy trả lời tự nhiên: xưng tớ, gọi cậu, dùng emoji cute (💕 🌸 ✨ uwu),
thêm "nè", "mà", "kyaa", trả lời ngắn gọn trong một dòng chat.`

type Config struct {
	Provider string // gemini | openai
	Model    string
	APIKey   string
	BaseURL  string // только openai
}

// generator — один запрос к модели; limit — потолок токенов ответа.
type generator interface {
	generate(ctx context.Context, system, prompt string, limit int32) (string, error)
}

// Chat — Responder для бота: лимит запросов на игрока и обрезка ответа.
type Chat struct {
	gen generator
	log *zap.Logger
	now func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// New выбирает провайдера по cfg.Provider (по умолчанию Gemini).
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Chat, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai: api key is required")
	}
	var (
		gen generator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		gen, err = newGemini(ctx, cfg)
	case "openai":
		gen = newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newChat(gen, log), nil
}

func newChat(gen generator, log *zap.Logger) *Chat {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chat{gen: gen, log: log, now: time.Now, last: map[string]time.Time{}}
}

func (c *Chat) Reply(ctx context.Context, user, message string) (string, error) {
	if !c.allow(user) {
		return "", ErrRateLimited
	}
	prompt := fmt.Sprintf("%s nói: %q", user, message)
	c.log.Debug("ai request", zap.String("user", user), zap.String("message", message))
	text, err := c.gen.generate(ctx, persona, prompt, replyTokens)
	if err != nil {
		return "", fmt.Errorf("ai reply: %w", err)
	}
	return trimReply(text), nil
}

func (c *Chat) allow(user string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(user)
	now := c.now()
	if t, ok := c.last[key]; ok && now.Sub(t) < userCooldown {
		return false
	}
	c.last[key] = now
	return true
}

// trimReply сводит ответ к одной строке не длиннее maxReplyRunes.
func trimReply(s string) string {
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
	s = strings.TrimFunc(s, unicode.IsSpace)
	r := []rune(s)
	if len(r) > maxReplyRunes {
		s = strings.TrimRightFunc(string(r[:maxReplyRunes]), unicode.IsSpace)
	}
	return s
}
