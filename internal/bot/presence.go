package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// после стольких неудачных проверок подряд клиент переподключается
const presenceMaxFails = 3

// checkPresence — бот на сервере и отвечает (есть позиция)?
func (b *Bot) checkPresence(ctx context.Context) {
	if b.w.Connected() && b.w.Position() != (game.Vec3{}) {
		b.presenceFail.Store(0)
		return
	}
	n := b.presenceFail.Add(1)
	b.log.Debug("presence check failed", zap.Int32("fails", n))
	if n < presenceMaxFails {
		return
	}
	b.presenceFail.Store(0)
	if b.reconnector == nil {
		return
	}
	b.log.Warn("bot is not responding, reconnecting")
	rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := b.reconnector.Reconnect(rctx); err != nil {
		b.log.Warn("reconnect failed", zap.Error(err))
	}
}
