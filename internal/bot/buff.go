package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// permission — права на /effect: проверяются один раз по факту (выросло ли здоровье).
type permission struct {
	mu        sync.Mutex
	state     Permission
	lastProbe time.Time
}

func (p *permission) get() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// tryBuff даёт себе регенерацию, если здоровье ниже 8 и с прошлой попытки
// прошло не меньше gap. Возвращает true, если бафф (вероятно) сработал.
func (b *Bot) tryBuff(ctx context.Context, gap time.Duration) bool {
	health := b.w.Health()
	if health >= 8 {
		return false
	}
	p := &b.buff
	p.mu.Lock()
	if p.state == PermDenied || (!p.lastProbe.IsZero() && time.Since(p.lastProbe) < gap) {
		p.mu.Unlock()
		return false
	}
	p.lastProbe = time.Now()
	state := p.state
	p.mu.Unlock()

	name := b.w.Username()
	b.say(fmt.Sprintf("/effect give %s minecraft:regeneration 10 2", name))
	b.say(fmt.Sprintf("/effect give %s minecraft:absorption 30 1", name))
	if state == PermGranted {
		return true
	}

	if err := game.Sleep(ctx, b.config().Modes.BuffCheck); err != nil {
		return false
	}
	granted := b.w.Health() > health
	p.mu.Lock()
	if granted {
		p.state = PermGranted
	} else {
		p.state = PermDenied
	}
	p.mu.Unlock()
	b.log.Info("effect permission probed", zap.Bool("granted", granted))
	return granted
}
