package bot

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

type farm struct {
	b          *Bot
	lastLogged time.Time
}

// Farm — бить ближайших мобов ради дропа.
func (b *Bot) Farm() Activity { return &farm{b: b} }

func (f *farm) Mode() Mode              { return ModeFarming }
func (f *farm) Interval() time.Duration { return 1500 * time.Millisecond }
func (f *farm) resume() Activity        { return f.b.Farm() }

func (f *farm) Begin(context.Context) error {
	f.b.say("🗡️ Bắt đầu farm tất cả mob")
	f.b.setStatus("farming mobs")
	return nil
}

func (f *farm) End() {}

func (f *farm) Tick(ctx context.Context) error {
	b := f.b
	b.equipBestWeapon()
	b.tryBuff(ctx, 10*time.Second)

	me := b.w.Position()
	mob, ok := game.NearestEntity(b.w.Entities(), me, 25, game.IsFarmable)
	if !ok {
		if rand.Float64() < 0.3 {
			return retryLater(b.wander(ctx, 3, 10, 4*time.Second))
		}
		return nil
	}
	if time.Since(f.lastLogged) > 10*time.Second {
		f.lastLogged = time.Now()
		b.log.Debug("farming", zap.String("mob", mob.Name), zap.Float64("dist", me.Distance(mob.Position)))
	}

	if me.Distance(mob.Position) > 6 {
		if err := retryLater(b.moveNear(ctx, mob.Position, 2, 2*time.Second)); err != nil {
			return err
		}
	}
	mob, ok = b.w.Entity(mob.ID)
	if !ok {
		return nil
	}
	if b.w.Position().Distance(mob.Position) <= 7 {
		_ = b.w.LookAt(mob.Position.Offset(0, 1, 0))
		if err := b.swing(ctx, mob.ID, 5); err != nil {
			return retryLater(err)
		}
		b.collectDrops(ctx, 8, 3)
	}
	return nil
}
