package bot

import (
	"context"
	"time"

	"github.com/EgorLis/botlolicute/internal/game"
)

type protect struct {
	b        *Bot
	player   string
	lastMove time.Time
}

// Protect — держаться рядом с игроком и бить враждебных мобов вокруг.
func (b *Bot) Protect(player string) Activity { return &protect{b: b, player: player} }

func (p *protect) Mode() Mode              { return ModeProtecting }
func (p *protect) Interval() time.Duration { return 800 * time.Millisecond }
func (p *protect) targetName() string      { return p.player }
func (p *protect) resume() Activity        { return p.b.Protect(p.player) }

func (p *protect) Begin(context.Context) error {
	p.b.setStatus("protecting " + p.player)
	return nil
}

func (p *protect) End() {}

func (p *protect) Tick(ctx context.Context) error {
	b := p.b
	target, ok := b.w.PlayerEntity(p.player)
	if !ok {
		b.say("🥺 Không thấy " + p.player + " nữa, dừng bảo vệ!")
		return ErrDone
	}
	me := b.w.Position()
	toPlayer := me.Distance(target.Position)
	health := b.w.Health()

	b.tryBuff(ctx, 15*time.Second)

	mob, hasMob := game.NearestEntity(b.w.Entities(), me, 15, game.IsHostile)

	switch {
	case toPlayer > followTeleportDist:
		near, err := b.teleportTo(ctx, p.player, followTPFailDist)
		if err != nil {
			return err
		}
		if !near {
			return retryLater(b.moveNear(ctx, target.Position, 3, 3*time.Second))
		}

	case hasMob && health > 6 && !b.eating.Load():
		b.ensureWeapon()
		toMob := me.Distance(mob.Position)
		switch {
		case toPlayer > 8:
			return retryLater(b.moveNear(ctx, target.Position, 3, 2*time.Second))
		case toMob > 4:
			// за мобом идём, только если он рядом с игроком
			if target.Position.Distance(mob.Position) <= 6 {
				return retryLater(b.moveNear(ctx, mob.Position, 2, 2*time.Second))
			}
			return retryLater(b.moveNear(ctx, target.Position, 3, 2*time.Second))
		default:
			b.w.StopMoving()
			_ = b.w.LookAt(mob.Position.Offset(0, 1, 0))
			return retryLater(b.swing(ctx, mob.ID, 5))
		}

	case health <= 6:
		b.setStatus("retreating to " + p.player)
		return retryLater(b.moveNear(ctx, target.Position, 2, 2*time.Second))

	case toPlayer > 4 && time.Since(p.lastMove) > 2*time.Second:
		p.lastMove = time.Now()
		return retryLater(b.moveNear(ctx, target.Position, 2, 2*time.Second))
	}
	return nil
}
