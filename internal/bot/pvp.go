package bot

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

const (
	pvpTeleportDist  = 20
	pvpTeleportEvery = 10 * time.Second
	pvpAttackRange   = 3.5
)

type pvp struct {
	b      *Bot
	target string
	pro    bool
	lastTP time.Time
	hits   int
}

// PVP — драться с игроком; pro добавляет заряд ветра, булаву и обход за спину.
func (b *Bot) PVP(target string, pro bool) Activity {
	return &pvp{b: b, target: target, pro: pro}
}

func (p *pvp) Mode() Mode              { return ModePVP }
func (p *pvp) Interval() time.Duration { return 500 * time.Millisecond }
func (p *pvp) targetName() string      { return p.target }

func (p *pvp) Begin(context.Context) error {
	name, ok := p.b.resolvePlayer(p.target)
	if !ok {
		return fmt.Errorf("%s: %w", p.target, errPlayerNotFound)
	}
	p.target = name
	p.b.ensureWeapon()
	if p.pro {
		p.b.say(fmt.Sprintf("⚔️ PVP PRO với %s! Chuẩn bị đi nhé 😈", name))
	} else {
		p.b.say(fmt.Sprintf("⚔️ Bắt đầu PVP với %s!", name))
	}
	p.b.setStatus("pvp " + name)
	return nil
}

func (p *pvp) End() {
	p.b.log.Info("pvp finished", zap.String("target", p.target), zap.Int("hits", p.hits))
}

func (p *pvp) Tick(ctx context.Context) error {
	b := p.b
	if !p.b.playerOnline(p.target) {
		b.say(fmt.Sprintf("🏆 %s đã rời trận! Tớ thắng rồi 😎", p.target))
		return ErrDone
	}
	enemy, ok := b.w.PlayerEntity(p.target)
	if ok && enemy.Position.Y < 0 {
		b.say(fmt.Sprintf("🏆 %s rơi khỏi thế giới! Tớ thắng rồi 😎", p.target))
		return ErrDone
	}

	// с золотым яблоком не отступаем: съедаем и дерёмся дальше
	health := b.w.Health()
	apple, hasApple := game.FindItem(b.w.Inventory(), func(it game.Item) bool { return game.IsGoldenApple(it.Name) })
	switch {
	case health < 10 && hasApple:
		p.consume(ctx, apple)
	case health < 8 && ok:
		return p.retreat(ctx, enemy.Position)
	}

	if !ok || b.w.Position().Distance(enemy.Position) > pvpTeleportDist {
		if time.Since(p.lastTP) >= pvpTeleportEvery {
			p.lastTP = time.Now()
			if _, err := b.teleportTo(ctx, p.target, pvpTeleportDist); err != nil {
				return err
			}
		}
		if !ok {
			return nil
		}
	}

	if p.pro {
		return p.proTick(ctx, enemy)
	}
	return p.strike(ctx, enemy, enemy.Position)
}

// strike подходит на дистанцию удара и бьёт.
func (p *pvp) strike(ctx context.Context, enemy game.Entity, approach game.Vec3) error {
	b := p.b
	if b.w.Position().Distance(enemy.Position) > pvpAttackRange {
		if err := retryLater(b.moveNear(ctx, approach, 2, 2*time.Second)); err != nil {
			return err
		}
	}
	if b.w.Position().Distance(enemy.Position) > pvpAttackRange+1 {
		return nil
	}
	b.ensureWeapon()
	_ = b.w.LookAt(enemy.Position.Offset(0, 1.6, 0))
	if err := b.w.Attack(enemy.ID); err != nil {
		return retryLater(err)
	}
	p.hits++
	b.touch()
	return nil
}

// proTick: заряд ветра и прыжок, булава в воздухе, заход за спину.
func (p *pvp) proTick(ctx context.Context, enemy game.Entity) error {
	b := p.b
	inv := b.w.Inventory()
	if b.w.OnGround() {
		if charge, ok := game.FindItem(inv, func(it game.Item) bool { return it.Name == "wind_charge" }); ok &&
			b.w.Position().Distance(enemy.Position) <= pvpAttackRange {
			if err := b.w.Equip(charge, game.SlotHand); err == nil {
				_ = b.w.LookAt(b.w.Position().Offset(0, -1, 0))
				_ = b.w.Jump()
				_ = b.w.UseItem()
			}
		}
	} else if mace, ok := game.FindItem(inv, func(it game.Item) bool { return it.Name == "mace" }); ok {
		if err := b.w.Equip(mace, game.SlotHand); err == nil {
			_ = b.w.LookAt(enemy.Position.Offset(0, 1, 0))
			if err := b.w.Attack(enemy.ID); err == nil {
				p.hits++
				b.touch()
			}
			return nil
		}
	}
	return p.strike(ctx, enemy, behind(b.w.Position(), enemy.Position, 2))
}

// behind — точка на dist блоков за целью (с противоположной от нас стороны).
func behind(self, target game.Vec3, dist float64) game.Vec3 {
	dx, dz := target.X-self.X, target.Z-self.Z
	n := math.Hypot(dx, dz)
	if n < 0.01 {
		return target
	}
	return target.Offset(dx/n*dist, 0, dz/n*dist)
}

// retreat отбегает от врага на 5 блоков и ест.
func (p *pvp) retreat(ctx context.Context, enemy game.Vec3) error {
	b := p.b
	pos := b.w.Position()
	dx, dz := pos.X-enemy.X, pos.Z-enemy.Z
	n := math.Hypot(dx, dz)
	if n < 0.01 {
		dx, dz, n = 1, 0, 1
	}
	goal := pos.Offset(dx/n*5, 0, dz/n*5)
	if err := retryLater(b.moveNear(ctx, goal, 1, 2*time.Second)); err != nil {
		return err
	}
	if food, ok := pickFood(b.w.Inventory(), b.w.Health()); ok {
		p.consume(ctx, food)
	}
	return nil
}

func (p *pvp) consume(ctx context.Context, food game.Item) {
	b := p.b
	if !b.eating.CompareAndSwap(false, true) {
		return
	}
	defer b.eating.Store(false)
	if err := b.w.Equip(food, game.SlotHand); err != nil {
		return
	}
	if err := b.w.Consume(ctx); err != nil {
		b.log.Debug("pvp eat failed", zap.Error(err))
	}
	b.ensureWeapon()
}
