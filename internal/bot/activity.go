package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/EgorLis/botlolicute/internal/game"
)

var (
	errPlayerNotFound = errors.New("player not found")
	errNoPickaxe      = errors.New("no pickaxe")
)

// moveNear идёт к pos, но не дольше limit: цель за это время могла сместиться.
func (b *Bot) moveNear(ctx context.Context, pos game.Vec3, rng float64, limit time.Duration) error {
	mctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	err := b.w.Goto(mctx, pos, rng)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil
	}
	return err
}

// swing бьёт сущность n раз с паузой между ударами.
func (b *Bot) swing(ctx context.Context, id int32, n int) error {
	for i := 0; i < n; i++ {
		if _, ok := b.w.Entity(id); !ok {
			return nil
		}
		if err := b.w.Attack(id); err != nil {
			return err
		}
		if err := game.Sleep(ctx, 100*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// wander уходит на случайные dist блоков (от min до max) от текущей позиции.
func (b *Bot) wander(ctx context.Context, min, max float64, limit time.Duration) error {
	angle := rand.Float64() * 2 * math.Pi
	return b.walkHeading(ctx, angle, min+rand.Float64()*(max-min), limit)
}

func (b *Bot) walkHeading(ctx context.Context, angle, dist float64, limit time.Duration) error {
	pos := b.w.Position()
	goal := pos.Offset(math.Cos(angle)*dist, 0, math.Sin(angle)*dist)
	err := b.moveNear(ctx, goal, 2, limit)
	if errors.Is(err, game.ErrNoPath) {
		return nil
	}
	return err
}

// teleportTo шлёт /tp к игроку и через TeleportCheck проверяет, подошли ли ближе maxDist.
func (b *Bot) teleportTo(ctx context.Context, player string, maxDist float64) (bool, error) {
	b.say(fmt.Sprintf("/tp %s %s", b.w.Username(), player))
	if err := game.Sleep(ctx, b.config().Modes.TeleportCheck); err != nil {
		return false, err
	}
	e, ok := b.w.PlayerEntity(player)
	if !ok {
		return false, nil
	}
	return b.w.Position().Distance(e.Position) <= maxDist, nil
}

// resolvePlayer ищет игрока по имени: точно, без учёта регистра, с точкой
// (Bedrock-игроки через Geyser), по подстроке.
func (b *Bot) resolvePlayer(name string) (string, bool) {
	players := b.w.Players()
	lower := strings.ToLower(strings.TrimPrefix(name, "."))
	for _, p := range players {
		if p == name {
			return p, true
		}
	}
	for _, p := range players {
		if strings.ToLower(strings.TrimPrefix(p, ".")) == lower {
			return p, true
		}
	}
	for _, p := range players {
		pl := strings.ToLower(p)
		if lower != "" && (strings.Contains(pl, lower) || strings.Contains(lower, pl)) {
			return p, true
		}
	}
	return "", false
}

// requireNearbyPlayer — игрок известен и его сущность в зоне видимости.
func (b *Bot) requireNearbyPlayer(name string) (string, error) {
	p, ok := b.resolvePlayer(name)
	if !ok {
		return "", fmt.Errorf("%s: %w", name, errPlayerNotFound)
	}
	if _, ok := b.w.PlayerEntity(p); !ok {
		return "", fmt.Errorf("%s is too far away: %w", p, errPlayerNotFound)
	}
	return p, nil
}

// retryLater — «не дошли» и обрыв связи в режимах не ошибка: попробуем на следующем тике.
func retryLater(err error) error {
	if errors.Is(err, game.ErrNoPath) || errors.Is(err, game.ErrNotConnected) {
		return nil
	}
	return err
}

func (b *Bot) equipPickaxe() bool { return b.equipTool(game.IsPickaxe) }

// ensureWeapon берёт оружие, если в руке не оно.
func (b *Bot) ensureWeapon() {
	if held, ok := b.w.HeldItem(); ok && game.WeaponScore(held.Name) > 0 {
		return
	}
	b.equipBestWeapon()
}
