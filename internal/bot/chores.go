package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

var (
	errNoChest = errors.New("no chest nearby")
	errNoBed   = errors.New("no bed nearby")
	errNoItem  = errors.New("item not found")
)

func isBed(name string) bool { return strings.HasSuffix(name, "_bed") }

// Sleep ложится в ближайшую кровать (в радиусе 32).
func (b *Bot) Sleep(ctx context.Context) error {
	beds := b.w.FindBlocks(game.BlockQuery{Name: isBed, MaxDistance: 32, Count: 1})
	if len(beds) == 0 {
		return errNoBed
	}
	if !game.IsNight(b.w.TimeOfDay()) {
		return game.ErrNotNight
	}
	bed := beds[0].Pos
	if err := b.moveNear(ctx, bed.Center(), 2, 15*time.Second); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := b.w.Sleep(sctx, bed); err != nil {
		return err
	}
	b.touch()
	b.say("😴 Chúc ngủ ngon!")
	return nil
}

// Give отдаёт игроку до count предметов, чьё имя содержит item.
func (b *Bot) Give(ctx context.Context, player, item string, count int) (int, error) {
	name, err := b.requireNearbyPlayer(player)
	if err != nil {
		return 0, err
	}
	query := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(item), " ", "_"))
	match := func(it game.Item) bool { return strings.Contains(it.Name, query) }
	if _, ok := game.FindItem(b.w.Inventory(), match); !ok || query == "" {
		return 0, fmt.Errorf("%s: %w", item, errNoItem)
	}

	e, _ := b.w.PlayerEntity(name)
	if err := b.moveNear(ctx, e.Position, 2, 15*time.Second); err != nil {
		return 0, err
	}
	if e, ok := b.w.PlayerEntity(name); ok {
		_ = b.w.LookAt(e.Position.Offset(0, 1.6, 0))
	}

	given := 0
	for given < count {
		it, ok := game.FindItem(b.w.Inventory(), match)
		if !ok {
			break
		}
		n := min(it.Count, count-given)
		if err := b.w.Toss(it, n); err != nil {
			return given, err
		}
		given += n
	}
	b.touch()
	b.log.Info("items given", zap.String("player", name), zap.String("item", query), zap.Int("count", given))
	return given, nil
}

// storeItems складывает в ближайший сундук всё, кроме keep. Возвращает число стаков.
func (b *Bot) storeItems(ctx context.Context, keep func(game.Item) bool) (int, error) {
	chests := b.w.FindBlocks(game.BlockQuery{
		Name:        func(n string) bool { return n == "chest" || n == "barrel" },
		MaxDistance: 32,
		Count:       1,
	})
	if len(chests) == 0 {
		return 0, errNoChest
	}
	pos := chests[0].Pos
	if err := b.moveNear(ctx, pos.Center(), 3, 15*time.Second); err != nil {
		return 0, err
	}
	octx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ct, err := b.w.OpenContainer(octx, pos)
	if err != nil {
		return 0, err
	}
	defer ct.Close()

	stored := 0
	for _, it := range b.w.Inventory() {
		// броня и вторая рука остаются на себе
		if it.Slot < 9 || it.Slot > 44 || keep(it) {
			continue
		}
		if err := ct.Deposit(it); err != nil {
			b.log.Debug("deposit failed", zap.String("item", it.Name), zap.Error(err))
			break
		}
		stored++
	}
	b.touch()
	return stored, nil
}

// Store — команда «cất đồ»: всё, кроме снаряжения и еды, в сундук.
func (b *Bot) Store(ctx context.Context) (int, error) {
	return b.storeItems(ctx, keepOnStore)
}
