package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// сундуки ищем только под землёй
const chestMaxY = 40

func isContainerBlock(name string) bool {
	return name == "chest" || name == "trapped_chest" || name == "barrel" || strings.HasSuffix(name, "shulker_box")
}

type chestHunt struct {
	b     *Bot
	found int
}

// ChestHunt — искать подземные сундуки в радиусе 200 блоков и забирать содержимое.
func (b *Bot) ChestHunt() Activity { return &chestHunt{b: b} }

func (c *chestHunt) Mode() Mode              { return ModeChestHunting }
func (c *chestHunt) Interval() time.Duration { return 2 * time.Second }
func (c *chestHunt) resume() Activity        { return c.b.ChestHunt() }

func (c *chestHunt) Begin(context.Context) error {
	if !c.b.hasItem(game.IsPickaxe) {
		return errNoPickaxe
	}
	c.b.say("📦 Bắt đầu auto tìm rương! Tớ sẽ quét trong phạm vi 200 blocks...")
	c.b.setStatus("hunting chests")
	return nil
}

func (c *chestHunt) End() {}

func (b *Bot) wasLooted(pos game.BlockPos) bool {
	b.lootMu.Lock()
	defer b.lootMu.Unlock()
	return b.looted[pos]
}

func (b *Bot) markLooted(pos game.BlockPos) {
	b.lootMu.Lock()
	b.looted[pos] = true
	b.lootMu.Unlock()
}

func (c *chestHunt) Tick(ctx context.Context) error {
	b := c.b
	chests := b.w.FindBlocks(game.BlockQuery{
		Name: isContainerBlock,
		Match: func(bl game.Block) bool {
			return bl.Pos.Y < chestMaxY && !b.wasLooted(bl.Pos)
		},
		MaxDistance: 200,
		Count:       1,
	})
	if len(chests) == 0 {
		if rand.Float64() < 0.3 {
			return retryLater(b.wander(ctx, 30, 50, 5*time.Second))
		}
		return nil
	}
	chest := chests[0]
	b.say(fmt.Sprintf("📦 Tìm thấy rương tại (%d, %d, %d)!", chest.Pos.X, chest.Pos.Y, chest.Pos.Z))

	if err := b.moveNear(ctx, chest.Pos.Center(), 3, 60*time.Second); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.say("🥺 Không thể đến rương!")
		b.markLooted(chest.Pos)
		return nil
	}

	taken, err := b.lootContainer(ctx, chest.Pos)
	b.markLooted(chest.Pos)
	if err != nil {
		b.log.Debug("loot failed", zap.Stringer("pos", chest.Pos), zap.Error(err))
		return nil
	}
	c.found++
	b.say(fmt.Sprintf("📦 Lấy %d món từ rương!", taken))
	b.notify("chest", fmt.Sprintf("%s looted a chest at %v (%d items)", b.w.Username(), chest.Pos, taken))
	if b.w.EmptySlots() == 0 {
		b.say("🎒 Túi đồ đầy rồi! Dừng tìm rương!")
		return ErrDone
	}
	return nil
}

// lootContainer открывает контейнер и забирает всё, пока есть место.
func (b *Bot) lootContainer(ctx context.Context, pos game.BlockPos) (int, error) {
	octx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ct, err := b.w.OpenContainer(octx, pos)
	if err != nil {
		return 0, err
	}
	defer ct.Close()

	taken := 0
	for _, it := range ct.Items() {
		if b.w.EmptySlots() == 0 {
			break
		}
		if err := ct.Withdraw(it); err != nil {
			return taken, err
		}
		taken += it.Count
	}
	return taken, nil
}
