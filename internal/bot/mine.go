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

var oreBlocks = map[string][]string{
	"diamond":        {"diamond_ore", "deepslate_diamond_ore"},
	"iron":           {"iron_ore", "deepslate_iron_ore"},
	"gold":           {"gold_ore", "deepslate_gold_ore", "nether_gold_ore"},
	"coal":           {"coal_ore", "deepslate_coal_ore"},
	"copper":         {"copper_ore", "deepslate_copper_ore"},
	"emerald":        {"emerald_ore", "deepslate_emerald_ore"},
	"redstone":       {"redstone_ore", "deepslate_redstone_ore"},
	"lapis":          {"lapis_ore", "deepslate_lapis_ore"},
	"quartz":         {"nether_quartz_ore"},
	"netherite":      {"ancient_debris"},
	"ancient_debris": {"ancient_debris"},
}

// OreMatcher — блоки, которые считаются рудой kind.
func OreMatcher(kind string) func(name string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	names, ok := oreBlocks[kind]
	if !ok {
		names = []string{kind + "_ore", "deepslate_" + kind + "_ore"}
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

type mine struct {
	b    *Bot
	ore  string
	is   func(string) bool
	skip map[game.BlockPos]bool // недоступные блоки
	dug  int
}

// Mine — искать и копать руду kind в радиусе 128 блоков.
func (b *Bot) Mine(ore string) Activity {
	return &mine{b: b, ore: ore, is: OreMatcher(ore), skip: map[game.BlockPos]bool{}}
}

func (m *mine) Mode() Mode              { return ModeMining }
func (m *mine) Interval() time.Duration { return 3 * time.Second }
func (m *mine) resume() Activity        { return m.b.Mine(m.ore) }

func (m *mine) Begin(context.Context) error {
	if !m.b.hasItem(game.IsPickaxe) {
		return errNoPickaxe
	}
	m.b.say(fmt.Sprintf("⛏️ Bắt đầu auto mine %s! Tớ sẽ tìm kiếm trong phạm vi 128 blocks!", m.ore))
	m.b.setStatus("mining " + m.ore)
	return nil
}

func (m *mine) End() {
	m.b.log.Info("mining finished", zap.String("ore", m.ore), zap.Int("dug", m.dug))
}

func (m *mine) Tick(ctx context.Context) error {
	b := m.b
	if b.w.EmptySlots() <= 2 {
		b.say("🎒 Túi đồ đầy rồi! Dừng auto mine!")
		return ErrDone
	}
	if b.w.Food() < 6 {
		if err := b.eat(ctx); err == nil {
			b.equipPickaxe()
			return nil
		}
	}
	if !b.equipPickaxe() {
		b.say("🥺 Không có pickaxe để đào!")
		return ErrDone
	}

	ores := b.w.FindBlocks(game.BlockQuery{
		Name:        m.is,
		Match:       func(bl game.Block) bool { return !m.skip[bl.Pos] },
		MaxDistance: 128,
		Count:       1,
	})
	if len(ores) == 0 {
		if rand.Float64() < 0.4 {
			return retryLater(b.wander(ctx, 20, 35, 5*time.Second))
		}
		return nil
	}
	return m.dig(ctx, ores[0])
}

func (m *mine) dig(ctx context.Context, ore game.Block) error {
	b := m.b
	target := ore.Pos.Center()
	if b.w.Position().Distance(target) > 4 {
		if err := retryLater(b.moveNear(ctx, target, 3, 8*time.Second)); err != nil {
			return err
		}
	}
	if b.w.Position().Distance(target) > 5 {
		m.skip[ore.Pos] = true
		return nil
	}
	if cur, ok := b.w.BlockAt(ore.Pos); !ok || cur.Name != ore.Name {
		return nil
	}
	_ = b.w.LookAt(target)

	dctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	err := b.w.Dig(dctx, ore.Pos)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.log.Debug("dig failed", zap.Stringer("pos", ore.Pos), zap.Error(err))
		b.say("😵 Block này khó đào quá, tớ bỏ qua nhé!")
		m.skip[ore.Pos] = true
		return nil
	}
	m.dug++
	b.touch()
	b.collectDrops(ctx, 8, 3)
	return nil
}
