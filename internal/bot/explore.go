package bot

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// signature — два соседних блока, по которым узнаётся постройка.
type signature struct {
	a, b     string
	vertical bool
}

type structure struct {
	name string
	sigs []signature
}

var structures = []structure{
	{"Village", []signature{{"oak_planks", "cobblestone", false}, {"oak_log", "oak_planks", true}, {"hay_block", "oak_planks", false}}},
	{"Desert Temple", []signature{{"sandstone", "orange_terracotta", false}, {"chiseled_sandstone", "sandstone", true}}},
	{"Dungeon", []signature{{"mossy_cobblestone", "cobblestone", false}, {"spawner", "mossy_cobblestone", true}}},
	{"Jungle Temple", []signature{{"cobblestone", "vine", false}}},
	{"Witch Hut", []signature{{"oak_planks", "spruce_planks", false}, {"oak_fence", "spruce_planks", true}}},
	{"Ocean Monument", []signature{{"prismarine", "prismarine_bricks", false}, {"dark_prismarine", "prismarine", false}}},
	{"Stronghold", []signature{{"stone_bricks", "cracked_stone_bricks", false}, {"iron_bars", "stone_bricks", false}}},
	{"Mineshaft", []signature{{"oak_fence", "cobweb", false}, {"rail", "oak_planks", false}}},
	{"Nether Fortress", []signature{{"nether_bricks", "nether_brick_fence", false}, {"nether_bricks", "nether_brick_stairs", false}}},
	{"End City", []signature{{"end_stone_bricks", "purpur_block", false}, {"purpur_pillar", "purpur_block", true}}},
	{"Pillager Outpost", []signature{{"dark_oak_log", "dark_oak_planks", true}, {"cobblestone", "dark_oak_log", false}}},
	{"Ruined Portal", []signature{{"obsidian", "crying_obsidian", false}, {"netherrack", "obsidian", false}}},
	{"Shipwreck", []signature{{"oak_planks", "oak_log", false}, {"oak_fence", "oak_planks", false}}},
	{"Buried Treasure", []signature{{"chest", "sand", true}, {"chest", "sandstone", true}}},
}

var (
	sideOffsets     = []game.BlockPos{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}
	verticalOffsets = []game.BlockPos{{Y: 1}, {Y: -1}}
)

// Found — найденная постройка.
type Found struct {
	Name string
	Pos  game.BlockPos
}

// ScanStructures ищет сигнатуры построек в радиусе; по одной позиции на сигнатуру.
func ScanStructures(w game.World, radius float64) []Found {
	var out []Found
	for _, st := range structures {
		for _, sig := range st.sigs {
			blocks := w.FindBlocks(game.BlockQuery{
				Name:        func(n string) bool { return n == sig.a },
				MaxDistance: radius,
				Count:       4,
			})
			offsets := sideOffsets
			if sig.vertical {
				offsets = verticalOffsets
			}
		next:
			for _, bl := range blocks {
				for _, o := range offsets {
					if nb, ok := w.BlockAt(bl.Pos.Offset(o.X, o.Y, o.Z)); ok && nb.Name == sig.b {
						out = append(out, Found{Name: st.name, Pos: bl.Pos})
						break next
					}
				}
			}
		}
	}
	return out
}

type explore struct {
	b          *Bot
	heading    float64
	discovered map[string]bool
	lastMove   time.Time
}

// Explore — идти в случайном направлении, отмечать постройки, бить враждебных мобов.
func (b *Bot) Explore() Activity {
	return &explore{b: b, heading: rand.Float64() * 2 * math.Pi, discovered: map[string]bool{}}
}

func (e *explore) Mode() Mode              { return ModeExploring }
func (e *explore) Interval() time.Duration { return 3 * time.Second }
func (e *explore) resume() Activity        { return e.b.Explore() }

func (e *explore) Begin(context.Context) error {
	e.b.say("🗺️ Bắt đầu khám phá! Tớ sẽ tìm công trình và đánh quái!")
	e.b.setStatus("exploring")
	return nil
}

func (e *explore) End() {}

func (e *explore) Tick(ctx context.Context) error {
	b := e.b
	if b.w.Food() < 6 {
		_ = b.eat(ctx)
	}

	e.announce()

	if mob, ok := game.NearestEntity(b.w.Entities(), b.w.Position(), 30, game.IsHostile); ok && b.w.Health() > 6 {
		b.equipBestWeapon()
		if err := retryLater(b.moveNear(ctx, mob.Position, 2, 4*time.Second)); err != nil {
			return err
		}
		return retryLater(e.fight(ctx, mob.ID, 3*time.Second))
	}

	if time.Since(e.lastMove) > 5*time.Second {
		e.lastMove = time.Now()
		return retryLater(b.walkHeading(ctx, e.heading, 40+rand.Float64()*40, 8*time.Second))
	}
	return nil
}

// announce сообщает о первой ещё не найденной постройке.
func (e *explore) announce() {
	b := e.b
	for _, f := range ScanStructures(b.w, b.config().Modes.ScanRadius) {
		key := fmt.Sprintf("%s_%d_%d", f.Name, f.Pos.X, f.Pos.Z)
		if e.discovered[key] {
			continue
		}
		e.discovered[key] = true
		b.say(fmt.Sprintf("🏛️ Phát hiện %s tại (%d, %d, %d)!", f.Name, f.Pos.X, f.Pos.Y, f.Pos.Z))
		b.notify("structure", fmt.Sprintf("%s found %s at %v", b.w.Username(), f.Name, f.Pos))
		b.log.Info("structure found", zap.String("structure", f.Name), zap.Stringer("pos", f.Pos))
		return
	}
}

// fight бьёт моба до d или пока он не исчезнет.
func (e *explore) fight(ctx context.Context, id int32, d time.Duration) error {
	b := e.b
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		mob, ok := b.w.Entity(id)
		if !ok {
			return nil
		}
		if b.w.Position().Distance(mob.Position) > 3.5 {
			if err := b.moveNear(ctx, mob.Position, 2, time.Second); err != nil {
				return err
			}
			continue
		}
		_ = b.w.LookAt(mob.Position.Offset(0, 1, 0))
		if err := b.w.Attack(id); err != nil {
			return nil
		}
		if err := game.Sleep(ctx, 500*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
