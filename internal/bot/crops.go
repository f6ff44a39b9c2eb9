package bot

import (
	"context"
	"strconv"
	"time"

	"github.com/EgorLis/botlolicute/internal/game"
)

// возраст спелости для каждой культуры
var cropMatureAge = map[string]int{
	"wheat":       7,
	"carrots":     7,
	"potatoes":    7,
	"beetroots":   3,
	"nether_wart": 3,
}

func isCrop(name string) bool {
	_, ok := cropMatureAge[name]
	return ok
}

// CropMature — культура выросла полностью.
func CropMature(b game.Block) bool {
	want, ok := cropMatureAge[b.Name]
	if !ok {
		return false
	}
	age, err := strconv.Atoi(b.Props["age"])
	return err == nil && age >= want
}

func isSeed(name string) bool {
	switch name {
	case "wheat_seeds", "beetroot_seeds", "carrot", "potato", "nether_wart":
		return true
	}
	return false
}

type cropFarm struct {
	b         *Bot
	harvested map[game.BlockPos]bool
}

// CropFarm — собирать спелые культуры, сажать семена, складывать урожай в сундук.
func (b *Bot) CropFarm() Activity {
	return &cropFarm{b: b, harvested: map[game.BlockPos]bool{}}
}

func (c *cropFarm) Mode() Mode              { return ModeCropFarming }
func (c *cropFarm) Interval() time.Duration { return 2 * time.Second }
func (c *cropFarm) resume() Activity        { return c.b.CropFarm() }

func (c *cropFarm) Begin(context.Context) error {
	c.b.say("🌾 Bắt đầu auto farmer! Tớ sẽ thu hoạch và trồng cây!")
	c.b.setStatus("farming crops")
	return nil
}

func (c *cropFarm) End() {}

func (c *cropFarm) Tick(ctx context.Context) error {
	b := c.b
	if !b.equipTool(game.IsHoe) {
		b.say("🥺 Không tìm thấy cuốc (hoe). Dừng auto farmer!")
		return ErrDone
	}

	crops := b.w.FindBlocks(game.BlockQuery{
		Name:        isCrop,
		Match:       func(bl game.Block) bool { return CropMature(bl) && !c.harvested[bl.Pos] },
		MaxDistance: 32,
		Count:       1,
	})
	if len(crops) > 0 {
		return c.harvest(ctx, crops[0])
	}

	if planted, err := c.plant(ctx); err != nil || planted {
		return err
	}

	if b.w.EmptySlots() <= 3 {
		stored, err := b.storeItems(ctx, keepForFarming)
		if err != nil {
			b.say("🥺 Không tìm thấy rương. Dừng auto farmer!")
			return ErrDone
		}
		if stored > 0 {
			b.say("✅ Đã cất đồ vào rương!")
		}
	}
	return nil
}

func (c *cropFarm) harvest(ctx context.Context, crop game.Block) error {
	b := c.b
	if err := retryLater(b.moveNear(ctx, crop.Pos.Vec3(), 1.5, 5*time.Second)); err != nil {
		return err
	}
	if err := b.w.Dig(ctx, crop.Pos); err != nil {
		return retryLater(err)
	}
	c.harvested[crop.Pos] = true
	b.touch()
	if err := game.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	b.collectDrops(ctx, 5, 4)
	return nil
}

// plant сажает семена на пустую пашню; с костной мукой — сразу растит.
func (c *cropFarm) plant(ctx context.Context) (bool, error) {
	b := c.b
	seeds, ok := game.FindItem(b.w.Inventory(), func(it game.Item) bool { return isSeed(it.Name) })
	if !ok {
		return false, nil
	}
	soil := "farmland"
	if seeds.Name == "nether_wart" {
		soil = "soul_sand"
	}
	spots := b.w.FindBlocks(game.BlockQuery{
		Name: func(n string) bool { return n == soil },
		Match: func(bl game.Block) bool {
			above, ok := b.w.BlockAt(bl.Pos.Offset(0, 1, 0))
			return ok && above.IsAir()
		},
		MaxDistance: 32,
		Count:       1,
	})
	if len(spots) == 0 {
		return false, nil
	}
	land := spots[0]
	if err := retryLater(b.moveNear(ctx, land.Pos.Vec3(), 1.5, 5*time.Second)); err != nil {
		return false, err
	}
	if err := b.w.Equip(seeds, game.SlotHand); err != nil {
		return false, retryLater(err)
	}
	if err := b.w.PlaceBlock(land.Pos, game.FaceTop); err != nil {
		return false, retryLater(err)
	}
	plantPos := land.Pos.Offset(0, 1, 0)
	delete(c.harvested, plantPos)

	if meal, ok := game.FindItem(b.w.Inventory(), func(it game.Item) bool { return it.Name == "bone_meal" }); ok {
		if err := game.Sleep(ctx, 300*time.Millisecond); err != nil {
			return true, err
		}
		if bl, ok := b.w.BlockAt(plantPos); ok && !bl.IsAir() && b.w.Equip(meal, game.SlotHand) == nil {
			_ = b.w.ActivateBlock(plantPos)
		}
	}
	b.equipTool(game.IsHoe)
	return true, nil
}

// keepForFarming — что фермер не складывает: мотыгу и до 16 семян/костной муки.
func keepForFarming(it game.Item) bool {
	if game.IsHoe(it.Name) {
		return true
	}
	if (isSeed(it.Name) || it.Name == "bone_meal") && it.Count <= 16 {
		return true
	}
	return false
}

// keepOnStore — что «store» оставляет: инструменты, оружие, броню, еду.
func keepOnStore(it game.Item) bool { return game.IsValuable(it.Name) }
