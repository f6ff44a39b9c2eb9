package bot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

var errNoFood = errors.New("no food")

// еда, которую бот не ест сам
var unsafeFood = map[string]bool{
	"rotten_flesh": true, "spider_eye": true, "pufferfish": true,
	"poisonous_potato": true, "chorus_fruit": true, "suspicious_stew": true,
}

// ========================= auto-eat =========================

func (b *Bot) autoEat(ctx context.Context) {
	if b.is(ModeFishing) {
		return
	}
	food, health := b.w.Food(), b.w.Health()
	if food >= 14 && !(health < 14 && food < 20) {
		return
	}
	if err := b.eat(ctx); err != nil && !errors.Is(err, errNoFood) {
		b.log.Debug("auto-eat", zap.Error(err))
	}
}

// pickFood — лучшая безопасная еда; золотые яблоки в последнюю очередь,
// но первыми, если здоровье ниже 8.
func pickFood(items []game.Item, health float64) (game.Item, bool) {
	if health < 8 {
		if apple, ok := game.FindItem(items, func(it game.Item) bool { return game.IsGoldenApple(it.Name) }); ok {
			return apple, true
		}
	}
	best, ok := game.BestItem(items, func(it game.Item) int {
		if unsafeFood[it.Name] {
			return 0
		}
		return game.FoodScore(it.Name)
	})
	if ok {
		return best, true
	}
	return game.FindItem(items, func(it game.Item) bool { return game.IsGoldenApple(it.Name) })
}

// eat съедает лучшую еду и возвращает в руку оружие/инструмент.
func (b *Bot) eat(ctx context.Context) error {
	if !b.eating.CompareAndSwap(false, true) {
		return nil
	}
	defer b.eating.Store(false)

	prev, hadPrev := b.w.HeldItem()
	food, ok := pickFood(b.w.Inventory(), b.w.Health())
	if !ok {
		return errNoFood
	}
	if err := b.w.Equip(food, game.SlotHand); err != nil {
		return err
	}
	if err := b.w.Consume(ctx); err != nil {
		return err
	}
	b.log.Debug("ate", zap.String("food", food.Name))
	if hadPrev && !game.IsFood(prev.Name) {
		_ = b.w.Equip(prev, game.SlotHand)
	}
	return nil
}

// ========================= auto-equip =========================

// режимы, где в руке нужен инструмент, а не оружие
func toolMode(m Mode) bool {
	switch m {
	case ModeMining, ModeChestHunting, ModeCropFarming, ModeBuilding, ModeFishing:
		return true
	}
	return false
}

func (b *Bot) autoEquip(context.Context) {
	mode := b.Mode()
	if mode == ModeFishing || b.eating.Load() {
		return
	}
	if !toolMode(mode) {
		b.equipBestWeapon()
	}
	b.equipArmor()
	b.equipOffhand()
}

func (b *Bot) equipBestWeapon() bool {
	weapon, ok := game.BestItem(b.w.Inventory(), func(it game.Item) int { return game.WeaponScore(it.Name) })
	if !ok {
		return false
	}
	if held, ok := b.w.HeldItem(); ok && held.Name == weapon.Name {
		return true
	}
	return b.w.Equip(weapon, game.SlotHand) == nil
}

// номер слота окна инвентаря для брони
var armorWindowSlot = map[game.EquipSlot]int{
	game.SlotHead: 5, game.SlotTorso: 6, game.SlotLegs: 7, game.SlotFeet: 8,
}

func (b *Bot) equipArmor() {
	items := b.w.Inventory()
	worn := map[game.EquipSlot]int{}
	for _, it := range items {
		for slot, idx := range armorWindowSlot {
			if it.Slot == idx {
				worn[slot] = game.ArmorScore(it.Name)
			}
		}
	}
	for slot := range armorWindowSlot {
		best, ok := game.BestItem(items, func(it game.Item) int {
			s, isArmor := game.ArmorSlot(it.Name)
			if !isArmor || s != slot || it.Slot < 9 {
				return 0
			}
			return game.ArmorScore(it.Name)
		})
		if ok && game.ArmorScore(best.Name) > worn[slot] {
			if err := b.w.Equip(best, slot); err == nil {
				b.log.Debug("equipped armor", zap.String("item", best.Name))
			}
		}
	}
}

// во второй руке: тотем лучше щита
func (b *Bot) equipOffhand() {
	items := b.w.Inventory()
	score := func(it game.Item) int {
		switch it.Name {
		case "totem_of_undying":
			return 2
		case "shield":
			return 1
		}
		return 0
	}
	current := 0
	for _, it := range items {
		if it.Slot == 45 {
			current = score(it)
		}
	}
	best, ok := game.BestItem(items, func(it game.Item) int {
		if it.Slot == 45 {
			return 0
		}
		return score(it)
	})
	if ok && score(best) > current {
		_ = b.w.Equip(best, game.SlotOffHand)
	}
}

func (b *Bot) equipTool(pred func(string) bool) bool {
	if held, ok := b.w.HeldItem(); ok && pred(held.Name) {
		return true
	}
	tool, ok := game.BestItem(b.w.Inventory(), func(it game.Item) int {
		if !pred(it.Name) {
			return 0
		}
		return 1 + game.TierScore(it.Name)
	})
	if !ok {
		return false
	}
	return b.w.Equip(tool, game.SlotHand) == nil
}

func (b *Bot) hasItem(pred func(string) bool) bool {
	_, ok := game.FindItem(b.w.Inventory(), func(it game.Item) bool { return pred(it.Name) })
	return ok
}

// ========================= item collection =========================

func isDrop(e game.Entity) bool { return e.Name == "item" }

func (b *Bot) collectItems(ctx context.Context) {
	switch b.Mode() {
	case ModeIdle, ModeFollowing:
	default:
		return
	}
	b.collectDrops(ctx, 8, 1)
}

// collectDrops подбирает до max выпавших предметов в радиусе.
func (b *Bot) collectDrops(ctx context.Context, radius float64, max int) int {
	picked := 0
	for picked < max {
		drop, ok := game.NearestEntity(b.w.Entities(), b.w.Position(), radius, isDrop)
		if !ok {
			break
		}
		gctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := b.w.Goto(gctx, drop.Position, 1)
		cancel()
		if err != nil {
			break
		}
		picked++
		// сервер подбирает предмет сам, когда мы рядом
		if err := game.Sleep(ctx, 300*time.Millisecond); err != nil {
			break
		}
		if _, still := b.w.Entity(drop.ID); still {
			break
		}
	}
	return picked
}
