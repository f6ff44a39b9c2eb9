package game

import "strings"

// уровни материалов инструментов
var tierScore = map[string]int{
	"netherite": 100,
	"diamond":   80,
	"iron":      60,
	"stone":     40,
	"golden":    30,
	"wooden":    20,
}

var armorTier = map[string]int{
	"netherite": 6,
	"diamond":   5,
	"iron":      4,
	"chainmail": 3,
	"golden":    2,
	"leather":   1,
	"turtle":    3,
}

// TierScore — вес материала по префиксу имени ("diamond_sword" -> 80).
func TierScore(name string) int {
	for prefix, s := range tierScore {
		if strings.HasPrefix(name, prefix+"_") {
			return s
		}
	}
	return 0
}

// WeaponScore — меч > топор > лук, внутри класса по материалу. 0 — не оружие.
func WeaponScore(name string) int {
	switch {
	case strings.HasSuffix(name, "_sword"):
		return 1000 + TierScore(name)
	case strings.HasSuffix(name, "_axe") && !strings.HasSuffix(name, "_pickaxe"):
		return 800 + TierScore(name)
	case name == "mace":
		return 900
	case name == "trident":
		return 700
	case name == "bow" || name == "crossbow":
		return 600
	}
	return 0
}

func IsPickaxe(name string) bool { return strings.HasSuffix(name, "_pickaxe") }

func IsHoe(name string) bool { return strings.HasSuffix(name, "_hoe") }

func IsTool(name string) bool {
	return IsPickaxe(name) || IsHoe(name) || strings.HasSuffix(name, "_shovel") ||
		strings.HasSuffix(name, "_axe") || name == "fishing_rod" || name == "shears" ||
		name == "flint_and_steel"
}

// ArmorSlot — слот брони для предмета.
func ArmorSlot(name string) (EquipSlot, bool) {
	switch {
	case strings.HasSuffix(name, "_helmet"):
		return SlotHead, true
	case strings.HasSuffix(name, "_chestplate"), name == "elytra":
		return SlotTorso, true
	case strings.HasSuffix(name, "_leggings"):
		return SlotLegs, true
	case strings.HasSuffix(name, "_boots"):
		return SlotFeet, true
	}
	return 0, false
}

func ArmorScore(name string) int {
	for prefix, s := range armorTier {
		if strings.HasPrefix(name, prefix+"_") {
			return s
		}
	}
	return 0
}

// еда и её приоритет (больше — лучше); золотые яблоки отдельно
var foods = map[string]int{
	"cooked_beef": 10, "cooked_porkchop": 10, "cooked_mutton": 9, "cooked_salmon": 9,
	"cooked_chicken": 8, "cooked_rabbit": 8, "cooked_cod": 7, "baked_potato": 7,
	"bread": 6, "pumpkin_pie": 6, "rabbit_stew": 8, "mushroom_stew": 6, "beetroot_soup": 6,
	"golden_carrot": 9, "carrot": 4, "apple": 4, "melon_slice": 2, "sweet_berries": 2,
	"glow_berries": 2, "potato": 1, "beetroot": 1, "dried_kelp": 1, "cookie": 2,
	"beef": 3, "porkchop": 3, "mutton": 2, "chicken": 2, "rabbit": 3, "cod": 2, "salmon": 2,
}

func IsFood(name string) bool { return foods[name] > 0 || IsGoldenApple(name) }

func IsGoldenApple(name string) bool {
	return name == "golden_apple" || name == "enchanted_golden_apple"
}

func FoodScore(name string) int { return foods[name] }

// IsValuable — то, что не складываем в сундук.
func IsValuable(name string) bool {
	if WeaponScore(name) > 0 || IsTool(name) || IsFood(name) {
		return true
	}
	_, armor := ArmorSlot(name)
	return armor || name == "shield" || name == "totem_of_undying"
}

// FindItem — первый предмет, подходящий под pred.
func FindItem(items []Item, pred func(Item) bool) (Item, bool) {
	for _, it := range items {
		if pred(it) {
			return it, true
		}
	}
	return Item{}, false
}

// BestItem — предмет с максимальным score (>0).
func BestItem(items []Item, score func(Item) int) (Item, bool) {
	var (
		best  Item
		bestS int
	)
	for _, it := range items {
		if s := score(it); s > bestS {
			best, bestS = it, s
		}
	}
	return best, bestS > 0
}

// CountItems — сколько всего предметов с таким именем.
func CountItems(items []Item, name string) int {
	n := 0
	for _, it := range items {
		if it.Name == name {
			n += it.Count
		}
	}
	return n
}

// TrimNamespace убирает "minecraft:".
func TrimNamespace(s string) string {
	return strings.TrimPrefix(s, "minecraft:")
}
