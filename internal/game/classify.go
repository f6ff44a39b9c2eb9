package game

import (
	"sort"
	"strings"
)

var hostileMobs = map[string]bool{
	"zombie": true, "skeleton": true, "creeper": true, "spider": true, "witch": true,
	"pillager": true, "vindicator": true, "evoker": true, "husk": true, "stray": true,
	"phantom": true, "drowned": true, "enderman": true, "breeze": true, "bogged": true,
	"slime": true, "silverfish": true, "cave_spider": true, "zombie_villager": true,
	"ravager": true, "blaze": true, "ghast": true, "magma_cube": true, "wither_skeleton": true,
	"hoglin": true, "piglin_brute": true, "zoglin": true, "guardian": true, "elder_guardian": true,
	"endermite": true, "vex": true, "shulker": true, "warden": true, "illusioner": true,
}

var passiveMobs = map[string]bool{
	"cow": true, "pig": true, "chicken": true, "sheep": true, "rabbit": true, "mooshroom": true,
	"goat": true, "llama": true, "donkey": true, "mule": true, "camel": true, "sniffer": true,
	"villager": true, "wandering_trader": true, "iron_golem": true, "snow_golem": true,
	"wolf": true, "cat": true, "ocelot": true, "fox": true, "horse": true, "parrot": true,
	"bat": true, "squid": true, "glow_squid": true, "cod": true, "salmon": true, "pufferfish": true,
	"tropical_fish": true, "turtle": true, "panda": true, "polar_bear": true, "bee": true,
	"axolotl": true, "frog": true, "tadpole": true, "allay": true, "strider": true,
	"dolphin": true, "trader_llama": true, "skeleton_horse": true, "zombie_horse": true,
	"piglin": true, "zombified_piglin": true,
}

// никогда не фармим: торговцы, питомцы, големы, лошади
var protectedMobs = []string{"villager", "iron_golem", "wolf", "horse", "trader", "cat", "parrot"}

// KindOf классифицирует тип сущности.
func KindOf(name string) EntityKind {
	switch {
	case name == "player":
		return KindPlayer
	case hostileMobs[name] || passiveMobs[name] || name == "ender_dragon" || name == "wither":
		return KindMob
	case name == "":
		return KindOther
	default:
		return KindObject
	}
}

func IsHostile(e Entity) bool {
	return e.Kind == KindMob && hostileMobs[e.Name]
}

// IsFarmable — моб, которого можно бить ради дропа.
func IsFarmable(e Entity) bool {
	if e.Kind != KindMob || e.Username != "" {
		return false
	}
	for _, p := range protectedMobs {
		if strings.Contains(e.Name, p) {
			return false
		}
	}
	return true
}

// NearestEntity — ближайшая к from сущность, подходящая под pred, не дальше maxDist.
func NearestEntity(entities []Entity, from Vec3, maxDist float64, pred func(Entity) bool) (Entity, bool) {
	var (
		best  Entity
		bestD = maxDist
		found bool
	)
	for _, e := range entities {
		if pred != nil && !pred(e) {
			continue
		}
		if d := from.Distance(e.Position); d <= bestD {
			best, bestD, found = e, d, true
		}
	}
	return best, found
}

// SortByDistance сортирует блоки по удалённости от from.
func SortByDistance(blocks []Block, from Vec3) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return from.Distance(blocks[i].Pos.Center()) < from.Distance(blocks[j].Pos.Center())
	})
}
