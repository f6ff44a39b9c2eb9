package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVecDistance(t *testing.T) {
	a := V(0, 64, 0)
	b := V(3, 68, 0)
	assert.InDelta(t, 5.0, a.Distance(b), 1e-9)
	assert.InDelta(t, 3.0, a.HorizontalDistance(b), 1e-9)
	assert.Equal(t, BlockPos{-1, 64, 2}, V(-0.5, 64.9, 2.1).Block())
	assert.Equal(t, V(10.5, 5, -3.5), BlockPos{10, 5, -4}.Vec3())
}

func TestWeaponScoreOrdering(t *testing.T) {
	assert.Greater(t, WeaponScore("wooden_sword"), WeaponScore("netherite_axe"))
	assert.Greater(t, WeaponScore("diamond_sword"), WeaponScore("iron_sword"))
	assert.Greater(t, WeaponScore("stone_axe"), WeaponScore("bow"))
	assert.Zero(t, WeaponScore("diamond_pickaxe"))
	assert.Zero(t, WeaponScore("dirt"))
}

func TestBestItem(t *testing.T) {
	items := []Item{
		{Slot: 36, Name: "stone_sword", Count: 1},
		{Slot: 37, Name: "diamond_sword", Count: 1},
		{Slot: 38, Name: "bread", Count: 12},
	}
	best, ok := BestItem(items, func(it Item) int { return WeaponScore(it.Name) })
	require.True(t, ok)
	assert.Equal(t, "diamond_sword", best.Name)

	_, ok = BestItem(items[2:], func(it Item) int { return WeaponScore(it.Name) })
	assert.False(t, ok)
	assert.Equal(t, 12, CountItems(items, "bread"))
}

func TestMobClassification(t *testing.T) {
	zombie := Entity{Name: "zombie", Kind: KindOf("zombie")}
	cow := Entity{Name: "cow", Kind: KindOf("cow")}
	villager := Entity{Name: "villager", Kind: KindOf("villager")}
	steve := Entity{Name: "player", Username: "Steve", Kind: KindOf("player")}

	assert.True(t, IsHostile(zombie))
	assert.False(t, IsHostile(cow))
	assert.True(t, IsFarmable(cow))
	assert.True(t, IsFarmable(zombie))
	assert.False(t, IsFarmable(villager))
	assert.False(t, IsFarmable(steve))
	assert.Equal(t, KindObject, KindOf("item"))
}

func TestNearestEntity(t *testing.T) {
	ents := []Entity{
		{ID: 1, Name: "zombie", Kind: KindMob, Position: V(10, 64, 0)},
		{ID: 2, Name: "zombie", Kind: KindMob, Position: V(4, 64, 0)},
		{ID: 3, Name: "cow", Kind: KindMob, Position: V(1, 64, 0)},
	}
	e, ok := NearestEntity(ents, V(0, 64, 0), 15, IsHostile)
	require.True(t, ok)
	assert.EqualValues(t, 2, e.ID)

	_, ok = NearestEntity(ents, V(0, 64, 0), 3, IsHostile)
	assert.False(t, ok)
}

func TestArmorAndValuables(t *testing.T) {
	slot, ok := ArmorSlot("iron_chestplate")
	require.True(t, ok)
	assert.Equal(t, SlotTorso, slot)
	assert.True(t, IsValuable("diamond_pickaxe"))
	assert.True(t, IsValuable("cooked_beef"))
	assert.False(t, IsValuable("cobblestone"))
	assert.Equal(t, "stone", TrimNamespace("minecraft:stone"))
}

func TestFaceTowards(t *testing.T) {
	base := BlockPos{0, 64, 0}
	for f := FaceBottom; f <= FaceEast; f++ {
		o := f.Offset()
		got, ok := FaceTowards(base, base.Offset(o.X, o.Y, o.Z))
		require.True(t, ok)
		assert.Equal(t, f, got)
	}
	_, ok := FaceTowards(base, base.Offset(2, 0, 0))
	assert.False(t, ok)
}

func TestIsNight(t *testing.T) {
	cases := []struct {
		time int64
		want bool
	}{
		{0, false},
		{6000, false},
		{12541, false},
		{12542, true},
		{18000, true},
		{23459, true},
		{23460, false},
		{24000 + 13000, true},
		// цикл дня заморожен: сервер шлёт отрицательное время
		{-6000, true},
		{-18000, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsNight(tc.time), "time=%d", tc.time)
	}
}
