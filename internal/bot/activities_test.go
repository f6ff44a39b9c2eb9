package bot

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/game"
)

func TestOreMatcher(t *testing.T) {
	diamond := OreMatcher("Diamond ")
	assert.True(t, diamond("diamond_ore"))
	assert.True(t, diamond("deepslate_diamond_ore"))
	assert.False(t, diamond("iron_ore"))

	assert.True(t, OreMatcher("netherite")("ancient_debris"))
	assert.True(t, OreMatcher("tin")("deepslate_tin_ore"))
}

func TestMineDigsNearestOre(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_pickaxe", 1)
	ore := game.BlockPos{X: 3, Y: 60, Z: 3}
	w.SetBlock(ore, "deepslate_diamond_ore", nil)
	w.SetBlock(game.BlockPos{X: 40, Y: 60, Z: 40}, "iron_ore", nil)

	m := b.Mine("diamond").(*mine)
	require.NoError(t, m.Begin(context.Background()))
	require.NoError(t, m.Tick(context.Background()))

	assert.Equal(t, []game.BlockPos{ore}, w.Digs())
	assert.Equal(t, 1, m.dug)
	assert.Equal(t, "iron_pickaxe", mustHeld(t, w).Name)
}

func TestMineSkipsUnreachableOre(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_pickaxe", 1)
	ore := game.BlockPos{X: 20, Y: 40, Z: 20}
	w.SetBlock(ore, "coal_ore", nil)
	w.GotoErr = game.ErrNoPath

	m := b.Mine("coal").(*mine)
	require.NoError(t, m.Tick(context.Background()))
	assert.True(t, m.skip[ore])
	assert.Empty(t, w.Digs())
}

func TestMineStopsWhenInventoryFull(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_pickaxe", 1)
	w.FillInventory(1)
	require.ErrorIs(t, b.Mine("iron").Tick(context.Background()), ErrDone)
	assert.True(t, w.ChatContains("Túi đồ đầy rồi"))
}

func TestCropMature(t *testing.T) {
	cases := []struct {
		name string
		age  string
		want bool
	}{
		{"wheat", "7", true},
		{"wheat", "6", false},
		{"beetroots", "3", true},
		{"nether_wart", "2", false},
		{"stone", "7", false},
		{"carrots", "", false},
	}
	for _, tc := range cases {
		bl := game.Block{Name: tc.name, Props: map[string]string{"age": tc.age}}
		assert.Equal(t, tc.want, CropMature(bl), "%s age=%s", tc.name, tc.age)
	}
}

func TestCropFarmHarvestsAndReplants(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_hoe", 1)
	w.Give("wheat_seeds", 3)
	w.Give("bone_meal", 2)
	land := game.BlockPos{X: 2, Y: 63, Z: 2}
	crop := land.Offset(0, 1, 0)
	w.SetBlock(land, "farmland", nil)
	w.SetBlock(crop, "wheat", map[string]string{"age": "7"})
	// незрелая пшеница не трогается
	w.SetBlock(game.BlockPos{X: 4, Y: 64, Z: 4}, "wheat", map[string]string{"age": "2"})
	w.SetBlock(game.BlockPos{X: 4, Y: 63, Z: 4}, "farmland", nil)

	c := b.CropFarm().(*cropFarm)
	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, []game.BlockPos{crop}, w.Digs())

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, []game.BlockPos{crop}, w.Places())
	bl, _ := w.BlockAt(crop)
	assert.Equal(t, "wheat", bl.Name)
	// костная мука дорастила сразу
	assert.Equal(t, "7", bl.Props["age"])
	assert.Equal(t, 1, game.CountItems(w.Inventory(), "bone_meal"))
	assert.Equal(t, "iron_hoe", mustHeld(t, w).Name)
}

func TestCropFarmNeedsHoe(t *testing.T) {
	b, w := newTestBot(t)
	require.ErrorIs(t, b.CropFarm().Tick(context.Background()), ErrDone)
	assert.True(t, w.ChatContains("Không tìm thấy cuốc"))
}

func TestChestHuntLootsUndergroundChest(t *testing.T) {
	n := &notifyRecorder{}
	b, w := newTestBot(t, WithNotifier(n))
	w.Give("stone_pickaxe", 1)
	pos := game.BlockPos{X: 10, Y: 30, Z: -4}
	w.AddContainer(pos, "chest",
		game.Item{Name: "gold_ingot", Count: 3},
		game.Item{Name: "saddle", Count: 1},
	)

	c := b.ChestHunt().(*chestHunt)
	require.NoError(t, c.Begin(context.Background()))
	require.NoError(t, c.Tick(context.Background()))

	assert.True(t, w.ChatContains("Tìm thấy rương tại (10, 30, -4)"))
	assert.True(t, w.ChatContains("Lấy 4 món từ rương"))
	assert.Equal(t, 3, game.CountItems(w.Inventory(), "gold_ingot"))
	assert.True(t, b.wasLooted(pos))
	assert.True(t, n.has("chest"))
	assert.Equal(t, 1, c.found)
}

func TestChestHuntIgnoresSurfaceChests(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("stone_pickaxe", 1)
	pos := game.BlockPos{X: 3, Y: 64, Z: 3}
	w.AddContainer(pos, "chest", game.Item{Name: "bread", Count: 1})

	require.NoError(t, b.ChestHunt().Tick(context.Background()))
	assert.False(t, w.ChatContains("Tìm thấy rương"))
	assert.False(t, b.wasLooted(pos))
}

func TestChestHuntNeedsPickaxe(t *testing.T) {
	b, _ := newTestBot(t)
	require.ErrorIs(t, b.ChestHunt().Begin(context.Background()), errNoPickaxe)
}

func TestFishCatchesOnBite(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("fishing_rod", 1)
	w.SetBlock(game.BlockPos{X: 3, Y: 63, Z: 3}, "water", nil)
	w.AddEntity(game.Entity{ID: 50, Name: "fishing_bobber", Kind: game.KindObject, Position: game.V(3.5, 63.9, 3.5)})

	f := b.Fish().(*fish)
	f.timing = fishTiming{
		settle:     time.Millisecond,
		findTries:  3,
		findEvery:  time.Millisecond,
		poll:       2 * time.Millisecond,
		biteWait:   2 * time.Second,
		afterCatch: time.Millisecond,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(50 * time.Millisecond)
		w.MoveEntity(50, game.V(3.5, 63.5, 3.5))
	}()
	require.NoError(t, f.Tick(context.Background()))
	<-done

	assert.Equal(t, 1, f.caught)
	// заброс и подсечка
	assert.Equal(t, 2, w.Uses())
	assert.True(t, w.ChatContains("Câu thành công"))
}

func TestFishWithoutWaterOrRod(t *testing.T) {
	b, w := newTestBot(t)
	require.ErrorIs(t, b.Fish().Tick(context.Background()), ErrDone)
	assert.True(t, w.ChatContains("Không có cần câu"))

	w.Give("fishing_rod", 1)
	require.ErrorIs(t, b.Fish().Tick(context.Background()), ErrDone)
	assert.True(t, w.ChatContains("Không tìm thấy nước"))
}

func TestPVPStrikesTargetInRange(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("diamond_sword", 1)
	pos := game.V(2.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)

	p := b.PVP("steve", false).(*pvp)
	require.NoError(t, p.Begin(context.Background()))
	assert.Equal(t, "Steve", p.target)
	require.NoError(t, p.Tick(context.Background()))
	assert.Equal(t, []int32{2}, w.Attacks())
	assert.Equal(t, "diamond_sword", mustHeld(t, w).Name)
}

func TestPVPWinsWhenTargetLeaves(t *testing.T) {
	b, w := newTestBot(t)
	pos := game.V(2.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)
	p := b.PVP("Steve", false)
	require.NoError(t, p.Begin(context.Background()))

	w.RemovePlayer("Steve")
	require.ErrorIs(t, p.Tick(context.Background()), ErrDone)
	assert.True(t, w.ChatContains("Steve đã rời trận"))

	require.ErrorIs(t, b.PVP("Herobrine", false).Begin(context.Background()), errPlayerNotFound)
}

func TestPVPLowHealth(t *testing.T) {
	cases := []struct {
		name      string
		health    float64
		inventory []string
		eaten     []string
		retreats  bool
	}{
		{"apple keeps fighting", 5, []string{"diamond_sword", "bread", "golden_apple"}, []string{"golden_apple"}, false},
		{"apple below ten", 9, []string{"diamond_sword", "enchanted_golden_apple"}, []string{"enchanted_golden_apple"}, false},
		{"no apple retreats", 5, []string{"diamond_sword", "bread"}, []string{"bread"}, true},
		{"no apple above eight", 9, []string{"diamond_sword", "bread"}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, w := newTestBot(t)
			for _, it := range tc.inventory {
				w.Give(it, 1)
			}
			pos := game.V(2.5, 64, 0.5)
			w.AddPlayer(2, "Steve", &pos)
			w.SetHealth(tc.health)

			p := b.PVP("Steve", false)
			require.NoError(t, p.Begin(context.Background()))
			require.NoError(t, p.Tick(context.Background()))

			assert.Equal(t, tc.eaten, w.Eaten())
			if tc.retreats {
				assert.Less(t, w.Position().X, 0.0)
				assert.Empty(t, w.Attacks())
			} else {
				assert.Equal(t, []int32{2}, w.Attacks())
				assert.Equal(t, "diamond_sword", mustHeld(t, w).Name)
			}
		})
	}
}

func TestPVPProUsesWindChargeAndMace(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("netherite_sword", 1)
	w.Give("wind_charge", 4)
	w.Give("mace", 1)
	pos := game.V(2.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)

	p := b.PVP("Steve", true)
	require.NoError(t, p.Begin(context.Background()))
	require.NoError(t, p.Tick(context.Background()))
	assert.Equal(t, 1, w.Uses())
	assert.Len(t, w.Attacks(), 1)

	w.SetOnGround(false)
	require.NoError(t, p.Tick(context.Background()))
	assert.Len(t, w.Attacks(), 2)
	assert.Equal(t, "mace", mustHeld(t, w).Name)
}

func TestBehind(t *testing.T) {
	assert.Equal(t, game.V(4, 64, 0), behind(game.V(0, 64, 0), game.V(2, 64, 0), 2))
	assert.Equal(t, game.V(1, 64, 1), behind(game.V(1, 64, 1), game.V(1, 64, 1), 2))
}

func TestScanStructures(t *testing.T) {
	_, w := newTestBot(t)
	w.SetBlock(game.BlockPos{X: 5, Y: 30, Z: 5}, "mossy_cobblestone", nil)
	w.SetBlock(game.BlockPos{X: 6, Y: 30, Z: 5}, "cobblestone", nil)
	w.SetBlock(game.BlockPos{X: -8, Y: 64, Z: 2}, "purpur_pillar", nil)
	w.SetBlock(game.BlockPos{X: -8, Y: 65, Z: 2}, "purpur_block", nil)
	// одинокий блок без пары не считается
	w.SetBlock(game.BlockPos{X: 0, Y: 70, Z: 9}, "prismarine", nil)

	got := ScanStructures(w, 64)
	want := []Found{
		{Name: "Dungeon", Pos: game.BlockPos{X: 5, Y: 30, Z: 5}},
		{Name: "End City", Pos: game.BlockPos{X: -8, Y: 64, Z: 2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("structures mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowTeleportsWhenFarBehind(t *testing.T) {
	b, w := newTestBot(t)
	w.OP = true
	pos := game.V(40.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)

	f := b.Follow("Steve")
	require.NoError(t, f.Tick(context.Background()))
	assert.True(t, w.ChatContains("/tp Lolicute Steve"))
	assert.Equal(t, pos, w.Position())
}

func TestFollowGivesUpWithoutTeleport(t *testing.T) {
	b, w := newTestBot(t)
	pos := game.V(40.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)

	f := b.Follow("Steve")
	require.NoError(t, f.Tick(context.Background()))
	require.NoError(t, f.Tick(context.Background()))
	require.ErrorIs(t, f.Tick(context.Background()), ErrDone)
	assert.True(t, w.ChatContains("không có quyền /tp"))
}

func TestProtectAttacksHostileNearPlayer(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_sword", 1)
	pos := game.V(2.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)
	w.AddEntity(game.Entity{ID: 9, Name: "skeleton", Kind: game.KindMob, Position: game.V(0.5, 64, 2.5)})

	p := b.Protect("Steve")
	require.NoError(t, p.Begin(context.Background()))
	require.NoError(t, p.Tick(context.Background()))
	assert.NotEmpty(t, w.Attacks())
	assert.Equal(t, int32(9), w.Attacks()[0])
}

func TestSleepNeedsBedAndNight(t *testing.T) {
	b, w := newTestBot(t)
	require.ErrorIs(t, b.Sleep(context.Background()), errNoBed)

	w.SetBlock(game.BlockPos{X: 5, Y: 64, Z: 5}, "red_bed", nil)
	w.SetTimeOfDay(1000)
	require.ErrorIs(t, b.Sleep(context.Background()), game.ErrNotNight)
	// днём к кровати не идём
	assert.Empty(t, w.Gotos())

	w.SetTimeOfDay(13000)
	require.NoError(t, b.Sleep(context.Background()))
	assert.Equal(t, 1, w.Sleeps())
	assert.True(t, w.ChatContains("Chúc ngủ ngon"))
}

func TestStoreKeepsGear(t *testing.T) {
	b, w := newTestBot(t)
	_, err := b.Store(context.Background())
	require.ErrorIs(t, err, errNoChest)

	w.Give("iron_sword", 1)
	w.Give("bread", 8)
	w.Give("dirt", 64)
	w.Give("cobblestone", 32)
	chest := w.AddContainer(game.BlockPos{X: 6, Y: 64, Z: 6}, "chest")

	n, err := b.Store(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var stored []string
	for _, it := range chest.Items() {
		stored = append(stored, it.Name)
	}
	assert.ElementsMatch(t, []string{"dirt", "cobblestone"}, stored)
	assert.Equal(t, 1, game.CountItems(w.Inventory(), "iron_sword"))
	assert.Equal(t, 8, game.CountItems(w.Inventory(), "bread"))
}

func TestPickFood(t *testing.T) {
	items := []game.Item{
		{Slot: 36, Name: "rotten_flesh", Count: 10},
		{Slot: 37, Name: "golden_apple", Count: 1},
		{Slot: 38, Name: "bread", Count: 5},
		{Slot: 39, Name: "cooked_beef", Count: 2},
	}
	food, ok := pickFood(items, 20)
	require.True(t, ok)
	assert.Equal(t, "cooked_beef", food.Name)

	food, ok = pickFood(items, 5)
	require.True(t, ok)
	assert.Equal(t, "golden_apple", food.Name)

	food, ok = pickFood(items[:2], 20)
	require.True(t, ok)
	assert.Equal(t, "golden_apple", food.Name)

	_, ok = pickFood(items[:1], 20)
	assert.False(t, ok)
}

func TestEatRestoresHeldWeapon(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_sword", 1)
	w.Give("bread", 3)
	w.SetFood(10)

	b.autoEat(context.Background())
	assert.Equal(t, []string{"bread"}, w.Eaten())
	assert.Equal(t, 20, w.Food())
	assert.Equal(t, "iron_sword", mustHeld(t, w).Name)
}

func TestStatusSnapshot(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_sword", 1)
	w.SetHealth(17)
	w.AddEntity(game.Entity{ID: 5, Name: "zombie", Kind: game.KindMob, Position: game.V(3.5, 64, 4.5)})
	w.AddEntity(game.Entity{ID: 6, Name: "cow", Kind: game.KindMob, Position: game.V(0.5, 64, 8.5)})
	w.AddEntity(game.Entity{ID: 7, Name: "creeper", Kind: game.KindMob, Position: game.V(40.5, 64, 0.5)})
	require.NoError(t, b.StartMode(&scripted{mode: ModeFarming}))
	b.setStatus("farming mobs")

	want := Status{
		Username:     "Lolicute",
		Connected:    true,
		Health:       17,
		Food:         20,
		Position:     game.V(0.5, 64, 0.5),
		Mode:         ModeFarming,
		StatusText:   "farming mobs",
		NearbyMobs:   []NearbyMob{{Name: "zombie", Distance: 5, Hostile: true}, {Name: "cow", Distance: 8}},
		Equipment:    Equipment{Hand: "iron_sword"},
		TPPermission: PermUnknown.String(),
	}
	got := b.Status()
	opts := cmp.Options{
		cmpopts.IgnoreFields(Status{}, "Inventory", "Uptime", "LastActivity", "Timestamp"),
		cmpopts.SortSlices(func(a, b NearbyMob) bool { return a.Name < b.Name }),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, got.Inventory, 1)
	assert.False(t, got.LastActivity.IsZero())
}

func mustHeld(t *testing.T, w interface{ HeldItem() (game.Item, bool) }) game.Item {
	t.Helper()
	it, ok := w.HeldItem()
	require.True(t, ok, "nothing in hand")
	return it
}
