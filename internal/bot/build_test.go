package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/game"
)

func TestBlueprintMaterials(t *testing.T) {
	house := SmallHouse()
	w, l, h := house.Size()
	assert.Equal(t, []int{7, 7, 4}, []int{w, l, h})

	blocks := house.Blocks()
	assert.Equal(t, 1, blocks["oak_door"])
	assert.Equal(t, 2, blocks["glass"])
	// пол 49 + крыша без углов 45
	assert.Equal(t, 94, blocks["oak_planks"])
	// два яруса периметра 24 минус дверь и два окна
	assert.Equal(t, 45, blocks["oak_log"])
	assert.Equal(t, 142, house.Total())

	mats := house.Materials()
	assert.Equal(t, 113, mats["oak_planks"])
	assert.Equal(t, 2, mats["oak_door"])
	assert.Equal(t, 3, mats["glass"])
}

func TestSmallTowerShape(t *testing.T) {
	tower := SmallTower()
	w, l, h := tower.Size()
	assert.Equal(t, []int{5, 5, 8}, []int{w, l, h})
	assert.Equal(t, "oak_door", tower.Layers[1][2][0])
	assert.Equal(t, "glass", tower.Layers[3][0][2])
	assert.Equal(t, "dark_oak_planks", tower.Layers[7][2][2])
	assert.Equal(t, air, tower.Layers[2][2][2])
}

func TestParametricStructure(t *testing.T) {
	bp, err := LookupBlueprint("castle", "9x7x5", "stone_bricks", "cobblestone")
	require.NoError(t, err)
	w, l, h := bp.Size()
	assert.Equal(t, []int{9, 7, 5}, []int{w, l, h})
	assert.Equal(t, "stone_bricks", bp.Layers[0][4][3])
	assert.Equal(t, "oak_door", bp.Layers[1][4][0])
	assert.Equal(t, "glass", bp.Layers[2][0][1])
	assert.Equal(t, "cobblestone", bp.Layers[1][0][0])
	// у замка крыша только по краю
	assert.Equal(t, air, bp.Layers[4][4][3])
	assert.Equal(t, "cobblestone", bp.Layers[4][0][3])
	assert.Equal(t, air, bp.Layers[2][4][3])

	house, err := LookupBlueprint("house", "5x5x4")
	require.NoError(t, err)
	assert.Equal(t, "Nhà nhỏ", house.Name)

	hut, err := LookupBlueprint("hut", "5x5x4")
	require.NoError(t, err)
	assert.Equal(t, "oak_planks", hut.Layers[3][2][2])

	_, err = LookupBlueprint("hut", "2x2x2")
	require.Error(t, err)
}

func TestBuildPlacesBlueprintBottomUp(t *testing.T) {
	b, w := newTestBot(t)
	// земля под площадкой
	for x := -2; x < 10; x++ {
		for z := -2; z < 10; z++ {
			w.SetBlock(game.BlockPos{X: x, Y: 63, Z: z}, "grass_block", nil)
		}
	}
	bp := Blueprint{Name: "pillar", Layers: [][][]string{
		{{"stone", "stone"}},
		{{"stone", air}},
		{{"glass", air}},
	}}
	w.Give("stone", 16)
	w.Give("glass", 4)
	// мусор на месте будущего блока
	w.SetBlock(game.BlockPos{X: 3, Y: 64, Z: 3}, "dirt", nil)
	// уже стоит то, что нужно
	w.SetBlock(game.BlockPos{X: 3, Y: 64, Z: 4}, "stone", nil)

	a := b.Build(bp, false).(*build)
	require.NoError(t, a.Begin(context.Background()))
	assert.Equal(t, game.BlockPos{X: 3, Y: 64, Z: 3}, a.origin)
	require.ErrorIs(t, a.Tick(context.Background()), ErrDone)

	assert.Equal(t, []game.BlockPos{
		{X: 3, Y: 64, Z: 3},
		{X: 3, Y: 65, Z: 3},
		{X: 3, Y: 66, Z: 3},
	}, w.Places())
	assert.Contains(t, w.Digs(), game.BlockPos{X: 3, Y: 64, Z: 3})
	bl, _ := w.BlockAt(game.BlockPos{X: 3, Y: 66, Z: 3})
	assert.Equal(t, "glass", bl.Name)
	assert.Equal(t, 3, a.placed)
	assert.Equal(t, 1, a.skipped)
	assert.True(t, w.ChatContains("Hoàn thành pillar"))
}

func TestBuildClearSiteSkipsBedrock(t *testing.T) {
	b, w := newTestBot(t)
	w.SetBlock(game.BlockPos{X: 2, Y: 64, Z: 2}, "tall_grass", nil)
	w.SetBlock(game.BlockPos{X: 3, Y: 64, Z: 3}, "bedrock", nil)
	w.SetBlock(game.BlockPos{X: 3, Y: 63, Z: 3}, "stone", nil)
	w.Give("glass", 2)

	bp := Blueprint{Name: "slab", Layers: [][][]string{{{"glass"}}}}
	a := b.Build(bp, true).(*build)
	require.NoError(t, a.Begin(context.Background()))
	require.NoError(t, a.clearSite(context.Background()))

	assert.Equal(t, []game.BlockPos{{X: 2, Y: 64, Z: 2}}, w.Digs())
	bl, _ := w.BlockAt(game.BlockPos{X: 3, Y: 64, Z: 3})
	assert.Equal(t, "bedrock", bl.Name)
}

func TestBuildUsesGiveWhenOperator(t *testing.T) {
	b, w := newTestBot(t)
	w.SetBlock(game.BlockPos{X: 3, Y: 63, Z: 3}, "stone", nil)
	w.OnChat = func(msg string) {
		if msg == "/give Lolicute minecraft:glass 2" {
			w.Give("glass", 2)
		}
	}
	bp := Blueprint{Name: "glass", Layers: [][][]string{{{"glass"}}}}
	a := b.Build(bp, false).(*build)
	require.NoError(t, a.Begin(context.Background()))
	require.ErrorIs(t, a.Tick(context.Background()), ErrDone)

	assert.Equal(t, PermGranted, b.buff.get())
	assert.Equal(t, []game.BlockPos{{X: 3, Y: 64, Z: 3}}, w.Places())
}
