package gametest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/EgorLis/botlolicute/internal/game"
)

func TestFindBlocksMatchMayReadWorld(t *testing.T) {
	w := NewWorld("Lolicute")
	w.SetBlock(game.BlockPos{X: 1, Y: 64, Z: 0}, "wheat", map[string]string{"age": "7"})
	w.SetBlock(game.BlockPos{X: 2, Y: 64, Z: 0}, "wheat", map[string]string{"age": "7"})
	w.SetBlock(game.BlockPos{X: 2, Y: 63, Z: 0}, "farmland", nil)

	done := make(chan []game.Block, 1)
	go func() {
		done <- w.FindBlocks(game.BlockQuery{
			Name: func(n string) bool { return n == "wheat" },
			Match: func(b game.Block) bool {
				below, ok := w.BlockAt(b.Pos.Offset(0, -1, 0))
				return ok && below.Name == "farmland"
			},
			MaxDistance: 16,
		})
	}()
	select {
	case got := <-done:
		if assert.Len(t, got, 1) {
			assert.Equal(t, game.BlockPos{X: 2, Y: 64, Z: 0}, got[0].Pos)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FindBlocks deadlocked on a Match that reads the world")
	}
}

func TestGotoPicksUpNearbyDrops(t *testing.T) {
	w := NewWorld("Lolicute")
	w.AddEntity(game.Entity{ID: 1, Name: "item", Position: game.V(5.5, 64, 0.5)})
	w.AddEntity(game.Entity{ID: 2, Name: "item", Position: game.V(9.5, 64, 0.5)})

	assert.NoError(t, w.Goto(t.Context(), game.V(5, 64, 0.5), 0.1))
	_, near := w.Entity(1)
	_, far := w.Entity(2)
	assert.False(t, near)
	assert.True(t, far)
}
