package bot

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/game"
)

// restorable — scripted-режим, который умеет пересоздаваться после смерти.
type restorable struct{ scripted }

func newRestorable(m Mode) *restorable { return &restorable{scripted{mode: m}} }

func (r *restorable) resume() Activity { return newRestorable(r.mode) }

func TestRememberDeathSkipsNonRestorableModes(t *testing.T) {
	b, _ := newTestBot(t)
	require.NoError(t, b.StartMode(&scripted{mode: ModeBuilding}))
	b.rememberDeath()
	assert.Equal(t, ModeIdle, b.RespawnState().LastMode)
	assert.True(t, b.respawn.pending())
}

func TestRespawnRestoresFollowWithTeleport(t *testing.T) {
	n := &notifyRecorder{}
	b, w := newTestBot(t, WithNotifier(n))
	w.OP = true
	deathPos := game.V(100.5, 64, 100.5)
	w.SetPosition(deathPos)
	w.AddPlayer(2, "Steve", &deathPos)

	require.NoError(t, b.StartMode(b.Follow("Steve")))
	b.rememberDeath()
	b.stopMode()

	want := RespawnState{LastMode: ModeFollowing, LastPosition: deathPos, LastTarget: "Steve"}
	if diff := cmp.Diff(want, b.RespawnState()); diff != "" {
		t.Fatalf("respawn state mismatch (-want +got):\n%s", diff)
	}

	// возродились на спавне
	w.SetPosition(game.V(0.5, 64, 0.5))
	b.recoverAfterRespawn(context.Background())

	assert.Equal(t, ModeFollowing, b.Mode())
	assert.Equal(t, "Steve", b.Target())
	assert.True(t, w.ChatContains("/tp Lolicute 100 64 100"))
	assert.True(t, w.ChatContains("🔄 Quay lại following Steve!"))
	assert.True(t, n.has("respawn"))

	st := b.RespawnState()
	assert.Equal(t, PermGranted, st.TPPermission)
	assert.Equal(t, ModeIdle, st.LastMode)
	assert.False(t, b.respawn.pending())
}

func TestRespawnWithoutPermission(t *testing.T) {
	b, w := newTestBot(t)
	w.SetPosition(game.V(50.5, 30, 50.5))
	require.NoError(t, b.StartMode(newRestorable(ModeFarming)))
	b.rememberDeath()
	b.stopMode()

	w.SetPosition(game.V(0.5, 64, 0.5))
	b.recoverAfterRespawn(context.Background())

	assert.Equal(t, ModeIdle, b.Mode())
	assert.True(t, w.ChatContains("không có quyền /tp"))
	st := b.RespawnState()
	assert.Equal(t, PermDenied, st.TPPermission)
	assert.Equal(t, ModeIdle, st.LastMode)

	// при известном запрете /tp больше не пробуем, но считаем неудачи
	for i := 0; i < 2; i++ {
		require.NoError(t, b.StartMode(newRestorable(ModeFarming)))
		b.rememberDeath()
		b.stopMode()
		chats := len(w.Chats())
		b.recoverAfterRespawn(context.Background())
		assert.Len(t, w.Chats(), chats)
		assert.Equal(t, ModeIdle, b.Mode())
	}
	// третья неудача: сброс, права проверим заново
	require.NoError(t, b.StartMode(newRestorable(ModeFarming)))
	b.rememberDeath()
	b.stopMode()
	b.recoverAfterRespawn(context.Background())
	assert.Equal(t, PermUnknown, b.RespawnState().TPPermission)
	assert.Zero(t, b.RespawnState().TPFailCount)
}

func TestRespawnTeleportRetriesThenGivesUp(t *testing.T) {
	b, w := newTestBot(t)
	b.respawn.setPermission(PermGranted)
	w.SetPosition(game.V(200.5, 64, 200.5))
	require.NoError(t, b.StartMode(newRestorable(ModeExploring)))
	b.rememberDeath()
	b.stopMode()

	// прав на деле нет: /tp не двигает
	w.SetPosition(game.V(0.5, 64, 0.5))
	b.recoverAfterRespawn(context.Background())

	tps := 0
	for _, c := range w.Chats() {
		if c == "/tp Lolicute 200 64 200" {
			tps++
		}
	}
	assert.Equal(t, 3, tps)
	assert.Equal(t, ModeIdle, b.Mode())
	assert.False(t, b.respawn.pending())
}

func TestRespawnSkipsFollowWhenTargetOffline(t *testing.T) {
	b, w := newTestBot(t)
	w.OP = true
	pos := game.V(20.5, 64, 20.5)
	w.SetPosition(pos)
	w.AddPlayer(2, "Steve", &pos)
	require.NoError(t, b.StartMode(b.Protect("Steve")))
	b.rememberDeath()
	b.stopMode()
	w.RemovePlayer("Steve")

	w.SetPosition(game.V(0.5, 64, 0.5))
	b.recoverAfterRespawn(context.Background())
	assert.Equal(t, ModeIdle, b.Mode())
}

func TestOnDeathStopsModeAndNotifies(t *testing.T) {
	n := &notifyRecorder{}
	b, w := newTestBot(t, WithNotifier(n))
	require.NoError(t, b.StartMode(newRestorable(ModeExploring)))
	w.SetHealth(0)
	b.OnDeath()

	assert.Equal(t, ModeIdle, b.Mode())
	assert.True(t, n.has("death"))
	assert.Equal(t, ModeExploring, b.RespawnState().LastMode)
	require.Eventually(t, func() bool { return w.Respawns() == 1 }, 3*time.Second, 10*time.Millisecond)
}
