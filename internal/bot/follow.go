package bot

import (
	"context"
	"strings"
	"time"

	"github.com/EgorLis/botlolicute/internal/game"
)

const (
	followTeleportDist = 14 // дальше — /tp
	followTPFailDist   = 15 // после /tp всё ещё дальше — неудача
	followResetDist    = 12
	followMaxTPFails   = 3
	boatCheckEvery     = 3 * time.Second
)

type follow struct {
	b      *Bot
	player string

	tpFails  int
	inBoat   bool
	lastBoat time.Time
}

// Follow — ходить за игроком, при отставании /tp, садиться в лодку вместе с ним.
func (b *Bot) Follow(player string) Activity { return &follow{b: b, player: player} }

func (f *follow) Mode() Mode              { return ModeFollowing }
func (f *follow) Interval() time.Duration { return 1500 * time.Millisecond }
func (f *follow) targetName() string      { return f.player }
func (f *follow) resume() Activity        { return f.b.Follow(f.player) }

func (f *follow) Begin(context.Context) error {
	f.b.setStatus("following " + f.player)
	return nil
}

func (f *follow) End() {
	if f.inBoat {
		_ = f.b.w.Dismount()
	}
}

func (f *follow) Tick(ctx context.Context) error {
	b := f.b
	target, ok := b.w.PlayerEntity(f.player)
	if !ok {
		b.say("🥺 Không thấy " + f.player + " nữa, dừng theo!")
		return ErrDone
	}
	dist := b.w.Position().Distance(target.Position)

	if time.Since(f.lastBoat) > boatCheckEvery {
		f.lastBoat = time.Now()
		f.checkBoat(ctx, target, dist)
	}
	if f.inBoat && dist <= 4 {
		return nil
	}

	if dist > followTeleportDist {
		if f.tpFails >= followMaxTPFails {
			b.say("🥺 Tớ không có quyền /tp để theo cậu. Dừng theo dõi!")
			return ErrDone
		}
		near, err := b.teleportTo(ctx, f.player, followTPFailDist)
		if err != nil {
			return err
		}
		if near {
			f.tpFails = 0
			return nil
		}
		f.tpFails++
		if f.tpFails >= followMaxTPFails {
			b.say("🥺 Tớ không có quyền /tp. Dừng theo dõi!")
			return ErrDone
		}
		return nil
	}
	if dist <= followResetDist {
		f.tpFails = 0
	}

	if !f.inBoat && dist > 3 {
		rng := 2.0
		if dist > 8 {
			rng = 3
		}
		return retryLater(b.moveNear(ctx, target.Position, rng, 3*time.Second))
	}
	return nil
}

func isBoat(e game.Entity) bool {
	return strings.Contains(e.Name, "boat") || strings.Contains(e.Name, "raft")
}

func (f *follow) checkBoat(ctx context.Context, target game.Entity, dist float64) {
	b := f.b
	onBoat := false
	if target.Vehicle != 0 {
		if v, ok := b.w.Entity(target.Vehicle); ok && isBoat(v) {
			onBoat = true
		}
	}
	switch {
	case onBoat && !f.inBoat:
		boat, ok := game.NearestEntity(b.w.Entities(), b.w.Position(), 4, isBoat)
		if !ok {
			return
		}
		if err := b.moveNear(ctx, boat.Position, 1, 2*time.Second); err != nil {
			return
		}
		if err := b.w.Interact(boat.ID); err != nil {
			return
		}
		f.inBoat = true
		b.say("🛥️ Lên thuyền theo cậu!")
	case f.inBoat && (!onBoat || dist > 4):
		_ = b.w.Dismount()
		f.inBoat = false
		b.say("🛥️ Xuống thuyền!")
	}
}
