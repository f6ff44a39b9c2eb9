package bot

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// Permission — известно ли, пускает ли сервер бота к командам (/tp, /effect).
type Permission int

const (
	PermUnknown Permission = iota
	PermGranted
	PermDenied
)

func (p Permission) String() string {
	switch p {
	case PermGranted:
		return "granted"
	case PermDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// RespawnState — что было перед смертью и что известно про /tp.
type RespawnState struct {
	LastMode     Mode
	LastPosition game.Vec3
	LastTarget   string
	TPPermission Permission
	TPFailCount  int
}

// режимы, которые восстанавливаются после возрождения
var restorableModes = map[Mode]bool{
	ModeFollowing:    true,
	ModeProtecting:   true,
	ModeFarming:      true,
	ModeCropFarming:  true,
	ModeFishing:      true,
	ModeChestHunting: true,
	ModeMining:       true,
	ModeExploring:    true,
}

// resumable — режим, который умеет создать свою свежую копию.
type resumable interface {
	resume() Activity
}

type respawnTracker struct {
	mu         sync.Mutex
	state      RespawnState
	resume     func() Activity
	died       bool
	recovering bool
}

// pending — была смерть и восстановление ещё не запущено.
func (r *respawnTracker) pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.died && !r.recovering
}

func (r *respawnTracker) snapshot() RespawnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// reset забывает сохранённый режим; знание про /tp остаётся.
func (r *respawnTracker) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.LastMode = ModeIdle
	r.state.LastPosition = game.Vec3{}
	r.state.LastTarget = ""
	r.state.TPFailCount = 0
	r.resume = nil
	r.died = false
	r.recovering = false
}

func (r *respawnTracker) setPermission(p Permission) {
	r.mu.Lock()
	r.state.TPPermission = p
	r.mu.Unlock()
}

// fail увеличивает счётчик неудач и возвращает его.
func (r *respawnTracker) fail() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.TPFailCount++
	return r.state.TPFailCount
}

func (b *Bot) RespawnState() RespawnState { return b.respawn.snapshot() }

// rememberDeath сохраняет режим, позицию и цель до остановки режима.
func (b *Bot) rememberDeath() {
	b.mu.Lock()
	mode, target, a := b.mode, b.target, b.activity
	b.mu.Unlock()

	r := &b.respawn
	r.mu.Lock()
	defer r.mu.Unlock()
	r.died = true
	r.recovering = false
	if !restorableModes[mode] {
		r.state.LastMode = ModeIdle
		r.resume = nil
		return
	}
	r.state.LastMode = mode
	r.state.LastPosition = b.w.Position()
	r.state.LastTarget = target
	r.resume = nil
	if ra, ok := a.(resumable); ok {
		r.resume = ra.resume
	}
}

// recoverAfterRespawn — после возрождения вернуться на место смерти и продолжить режим.
func (b *Bot) recoverAfterRespawn(ctx context.Context) {
	r := &b.respawn
	r.mu.Lock()
	if !r.died || r.recovering {
		r.mu.Unlock()
		return
	}
	r.recovering = true
	st, resume := r.state, r.resume
	r.mu.Unlock()

	if st.LastMode == ModeIdle || st.LastMode == "" || resume == nil {
		r.reset()
		return
	}
	rc := b.config().Respawn
	log := b.log.With(zap.String("mode", string(st.LastMode)))
	log.Info("restoring after respawn", zap.Stringer("pos", st.LastPosition))

	if err := game.Sleep(ctx, rc.SettleDelay); err != nil {
		return
	}

	switch st.TPPermission {
	case PermUnknown:
		granted, err := b.probeTeleport(ctx)
		if err != nil {
			return
		}
		if !granted {
			r.setPermission(PermDenied)
			r.fail()
			log.Info("no /tp permission")
			b.say("🥺 Tớ không có quyền /tp để quay lại vị trí cũ. Dừng hoạt động!")
			r.reset()
			return
		}
		r.setPermission(PermGranted)
		log.Info("/tp permission granted")
	case PermDenied:
		if r.fail() >= rc.MaxFailures {
			b.say("🥺 Tớ không có quyền /tp. Dừng tất cả hoạt động!")
			// права могли выдать: проверим заново после следующей смерти
			r.setPermission(PermUnknown)
			r.reset()
			return
		}
		log.Info("skipping respawn recovery: no /tp permission")
		r.mu.Lock()
		r.died, r.recovering = false, false
		r.mu.Unlock()
		return
	}

	for {
		b.say(fmt.Sprintf("/tp %s %d %d %d", b.w.Username(),
			int(math.Floor(st.LastPosition.X)), int(math.Floor(st.LastPosition.Y)), int(math.Floor(st.LastPosition.Z))))
		if err := game.Sleep(ctx, rc.TeleportCheck); err != nil {
			return
		}
		if b.w.Position().Distance(st.LastPosition) < 10 {
			break
		}
		n := r.fail()
		log.Info("teleport back failed", zap.Int("attempt", n))
		if n >= rc.MaxFailures {
			r.reset()
			return
		}
		if err := game.Sleep(ctx, rc.RetryDelay); err != nil {
			return
		}
	}

	b.restoreMode(st, resume)
	r.reset()
}

// probeTeleport — /tp на блок вверх; сдвинулись по Y — права есть.
func (b *Bot) probeTeleport(ctx context.Context) (bool, error) {
	before := b.w.Position()
	b.say(fmt.Sprintf("/tp %s %d %d %d", b.w.Username(),
		int(math.Floor(before.X)), int(math.Floor(before.Y+1)), int(math.Floor(before.Z))))
	if err := game.Sleep(ctx, b.config().Respawn.PermissionCheck); err != nil {
		return false, err
	}
	return math.Abs(b.w.Position().Y-before.Y) > 0.5, nil
}

func (b *Bot) restoreMode(st RespawnState, resume func() Activity) {
	if st.LastMode == ModeFollowing || st.LastMode == ModeProtecting {
		if st.LastTarget == "" || !b.playerOnline(st.LastTarget) {
			b.log.Info("restore skipped: target offline", zap.String("target", st.LastTarget))
			return
		}
	}
	a := resume()
	if err := b.StartMode(a); err != nil {
		b.log.Warn("restore failed", zap.Error(err))
		b.say("err: " + err.Error())
		return
	}
	msg := "🔄 Quay lại " + string(st.LastMode) + "!"
	if st.LastTarget != "" {
		msg = fmt.Sprintf("🔄 Quay lại %s %s!", st.LastMode, st.LastTarget)
	}
	b.say(msg)
	b.notify("respawn", fmt.Sprintf("%s restored %s", b.w.Username(), st.LastMode))
}

func (b *Bot) playerOnline(name string) bool {
	for _, p := range b.w.Players() {
		if p == name {
			return true
		}
	}
	return false
}
