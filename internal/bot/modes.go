package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mode — активный режим бота. Одновременно работает не больше одного.
type Mode string

const (
	ModeIdle         Mode = "idle"
	ModeFollowing    Mode = "following"
	ModeProtecting   Mode = "protecting"
	ModeFarming      Mode = "farming"
	ModeFishing      Mode = "fishing"
	ModeMining       Mode = "mining"
	ModeBuilding     Mode = "building"
	ModePVP          Mode = "pvp"
	ModeChestHunting Mode = "chest_hunting"
	ModeCropFarming  Mode = "crop_farming"
	ModeExploring    Mode = "exploring"
)

// ErrDone — режим завершил работу сам (цель достигнута или потеряна).
var ErrDone = errors.New("activity done")

var errStopped = errors.New("bot is stopped")

// Activity — один режим: Begin при старте, Tick по таймеру, End при остановке.
type Activity interface {
	Mode() Mode
	Interval() time.Duration
	Begin(ctx context.Context) error
	Tick(ctx context.Context) error
	End()
}

func (b *Bot) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Target — игрок, вокруг которого работает режим (follow/protect/pvp).
func (b *Bot) Target() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

func (b *Bot) is(m Mode) bool { return b.Mode() == m }

// StartMode останавливает текущий режим (с ожиданием) и запускает новый.
// Смена режима целиком идёт под modeMu: два вызова не запустят два режима.
func (b *Bot) StartMode(a Activity) error {
	b.modeMu.Lock()
	defer b.modeMu.Unlock()
	b.stopModeLocked()

	parent, ok := b.track()
	if !ok {
		return errStopped
	}
	ctx, cancel := context.WithCancel(parent)
	if err := a.Begin(ctx); err != nil {
		cancel()
		b.wg.Done()
		return err
	}
	done := make(chan struct{})
	b.mu.Lock()
	b.mode = a.Mode()
	b.activity = a
	b.modeCancel = cancel
	b.modeDone = done
	if t, ok := a.(interface{ targetName() string }); ok {
		b.target = t.targetName()
	} else {
		b.target = ""
	}
	b.mu.Unlock()

	b.log.Info("mode started", zap.String("mode", string(a.Mode())))
	b.notify("mode", fmt.Sprintf("%s → %s", b.w.Username(), a.Mode()))
	b.touch()

	go func() {
		defer b.wg.Done()
		b.runMode(ctx, a, done)
	}()
	return nil
}

func (b *Bot) runMode(ctx context.Context, a Activity, done chan struct{}) {
	defer close(done)
	defer a.End()

	interval := b.interval(a)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		err := a.Tick(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case errors.Is(err, ErrDone):
			b.finishMode(a)
			return
		default:
			b.log.Warn("mode failed", zap.String("mode", string(a.Mode())), zap.Error(err))
			b.say("err: " + err.Error())
			b.finishMode(a)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// finishMode — режим закончился сам; сбрасываем в idle, если его не сменили.
func (b *Bot) finishMode(a Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activity != a {
		return
	}
	b.modeCancel()
	b.mode = ModeIdle
	b.activity = nil
	b.modeCancel = nil
	b.modeDone = nil
	b.target = ""
	b.statusText = ""
	b.w.StopMoving()
}

// stopMode отменяет текущий режим и ждёт его завершения.
func (b *Bot) stopMode() {
	b.modeMu.Lock()
	defer b.modeMu.Unlock()
	b.stopModeLocked()
}

func (b *Bot) stopModeLocked() {
	b.mu.Lock()
	cancel, done := b.modeCancel, b.modeDone
	b.mode = ModeIdle
	b.activity = nil
	b.modeCancel = nil
	b.modeDone = nil
	b.target = ""
	b.statusText = ""
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.w.StopMoving()
	if done != nil {
		<-done
	}
}

// StopAll останавливает режим и движение; silent — без сообщения в чат.
func (b *Bot) StopAll(silent bool) {
	was := b.Mode()
	b.stopMode()
	if !silent {
		b.say("Đã dừng mọi hoạt động ✋")
	}
	if was != ModeIdle {
		b.log.Info("mode stopped", zap.String("mode", string(was)))
	}
}

func (b *Bot) interval(a Activity) time.Duration {
	if d, ok := b.config().Modes.Intervals[a.Mode()]; ok && d > 0 {
		return d
	}
	return a.Interval()
}
