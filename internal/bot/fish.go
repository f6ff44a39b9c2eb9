package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// тайминги рыбалки
type fishTiming struct {
	settle     time.Duration // после заброса, до поиска поплавка
	findTries  int
	findEvery  time.Duration
	poll       time.Duration
	biteWait   time.Duration // без поклёвки — перезабросить
	afterCatch time.Duration
}

var defaultFishTiming = fishTiming{
	settle:     4 * time.Second,
	findTries:  10,
	findEvery:  500 * time.Millisecond,
	poll:       100 * time.Millisecond,
	biteWait:   45 * time.Second,
	afterCatch: time.Second,
}

// поплавок ниже точки покоя больше чем на столько — поклёвка
const biteDrop = 0.15

type fish struct {
	b      *Bot
	timing fishTiming
	caught int
}

// Fish — авторыбалка удочкой в ближайшей воде.
func (b *Bot) Fish() Activity { return &fish{b: b, timing: defaultFishTiming} }

func (f *fish) Mode() Mode              { return ModeFishing }
func (f *fish) Interval() time.Duration { return 6 * time.Second }
func (f *fish) resume() Activity        { return f.b.Fish() }

func isRod(name string) bool { return name == "fishing_rod" }

func isBobber(e game.Entity) bool { return e.Name == "fishing_bobber" }

func (f *fish) Begin(context.Context) error {
	f.b.say("🎣 Bắt đầu auto câu thông minh! Tớ chỉ cầm cần câu thôi nè~ ✨")
	f.b.setStatus("fishing")
	return nil
}

func (f *fish) End() {
	if f.caught > 0 {
		f.b.log.Info("fishing finished", zap.Int("caught", f.caught))
	}
}

func (f *fish) Tick(ctx context.Context) error {
	b := f.b
	if !b.hasItem(isRod) {
		b.say("🥺 Không có cần câu! Cần cần câu để hoạt động nè!")
		return ErrDone
	}
	if !b.equipTool(isRod) {
		return nil
	}

	water := b.w.FindBlocks(game.BlockQuery{
		Name:        func(n string) bool { return n == "water" },
		MaxDistance: 20,
		Count:       1,
	})
	if len(water) == 0 {
		b.say("🥺 Không tìm thấy nước gần! Cần tìm ao, sông hoặc biển~")
		return ErrDone
	}
	spot := water[0].Pos.Center()
	if b.w.Position().Distance(spot) > 5 {
		if err := retryLater(b.moveNear(ctx, spot, 4, 4*time.Second)); err != nil {
			return err
		}
	}
	_ = b.w.LookAt(spot)
	if err := b.w.UseItem(); err != nil {
		return retryLater(err)
	}
	if err := game.Sleep(ctx, f.timing.settle); err != nil {
		return err
	}

	bobber, ok, err := f.findBobber(ctx)
	if err != nil || !ok {
		return err
	}
	return f.watch(ctx, bobber)
}

func (f *fish) findBobber(ctx context.Context) (game.Entity, bool, error) {
	b := f.b
	for i := 0; i < f.timing.findTries; i++ {
		if e, ok := game.NearestEntity(b.w.Entities(), b.w.Position(), 15, isBobber); ok {
			return e, true, nil
		}
		if err := game.Sleep(ctx, f.timing.findEvery); err != nil {
			return game.Entity{}, false, err
		}
	}
	b.log.Debug("bobber not found, recasting")
	return game.Entity{}, false, nil
}

// watch ждёт, пока поплавок уйдёт под воду, и подсекает.
func (f *fish) watch(ctx context.Context, bobber game.Entity) error {
	b := f.b
	rest := bobber.Position.Y
	deadline := time.Now().Add(f.timing.biteWait)
	for time.Now().Before(deadline) {
		if err := game.Sleep(ctx, f.timing.poll); err != nil {
			return err
		}
		e, ok := b.w.Entity(bobber.ID)
		if !ok {
			// поплавок пропал (зацепился или его убрали) — закинем заново
			return nil
		}
		if e.Position.Y > rest {
			rest = e.Position.Y
		}
		if rest-e.Position.Y > biteDrop {
			if err := b.w.UseItem(); err != nil {
				return retryLater(err)
			}
			f.caught++
			b.say("🎣 Câu thành công! ✨")
			b.touch()
			return game.Sleep(ctx, f.timing.afterCatch)
		}
	}
	b.log.Debug("no bite, reeling in")
	return retryLater(b.w.UseItem())
}
