package mcclient

import (
	"context"
	"fmt"
	"time"

	"github.com/EgorLis/botlolicute/internal/game"
)

const (
	moveTick     = 50 * time.Millisecond
	moveStep     = 0.21 // ~4.3 блока/с, скорость ходьбы
	maxReplans   = 4
	desyncMargin = 0.9
)

// Goto идёт к goal, пока расстояние не станет <= rng.
// Новый вызов Goto или StopMoving отменяет текущее движение.
func (c *Client) Goto(ctx context.Context, goal game.Vec3, rng float64) error {
	if !c.IsConnected() {
		return game.ErrNotConnected
	}
	ctx, gen := c.beginMove(ctx)
	defer c.endMove(gen)

	for attempt := 0; attempt < maxReplans; attempt++ {
		from := c.Position()
		if from.Distance(goal) <= rng {
			return nil
		}

		c.mu.RLock()
		path, _ := findPath(c.terrain, from.Block(), goal, rng, maxPathNodes)
		startLoaded := c.chunks.loaded(from.Block())
		c.mu.RUnlock()

		if len(path) == 0 {
			if startLoaded {
				break
			}
			// чанки ещё не пришли — идём по прямой
			if err := c.walkLine(ctx, goal, rng); err != nil {
				return err
			}
			continue
		}

		desync, err := c.walkPath(ctx, path)
		if err != nil {
			return err
		}
		if !desync && c.Position().Distance(goal) <= rng {
			return nil
		}
	}
	if c.Position().Distance(goal) <= rng+1 {
		return nil
	}
	return fmt.Errorf("goto %v: %w", goal, game.ErrNoPath)
}

func (c *Client) StopMoving() {
	c.moveMu.Lock()
	if c.moveCancel != nil {
		c.moveCancel()
		c.moveCancel = nil
	}
	c.moveMu.Unlock()
}

func (c *Client) beginMove(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)
	c.moveMu.Lock()
	if c.moveCancel != nil {
		c.moveCancel()
	}
	c.moveCancel = cancel
	c.moveGen++
	gen := c.moveGen
	c.moveMu.Unlock()
	return ctx, gen
}

func (c *Client) endMove(gen uint64) {
	c.moveMu.Lock()
	if c.moveGen == gen && c.moveCancel != nil {
		c.moveCancel()
		c.moveCancel = nil
	}
	c.moveMu.Unlock()
}

// terrain читает мир; вызывать под c.mu.
func (c *Client) terrain(pos game.BlockPos) (string, bool) {
	st, ok := c.chunks.state(pos)
	if !ok {
		return "", false
	}
	return blockName(st), true
}

// walkPath проходит узлы пути. desync=true, если сервер откатил позицию.
func (c *Client) walkPath(ctx context.Context, path []game.BlockPos) (desync bool, err error) {
	for _, node := range path {
		target := node.Vec3()
		pos := c.Position()
		// на подъёме сначала прыжок, на спуске сначала шаг вперёд
		if target.Y > pos.Y {
			if err := c.sendPosition(game.V(pos.X, target.Y, pos.Z), false); err != nil {
				return false, err
			}
		}
		ok, err := c.stepTo(ctx, game.V(target.X, pos.Y+max(0, target.Y-pos.Y), target.Z))
		if err != nil || !ok {
			return !ok, err
		}
		if target.Y < pos.Y {
			if ok, err := c.stepTo(ctx, target); err != nil || !ok {
				return !ok, err
			}
		}
	}
	return false, nil
}

// stepTo двигается к точке по moveStep за тик; ok=false — сервер телепортировал нас.
func (c *Client) stepTo(ctx context.Context, target game.Vec3) (ok bool, err error) {
	t := time.NewTicker(moveTick)
	defer t.Stop()
	for {
		pos := c.Position()
		d := target.Sub(pos)
		dist := d.Len()
		if dist < 0.01 {
			return true, nil
		}
		next := target
		if dist > moveStep {
			next = pos.Add(d.Scale(moveStep / dist))
		}
		if err := c.lookFlat(target); err != nil {
			return false, err
		}
		if err := c.sendPosition(next, true); err != nil {
			return false, err
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-t.C:
		}
		if c.Position().Distance(next) > desyncMargin {
			return false, nil
		}
	}
}

// lookFlat поворачивает голову по направлению движения, не меняя наклон.
func (c *Client) lookFlat(target game.Vec3) error {
	pos := c.Position()
	return c.LookAt(game.V(target.X, pos.Y+eyeHeight, target.Z))
}

// walkLine — идём по прямой без учёта рельефа.
func (c *Client) walkLine(ctx context.Context, goal game.Vec3, rng float64) error {
	for c.Position().Distance(goal) > rng {
		pos := c.Position()
		d := goal.Sub(pos)
		next := pos.Add(d.Scale(min(1, 2/d.Len())))
		ok, err := c.stepTo(ctx, next)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}
