package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

var errNoSupport = errors.New("no adjacent block to place against")

// опоры: сначала снизу, потом по сторонам, в последнюю очередь сверху
var supportFaces = []game.BlockPos{{Y: -1}, {X: -1}, {X: 1}, {Z: -1}, {Z: 1}, {Y: 1}}

type build struct {
	b      *Bot
	bp     Blueprint
	clear  bool
	origin game.BlockPos

	placed  int
	skipped int
	failed  int
}

// Build — разовая постройка по чертежу рядом с ботом (+3, 0, +3).
// clear — сначала расчистить площадку вместе с каймой в один блок.
func (b *Bot) Build(bp Blueprint, clear bool) Activity {
	return &build{b: b, bp: bp, clear: clear}
}

func (c *build) Mode() Mode              { return ModeBuilding }
func (c *build) Interval() time.Duration { return time.Second }

func (c *build) Begin(context.Context) error {
	if c.bp.Total() == 0 {
		return errors.New("empty blueprint")
	}
	c.origin = c.b.w.Position().Block().Offset(3, 0, 3)
	w, l, h := c.bp.Size()
	c.b.say(fmt.Sprintf("🏗️ Bắt đầu xây %s (%dx%dx%d) tại (%d, %d, %d)!", c.bp.Name, w, l, h, c.origin.X, c.origin.Y, c.origin.Z))
	c.b.setStatus("building " + c.bp.Name)
	return nil
}

func (c *build) End() {
	c.b.log.Info("build finished",
		zap.String("blueprint", c.bp.Name),
		zap.Int("placed", c.placed),
		zap.Int("skipped", c.skipped),
		zap.Int("failed", c.failed))
}

func (c *build) Tick(ctx context.Context) error {
	b := c.b
	if missing := c.missing(); len(missing) > 0 {
		if b.buff.get() != PermDenied {
			c.requestMaterials(ctx, missing)
			missing = c.missing()
		}
		if len(missing) > 0 {
			b.say("🥺 Thiếu vật liệu: " + formatMaterials(missing))
			return ErrDone
		}
	}
	if c.clear {
		b.say("🧹 Dọn dẹp khu vực xây dựng...")
		if err := c.clearSite(ctx); err != nil {
			return err
		}
	}
	if err := c.place(ctx); err != nil {
		return err
	}
	c.report()
	return ErrDone
}

// missing — чего не хватает в инвентаре (с запасом 20%).
func (c *build) missing() map[string]int {
	inv := c.b.w.Inventory()
	out := map[string]int{}
	for name, need := range c.bp.Materials() {
		if have := game.CountItems(inv, name); have < need {
			out[name] = need - have
		}
	}
	return out
}

// requestMaterials выдаёт недостающее через /give; работает только с правами оператора.
func (c *build) requestMaterials(ctx context.Context, missing map[string]int) {
	b := c.b
	for _, name := range sortedKeys(missing) {
		b.say(fmt.Sprintf("/give %s minecraft:%s %d", b.w.Username(), name, missing[name]))
	}
	if err := game.Sleep(ctx, b.config().Modes.BuffCheck); err != nil {
		return
	}
	granted := len(c.missing()) < len(missing)
	b.buff.mu.Lock()
	if granted {
		b.buff.state = PermGranted
	} else if b.buff.state == PermUnknown {
		b.buff.state = PermDenied
	}
	b.buff.mu.Unlock()
	b.log.Info("give permission probed", zap.Bool("granted", granted))
}

func (c *build) at(x, y, z int) game.BlockPos { return c.origin.Offset(x, y, z) }

// clearSite сносит всё сверху вниз, включая кайму вокруг чертежа.
func (c *build) clearSite(ctx context.Context) error {
	b := c.b
	w, l, h := c.bp.Size()
	for y := h - 1; y >= 0; y-- {
		for x := -1; x <= w; x++ {
			for z := -1; z <= l; z++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				pos := c.at(x, y, z)
				bl, ok := b.w.BlockAt(pos)
				if !ok || bl.IsAir() || bl.Name == "bedrock" || bl.Name == "barrier" {
					continue
				}
				if err := c.dig(ctx, pos); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *build) dig(ctx context.Context, pos game.BlockPos) error {
	b := c.b
	if b.w.Position().Distance(pos.Center()) > 4 {
		if err := retryLater(b.moveNear(ctx, pos.Center(), 3, 5*time.Second)); err != nil {
			return err
		}
	}
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := b.w.Dig(dctx, pos)
	cancel()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		b.log.Debug("clear dig failed", zap.Stringer("pos", pos), zap.Error(err))
	}
	return nil
}

// place ставит блоки слой за слоем снизу вверх.
func (c *build) place(ctx context.Context) error {
	b := c.b
	total := c.bp.Total()
	done := 0
	for y, layer := range c.bp.Layers {
		for x, row := range layer {
			for z, name := range row {
				if name == air {
					continue
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				pos := c.at(x, y, z)
				err := c.placeOne(ctx, pos, name)
				switch {
				case err == nil:
				case ctx.Err() != nil:
					return ctx.Err()
				default:
					c.failed++
					b.log.Debug("place failed", zap.String("block", name), zap.Stringer("pos", pos), zap.Error(err))
				}
				done++
				if done%5 == 0 {
					b.setStatus(fmt.Sprintf("building %s %d/%d", c.bp.Name, done, total))
				}
			}
		}
	}
	return nil
}

func (c *build) placeOne(ctx context.Context, pos game.BlockPos, name string) error {
	b := c.b
	if cur, ok := b.w.BlockAt(pos); ok && !cur.IsAir() {
		if cur.Name == name {
			c.skipped++
			return nil
		}
		if err := c.dig(ctx, pos); err != nil {
			return err
		}
	}
	if b.w.Position().Distance(pos.Center()) > 4 {
		if err := retryLater(b.moveNear(ctx, pos.Center(), 3, 5*time.Second)); err != nil {
			return err
		}
	}
	item, ok := game.FindItem(b.w.Inventory(), func(it game.Item) bool { return it.Name == name })
	if !ok {
		return fmt.Errorf("no %s in inventory", name)
	}
	if err := b.w.Equip(item, game.SlotHand); err != nil {
		return err
	}
	support, ok := c.support(pos)
	if !ok {
		return errNoSupport
	}
	face, _ := game.FaceTowards(support, pos)
	_ = b.w.LookAt(pos.Center())
	if err := b.w.PlaceBlock(support, face); err != nil {
		return err
	}
	c.placed++
	b.touch()
	return game.Sleep(ctx, 50*time.Millisecond)
}

// support — соседний твёрдый блок, к грани которого можно приставить pos.
func (c *build) support(pos game.BlockPos) (game.BlockPos, bool) {
	for _, o := range supportFaces {
		n := pos.Offset(o.X, o.Y, o.Z)
		if bl, ok := c.b.w.BlockAt(n); ok && !bl.IsAir() {
			return n, true
		}
	}
	return game.BlockPos{}, false
}

func (c *build) report() {
	total := c.bp.Total()
	ok := c.placed + c.skipped
	pct := 0
	if total > 0 {
		pct = ok * 100 / total
	}
	switch {
	case pct >= 80:
		c.b.say(fmt.Sprintf("🎉 Hoàn thành %s! (%d/%d blocks, %d%%)", c.bp.Name, ok, total, pct))
	case pct >= 50:
		c.b.say(fmt.Sprintf("⚠️ Xây được một phần %s: %d/%d blocks (%d%%)", c.bp.Name, ok, total, pct))
	default:
		c.b.say(fmt.Sprintf("😵 Xây %s thất bại: chỉ %d/%d blocks (%d%%)", c.bp.Name, ok, total, pct))
	}
	c.b.notify("build", fmt.Sprintf("%s built %s: %d/%d", c.b.w.Username(), c.bp.Name, ok, total))
}

func formatMaterials(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s x%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
