package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

// Plan — что ИИ предлагает сделать по просьбе игрока.
type Plan struct {
	Summary string       `json:"summary"`
	Actions []PlanAction `json:"actions"`
}

// PlanAction — один шаг плана; поля зависят от Type.
type PlanAction struct {
	Type     string  `json:"type"` // move | collect | dig | craft | smelt | attack | follow | chat
	Target   string  `json:"target,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Item     string  `json:"item,omitempty"`
	Block    string  `json:"block,omitempty"`
	Count    int     `json:"count,omitempty"`
	Input    string  `json:"input,omitempty"`
	Output   string  `json:"output,omitempty"`
	Player   string  `json:"player,omitempty"`
	Message  string  `json:"message,omitempty"`
}

const (
	maxPlanActions = 10
	planSearch     = 32
)

var errNoTarget = errors.New("no target given")

func (b *Bot) cmdAgent(c cmdCtx) error {
	if b.planner == nil {
		return errNoResponder
	}
	if len(c.args) == 0 {
		return errors.New("usage: ai <request>")
	}
	request := strings.Join(c.args, " ")
	b.say(fmt.Sprintf("🤖 AI đang phân tích: %q...", request))
	b.chore("ai", func(ctx context.Context) error { return b.RunPlan(ctx, c.sender, request) })
	return nil
}

// RunPlan просит у ИИ план и выполняет шаги по очереди; на первой ошибке останавливается.
func (b *Bot) RunPlan(ctx context.Context, sender, request string) error {
	pctx, cancel := context.WithTimeout(ctx, replyTimeout)
	plan, err := b.planner.Plan(pctx, sender, request)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.log.Info("ai plan failed", zap.String("sender", sender), zap.Error(err))
		b.say("😵 AI trả về format không hợp lệ!")
		return nil
	}

	summary := plan.Summary
	if summary == "" {
		summary = "Bắt đầu thực hiện!"
	}
	b.say("✨ " + summary)
	actions := plan.Actions
	if len(actions) > maxPlanActions {
		actions = actions[:maxPlanActions]
	}
	for i, a := range actions {
		if i > 0 {
			if err := game.Sleep(ctx, b.config().Modes.PlanPause); err != nil {
				return err
			}
		}
		b.log.Info("ai action", zap.Int("step", i+1), zap.Int("of", len(actions)), zap.String("type", a.Type))
		if err := b.runAction(ctx, sender, a); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Info("ai action failed", zap.String("type", a.Type), zap.Error(err))
			b.say("😵 Lỗi khi thực hiện: " + a.Type)
			return nil
		}
		b.touch()
	}
	b.say("✅ Hoàn thành tất cả AI actions!")
	return nil
}

func (b *Bot) runAction(ctx context.Context, sender string, a PlanAction) error {
	switch strings.ToLower(a.Type) {
	case "move":
		return b.planMove(ctx, a)
	case "collect":
		return b.planGather(ctx, a.Item, a.Count, 5, false)
	case "dig":
		return b.planGather(ctx, a.Block, a.Count, 10, true)
	case "craft":
		// рецептов у нас нет: честно говорим и идём дальше
		b.say(fmt.Sprintf("⚠️ Tớ chưa biết chế tạo %s", itemLabel(a.Item)))
	case "smelt":
		b.say(fmt.Sprintf("⚠️ Tớ chưa biết nung %s thành %s", itemLabel(a.Input), itemLabel(a.Output)))
	case "attack":
		return b.planAttack(ctx, a)
	case "follow":
		name := a.Player
		if name == "" {
			name = sender
		}
		p, ok := b.resolvePlayer(name)
		if !ok {
			return fmt.Errorf("%s: %w", name, errPlayerNotFound)
		}
		b.say(fmt.Sprintf("👣 Đang theo %s...", p))
		return b.StartMode(b.Follow(p))
	case "chat":
		msg := a.Message
		if msg == "" {
			msg = "Hello!"
		}
		b.say(msg)
	default:
		b.log.Warn("unknown ai action", zap.String("type", a.Type))
	}
	return nil
}

// planMove идёт к дереву, воде, сундуку или игроку; иначе просто гуляет.
func (b *Bot) planMove(ctx context.Context, a PlanAction) error {
	target := strings.ToLower(strings.TrimSpace(a.Target))
	dist := a.Distance
	if dist <= 0 {
		dist = 20
	}
	b.say(fmt.Sprintf("🚶 Đang di chuyển đến %s...", target))

	var match func(string) bool
	switch target {
	case "tree", "log", "wood":
		match = func(n string) bool { return strings.HasSuffix(n, "_log") }
	case "water":
		match = func(n string) bool { return n == "water" }
	case "chest":
		match = func(n string) bool { return n == "chest" || n == "barrel" }
	}
	if match != nil {
		found := b.w.FindBlocks(game.BlockQuery{Name: match, MaxDistance: max(dist, planSearch), Count: 1})
		if len(found) == 0 {
			b.say(fmt.Sprintf("🥺 Không tìm thấy %s gần đây!", target))
			return nil
		}
		if err := b.w.Goto(ctx, found[0].Pos.Center(), 2); err != nil {
			return err
		}
		b.say(fmt.Sprintf("✅ Đã đến %s!", target))
		return nil
	}
	if p, ok := b.resolvePlayer(target); ok && target != "" {
		e, ok := b.w.PlayerEntity(p)
		if !ok {
			b.say(fmt.Sprintf("🥺 %s ở xa quá!", p))
			return nil
		}
		if err := b.w.Goto(ctx, e.Position, 2); err != nil {
			return err
		}
		b.say(fmt.Sprintf("✅ Đã đến chỗ %s!", p))
		return nil
	}
	if err := b.wander(ctx, dist/4, dist/2, 30*time.Second); err != nil {
		return err
	}
	b.say("✅ Đã di chuyển!")
	return nil
}

// planGather добывает count блоков, чьё имя содержит name. Недоступные блоки пропускает.
func (b *Bot) planGather(ctx context.Context, name string, count, def int, dig bool) error {
	name = blockQuery(name)
	if name == "" {
		return errNoTarget
	}
	if count <= 0 {
		count = def
	}
	verb := "thu thập"
	if dig {
		verb = "đào"
		b.say(fmt.Sprintf("⛏️ Đang đào %d %s...", count, itemLabel(name)))
	} else {
		b.say(fmt.Sprintf("🌳 Đang thu thập %d %s...", count, itemLabel(name)))
	}
	if strings.Contains(name, "ore") || strings.Contains(name, "stone") || strings.Contains(name, "deepslate") {
		b.equipPickaxe()
	}

	skip := map[game.BlockPos]bool{}
	got := 0
	for tries := 0; got < count && tries < count*3; tries++ {
		found := b.w.FindBlocks(game.BlockQuery{
			Name:        func(n string) bool { return strings.Contains(n, name) },
			Match:       func(bl game.Block) bool { return !skip[bl.Pos] },
			MaxDistance: planSearch,
			Count:       1,
		})
		if len(found) == 0 {
			break
		}
		bl := found[0]
		if err := b.moveNear(ctx, bl.Pos.Center(), 3, 15*time.Second); err != nil {
			if err := retryLater(err); err != nil {
				return err
			}
			skip[bl.Pos] = true
			continue
		}
		_ = b.w.LookAt(bl.Pos.Center())
		dctx, cancel := context.WithTimeout(ctx, 8*time.Second)
		err := b.w.Dig(dctx, bl.Pos)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Debug("ai dig failed", zap.Stringer("pos", bl.Pos), zap.Error(err))
			skip[bl.Pos] = true
			continue
		}
		got++
		b.collectDrops(ctx, 6, 2)
	}
	if got < count {
		b.say(fmt.Sprintf("🥺 Chỉ %s được %d/%d %s", verb, got, count, itemLabel(name)))
		return nil
	}
	b.say(fmt.Sprintf("✅ Đã %s xong %s!", verb, plural.Pluralize(itemLabel(name), got, true)))
	return nil
}

// planAttack бьёт ближайшую в радиусе 20 сущность с подходящим именем 10 раз.
func (b *Bot) planAttack(ctx context.Context, a PlanAction) error {
	target := strings.ToLower(strings.TrimSpace(a.Target))
	if target == "" {
		return errNoTarget
	}
	b.say(fmt.Sprintf("⚔️ Đang tìm và tấn công %s...", target))
	self := b.w.Username()
	mob, ok := game.NearestEntity(b.w.Entities(), b.w.Position(), 20, func(e game.Entity) bool {
		return e.Username != self && strings.Contains(strings.ToLower(e.Label()), target)
	})
	if !ok {
		b.say(fmt.Sprintf("🥺 Không tìm thấy %s gần đây!", target))
		return nil
	}
	b.equipBestWeapon()
	if err := retryLater(b.moveNear(ctx, mob.Position, 2, 10*time.Second)); err != nil {
		return err
	}
	_ = b.w.LookAt(mob.Position.Offset(0, 1, 0))
	if err := b.swing(ctx, mob.ID, 10); err != nil {
		return err
	}
	b.say(fmt.Sprintf("✅ Đã tấn công %s!", target))
	return nil
}

// blockQuery приводит «Oak Log» и «minecraft:oak_log» к oak_log.
func blockQuery(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return game.TrimNamespace(strings.Join(strings.Fields(s), "_"))
}

func itemLabel(s string) string { return strings.ReplaceAll(blockQuery(s), "_", " ") }
