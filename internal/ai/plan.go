package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/bot"
)

var ErrBadPlan = errors.New("ai returned an invalid plan")

const planner = `Bạn là bộ não của bot Minecraft. Hãy chuyển yêu cầu của người chơi thành
danh sách hành động. Chỉ trả về JSON, không giải thích:
{"actions":[...],"summary":"mô tả ngắn"}
Các hành động được phép:
{"type":"move","target":"tree|water|chest|<tên người chơi>","distance":20}
{"type":"collect","item":"oak_log","count":5}
{"type":"dig","block":"iron_ore","count":10}
{"type":"craft","item":"crafting_table","count":1}
{"type":"smelt","input":"iron_ore","output":"iron_ingot","count":1}
{"type":"attack","target":"zombie"}
{"type":"follow","player":"<tên người chơi>"}
{"type":"chat","message":"..."}
Tối đa 10 hành động.`

// Plan просит модель разложить просьбу игрока на шаги для бота.
func (c *Chat) Plan(ctx context.Context, user, request string) (bot.Plan, error) {
	if !c.allow("plan/" + user) {
		return bot.Plan{}, ErrRateLimited
	}
	prompt := fmt.Sprintf("Người chơi %s yêu cầu: %q", user, request)
	c.log.Debug("ai plan request", zap.String("user", user), zap.String("request", request))
	text, err := c.gen.generate(ctx, planner, prompt, planTokens)
	if err != nil {
		return bot.Plan{}, fmt.Errorf("ai plan: %w", err)
	}
	plan, err := parsePlan(text)
	if err != nil {
		c.log.Info("ai plan rejected", zap.String("user", user), zap.String("text", text), zap.Error(err))
		return bot.Plan{}, err
	}
	return plan, nil
}

// parsePlan достаёт JSON-объект из ответа: модели любят обрамлять его ``` и текстом.
func parsePlan(text string) (bot.Plan, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return bot.Plan{}, fmt.Errorf("no json object: %w", ErrBadPlan)
	}
	var plan bot.Plan
	if err := json.Unmarshal([]byte(text[start:end+1]), &plan); err != nil {
		return bot.Plan{}, fmt.Errorf("%w: %v", ErrBadPlan, err)
	}
	if len(plan.Actions) == 0 {
		return bot.Plan{}, fmt.Errorf("no actions: %w", ErrBadPlan)
	}
	for i, a := range plan.Actions {
		if strings.TrimSpace(a.Type) == "" {
			return bot.Plan{}, fmt.Errorf("action %d has no type: %w", i+1, ErrBadPlan)
		}
	}
	return plan, nil
}
