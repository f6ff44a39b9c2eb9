package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/game"
)

type fakePlanner struct {
	plan Plan
	err  error

	mu       sync.Mutex
	requests []string
}

func (f *fakePlanner) Plan(_ context.Context, user, request string) (Plan, error) {
	f.mu.Lock()
	f.requests = append(f.requests, user+": "+request)
	f.mu.Unlock()
	return f.plan, f.err
}

func countChats(chats []string, sub string) int {
	n := 0
	for _, c := range chats {
		if strings.Contains(c, sub) {
			n++
		}
	}
	return n
}

func TestRunPlanExecutesStepsInOrder(t *testing.T) {
	p := &fakePlanner{plan: Plan{
		Summary: "Đi chặt gỗ rồi theo cậu",
		Actions: []PlanAction{
			{Type: "move", Target: "tree"},
			{Type: "collect", Item: "Oak Log", Count: 2},
			{Type: "craft", Item: "crafting_table"},
			{Type: "attack", Target: "zombie"},
			{Type: "chat", Message: "xong rồi nè"},
			{Type: "follow"},
		},
	}}
	b, w := newTestBot(t, WithPlanner(p))
	steve := game.V(-6, 64, 0)
	w.AddPlayer(2, "Steve", &steve)
	w.SetBlock(game.BlockPos{X: 5, Y: 64, Z: 0}, "oak_log", nil)
	w.SetBlock(game.BlockPos{X: 5, Y: 65, Z: 0}, "oak_log", nil)
	w.AddEntity(game.Entity{ID: 7, Name: "zombie", Kind: game.KindMob, Position: game.V(6, 64, 1)})

	require.NoError(t, b.RunPlan(context.Background(), "Steve", "chặt gỗ giúp tớ"))

	assert.Equal(t, []string{"Steve: chặt gỗ giúp tớ"}, p.requests)
	assert.Len(t, w.Digs(), 2)
	assert.Len(t, w.Attacks(), 10)
	assert.Equal(t, ModeFollowing, b.Mode())

	chats := w.Chats()
	assert.Contains(t, chats, "✨ Đi chặt gỗ rồi theo cậu")
	assert.Contains(t, chats, "✅ Đã đến tree!")
	assert.Contains(t, chats, "✅ Đã thu thập xong 2 oak logs!")
	assert.Contains(t, chats, "⚠️ Tớ chưa biết chế tạo crafting table")
	assert.Contains(t, chats, "xong rồi nè")
	assert.Contains(t, chats, "✅ Hoàn thành tất cả AI actions!")
}

func TestRunPlanStopsOnFailedStep(t *testing.T) {
	p := &fakePlanner{plan: Plan{Actions: []PlanAction{
		{Type: "chat", Message: "một"},
		{Type: "follow", Player: "Herobrine"},
		{Type: "chat", Message: "hai"},
	}}}
	b, w := newTestBot(t, WithPlanner(p))

	require.NoError(t, b.RunPlan(context.Background(), "Steve", "theo Herobrine"))
	assert.True(t, w.ChatContains("✨ Bắt đầu thực hiện!"))
	assert.True(t, w.ChatContains("một"))
	assert.True(t, w.ChatContains("😵 Lỗi khi thực hiện: follow"))
	assert.False(t, w.ChatContains("hai"))
	assert.False(t, w.ChatContains("Hoàn thành"))
	assert.Equal(t, ModeIdle, b.Mode())
}

func TestRunPlanCapsActions(t *testing.T) {
	var actions []PlanAction
	for i := range 12 {
		actions = append(actions, PlanAction{Type: "chat", Message: fmt.Sprintf("bước %d", i+1)})
	}
	b, w := newTestBot(t, WithPlanner(&fakePlanner{plan: Plan{Actions: actions}}))

	require.NoError(t, b.RunPlan(context.Background(), "Steve", "nói nhiều"))
	assert.Equal(t, maxPlanActions, countChats(w.Chats(), "bước "))
	assert.False(t, w.ChatContains("bước 11"))
}

func TestRunPlanReportsPlannerFailure(t *testing.T) {
	b, w := newTestBot(t, WithPlanner(&fakePlanner{err: errors.New("bad json")}))
	require.NoError(t, b.RunPlan(context.Background(), "Steve", "???"))
	assert.True(t, w.ChatContains("😵 AI trả về format không hợp lệ!"))
}

func TestRunPlanStopsWithContext(t *testing.T) {
	p := &fakePlanner{plan: Plan{Actions: []PlanAction{{Type: "chat", Message: "a"}, {Type: "chat", Message: "b"}}}}
	b, w := newTestBot(t, WithPlanner(p))
	cfg := b.config()
	cfg.Modes.PlanPause = time.Hour
	b.applyConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.RunPlan(ctx, "Steve", "x"), context.DeadlineExceeded)
	assert.Contains(t, w.Chats(), "a")
	assert.NotContains(t, w.Chats(), "b")
}

func TestAgentCommand(t *testing.T) {
	t.Run("without planner", func(t *testing.T) {
		b, _ := newTestBot(t)
		assert.ErrorIs(t, b.HandleCommand("Steve", "ai chặt cây"), errNoResponder)
	})
	t.Run("runs in background", func(t *testing.T) {
		p := &fakePlanner{plan: Plan{Summary: "Ok", Actions: []PlanAction{{Type: "chat", Message: "chào Steve"}}}}
		b, w := newTestBot(t, WithPlanner(p))
		require.NoError(t, b.HandleCommand("Steve", "ai nói chào tớ"))
		require.Eventually(t, func() bool { return w.ChatContains("✅ Hoàn thành tất cả AI actions!") }, time.Second, 5*time.Millisecond)
		assert.True(t, w.ChatContains(`🤖 AI đang phân tích: "nói chào tớ"...`))
		assert.True(t, w.ChatContains("chào Steve"))
	})
}

func TestBlockQueryNormalises(t *testing.T) {
	for in, want := range map[string]string{
		"Oak Log":             "oak_log",
		"minecraft:iron_ore":  "iron_ore",
		"  diamond   sword  ": "diamond_sword",
	} {
		assert.Equal(t, want, blockQuery(in), in)
	}
}
