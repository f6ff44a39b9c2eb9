package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/bot"
)

type fakeGen struct {
	reply   string
	err     error
	prompts []string
	limits  []int32
}

func (f *fakeGen) generate(_ context.Context, system, prompt string, limit int32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.limits = append(f.limits, limit)
	return f.reply, f.err
}

func TestReplyTrimsToOneLine(t *testing.T) {
	gen := &fakeGen{reply: "  Chào cậu nè! 🌸\nTớ là Loli uwu \n"}
	c := newChat(gen, nil)
	got, err := c.Reply(context.Background(), "Steve", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Chào cậu nè! 🌸 Tớ là Loli uwu", got)
	assert.Equal(t, []string{`Steve nói: "hello"`}, gen.prompts)
}

func TestReplyLimitsLength(t *testing.T) {
	long := strings.Repeat("ờ", 300)
	got := trimReply(long)
	assert.Equal(t, maxReplyRunes, len([]rune(got)))
	assert.Equal(t, "ok", trimReply("ok"))
}

func TestRateLimitPerUser(t *testing.T) {
	gen := &fakeGen{reply: "hi"}
	c := newChat(gen, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Reply(context.Background(), "Steve", "a")
	require.NoError(t, err)
	_, err = c.Reply(context.Background(), "steve", "b")
	require.ErrorIs(t, err, ErrRateLimited)
	// другой игрок не ждёт
	_, err = c.Reply(context.Background(), "Alex", "c")
	require.NoError(t, err)

	now = now.Add(userCooldown)
	_, err = c.Reply(context.Background(), "Steve", "d")
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 3)
}

func TestReplyWrapsProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	c := newChat(&fakeGen{err: boom}, nil)
	_, err := c.Reply(context.Background(), "Steve", "hello")
	require.ErrorIs(t, err, boom)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	_, err = New(context.Background(), Config{Provider: "claude", APIKey: "k"}, nil)
	require.Error(t, err)

	c, err := New(context.Background(), Config{Provider: "OpenAI", APIKey: "k", BaseURL: "http://localhost:1234/v1"}, nil)
	require.NoError(t, err)
	oa, ok := c.gen.(*openAI)
	require.True(t, ok)
	assert.NotEmpty(t, oa.model)
}

func TestParsePlan(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bot.Plan
		err  bool
	}{
		{
			name: "bare json",
			text: `{"actions":[{"type":"collect","item":"oak_log","count":5}],"summary":"Đi chặt gỗ"}`,
			want: bot.Plan{Summary: "Đi chặt gỗ", Actions: []bot.PlanAction{{Type: "collect", Item: "oak_log", Count: 5}}},
		},
		{
			name: "fenced with chatter",
			text: "Đây nè:\n```json\n{\"actions\":[{\"type\":\"move\",\"target\":\"tree\",\"distance\":15},{\"type\":\"chat\",\"message\":\"xong\"}]}\n```",
			want: bot.Plan{Actions: []bot.PlanAction{{Type: "move", Target: "tree", Distance: 15}, {Type: "chat", Message: "xong"}}},
		},
		{name: "no json", text: "tớ không hiểu", err: true},
		{name: "empty actions", text: `{"actions":[],"summary":"?"}`, err: true},
		{name: "action without type", text: `{"actions":[{"item":"dirt"}]}`, err: true},
		{name: "broken json", text: `{"actions":[{"type":}`, err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePlan(tc.text)
			if tc.err {
				assert.ErrorIs(t, err, ErrBadPlan)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tc.want, got))
		})
	}
}

func TestPlanUsesLargerTokenBudget(t *testing.T) {
	gen := &fakeGen{reply: `{"actions":[{"type":"follow","player":"Steve"}],"summary":"Theo cậu nè"}`}
	c := newChat(gen, nil)

	plan, err := c.Plan(context.Background(), "Steve", "đi theo tớ")
	require.NoError(t, err)
	assert.Equal(t, "Theo cậu nè", plan.Summary)
	require.Len(t, gen.limits, 1)
	assert.Equal(t, int32(planTokens), gen.limits[0])
	assert.Contains(t, gen.prompts[0], `"đi theo tớ"`)

	// отдельный лимит: план не мешает обычному ответу
	gen.reply = "ok"
	_, err = c.Reply(context.Background(), "Steve", "hi")
	require.NoError(t, err)
	_, err = c.Plan(context.Background(), "Steve", "again")
	assert.ErrorIs(t, err, ErrRateLimited)
}
