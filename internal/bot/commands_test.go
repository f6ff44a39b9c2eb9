package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/game"
)

func TestMatchCommandPrefersLongestAlias(t *testing.T) {
	cases := []struct {
		text  string
		usage string
		rest  string
	}{
		{"crop farm", "crop farm", ""},
		{"farm", "farm", ""},
		{"Auto Đào diamond", "mine <ore>", "diamond"},
		{"bảo vệ Steve", "protect [player]", "Steve"},
		{"list players", "list players", ""},
		{"build castle 9x9x6 \"stone_bricks\"", "build <house|tower|bridge|kind WxLxH> [clear]", "castle 9x9x6 \"stone_bricks\""},
		{"tớ hỏi nè trời có mưa không", "ask <question>", "trời có mưa không"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			cmd, rest := matchCommand(strings.Fields(tc.text))
			require.NotNil(t, cmd)
			assert.Equal(t, tc.usage, cmd.usage)
			assert.Equal(t, tc.rest, rest)
		})
	}

	cmd, _ := matchCommand([]string{"hello", "there"})
	assert.Nil(t, cmd)
}

func TestIgnoredSenders(t *testing.T) {
	for _, s := range []string{"Lolicute", "server", "Console", "[Server]", "EssentialsPlugin", "System", "Admin"} {
		assert.True(t, ignoredSender(s, "Lolicute"), s)
	}
	assert.False(t, ignoredSender("Steve", "Lolicute"))
	assert.True(t, pluginNoise("A new update available! download at: spigotmc.org"))
}

func TestHandleChatIgnoresOwnMessages(t *testing.T) {
	b, w := newTestBot(t)
	b.handleChat("Lolicute", "say loop")
	assert.Empty(t, w.Chats())
}

func TestFollowCommandDefaultsToSender(t *testing.T) {
	b, w := newTestBot(t)
	pos := game.V(1.5, 64, 1.5)
	w.AddPlayer(2, ".Steve", &pos)

	require.NoError(t, b.HandleCommand("Steve", "follow me"))
	assert.Equal(t, ModeFollowing, b.Mode())
	assert.Equal(t, ".Steve", b.Target())
	assert.True(t, w.ChatContains("Đang theo .Steve"))

	require.NoError(t, b.HandleCommand("Steve", "stop"))
	assert.Equal(t, ModeIdle, b.Mode())
}

func TestProtectUnknownPlayer(t *testing.T) {
	b, _ := newTestBot(t)
	err := b.HandleCommand("Steve", "protect Alex")
	require.ErrorIs(t, err, errPlayerNotFound)
	assert.Equal(t, ModeIdle, b.Mode())
}

func TestMineCommandNeedsPickaxe(t *testing.T) {
	b, w := newTestBot(t)
	require.ErrorIs(t, b.HandleCommand("Steve", "mine diamond"), errNoPickaxe)
	require.Error(t, b.HandleCommand("Steve", "mine"))

	w.Give("iron_pickaxe", 1)
	require.NoError(t, b.HandleCommand("Steve", "auto mine diamond"))
	assert.Equal(t, ModeMining, b.Mode())
}

func TestSayAndListPlayers(t *testing.T) {
	b, w := newTestBot(t)
	w.AddPlayer(1, "Lolicute", nil)
	w.AddPlayer(2, "Steve", nil)
	w.AddPlayer(3, "Alex", nil)

	require.NoError(t, b.HandleCommand("Steve", `hãy nói "xin chào" mọi người`))
	assert.True(t, w.ChatContains("xin chào mọi người"))

	require.NoError(t, b.HandleCommand("Steve", "list players"))
	assert.True(t, w.ChatContains("2 players: [Steve, Alex]"))
}

func TestBuildCommandReportsMissingMaterials(t *testing.T) {
	b, w := newTestBot(t)
	require.NoError(t, b.HandleCommand("Steve", "build bridge"))
	require.Eventually(t, func() bool { return b.Mode() == ModeIdle }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, w.ChatContains("Thiếu vật liệu: oak_fence x36, oak_planks x54"))
	assert.Equal(t, PermDenied, b.buff.get())
}

func TestBuildCommandRejectsUnknownKind(t *testing.T) {
	b, _ := newTestBot(t)
	require.Error(t, b.HandleCommand("Steve", "build spaceship"))
	require.Error(t, b.HandleCommand("Steve", "build castle huge"))
}

type fakeResponder struct {
	mu    sync.Mutex
	asked []string
}

func (f *fakeResponder) Reply(_ context.Context, user, message string) (string, error) {
	f.mu.Lock()
	f.asked = append(f.asked, user+": "+message)
	f.mu.Unlock()
	return "chào " + user + "!", nil
}

func TestFreeTextGoesToAI(t *testing.T) {
	ai := &fakeResponder{}
	b, w := newTestBot(t, WithResponder(ai))
	require.NoError(t, b.HandleCommand("Steve", "hôm nay đẹp trời quá"))
	require.Eventually(t, func() bool { return w.ChatContains("chào Steve!") }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.HandleCommand("Steve", "ask bao giờ trời sáng?"))
	require.Eventually(t, func() bool {
		ai.mu.Lock()
		defer ai.mu.Unlock()
		return len(ai.asked) == 2 && ai.asked[1] == "Steve: bao giờ trời sáng?"
	}, time.Second, 5*time.Millisecond)
}

func TestAskWithoutAI(t *testing.T) {
	b, w := newTestBot(t)
	require.ErrorIs(t, b.HandleCommand("Steve", "ask hello"), errNoResponder)
	require.NoError(t, b.HandleCommand("Steve", "just chatting"))
	assert.Empty(t, w.Chats())
}

func TestGiveCommandTossesToSender(t *testing.T) {
	b, w := newTestBot(t)
	pos := game.V(4.5, 64, 0.5)
	w.AddPlayer(2, "Steve", &pos)
	w.Give("diamond", 5)
	w.Give("diamond", 10)

	require.NoError(t, b.HandleCommand("Steve", "give diamond 12"))
	require.Eventually(t, func() bool { return w.ChatContains("Đưa 12 diamonds cho Steve") }, time.Second, 5*time.Millisecond)
	total := 0
	for _, it := range w.Tosses() {
		total += it.Count
	}
	assert.Equal(t, 12, total)
	assert.Equal(t, 3, game.CountItems(w.Inventory(), "diamond"))
}

func TestSpamAttack(t *testing.T) {
	b, w := newTestBot(t)
	w.Give("iron_sword", 1)
	w.AddEntity(game.Entity{ID: 7, Name: "zombie", Kind: game.KindMob, Position: game.V(2.5, 64, 0.5)})

	require.NoError(t, b.HandleCommand("Steve", "spam attack"))
	require.Eventually(t, func() bool { return w.ChatContains("MEGA SPAM COMPLETE") }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, w.Attacks(), 20)
}

func TestHelpListsEveryCommand(t *testing.T) {
	b, w := newTestBot(t)
	require.NoError(t, b.HandleCommand("Steve", "help"))
	all := strings.Join(w.Chats(), " | ")
	for _, c := range commands {
		assert.Contains(t, all, c.usage)
	}
}
