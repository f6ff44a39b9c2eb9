package runner

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/mcclient"
	"github.com/EgorLis/botlolicute/internal/notify"
)

func TestMain(m *testing.M) {
	// воркер статистики opencensus стартует в init (тянется через клиент GenAI)
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// refusingServer принимает соединения и сразу их закрывает.
func refusingServer(t *testing.T) (string, int) { return fakeServer(t, false) }

// silentServer принимает соединения и молчит, пока тест не закончится.
func silentServer(t *testing.T) (string, int) { return fakeServer(t, true) }

func fakeServer(t *testing.T, hold bool) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var held []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			if hold {
				held = append(held, c)
				continue
			}
			c.Close()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		for _, c := range held {
			c.Close()
		}
	})
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"MINECRAFT_SERVER_HOST", "MINECRAFT_SERVER_PORT", "MINECRAFT_BOT_USERNAME",
		"MINECRAFT_VERSION", "GEMINI_API_KEY", "OPENAI_API_KEY", "DISCORD_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestStartFailsWhenServerDropsConnection(t *testing.T) {
	clearEnv(t)
	host, port := refusingServer(t)

	var events []string
	in, err := New(context.Background(), Options{
		ID:        "b1",
		Config:    bot.Config{Server: mcclient.Config{Server: host, Port: port, Username: "Loli"}},
		Notifiers: []notify.Notifier{notify.Func(func(event, text string) { events = append(events, event) })},
	})
	require.NoError(t, err)
	assert.Nil(t, in.discord)
	assert.Equal(t, "Loli", in.Status().Username)
	assert.False(t, in.Status().Connected)

	err = in.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect Loli@")
	assert.False(t, in.isRunning())

	require.ErrorIs(t, in.HandleCommand("Steve", "follow"), ErrNotRunning)
	require.ErrorIs(t, in.Say("hi"), ErrNotRunning)
	in.Stop()
	assert.Empty(t, events)
}

func TestStartGivesUpOnSilentServer(t *testing.T) {
	clearEnv(t)
	host, port := silentServer(t)
	in, err := New(context.Background(), Options{
		Config: bot.Config{Server: mcclient.Config{Server: host, Port: port, Username: "Loli"}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	started := time.Now()
	err = in.Start(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 3*time.Second)
	assert.False(t, in.isRunning())
	in.Stop()
}

func TestNewWiresClientCallbacks(t *testing.T) {
	clearEnv(t)
	in, err := New(context.Background(), Options{Config: bot.Config{Server: mcclient.Config{Server: "mc.local"}}})
	require.NoError(t, err)

	c := in.client
	assert.NotNil(t, c.Probe)
	for name, cb := range map[string]any{
		"OnConnecting": c.OnConnecting, "OnConnected": c.OnConnected, "OnSpawn": c.OnSpawn,
		"OnDeath": c.OnDeath, "OnDisconnected": c.OnDisconnected, "OnChat": c.OnChat,
		"OnPlayerJoined": c.OnPlayerJoined, "OnPlayerLeft": c.OnPlayerLeft, "OnError": c.OnError,
	} {
		assert.NotNil(t, cb, name)
	}
	assert.Equal(t, "mc.local:25565", c.Config().Addr())
	assert.Equal(t, "Online:  | Offline: ", in.Players())
}
