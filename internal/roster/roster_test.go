package roster

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
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeServer отдаёт статус с текущим списком игроков.
type fakeServer struct {
	mu      sync.Mutex
	players []string
	err     error
}

func (f *fakeServer) set(players ...string) {
	f.mu.Lock()
	f.players = players
	f.mu.Unlock()
}

func (f *fakeServer) ping(_ context.Context, addr string) ([]byte, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	var sample []string
	for i, p := range f.players {
		sample = append(sample, fmt.Sprintf(`{"name":%q,"id":"00000000-0000-0000-0000-00000000000%d"}`, p, i))
	}
	body := fmt.Sprintf(`{"version":{"name":"Paper 1.20.2","protocol":764},`+
		`"players":{"max":20,"online":%d,"sample":[%s]},"description":{"text":"Hello %s"}}`,
		len(f.players), strings.Join(sample, ","), addr)
	return []byte(body), 15 * time.Millisecond, nil
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus([]byte(`{"version":{"name":"1.20.2","protocol":764},` +
		`"players":{"max":10,"online":1,"sample":[{"name":"Steve","id":"x"}]},"description":"A Minecraft Server"}`))
	require.NoError(t, err)
	assert.Equal(t, "1.20.2", st.Version.Name)
	assert.Equal(t, 764, st.Version.Protocol)
	assert.Equal(t, 1, st.Players.Online)
	assert.Equal(t, []SamplePlayer{{Name: "Steve", ID: "x"}}, st.Players.Sample)
	assert.Equal(t, "A Minecraft Server", st.MOTD())
	assert.Equal(t, "1.20.2 (1/10) A Minecraft Server", st.String())

	_, err = ParseStatus([]byte(`{"players":`))
	require.Error(t, err)
}

func TestScanReportsJoinAndLeave(t *testing.T) {
	srv := &fakeServer{}
	srv.set("Steve", "Alex")
	c := NewClient("mc.local:25565", WithPinger(srv.ping))

	// первый скан без событий
	cur, err := c.fetchPlayers(context.Background())
	require.NoError(t, err)
	c.lastPlayersScan = cur
	assert.Equal(t, []string{"Alex", "Steve"}, c.Players())

	srv.set("Steve", "Notch")
	events := c.scan(context.Background())
	assert.ElementsMatch(t, []Event{{Player: "Notch", Joined: true}, {Player: "Alex"}}, events)
	assert.Equal(t, []string{"Notch", "Steve"}, c.Players())

	st, delay := c.Latest()
	assert.Equal(t, 2, st.Players.Online)
	assert.Equal(t, "Hello mc.local:25565", st.MOTD())
	assert.Equal(t, 15*time.Millisecond, delay)

	assert.Empty(t, c.scan(context.Background()))
}

func TestTrackedPlayersOnly(t *testing.T) {
	srv := &fakeServer{}
	c := NewClient("mc.local:25565", WithPinger(srv.ping), WithPlayers("steve", "Herobrine"))
	c.scan(context.Background())

	srv.set("Steve", "Alex")
	events := c.scan(context.Background())
	assert.Equal(t, []Event{{Player: "Steve", Joined: true}}, events)
	assert.Equal(t, map[string]bool{"steve": true, "Herobrine": false}, c.Online())

	c.RemovePlayer("STEVE")
	assert.Equal(t, map[string]bool{"Herobrine": false}, c.Online())
}

func TestScanKeepsStateOnPingError(t *testing.T) {
	srv := &fakeServer{}
	srv.set("Steve")
	c := NewClient("mc.local:25565", WithPinger(srv.ping))
	c.scan(context.Background())

	srv.mu.Lock()
	srv.err = errors.New("connection refused")
	srv.mu.Unlock()
	assert.Nil(t, c.scan(context.Background()))
	assert.Equal(t, []string{"Steve"}, c.Players())
}

func TestStartScanNotifies(t *testing.T) {
	srv := &fakeServer{}
	srv.set("Steve")
	c := NewClient("mc.local:25565", WithPinger(srv.ping), WithInterval(5*time.Millisecond))

	got := make(chan Event, 8)
	require.NoError(t, c.StartScan(context.Background(), func(e Event) { got <- e }))
	require.NoError(t, c.StartScan(context.Background(), func(Event) {}))
	defer c.Stop()

	srv.set("Steve", "Alex")
	select {
	case e := <-got:
		assert.Equal(t, Event{Player: "Alex", Joined: true}, e)
		assert.Equal(t, "➡ Alex vào server", e.String())
	case <-time.After(2 * time.Second):
		t.Fatal("no join event")
	}
	c.Stop()
	c.Stop()
}

func TestFormatOnlineInfo(t *testing.T) {
	s := FormatOnlineInfo(map[string]bool{"Steve": true, "Alex": true, "Notch": false})
	assert.Equal(t, "Online: Alex, Steve | Offline: Notch", s)
	assert.Equal(t, "⬅ Alex rời server", Event{Player: "Alex"}.String())
}
