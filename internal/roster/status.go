package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/Tnze/go-mc/bot"
	"github.com/Tnze/go-mc/chat"
	"github.com/goccy/go-json"
)

// ServerStatus — ответ server-list ping.
type ServerStatus struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int            `json:"max"`
		Online int            `json:"online"`
		Sample []SamplePlayer `json:"sample"`
	} `json:"players"`
	Description chat.Message `json:"description"`
}

type SamplePlayer struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// MOTD без форматирования.
func (s ServerStatus) MOTD() string { return s.Description.ClearString() }

func (s ServerStatus) String() string {
	return fmt.Sprintf("%s (%d/%d) %s", s.Version.Name, s.Players.Online, s.Players.Max, s.MOTD())
}

// ParseStatus разбирает JSON статуса сервера.
func ParseStatus(data []byte) (ServerStatus, error) {
	var st ServerStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return ServerStatus{}, fmt.Errorf("parse server status: %w", err)
	}
	return st, nil
}

// Probe пингует сервер: отвечает ли он вообще. Используется перед реконнектом.
func Probe(ctx context.Context, addr string) (ServerStatus, time.Duration, error) {
	data, delay, err := bot.PingAndListContext(ctx, addr)
	if err != nil {
		return ServerStatus{}, 0, fmt.Errorf("ping %s: %w", addr, err)
	}
	st, err := ParseStatus(data)
	if err != nil {
		return ServerStatus{}, 0, err
	}
	return st, delay, nil
}

// Reachable — Probe без деталей, в форме mcclient.Client.Probe.
func Reachable(ctx context.Context, addr string) error {
	_, _, err := Probe(ctx, addr)
	return err
}
