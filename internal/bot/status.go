package bot

import (
	"context"
	"time"

	"github.com/EgorLis/botlolicute/internal/game"
)

type Equipment struct {
	Hand    string `json:"hand,omitempty"`
	OffHand string `json:"offHand,omitempty"`
	Head    string `json:"head,omitempty"`
	Torso   string `json:"torso,omitempty"`
	Legs    string `json:"legs,omitempty"`
	Feet    string `json:"feet,omitempty"`
}

type NearbyMob struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Hostile  bool    `json:"hostile"`
}

// Status — снимок состояния для дашборда.
type Status struct {
	Username     string      `json:"username"`
	Connected    bool        `json:"connected"`
	Health       float64     `json:"health"`
	Food         int         `json:"food"`
	Position     game.Vec3   `json:"position"`
	Mode         Mode        `json:"mode"`
	StatusText   string      `json:"status,omitempty"`
	Target       string      `json:"targetPlayer,omitempty"`
	NearbyMobs   []NearbyMob `json:"nearbyMobs"`
	Equipment    Equipment   `json:"equipment"`
	Inventory    []game.Item `json:"inventory"`
	Uptime       int64       `json:"uptime"` // секунды
	LastActivity time.Time   `json:"lastActivity"`
	TPPermission string      `json:"tpPermission"`
	Timestamp    time.Time   `json:"timestamp"`
}

// мобы в этом радиусе попадают в статус
const statusMobRadius = 16

func (b *Bot) Status() Status {
	b.mu.Lock()
	mode, text, target := b.mode, b.statusText, b.target
	b.mu.Unlock()

	st := Status{
		Username:     b.w.Username(),
		Connected:    b.w.Connected(),
		Health:       b.w.Health(),
		Food:         b.w.Food(),
		Position:     b.w.Position(),
		Mode:         mode,
		StatusText:   text,
		Target:       target,
		NearbyMobs:   []NearbyMob{},
		Inventory:    b.w.Inventory(),
		LastActivity: time.Unix(0, b.lastActivity.Load()),
		TPPermission: b.respawn.snapshot().TPPermission.String(),
		Timestamp:    time.Now(),
	}
	if !b.startedAt.IsZero() {
		st.Uptime = int64(time.Since(b.startedAt).Seconds())
	}
	if st.Inventory == nil {
		st.Inventory = []game.Item{}
	}

	for _, e := range b.w.Entities() {
		if e.Kind != game.KindMob {
			continue
		}
		if d := st.Position.Distance(e.Position); d <= statusMobRadius {
			st.NearbyMobs = append(st.NearbyMobs, NearbyMob{Name: e.Name, Distance: d, Hostile: game.IsHostile(e)})
		}
	}

	if held, ok := b.w.HeldItem(); ok {
		st.Equipment.Hand = held.Name
	}
	for _, it := range st.Inventory {
		switch it.Slot {
		case 5:
			st.Equipment.Head = it.Name
		case 6:
			st.Equipment.Torso = it.Name
		case 7:
			st.Equipment.Legs = it.Name
		case 8:
			st.Equipment.Feet = it.Name
		case 45:
			st.Equipment.OffHand = it.Name
		}
	}
	return st
}

func (b *Bot) publishStatus(context.Context) {
	if b.sink == nil {
		return
	}
	b.sink.PublishStatus(b.Status())
}
