package mcclient

import (
	"strings"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"

	"github.com/EgorLis/botlolicute/internal/game"
)

func (c *Client) handleAddEntity(p pk.Packet) error {
	var (
		id                pk.VarInt
		eid               pk.UUID
		typ               pk.VarInt
		x, y, z           pk.Double
		pitch, yaw, headY pk.Angle
		data              pk.VarInt
	)
	if err := p.Scan(&id, &eid, &typ, &x, &y, &z, &pitch, &yaw, &headY, &data); err != nil {
		return err
	}
	name := entityTypeName(int32(typ))
	e := &game.Entity{
		ID:       int32(id),
		UUID:     [16]byte(eid),
		Name:     name,
		Kind:     game.KindOf(name),
		Position: game.V(float64(x), float64(y), float64(z)),
		Data:     int32(data),
	}
	c.mu.Lock()
	if e.Kind == game.KindPlayer {
		e.Username = c.players[uuid.UUID(eid)]
	}
	c.entities[e.ID] = e
	c.mu.Unlock()
	return nil
}

// MoveEntityPos и MoveEntityPosRot начинаются одинаково: id + дельты в 1/4096 блока.
func (c *Client) handleMoveEntityPos(p pk.Packet) error {
	var (
		id         pk.VarInt
		dx, dy, dz pk.Short
	)
	if err := p.Scan(&id, &dx, &dy, &dz); err != nil {
		return err
	}
	c.mu.Lock()
	if e, ok := c.entities[int32(id)]; ok {
		e.Position = e.Position.Offset(float64(dx)/4096, float64(dy)/4096, float64(dz)/4096)
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleTeleportEntity(p pk.Packet) error {
	var (
		id      pk.VarInt
		x, y, z pk.Double
	)
	if err := p.Scan(&id, &x, &y, &z); err != nil {
		return err
	}
	c.mu.Lock()
	if e, ok := c.entities[int32(id)]; ok {
		e.Position = game.V(float64(x), float64(y), float64(z))
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleRemoveEntities(p pk.Packet) error {
	var ids []pk.VarInt
	if err := p.Scan(pk.Array(&ids)); err != nil {
		return err
	}
	c.mu.Lock()
	for _, id := range ids {
		delete(c.entities, int32(id))
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleSetPassengers(p pk.Packet) error {
	var (
		vehicle    pk.VarInt
		passengers []pk.VarInt
	)
	if err := p.Scan(&vehicle, pk.Array(&passengers)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	riding := make(map[int32]bool, len(passengers))
	for _, id := range passengers {
		riding[int32(id)] = true
	}
	for id, e := range c.entities {
		switch {
		case riding[id]:
			e.Vehicle = int32(vehicle)
		case e.Vehicle == int32(vehicle):
			e.Vehicle = 0
		}
	}
	return nil
}

// ========================= запросы =========================

func (c *Client) Entities() []game.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]game.Entity, 0, len(c.entities))
	for _, e := range c.entities {
		if e.ID == c.self.entityID {
			continue
		}
		out = append(out, *e)
	}
	return out
}

func (c *Client) Entity(id int32) (game.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[id]
	if !ok {
		return game.Entity{}, false
	}
	return *e, true
}

// PlayerEntity ищет сущность игрока по нику (без учёта регистра).
func (c *Client) PlayerEntity(name string) (game.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entities {
		if e.Kind == game.KindPlayer && strings.EqualFold(e.Username, name) {
			return *e, true
		}
	}
	return game.Entity{}, false
}
