package mcclient

import (
	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/data/packetid"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"

	"github.com/EgorLis/botlolicute/internal/game"
)

// флаги относительных координат в PlayerPosition
const (
	relX     = 0x01
	relY     = 0x02
	relZ     = 0x04
	relYaw   = 0x08
	relPitch = 0x10
)

func (c *Client) resetWorld() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.self = selfState{health: 20, food: 20}
	c.entities = make(map[int32]*game.Entity)
	c.players = make(map[uuid.UUID]string)
	c.inv = newInventory()
	c.chunks.reset()
	c.screen = nil
}

func (c *Client) handleLogin(p pk.Packet) error {
	var eid pk.Int
	if err := p.Scan(&eid); err != nil {
		return err
	}
	c.mu.Lock()
	c.self.entityID = int32(eid)
	c.self.spawned = false
	c.self.dead = false
	c.mu.Unlock()
	return nil
}

func (c *Client) handleKeepAlive(p pk.Packet) error {
	var id pk.Long
	if err := p.Scan(&id); err != nil {
		return err
	}
	c.touchActivity()
	return c.send(packetid.ServerboundKeepAlive, id)
}

func (c *Client) handleDisconnect(p pk.Packet) error {
	var reason chat.Message
	if err := p.Scan(&reason); err != nil {
		return err
	}
	c.mu.Lock()
	c.self.kickReason = reason.ClearString()
	c.mu.Unlock()
	return nil
}

func (c *Client) handleSetHealth(p pk.Packet) error {
	var (
		health     pk.Float
		food       pk.VarInt
		saturation pk.Float
	)
	if err := p.Scan(&health, &food, &saturation); err != nil {
		return err
	}
	c.mu.Lock()
	c.self.health = float64(health)
	c.self.food = int(food)
	died := health <= 0 && !c.self.dead
	if died {
		c.self.dead = true
	}
	c.mu.Unlock()

	if c.OnHealth != nil {
		c.OnHealth(float64(health), int(food))
	}
	if died && c.OnDeath != nil {
		c.OnDeath()
	}
	return nil
}

// смена измерения или возрождение: сервер пришлёт чанки и сущности заново
func (c *Client) handleRespawn(pk.Packet) error {
	c.mu.Lock()
	c.entities = make(map[int32]*game.Entity)
	c.chunks.reset()
	c.self.spawned = false
	c.self.dead = false
	c.mu.Unlock()
	c.StopMoving()
	return nil
}

func (c *Client) handlePlayerPosition(p pk.Packet) error {
	var (
		x, y, z    pk.Double
		yaw, pitch pk.Float
		flags      pk.Byte
		teleportID pk.VarInt
	)
	if err := p.Scan(&x, &y, &z, &yaw, &pitch, &flags, &teleportID); err != nil {
		return err
	}

	c.mu.Lock()
	pos := c.self.pos
	if flags&relX != 0 {
		pos.X += float64(x)
	} else {
		pos.X = float64(x)
	}
	if flags&relY != 0 {
		pos.Y += float64(y)
	} else {
		pos.Y = float64(y)
	}
	if flags&relZ != 0 {
		pos.Z += float64(z)
	} else {
		pos.Z = float64(z)
	}
	if flags&relYaw != 0 {
		c.self.yaw += float32(yaw)
	} else {
		c.self.yaw = float32(yaw)
	}
	if flags&relPitch != 0 {
		c.self.pitch += float32(pitch)
	} else {
		c.self.pitch = float32(pitch)
	}
	c.self.pos = pos
	c.self.onGround = true
	firstSpawn := !c.self.spawned
	c.self.spawned = true
	ry, rp := c.self.yaw, c.self.pitch
	c.mu.Unlock()

	if err := c.send(packetid.ServerboundAcceptTeleportation, teleportID); err != nil {
		return err
	}
	if err := c.send(packetid.ServerboundMovePlayerPosRot,
		pk.Double(pos.X), pk.Double(pos.Y), pk.Double(pos.Z),
		pk.Float(ry), pk.Float(rp), pk.Boolean(true)); err != nil {
		return err
	}
	if firstSpawn && c.OnSpawn != nil {
		c.OnSpawn()
	}
	return nil
}

func (c *Client) handleSetTime(p pk.Packet) error {
	var age, timeOfDay pk.Long
	if err := p.Scan(&age, &timeOfDay); err != nil {
		return err
	}
	c.mu.Lock()
	c.self.timeOfDay = int64(timeOfDay)
	c.mu.Unlock()
	return nil
}

// ========================= состояние =========================

func (c *Client) Username() string { return c.cfg.Username }

func (c *Client) Connected() bool {
	if !c.IsConnected() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.spawned
}

func (c *Client) Position() game.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.pos
}

func (c *Client) OnGround() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.onGround
}

func (c *Client) Health() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.health
}

func (c *Client) Food() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.food
}

func (c *Client) TimeOfDay() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.timeOfDay
}

func (c *Client) EntityID() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self.entityID
}
