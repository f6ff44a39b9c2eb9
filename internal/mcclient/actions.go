package mcclient

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Tnze/go-mc/data/packetid"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/EgorLis/botlolicute/internal/game"
)

const (
	eyeHeight  = 1.62
	maxChatLen = 256
	handMain   = 0
)

// ========================= high-level API =========================

// Chat отправляет сообщение в чат; строки, начинающиеся с "/", уходят как команды.
// Многострочный текст отправляется построчно.
func (c *Client) Chat(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, part := range splitChat(line, maxChatLen) {
			if err := c.sendChat(part); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) sendChat(line string) error {
	now := pk.Long(time.Now().UnixMilli())
	// acknowledged: FixedBitSet(20) — три нулевых байта
	ack := pk.Tuple{pk.Byte(0), pk.Byte(0), pk.Byte(0)}
	if cmd, ok := strings.CutPrefix(line, "/"); ok {
		return c.send(packetid.ServerboundChatCommand,
			pk.String(cmd), now, pk.Long(0),
			pk.VarInt(0), // подписей аргументов нет
			pk.VarInt(0), ack)
	}
	return c.send(packetid.ServerboundChat,
		pk.String(line), now, pk.Long(0),
		pk.Boolean(false), // без подписи
		pk.VarInt(0), ack)
}

// splitChat режет строку на куски не длиннее n символов.
func splitChat(s string, n int) []string {
	if utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for len(runes) > n {
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func (c *Client) Attack(entityID int32) error {
	e, ok := c.Entity(entityID)
	if !ok {
		return fmt.Errorf("entity %d not found", entityID)
	}
	_ = c.LookAt(e.Position.Offset(0, 1, 0))
	if err := c.send(packetid.ServerboundInteract,
		pk.VarInt(entityID), pk.VarInt(1), pk.Boolean(false)); err != nil {
		return err
	}
	return c.swing()
}

// Interact — ПКМ по сущности (сесть в лодку, торговля).
func (c *Client) Interact(entityID int32) error {
	if e, ok := c.Entity(entityID); ok {
		_ = c.LookAt(e.Position)
	}
	return c.send(packetid.ServerboundInteract,
		pk.VarInt(entityID), pk.VarInt(0), pk.VarInt(handMain), pk.Boolean(false))
}

func (c *Client) Dismount() error {
	return c.send(packetid.ServerboundPlayerInput, pk.Float(0), pk.Float(0), pk.UnsignedByte(0x02))
}

func (c *Client) swing() error {
	return c.send(packetid.ServerboundSwing, pk.VarInt(handMain))
}

func (c *Client) UseItem() error {
	return c.send(packetid.ServerboundUseItem, pk.VarInt(handMain), pk.VarInt(c.seq.Add(1)))
}

func (c *Client) useItemOn(pos game.BlockPos, face game.Face) error {
	_ = c.LookAt(pos.Center())
	if err := c.send(packetid.ServerboundUseItemOn,
		pk.VarInt(handMain),
		pk.Position{X: pos.X, Y: pos.Y, Z: pos.Z},
		pk.VarInt(face),
		pk.Float(0.5), pk.Float(0.5), pk.Float(0.5),
		pk.Boolean(false),
		pk.VarInt(c.seq.Add(1)),
	); err != nil {
		return err
	}
	return c.swing()
}

// ActivateBlock — ПКМ по блоку (сундук, кровать, костная мука на росток).
func (c *Client) ActivateBlock(pos game.BlockPos) error {
	return c.useItemOn(pos, game.FaceTop)
}

// PlaceBlock ставит предмет из руки на грань блока against.
func (c *Client) PlaceBlock(against game.BlockPos, face game.Face) error {
	return c.useItemOn(against, face)
}

func (c *Client) Dig(ctx context.Context, pos game.BlockPos) error {
	b, _ := c.BlockAt(pos)
	if b.IsAir() {
		return nil
	}
	_ = c.LookAt(pos.Center())
	if err := c.playerAction(actionStartDig, pos, game.FaceTop); err != nil {
		return err
	}
	_ = c.swing()
	if err := game.Sleep(ctx, c.digDuration(b.Name)); err != nil {
		_ = c.playerAction(actionCancelDig, pos, game.FaceTop)
		return err
	}
	return c.playerAction(actionFinishDig, pos, game.FaceTop)
}

// digDuration — грубая оценка времени копания без учёта зачарований.
func (c *Client) digDuration(name string) time.Duration {
	base := c.cfg.DigTime
	switch {
	case name == "obsidian" || name == "crying_obsidian" || name == "ancient_debris":
		return base * 8
	case strings.HasSuffix(name, "_ore") || strings.HasPrefix(name, "deepslate"):
		return base * 3 / 2
	case isSoft(name):
		return base / 3
	case isInstant(name):
		return 50 * time.Millisecond
	}
	return base
}

func isSoft(name string) bool {
	for _, s := range []string{"dirt", "grass_block", "sand", "gravel", "farmland", "leaves", "snow", "clay", "mycelium", "podzol"} {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func isInstant(name string) bool {
	switch name {
	case "wheat", "carrots", "potatoes", "beetroots", "nether_wart", "short_grass", "tall_grass", "torch", "fern":
		return true
	}
	return false
}

// Consume ест/пьёт предмет из руки: зажимаем ПКМ на ~32 тика.
func (c *Client) Consume(ctx context.Context) error {
	if err := c.UseItem(); err != nil {
		return err
	}
	if err := game.Sleep(ctx, 1700*time.Millisecond); err != nil {
		_ = c.playerAction(actionRelease, game.BlockPos{}, game.FaceBottom)
		return err
	}
	return nil
}

// Sleep ложится в кровать; ночь начинается с 12542 тика.
func (c *Client) Sleep(ctx context.Context, bed game.BlockPos) error {
	if !game.IsNight(c.TimeOfDay()) {
		return game.ErrNotNight
	}
	if err := c.ActivateBlock(bed); err != nil {
		return err
	}
	return game.Sleep(ctx, time.Second)
}

func (c *Client) Respawn() error {
	return c.send(packetid.ServerboundClientCommand, pk.VarInt(0))
}

func (c *Client) LookAt(target game.Vec3) error {
	c.mu.Lock()
	eye := c.self.pos.Offset(0, eyeHeight, 0)
	d := target.Sub(eye)
	yaw := float32(-math.Atan2(d.X, d.Z) * 180 / math.Pi)
	pitch := float32(-math.Atan2(d.Y, math.Hypot(d.X, d.Z)) * 180 / math.Pi)
	c.self.yaw, c.self.pitch = yaw, pitch
	onGround := c.self.onGround
	c.mu.Unlock()
	return c.send(packetid.ServerboundMovePlayerRot, pk.Float(yaw), pk.Float(pitch), pk.Boolean(onGround))
}

// Jump — подпрыгнуть на месте (два пакета позиции).
func (c *Client) Jump() error {
	pos := c.Position()
	if err := c.sendPosition(pos.Offset(0, 1.1, 0), false); err != nil {
		return err
	}
	time.Sleep(250 * time.Millisecond)
	return c.sendPosition(pos, true)
}

func (c *Client) sendPosition(pos game.Vec3, onGround bool) error {
	c.mu.Lock()
	c.self.pos = pos
	c.self.onGround = onGround
	c.mu.Unlock()
	return c.send(packetid.ServerboundMovePlayerPos,
		pk.Double(pos.X), pk.Double(pos.Y), pk.Double(pos.Z), pk.Boolean(onGround))
}
