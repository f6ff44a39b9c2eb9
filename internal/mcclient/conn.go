package mcclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Tnze/go-mc/bot"
	"github.com/Tnze/go-mc/data/packetid"
	mcnet "github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/offline"

	"github.com/EgorLis/botlolicute/internal/game"
)

// ========================= low-level =========================

type packetWriter interface {
	WritePacket(p pk.Packet) error
}

// dial + логин (offline-режим) + регистрация обработчиков пакетов.
// Логин длится не дольше ctx и LoginTimeout.
func (c *Client) dialAndSetup(ctx context.Context) (*bot.Client, error) {
	mc := bot.NewClient()
	mc.Auth.Name = c.cfg.Username
	mc.Auth.UUID = strings.ReplaceAll(offline.NameToUUID(c.cfg.Username).String(), "-", "")

	c.resetWorld()
	c.registerHandlers(mc)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoginTimeout)
	defer cancel()
	d := &loginDialer{}
	// go-mc учитывает ctx только при dial; рукопожатие прерываем закрытием сокета
	stop := context.AfterFunc(ctx, d.abort)
	err := mc.JoinServerWithOptions(c.cfg.Addr(), bot.JoinOptions{Context: ctx, MCDialer: d})
	if !stop() {
		if err == nil {
			_ = mc.Close()
		}
		return nil, fmt.Errorf("login to %s: %w", c.cfg.Addr(), ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	c.touchActivity()
	return mc, nil
}

// loginDialer запоминает сокет, чтобы оборвать зависший логин.
type loginDialer struct {
	mu      sync.Mutex
	conn    *mcnet.Conn
	aborted bool
}

func (d *loginDialer) DialMCContext(ctx context.Context, addr string) (*mcnet.Conn, error) {
	conn, err := mcnet.DefaultDialer.DialMCContext(ctx, addr)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.aborted {
		_ = conn.Close()
		return nil, ctx.Err()
	}
	d.conn = conn
	return conn, nil
}

func (d *loginDialer) abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aborted = true
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

func (c *Client) registerHandlers(mc *bot.Client) {
	handlers := map[packetid.ClientboundPacketID]func(pk.Packet) error{
		packetid.ClientboundLogin:               c.handleLogin,
		packetid.ClientboundKeepAlive:           c.handleKeepAlive,
		packetid.ClientboundDisconnect:          c.handleDisconnect,
		packetid.ClientboundSetHealth:           c.handleSetHealth,
		packetid.ClientboundRespawn:             c.handleRespawn,
		packetid.ClientboundPlayerPosition:      c.handlePlayerPosition,
		packetid.ClientboundSetTime:             c.handleSetTime,
		packetid.ClientboundAddEntity:           c.handleAddEntity,
		packetid.ClientboundMoveEntityPos:       c.handleMoveEntityPos,
		packetid.ClientboundMoveEntityPosRot:    c.handleMoveEntityPos,
		packetid.ClientboundTeleportEntity:      c.handleTeleportEntity,
		packetid.ClientboundRemoveEntities:      c.handleRemoveEntities,
		packetid.ClientboundSetPassengers:       c.handleSetPassengers,
		packetid.ClientboundPlayerInfoUpdate:    c.handlePlayerInfoUpdate,
		packetid.ClientboundPlayerInfoRemove:    c.handlePlayerInfoRemove,
		packetid.ClientboundSystemChat:          c.handleSystemChat,
		packetid.ClientboundPlayerChat:          c.handlePlayerChat,
		packetid.ClientboundContainerSetContent: c.handleContainerSetContent,
		packetid.ClientboundContainerSetSlot:    c.handleContainerSetSlot,
		packetid.ClientboundOpenScreen:          c.handleOpenScreen,
		packetid.ClientboundContainerClose:      c.handleContainerClose,
		packetid.ClientboundSetCarriedItem:      c.handleSetCarriedItem,
		packetid.ClientboundLevelChunkWithLight: c.handleLevelChunk,
		packetid.ClientboundForgetLevelChunk:    c.handleForgetLevelChunk,
		packetid.ClientboundBlockUpdate:         c.handleBlockUpdate,
		packetid.ClientboundSectionBlocksUpdate: c.handleSectionBlocksUpdate,
	}
	for id, f := range handlers {
		mc.Events.AddListener(bot.PacketHandler{ID: id, Priority: 64, F: f})
	}
}

// безопасно закрыть текущее соединение
func (c *Client) closeConn() {
	c.stopWatchdog()
	c.connMu.Lock()
	mc := c.mc
	c.mc = nil
	c.w = nil
	c.connMu.Unlock()
	if mc != nil {
		_ = mc.Close()
	}
}

// send сериализует запись пакета.
func (c *Client) send(id packetid.ServerboundPacketID, fields ...pk.FieldEncoder) error {
	c.connMu.RLock()
	w := c.w
	c.connMu.RUnlock()
	if w == nil {
		return game.ErrNotConnected
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return w.WritePacket(pk.Marshal(id, fields...))
}

// сторож: если сервер долго молчит (нет keep-alive) — рвём соединение,
// игровой цикл переподключится
func (c *Client) startWatchdog() {
	c.stopWatchdog()
	stop := make(chan struct{})
	c.connMu.Lock()
	c.watchStop = stop
	c.connMu.Unlock()

	go func() {
		tick := time.NewTicker(10 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if c.sinceLastActivity() > 45*time.Second {
					c.emitError(game.ErrTimeout)
					c.closeConn()
					return
				}
			}
		}
	}()
}

func (c *Client) stopWatchdog() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.watchStop != nil {
		close(c.watchStop)
		c.watchStop = nil
	}
}

func (c *Client) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) sinceLastActivity() time.Duration {
	n := c.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}
