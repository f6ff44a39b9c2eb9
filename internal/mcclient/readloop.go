package mcclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrTooManyReconnects = errors.New("too many reconnect attempts")

// причины, после которых переподключаться бессмысленно
var criticalReasons = []string{
	"no such host",
	"banned",
	"not whitelisted",
	"invalid username",
	"outdated",
	"name is already taken",
	"illegal characters",
}

func isCritical(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, r := range criticalReasons {
		if strings.Contains(msg, r) {
			return true
		}
	}
	return false
}

func (c *Client) gameLoop(ctx context.Context, done chan struct{}) {
	defer func() {
		c.closed.Store(true)
		c.closeConn()
		c.StopMoving()
		if c.OnDisconnected != nil {
			c.OnDisconnected(c.kickReason("stopped"))
		}
		close(done)
	}()

	// закрыть по отмене контекста
	go func() {
		select {
		case <-ctx.Done():
			c.closeConn()
		case <-done:
		}
	}()

	backoff := c.cfg.ReconnectDelay
	attempts := 0

outer:
	for {
		c.connMu.RLock()
		mc := c.mc
		c.connMu.RUnlock()

		var err error
		if mc == nil {
			err = fmt.Errorf("connection is nil")
		} else {
			connectedAt := time.Now()
			err = mc.HandleGame()
			if time.Since(connectedAt) >= c.cfg.StableAfter {
				attempts = 0
			}
		}
		if c.closed.Load() || ctx.Err() != nil {
			return
		}
		reason := c.kickReason("")
		if reason != "" {
			err = fmt.Errorf("kicked: %s", reason)
		}
		c.emitError(err)
		c.closeConn()
		c.StopMoving()
		if c.OnDisconnected != nil {
			if reason == "" {
				reason = "connection lost"
			}
			c.OnDisconnected(reason)
		}
		if isCritical(err) {
			return
		}

		// реконнект с backoff
		for !c.closed.Load() {
			if c.cfg.MaxReconnects > 0 && attempts >= c.cfg.MaxReconnects {
				c.emitError(ErrTooManyReconnects)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			attempts++
			backoff = c.nextBackoff(backoff)

			if c.Probe != nil {
				if perr := c.Probe(ctx, c.cfg.Addr()); perr != nil {
					c.emitError(fmt.Errorf("server unreachable (wait %v): %w", backoff, perr))
					continue
				}
			}
			if c.OnConnecting != nil {
				c.OnConnecting()
			}
			newMC, derr := c.dialAndSetup(ctx)
			if derr != nil {
				c.emitError(fmt.Errorf("reconnect failed (wait %v): %w", backoff, derr))
				if isCritical(derr) {
					return
				}
				continue
			}
			if c.closed.Load() {
				_ = newMC.Close()
				return
			}
			c.setConn(newMC)
			if c.OnConnected != nil {
				c.OnConnected()
			}
			backoff = c.cfg.ReconnectDelay
			continue outer
		}
		return
	}
}

func (c *Client) nextBackoff(cur time.Duration) time.Duration {
	cur *= 2
	if cur > c.cfg.MaxBackoff {
		cur = c.cfg.MaxBackoff
	}
	return cur
}

// kickReason возвращает и сбрасывает причину кика (или def).
func (c *Client) kickReason(def string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.self.kickReason
	c.self.kickReason = ""
	if r == "" {
		return def
	}
	return r
}
