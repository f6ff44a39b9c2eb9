package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Event — вход или выход отслеживаемого игрока.
type Event struct {
	Player string
	Joined bool
}

func (e Event) String() string {
	if e.Joined {
		return fmt.Sprintf("➡ %s vào server", e.Player)
	}
	return fmt.Sprintf("⬅ %s rời server", e.Player)
}

// StartScan запускает фоновый опрос; notify получает входы и выходы.
// Первый скан только запоминает состояние.
func (c *Client) StartScan(ctx context.Context, notify func(Event)) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stopCh, c.done
	c.mu.Unlock()

	// стартовая инициализация — без уведомлений
	if cur, err := c.fetchPlayers(ctx); err == nil {
		c.mu.Lock()
		c.lastPlayersScan = cur
		c.mu.Unlock()
	} else {
		c.log.Warn("initial scan failed", zap.Error(err))
	}

	go func() {
		defer close(done)
		t := time.NewTicker(c.interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				for _, ev := range c.scan(ctx) {
					notify(ev)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// scan делает один опрос и возвращает изменения относительно прошлого снимка.
func (c *Client) scan(ctx context.Context) []Event {
	cur, err := c.fetchPlayers(ctx)
	if err != nil {
		c.log.Debug("scan failed", zap.Error(err))
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.lastPlayersScan
	var events []Event
	for key, name := range cur {
		if _, ok := prev[key]; !ok {
			events = append(events, Event{Player: name, Joined: true})
		}
	}
	for key, name := range prev {
		if _, ok := cur[key]; !ok {
			events = append(events, Event{Player: name})
		}
	}
	c.lastPlayersScan = cur
	return events
}

func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	c.running = false
	done := c.done
	c.mu.Unlock()
	<-done
}

// fetchPlayers пингует сервер и возвращает игроков из sample,
// отфильтрованных по списку отслеживания.
func (c *Client) fetchPlayers(ctx context.Context) (map[string]string, error) {
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	data, delay, err := c.ping(pctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("ping %s: %w", c.addr, err)
	}
	st, err := ParseStatus(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.latest, c.latency = st, delay
	watch := make(map[string]string, len(c.playersToDetect))
	for k, v := range c.playersToDetect {
		watch[k] = v
	}
	c.mu.Unlock()

	cur := make(map[string]string, len(st.Players.Sample))
	for _, p := range st.Players.Sample {
		key := strings.ToLower(p.Name)
		if len(watch) > 0 {
			if _, track := watch[key]; !track {
				continue
			}
		}
		cur[key] = p.Name
	}
	c.log.Debug("scan", zap.Int("online", st.Players.Online), zap.Int("tracked", len(cur)), zap.Duration("ping", delay))
	return cur, nil
}
