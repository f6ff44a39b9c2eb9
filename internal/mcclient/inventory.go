package mcclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/data/packetid"
	"github.com/Tnze/go-mc/nbt"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/EgorLis/botlolicute/internal/game"
)

// Нумерация окна инвентаря игрока (window 0).
const (
	slotArmorHead = 5
	slotMainStart = 9
	slotHotbar    = 36
	slotOffhand   = 45
	invSize       = 46
)

// режимы ContainerClick
const (
	clickPickup = 0
	clickShift  = 1
	clickSwap   = 2
)

type slot struct {
	present bool
	id      int32
	count   int8
	tag     nbt.RawMessage
}

func (s *slot) ReadFrom(r io.Reader) (int64, error) {
	var present pk.Boolean
	n, err := present.ReadFrom(r)
	if err != nil || !present {
		*s = slot{}
		return n, err
	}
	var (
		id    pk.VarInt
		count pk.Byte
	)
	n2, err := (pk.Tuple{&id, &count, pk.NBT(&s.tag)}).ReadFrom(r)
	n += n2
	s.present, s.id, s.count = true, int32(id), int8(count)
	return n, err
}

// WriteTo кодирует слот в пакет (для ContainerClick отправляем пустые).
func (s slot) WriteTo(w io.Writer) (int64, error) {
	if !s.present {
		return pk.Boolean(false).WriteTo(w)
	}
	if len(s.tag.Data) == 0 {
		// TAG_End — предмет без NBT
		return (pk.Tuple{pk.Boolean(true), pk.VarInt(s.id), pk.Byte(s.count), pk.Byte(0)}).WriteTo(w)
	}
	return (pk.Tuple{pk.Boolean(true), pk.VarInt(s.id), pk.Byte(s.count), pk.NBT(s.tag)}).WriteTo(w)
}

func (s slot) item(idx int) (game.Item, bool) {
	if !s.present || s.count <= 0 {
		return game.Item{}, false
	}
	return game.Item{Slot: idx, Name: itemName(s.id), Count: int(s.count)}, true
}

type inventory struct {
	slots   [invSize]slot
	held    int // 0..8
	stateID int32
}

func newInventory() inventory { return inventory{} }

// screen — открытое окно контейнера.
type screen struct {
	id      int
	typ     int32
	stateID int32
	slots   []slot
	filled  bool
}

// сколько слотов окна принадлежит самому контейнеру
func (s *screen) size() int {
	if n := len(s.slots) - 36; n > 0 {
		return n
	}
	return 0
}

// ========================= пакеты =========================

func (c *Client) handleContainerSetContent(p pk.Packet) error {
	var (
		window  pk.UnsignedByte
		stateID pk.VarInt
		slots   []slot
		carried slot
	)
	if err := p.Scan(&window, &stateID, pk.Array(&slots), &carried); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if window == 0 {
		copy(c.inv.slots[:], slots)
		c.inv.stateID = int32(stateID)
		return nil
	}
	if c.screen != nil && c.screen.id == int(window) {
		c.screen.slots = slots
		c.screen.stateID = int32(stateID)
		if !c.screen.filled {
			c.screen.filled = true
			select {
			case c.screenCh <- c.screen:
			default:
			}
		}
	}
	return nil
}

func (c *Client) handleContainerSetSlot(p pk.Packet) error {
	var (
		window  pk.Byte
		stateID pk.VarInt
		idx     pk.Short
		data    slot
	)
	if err := p.Scan(&window, &stateID, &idx, &data); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case window == 0:
		if idx >= 0 && int(idx) < invSize {
			c.inv.slots[idx] = data
			c.inv.stateID = int32(stateID)
		}
	case c.screen != nil && c.screen.id == int(window):
		if idx >= 0 && int(idx) < len(c.screen.slots) {
			c.screen.slots[idx] = data
			c.screen.stateID = int32(stateID)
			// нижняя часть окна — это инвентарь игрока
			if n := c.screen.size(); int(idx) >= n {
				c.inv.slots[int(idx)-n+slotMainStart] = data
			}
		}
	}
	return nil
}

func (c *Client) handleOpenScreen(p pk.Packet) error {
	var (
		window pk.VarInt
		typ    pk.VarInt
		title  chat.Message
	)
	if err := p.Scan(&window, &typ, &title); err != nil {
		return err
	}
	c.mu.Lock()
	c.screen = &screen{id: int(window), typ: int32(typ)}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleContainerClose(p pk.Packet) error {
	var window pk.UnsignedByte
	if err := p.Scan(&window); err != nil {
		return err
	}
	c.mu.Lock()
	if c.screen != nil && c.screen.id == int(window) {
		c.screen = nil
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleSetCarriedItem(p pk.Packet) error {
	var held pk.Byte
	if err := p.Scan(&held); err != nil {
		return err
	}
	c.mu.Lock()
	if held >= 0 && held < 9 {
		c.inv.held = int(held)
	}
	c.mu.Unlock()
	return nil
}

// ========================= запросы =========================

// Inventory — броня, рюкзак, хотбар и вторая рука (нумерация окна 0).
func (c *Client) Inventory() []game.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []game.Item
	for i := slotArmorHead; i < invSize; i++ {
		if it, ok := c.inv.slots[i].item(i); ok {
			out = append(out, it)
		}
	}
	return out
}

func (c *Client) HeldItem() (game.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := slotHotbar + c.inv.held
	return c.inv.slots[idx].item(idx)
}

func (c *Client) EmptySlots() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for i := slotMainStart; i < slotOffhand; i++ {
		if !c.inv.slots[i].present {
			n++
		}
	}
	return n
}

// ========================= действия =========================

func (c *Client) Equip(item game.Item, dest game.EquipSlot) error {
	idx, err := c.locate(item)
	if err != nil {
		return err
	}
	switch dest {
	case game.SlotHand:
		if idx >= slotHotbar && idx < slotOffhand {
			return c.selectHotbar(idx - slotHotbar)
		}
		c.mu.RLock()
		held := c.inv.held
		c.mu.RUnlock()
		return c.click(0, idx, held, clickSwap)
	case game.SlotOffHand:
		if idx == slotOffhand {
			return nil
		}
		return c.click(0, idx, 40, clickSwap)
	default:
		if idx >= slotArmorHead && idx < slotMainStart {
			return nil
		}
		return c.click(0, idx, 0, clickShift)
	}
}

func (c *Client) selectHotbar(n int) error {
	if err := c.send(packetid.ServerboundSetCarriedItem, pk.Short(n)); err != nil {
		return err
	}
	c.mu.Lock()
	c.inv.held = n
	c.mu.Unlock()
	return nil
}

// locate находит текущий слот предмета: сначала по номеру, затем по имени.
func (c *Client) locate(item game.Item) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if item.Slot >= 0 && item.Slot < invSize {
		if it, ok := c.inv.slots[item.Slot].item(item.Slot); ok && it.Name == item.Name {
			return item.Slot, nil
		}
	}
	for i := slotArmorHead; i < invSize; i++ {
		if it, ok := c.inv.slots[i].item(i); ok && it.Name == item.Name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no %s in inventory", item.Name)
}

// click отправляет ContainerClick; сервер сам пришлёт актуальные слоты.
func (c *Client) click(window, idx, button, mode int) error {
	c.mu.RLock()
	stateID := c.inv.stateID
	if window != 0 && c.screen != nil {
		stateID = c.screen.stateID
	}
	c.mu.RUnlock()
	return c.send(packetid.ServerboundContainerClick,
		pk.UnsignedByte(window),
		pk.VarInt(stateID),
		pk.Short(idx),
		pk.Byte(button),
		pk.VarInt(mode),
		pk.VarInt(0), // изменённые слоты не отправляем — сервер пересинхронизирует
		slot{},
	)
}

// статусы PlayerAction
const (
	actionStartDig  = 0
	actionCancelDig = 1
	actionFinishDig = 2
	actionDropStack = 3
	actionDropItem  = 4
	actionRelease   = 5
)

func (c *Client) playerAction(status int, pos game.BlockPos, face game.Face) error {
	return c.send(packetid.ServerboundPlayerAction,
		pk.VarInt(status),
		pk.Position{X: pos.X, Y: pos.Y, Z: pos.Z},
		pk.Byte(face),
		pk.VarInt(c.seq.Add(1)),
	)
}

func (c *Client) Toss(item game.Item, count int) error {
	if err := c.Equip(item, game.SlotHand); err != nil {
		return err
	}
	if count <= 0 || count >= item.Count {
		return c.playerAction(actionDropStack, game.BlockPos{}, game.FaceBottom)
	}
	for i := 0; i < count; i++ {
		if err := c.playerAction(actionDropItem, game.BlockPos{}, game.FaceBottom); err != nil {
			return err
		}
	}
	return nil
}

// OpenContainer кликает по блоку и ждёт содержимое окна.
func (c *Client) OpenContainer(ctx context.Context, pos game.BlockPos) (game.Container, error) {
	select {
	case <-c.screenCh:
	default:
	}
	if err := c.ActivateBlock(pos); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	select {
	case s := <-c.screenCh:
		return &windowContainer{c: c, id: s.id}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("open container at %v: %w", pos, game.ErrTimeout)
	}
}

type windowContainer struct {
	c  *Client
	id int
}

func (w *windowContainer) Items() []game.Item {
	w.c.mu.RLock()
	defer w.c.mu.RUnlock()
	s := w.c.screen
	if s == nil || s.id != w.id {
		return nil
	}
	var out []game.Item
	for i := 0; i < s.size(); i++ {
		if it, ok := s.slots[i].item(i); ok {
			out = append(out, it)
		}
	}
	return out
}

func (w *windowContainer) Withdraw(item game.Item) error {
	return w.c.click(w.id, item.Slot, 0, clickShift)
}

// Deposit: слот инвентаря (9..44) переводится в нумерацию окна.
func (w *windowContainer) Deposit(item game.Item) error {
	w.c.mu.RLock()
	s := w.c.screen
	n := 0
	if s != nil {
		n = s.size()
	}
	w.c.mu.RUnlock()
	if s == nil || s.id != w.id {
		return fmt.Errorf("container closed")
	}
	if item.Slot < slotMainStart || item.Slot >= slotOffhand {
		return fmt.Errorf("slot %d can't be deposited", item.Slot)
	}
	return w.c.click(w.id, n+item.Slot-slotMainStart, 0, clickShift)
}

func (w *windowContainer) Close() error {
	w.c.mu.Lock()
	if w.c.screen != nil && w.c.screen.id == w.id {
		w.c.screen = nil
	}
	w.c.mu.Unlock()
	return w.c.send(packetid.ServerboundContainerClose, pk.UnsignedByte(w.id))
}
