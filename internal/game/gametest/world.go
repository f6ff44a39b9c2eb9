// Package gametest — игровой мир в памяти для тестов поведения бота.
package gametest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/EgorLis/botlolicute/internal/game"
)

// World реализует game.World без сети. Все действия пишутся в журнал.
type World struct {
	mu sync.Mutex

	name      string
	connected bool
	pos       game.Vec3
	onGround  bool
	health    float64
	food      int
	timeOfDay int64

	entities  map[int32]game.Entity
	players   []string
	inventory []game.Item
	held      int // слот в руке (36..44)
	blocks    map[game.BlockPos]game.Block

	containers map[game.BlockPos]*Container

	// OP разрешает /tp и /effect.
	OP bool
	// GotoErr возвращается из Goto, если задана.
	GotoErr error
	// OnChat вызывается на каждое сообщение бота (под блокировкой не держится).
	OnChat func(msg string)

	chats     []string
	gotos     []game.Vec3
	attacks   []int32
	digs      []game.BlockPos
	places    []game.BlockPos
	tosses    []game.Item
	eaten     []string
	uses      int
	respawns  int
	sleeps    int
	dismounts int
	interact  []int32
}

func NewWorld(name string) *World {
	return &World{
		name:       name,
		connected:  true,
		onGround:   true,
		health:     20,
		food:       20,
		held:       36,
		pos:        game.V(0.5, 64, 0.5),
		entities:   map[int32]game.Entity{},
		blocks:     map[game.BlockPos]game.Block{},
		containers: map[game.BlockPos]*Container{},
	}
}

// ---------- настройка ----------

func (w *World) SetPosition(p game.Vec3) { w.mu.Lock(); w.pos = p; w.mu.Unlock() }
func (w *World) SetHealth(h float64)     { w.mu.Lock(); w.health = h; w.mu.Unlock() }
func (w *World) SetFood(f int)           { w.mu.Lock(); w.food = f; w.mu.Unlock() }
func (w *World) SetConnected(v bool)     { w.mu.Lock(); w.connected = v; w.mu.Unlock() }
func (w *World) SetTimeOfDay(t int64)    { w.mu.Lock(); w.timeOfDay = t; w.mu.Unlock() }
func (w *World) SetOnGround(v bool)      { w.mu.Lock(); w.onGround = v; w.mu.Unlock() }

// AddPlayer добавляет игрока в таб и, если pos != nil, его сущность.
func (w *World) AddPlayer(id int32, name string, pos *game.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players = append(w.players, name)
	if pos != nil {
		w.entities[id] = game.Entity{ID: id, Name: "player", Username: name, Kind: game.KindPlayer, Position: *pos}
	}
}

func (w *World) RemovePlayer(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.players[:0]
	for _, p := range w.players {
		if p != name {
			out = append(out, p)
		}
	}
	w.players = out
	for id, e := range w.entities {
		if e.Username == name {
			delete(w.entities, id)
		}
	}
}

// AddEntity добавляет сущность; Kind вычисляется по имени, если не задан.
func (w *World) AddEntity(e game.Entity) {
	if e.Kind == game.KindOther {
		e.Kind = game.KindOf(e.Name)
	}
	w.mu.Lock()
	w.entities[e.ID] = e
	w.mu.Unlock()
}

func (w *World) MoveEntity(id int32, p game.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[id]; ok {
		e.Position = p
		w.entities[id] = e
	}
}

func (w *World) RemoveEntity(id int32) {
	w.mu.Lock()
	delete(w.entities, id)
	w.mu.Unlock()
}

// Give кладёт предмет в первый свободный слот (хотбар, потом рюкзак).
func (w *World) Give(name string, count int) game.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	used := map[int]bool{}
	for _, it := range w.inventory {
		used[it.Slot] = true
	}
	slot := -1
	for _, s := range append(seq(36, 44), seq(9, 35)...) {
		if !used[s] {
			slot = s
			break
		}
	}
	it := game.Item{Slot: slot, Name: name, Count: count}
	w.inventory = append(w.inventory, it)
	return it
}

// FillInventory занимает все слоты кроме free.
func (w *World) FillInventory(free int) {
	for w.EmptySlots() > free {
		w.Give("cobblestone", 64)
	}
}

func (w *World) SetBlock(pos game.BlockPos, name string, props map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" || name == "air" {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = game.Block{Pos: pos, Name: name, Props: props}
}

// AddContainer ставит сундук с содержимым.
func (w *World) AddContainer(pos game.BlockPos, name string, items ...game.Item) *Container {
	w.SetBlock(pos, name, nil)
	c := &Container{w: w}
	for i, it := range items {
		it.Slot = i
		c.items = append(c.items, it)
	}
	w.mu.Lock()
	w.containers[pos] = c
	w.mu.Unlock()
	return c
}

// ---------- журнал ----------

func (w *World) Chats() []string       { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.chats) }
func (w *World) Gotos() []game.Vec3    { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.gotos) }
func (w *World) Attacks() []int32      { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.attacks) }
func (w *World) Digs() []game.BlockPos { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.digs) }
func (w *World) Places() []game.BlockPos {
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone(w.places)
}
func (w *World) Tosses() []game.Item { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.tosses) }
func (w *World) Eaten() []string     { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.eaten) }
func (w *World) Uses() int           { w.mu.Lock(); defer w.mu.Unlock(); return w.uses }
func (w *World) Respawns() int       { w.mu.Lock(); defer w.mu.Unlock(); return w.respawns }
func (w *World) Sleeps() int         { w.mu.Lock(); defer w.mu.Unlock(); return w.sleeps }
func (w *World) Dismounts() int      { w.mu.Lock(); defer w.mu.Unlock(); return w.dismounts }
func (w *World) Interactions() []int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone(w.interact)
}

// ChatContains — есть ли сообщение с подстрокой.
func (w *World) ChatContains(sub string) bool {
	for _, c := range w.Chats() {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

// ---------- game.World: состояние ----------

func (w *World) Username() string    { return w.name }
func (w *World) Connected() bool     { w.mu.Lock(); defer w.mu.Unlock(); return w.connected }
func (w *World) Position() game.Vec3 { w.mu.Lock(); defer w.mu.Unlock(); return w.pos }
func (w *World) OnGround() bool      { w.mu.Lock(); defer w.mu.Unlock(); return w.onGround }
func (w *World) Health() float64     { w.mu.Lock(); defer w.mu.Unlock(); return w.health }
func (w *World) Food() int           { w.mu.Lock(); defer w.mu.Unlock(); return w.food }
func (w *World) TimeOfDay() int64    { w.mu.Lock(); defer w.mu.Unlock(); return w.timeOfDay }

func (w *World) Entities() []game.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]game.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	return out
}

func (w *World) Entity(id int32) (game.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	return e, ok
}

func (w *World) Players() []string { w.mu.Lock(); defer w.mu.Unlock(); return clone(w.players) }

func (w *World) PlayerEntity(name string) (game.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entities {
		if e.Username == name {
			return e, true
		}
	}
	return game.Entity{}, false
}

func (w *World) Inventory() []game.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone(w.inventory)
}

func (w *World) HeldItem() (game.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, it := range w.inventory {
		if it.Slot == w.held {
			return it, true
		}
	}
	return game.Item{}, false
}

func (w *World) EmptySlots() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 36
	for _, it := range w.inventory {
		if it.Slot >= 9 && it.Slot <= 44 {
			n--
		}
	}
	return n
}

func (w *World) BlockAt(pos game.BlockPos) (game.Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.blocks[pos]; ok {
		return b, true
	}
	return game.Block{Pos: pos, Name: "air"}, true
}

func (w *World) FindBlocks(q game.BlockQuery) []game.Block {
	w.mu.Lock()
	from := w.pos
	var out []game.Block
	for _, b := range w.blocks {
		if from.Distance(b.Pos.Center()) <= q.MaxDistance && (q.Name == nil || q.Name(b.Name)) {
			out = append(out, b)
		}
	}
	w.mu.Unlock()

	out = q.FilterMatch(out)
	game.SortByDistance(out, from)
	if q.Count > 0 && len(out) > q.Count {
		out = out[:q.Count]
	}
	return out
}

// ---------- game.World: действия ----------

func (w *World) Chat(msg string) error {
	w.mu.Lock()
	if !w.connected {
		w.mu.Unlock()
		return game.ErrNotConnected
	}
	w.chats = append(w.chats, msg)
	if w.OP && strings.HasPrefix(msg, "/tp ") {
		w.teleportLocked(strings.Fields(msg)[1:])
	}
	if w.OP && strings.HasPrefix(msg, "/effect give ") && strings.Contains(msg, "regeneration") {
		w.health = 20
	}
	hook := w.OnChat
	w.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (w *World) teleportLocked(args []string) {
	if len(args) == 0 || args[0] != w.name {
		return
	}
	switch len(args) {
	case 2:
		for _, e := range w.entities {
			if e.Username == args[1] {
				w.pos = e.Position
			}
		}
	case 4:
		var xyz [3]float64
		for i, a := range args[1:] {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return
			}
			xyz[i] = v
		}
		w.pos = game.V(xyz[0], xyz[1], xyz[2])
	}
}

func (w *World) Goto(ctx context.Context, goal game.Vec3, rng float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gotos = append(w.gotos, goal)
	if w.GotoErr != nil {
		return w.GotoErr
	}
	if w.pos.Distance(goal) > rng {
		w.pos = goal
	}
	// выпавшие предметы рядом подбираются, как на сервере
	for id, e := range w.entities {
		if e.Name == "item" && w.pos.Distance(e.Position) <= 1.5 {
			delete(w.entities, id)
		}
	}
	return nil
}

func (w *World) StopMoving()            {}
func (w *World) LookAt(game.Vec3) error { return nil }
func (w *World) Jump() error            { return nil }
func (w *World) Dismount() error {
	w.mu.Lock()
	w.dismounts++
	w.mu.Unlock()
	return nil
}

func (w *World) Attack(id int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("entity %d: %w", id, game.ErrUnsupported)
	}
	w.attacks = append(w.attacks, id)
	return nil
}

func (w *World) Interact(id int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interact = append(w.interact, id)
	return nil
}

func (w *World) Equip(item game.Item, dest game.EquipSlot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.indexLocked(item)
	if idx < 0 {
		return fmt.Errorf("no %s in inventory", item.Name)
	}
	switch dest {
	case game.SlotHand:
		if w.inventory[idx].Slot < 36 {
			w.swapLocked(idx, w.held)
		}
		w.held = w.inventory[idx].Slot
	case game.SlotOffHand:
		w.swapLocked(idx, 45)
	default:
		w.swapLocked(idx, 5+int(dest-game.SlotHead))
	}
	return nil
}

func (w *World) swapLocked(idx, slot int) {
	for i := range w.inventory {
		if w.inventory[i].Slot == slot {
			w.inventory[i].Slot = w.inventory[idx].Slot
		}
	}
	w.inventory[idx].Slot = slot
}

func (w *World) indexLocked(item game.Item) int {
	for i, it := range w.inventory {
		if it.Slot == item.Slot && it.Name == item.Name {
			return i
		}
	}
	for i, it := range w.inventory {
		if it.Name == item.Name {
			return i
		}
	}
	return -1
}

func (w *World) Consume(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, it := range w.inventory {
		if it.Slot != w.held {
			continue
		}
		if !game.IsFood(it.Name) {
			return fmt.Errorf("%s is not food", it.Name)
		}
		w.eaten = append(w.eaten, it.Name)
		w.food = 20
		if game.IsGoldenApple(it.Name) {
			w.health = 20
		}
		w.decLocked(i, 1)
		return nil
	}
	return fmt.Errorf("nothing in hand")
}

func (w *World) decLocked(i, n int) {
	w.inventory[i].Count -= n
	if w.inventory[i].Count <= 0 {
		w.inventory = append(w.inventory[:i], w.inventory[i+1:]...)
	}
}

func (w *World) UseItem() error {
	w.mu.Lock()
	w.uses++
	w.mu.Unlock()
	return nil
}

func (w *World) ActivateBlock(pos game.BlockPos) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, it := range w.inventory {
		if it.Slot == w.held && it.Name == "bone_meal" {
			w.decLocked(i, 1)
			if b, ok := w.blocks[pos]; ok && b.Props != nil {
				b.Props["age"] = "7"
			}
			break
		}
	}
	return nil
}

func (w *World) Dig(ctx context.Context, pos game.BlockPos) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.digs = append(w.digs, pos)
	delete(w.blocks, pos)
	return nil
}

func (w *World) PlaceBlock(against game.BlockPos, face game.Face) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, it := range w.inventory {
		if it.Slot != w.held {
			continue
		}
		o := face.Offset()
		target := against.Offset(o.X, o.Y, o.Z)
		name := it.Name
		if strings.HasSuffix(name, "_seeds") || name == "carrot" || name == "potato" {
			name = seedToCrop(name)
		}
		w.blocks[target] = game.Block{Pos: target, Name: name, Props: map[string]string{"age": "0"}}
		w.places = append(w.places, target)
		w.decLocked(i, 1)
		return nil
	}
	return fmt.Errorf("nothing in hand")
}

func seedToCrop(name string) string {
	switch name {
	case "wheat_seeds":
		return "wheat"
	case "beetroot_seeds":
		return "beetroots"
	case "carrot":
		return "carrots"
	case "potato":
		return "potatoes"
	}
	return name
}

func (w *World) Toss(item game.Item, count int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.indexLocked(item)
	if idx < 0 {
		return fmt.Errorf("no %s in inventory", item.Name)
	}
	if count <= 0 || count > w.inventory[idx].Count {
		count = w.inventory[idx].Count
	}
	w.tosses = append(w.tosses, game.Item{Slot: item.Slot, Name: item.Name, Count: count})
	w.decLocked(idx, count)
	return nil
}

func (w *World) OpenContainer(ctx context.Context, pos game.BlockPos) (game.Container, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.containers[pos]
	if !ok {
		return nil, fmt.Errorf("no container at %v", pos)
	}
	c.open = true
	return c, nil
}

func (w *World) Sleep(ctx context.Context, bed game.BlockPos) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !game.IsNight(w.timeOfDay) {
		return game.ErrNotNight
	}
	w.sleeps++
	return nil
}

func (w *World) Respawn() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.respawns++
	w.health = 20
	w.food = 20
	return nil
}

// Container — сундук в памяти.
type Container struct {
	w     *World
	items []game.Item
	open  bool
}

func (c *Container) Items() []game.Item {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	return clone(c.items)
}

func (c *Container) Withdraw(item game.Item) error {
	c.w.mu.Lock()
	idx := -1
	for i, it := range c.items {
		if it.Slot == item.Slot {
			idx = i
		}
	}
	if idx < 0 {
		c.w.mu.Unlock()
		return fmt.Errorf("slot %d empty", item.Slot)
	}
	it := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.w.mu.Unlock()
	c.w.Give(it.Name, it.Count)
	return nil
}

func (c *Container) Deposit(item game.Item) error {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	idx := c.w.indexLocked(item)
	if idx < 0 {
		return fmt.Errorf("no %s in inventory", item.Name)
	}
	it := c.w.inventory[idx]
	it.Slot = len(c.items)
	c.items = append(c.items, it)
	c.w.inventory = append(c.w.inventory[:idx], c.w.inventory[idx+1:]...)
	return nil
}

func (c *Container) Close() error {
	c.w.mu.Lock()
	c.open = false
	c.w.mu.Unlock()
	return nil
}

func clone[T any](s []T) []T {
	return append([]T(nil), s...)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

var _ game.World = (*World)(nil)
