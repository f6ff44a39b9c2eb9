package game

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrUnsupported  = errors.New("unsupported")
	ErrNoPath       = errors.New("no path")
	ErrTimeout      = errors.New("timeout")
	ErrNotNight     = errors.New("can only sleep at night")
)

// IsNight — можно ли спать. Время дня отрицательно, когда цикл дня заморожен
// (gamerule doDaylightCycle false), поэтому сначала нормализуем.
func IsNight(timeOfDay int64) bool {
	t := (timeOfDay%24000 + 24000) % 24000
	return t >= 12542 && t <= 23459
}

// EntityKind — грубая классификация сущностей.
type EntityKind int

const (
	KindOther EntityKind = iota
	KindPlayer
	KindMob
	KindObject
)

func (k EntityKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMob:
		return "mob"
	case KindObject:
		return "object"
	default:
		return "other"
	}
}

type Entity struct {
	ID       int32
	UUID     [16]byte
	Name     string // тип: "zombie", "player", "item", "boat"...
	Username string // только для игроков
	Kind     EntityKind
	Position Vec3
	Vehicle  int32 // 0 — не в транспорте
	Data     int32 // доп. поле спавна (у поплавка — id владельца)
}

// Label — имя игрока либо тип сущности.
func (e Entity) Label() string {
	if e.Username != "" {
		return e.Username
	}
	return e.Name
}

type Item struct {
	Slot  int    `json:"slot"`
	Name  string `json:"name"` // без префикса "minecraft:"
	Count int    `json:"count"`
}

type Block struct {
	Pos   BlockPos
	Name  string
	Props map[string]string
}

// IsAir — пустой блок (в т.ч. незагруженный).
func (b Block) IsAir() bool {
	return b.Name == "" || b.Name == "air" || b.Name == "cave_air" || b.Name == "void_air"
}

// BlockQuery — поиск блоков вокруг бота. Name отсекает по типу блока,
// Match (необязательный) проверяет блок целиком. Результат отсортирован по расстоянию.
type BlockQuery struct {
	Name        func(name string) bool
	Match       func(Block) bool
	MaxDistance float64
	Count       int
}

// FilterMatch оставляет блоки, прошедшие Match. Match может сам читать мир,
// поэтому реализации World вызывают его без своих блокировок.
func (q BlockQuery) FilterMatch(bs []Block) []Block {
	if q.Match == nil {
		return bs
	}
	out := bs[:0]
	for _, b := range bs {
		if q.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

// EquipSlot — куда надевать предмет.
type EquipSlot int

const (
	SlotHand EquipSlot = iota
	SlotOffHand
	SlotHead
	SlotTorso
	SlotLegs
	SlotFeet
)

// Container — открытое окно сундука/бочки.
type Container interface {
	Items() []Item
	Withdraw(item Item) error
	Deposit(item Item) error
	Close() error
}

// World — всё, что бот знает о мире и может в нём сделать.
// Реализация обязана быть безопасной для конкурентного использования.
type World interface {
	Username() string
	Connected() bool
	Position() Vec3
	OnGround() bool
	Health() float64
	Food() int
	TimeOfDay() int64

	Entities() []Entity
	Entity(id int32) (Entity, bool)
	Players() []string
	PlayerEntity(name string) (Entity, bool)

	Inventory() []Item
	HeldItem() (Item, bool)
	EmptySlots() int

	BlockAt(pos BlockPos) (Block, bool)
	FindBlocks(q BlockQuery) []Block

	Chat(msg string) error
	Goto(ctx context.Context, goal Vec3, rng float64) error
	StopMoving()
	LookAt(pos Vec3) error
	Jump() error
	Attack(entityID int32) error
	Interact(entityID int32) error
	Dismount() error
	Equip(item Item, dest EquipSlot) error
	Consume(ctx context.Context) error
	UseItem() error
	ActivateBlock(pos BlockPos) error
	Dig(ctx context.Context, pos BlockPos) error
	PlaceBlock(against BlockPos, face Face) error
	Toss(item Item, count int) error
	OpenContainer(ctx context.Context, pos BlockPos) (Container, error)
	Sleep(ctx context.Context, bed BlockPos) error
	Respawn() error
}

// Sleep ждёт d или отмены контекста.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
