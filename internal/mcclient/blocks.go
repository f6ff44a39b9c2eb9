package mcclient

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/level/block"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/EgorLis/botlolicute/internal/game"
)

type chunkKey struct{ x, z int32 }

// chunkStore — загруженные чанки и точечные обновления блоков поверх них.
// Защищается Client.mu.
type chunkStore struct {
	minY, height int
	chunks       map[chunkKey]*level.Chunk
	overrides    map[game.BlockPos]int
}

func newChunkStore(minY, height int) *chunkStore {
	s := &chunkStore{minY: minY, height: height}
	s.reset()
	return s
}

func (s *chunkStore) reset() {
	s.chunks = make(map[chunkKey]*level.Chunk)
	s.overrides = make(map[game.BlockPos]int)
}

func keyOf(pos game.BlockPos) chunkKey {
	return chunkKey{int32(pos.X >> 4), int32(pos.Z >> 4)}
}

// state возвращает id состояния блока; ok=false — чанк не загружен.
func (s *chunkStore) state(pos game.BlockPos) (int, bool) {
	if st, ok := s.overrides[pos]; ok {
		return st, true
	}
	ch, ok := s.chunks[keyOf(pos)]
	if !ok {
		return 0, false
	}
	sec := (pos.Y - s.minY) >> 4
	if pos.Y < s.minY || sec >= len(ch.Sections) {
		return 0, true
	}
	idx := (pos.Y&15)<<8 | (pos.Z&15)<<4 | pos.X&15
	return int(ch.Sections[sec].States.Get(idx)), true
}

func (s *chunkStore) loaded(pos game.BlockPos) bool {
	_, ok := s.chunks[keyOf(pos)]
	return ok
}

// blockOf превращает id состояния в game.Block.
func blockOf(pos game.BlockPos, st int) game.Block {
	if st < 0 || st >= len(block.StateList) {
		return game.Block{Pos: pos, Name: "air"}
	}
	b := block.StateList[st]
	return game.Block{Pos: pos, Name: game.TrimNamespace(b.ID()), Props: blockProps(b)}
}

func blockName(st int) string {
	if st < 0 || st >= len(block.StateList) {
		return "air"
	}
	return game.TrimNamespace(block.StateList[st].ID())
}

// свойства состояния (age, facing, half...) читаем из полей структуры блока
func blockProps(b block.Block) map[string]string {
	v := reflect.ValueOf(b)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || v.NumField() == 0 {
		return nil
	}
	props := make(map[string]string, v.NumField())
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		props[snakeCase(f.Name)] = fmtValue(v.Field(i))
	}
	return props
}

func fmtValue(v reflect.Value) string {
	if s, ok := v.Interface().(interface{ String() string }); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	}
	return ""
}

func snakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ========================= пакеты =========================

func (c *Client) handleLevelChunk(p pk.Packet) error {
	var x, z pk.Int
	chunk := level.EmptyChunk(c.cfg.WorldHeight / 16)
	if err := p.Scan(&x, &z, chunk); err != nil {
		return err
	}
	key := chunkKey{int32(x), int32(z)}
	c.mu.Lock()
	c.chunks.chunks[key] = chunk
	for pos := range c.chunks.overrides {
		if keyOf(pos) == key {
			delete(c.chunks.overrides, pos)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleForgetLevelChunk(p pk.Packet) error {
	// в 1.20.2 порядок полей: z, затем x
	var x, z pk.Int
	if err := p.Scan(&z, &x); err != nil {
		return err
	}
	key := chunkKey{int32(x), int32(z)}
	c.mu.Lock()
	delete(c.chunks.chunks, key)
	for pos := range c.chunks.overrides {
		if keyOf(pos) == key {
			delete(c.chunks.overrides, pos)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleBlockUpdate(p pk.Packet) error {
	var (
		pos   pk.Position
		state pk.VarInt
	)
	if err := p.Scan(&pos, &state); err != nil {
		return err
	}
	c.mu.Lock()
	c.chunks.overrides[game.BlockPos{X: pos.X, Y: pos.Y, Z: pos.Z}] = int(state)
	c.mu.Unlock()
	return nil
}

// SectionBlocksUpdate: позиция секции (long) + VarLong-записи state<<12 | x<<8 | z<<4 | y.
func (c *Client) handleSectionBlocksUpdate(p pk.Packet) error {
	var (
		section pk.Long
		entries []pk.VarLong
	)
	if err := p.Scan(&section, pk.Array(&entries)); err != nil {
		return err
	}
	sx := int(int64(section) >> 42)
	sy := int(int64(section) << 44 >> 44)
	sz := int(int64(section) << 22 >> 42)
	c.mu.Lock()
	for _, e := range entries {
		v := int64(e)
		pos := game.BlockPos{
			X: sx*16 + int(v>>8&15),
			Y: sy*16 + int(v&15),
			Z: sz*16 + int(v>>4&15),
		}
		c.chunks.overrides[pos] = int(v >> 12)
	}
	c.mu.Unlock()
	return nil
}

// ========================= запросы =========================

func (c *Client) BlockAt(pos game.BlockPos) (game.Block, bool) {
	c.mu.RLock()
	st, ok := c.chunks.state(pos)
	c.mu.RUnlock()
	if !ok {
		return game.Block{Pos: pos}, false
	}
	return blockOf(pos, st), true
}

// FindBlocks обходит загруженные чанки в радиусе. Отсев по имени кешируется
// на id состояния, Match проверяется только для кандидатов.
func (c *Client) FindBlocks(q game.BlockQuery) []game.Block {
	from := c.Position()
	r := q.MaxDistance
	nameOK := make(map[int]bool)

	c.mu.RLock()
	var out []game.Block
	minCX, maxCX := int32(math.Floor((from.X-r)/16)), int32(math.Floor((from.X+r)/16))
	minCZ, maxCZ := int32(math.Floor((from.Z-r)/16)), int32(math.Floor((from.Z+r)/16))
	for key, ch := range c.chunks.chunks {
		if key.x < minCX || key.x > maxCX || key.z < minCZ || key.z > maxCZ {
			continue
		}
		for si, sec := range ch.Sections {
			if sec.BlockCount == 0 {
				continue
			}
			baseY := c.chunks.minY + si*16
			if float64(baseY+16) < from.Y-r || float64(baseY) > from.Y+r {
				continue
			}
			for idx := 0; idx < 4096; idx++ {
				st := int(sec.States.Get(idx))
				ok, seen := nameOK[st]
				if !seen {
					ok = q.Name == nil || q.Name(blockName(st))
					nameOK[st] = ok
				}
				if !ok {
					continue
				}
				pos := game.BlockPos{
					X: int(key.x)*16 + idx&15,
					Y: baseY + idx>>8,
					Z: int(key.z)*16 + idx>>4&15,
				}
				if _, moved := c.chunks.overrides[pos]; moved {
					continue
				}
				if from.Distance(pos.Center()) > r {
					continue
				}
				out = append(out, blockOf(pos, st))
			}
		}
	}
	for pos, st := range c.chunks.overrides {
		if from.Distance(pos.Center()) > r {
			continue
		}
		if b := blockOf(pos, st); q.Name == nil || q.Name(b.Name) {
			out = append(out, b)
		}
	}
	c.mu.RUnlock()

	out = q.FilterMatch(out)

	game.SortByDistance(out, from)
	if q.Count > 0 && len(out) > q.Count {
		out = out[:q.Count]
	}
	return out
}
