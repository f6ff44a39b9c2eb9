package bot

import (
	"fmt"
	"strings"
)

const air = "air"

// Blueprint — постройка слоями снизу вверх: Layers[y][x][z].
type Blueprint struct {
	Name   string
	Layers [][][]string
}

// Size — ширина (x), длина (z), высота (y).
func (bp Blueprint) Size() (w, l, h int) {
	h = len(bp.Layers)
	if h > 0 {
		w = len(bp.Layers[0])
		if w > 0 {
			l = len(bp.Layers[0][0])
		}
	}
	return w, l, h
}

// Blocks — сколько блоков каждого вида нужно.
func (bp Blueprint) Blocks() map[string]int {
	out := map[string]int{}
	for _, layer := range bp.Layers {
		for _, row := range layer {
			for _, b := range row {
				if b != air {
					out[b]++
				}
			}
		}
	}
	return out
}

// Total — число непустых блоков.
func (bp Blueprint) Total() int {
	n := 0
	for _, c := range bp.Blocks() {
		n += c
	}
	return n
}

// Materials — список материалов с запасом 20%, округлённым вверх.
func (bp Blueprint) Materials() map[string]int {
	out := bp.Blocks()
	for k, v := range out {
		out[k] = (v*6 + 4) / 5
	}
	return out
}

func newLayer(w, l int, fill string) [][]string {
	layer := make([][]string, w)
	for x := range layer {
		layer[x] = make([]string, l)
		for z := range layer[x] {
			layer[x][z] = fill
		}
	}
	return layer
}

// SmallHouse — домик 7x7x4: пол, стены из брёвен, дверь, два окна, крыша.
func SmallHouse() Blueprint {
	const n = 7
	layers := make([][][]string, 4)
	layers[0] = newLayer(n, n, "oak_planks")
	for y := 1; y <= 2; y++ {
		layer := newLayer(n, n, air)
		for i := 0; i < n; i++ {
			layer[0][i], layer[n-1][i] = "oak_log", "oak_log"
			layer[i][0], layer[i][n-1] = "oak_log", "oak_log"
		}
		layers[y] = layer
	}
	layers[1][3][0] = "oak_door"
	layers[2][3][0] = "glass"
	layers[2][3][n-1] = "glass"
	roof := newLayer(n, n, "oak_planks")
	roof[0][0], roof[0][n-1], roof[n-1][0], roof[n-1][n-1] = air, air, air, air
	layers[3] = roof
	return Blueprint{Name: "Nhà nhỏ", Layers: layers}
}

// SmallTower — смотровая башня 5x5x8.
func SmallTower() Blueprint {
	const n, h = 5, 8
	layers := make([][][]string, h)
	for y := 0; y < h; y++ {
		switch {
		case y == 0:
			layers[y] = newLayer(n, n, "stone_bricks")
		case y == h-1:
			layers[y] = newLayer(n, n, "dark_oak_planks")
		default:
			layer := newLayer(n, n, air)
			for i := 0; i < n; i++ {
				layer[0][i], layer[n-1][i] = "stone_bricks", "stone_bricks"
				layer[i][0], layer[i][n-1] = "stone_bricks", "stone_bricks"
			}
			if y == 1 {
				layer[2][0] = "oak_door"
			}
			if y == 3 || y == 5 {
				layer[0][2], layer[n-1][2] = "glass", "glass"
				layer[2][0], layer[2][n-1] = "glass", "glass"
			}
			layers[y] = layer
		}
	}
	return Blueprint{Name: "Tháp quan sát", Layers: layers}
}

// Bridge — деревянный мост 3x15 с перилами.
func Bridge() Blueprint {
	rail := newLayer(3, 15, air)
	for z := 0; z < 15; z++ {
		rail[0][z], rail[2][z] = "oak_fence", "oak_fence"
	}
	return Blueprint{Name: "Cây cầu gỗ", Layers: [][][]string{newLayer(3, 15, "oak_planks"), rail}}
}

// Structure — параметры для постройки по размерам.
type Structure struct {
	Category  string // house | castle | ...
	Width     int
	Length    int
	Height    int
	Primary   string // пол
	Secondary string // стены
	Roof      string
}

// Parametric строит коробку: пол, стены с дверью на первом ярусе и окнами
// через каждые три блока, крыша (у замка — зубцы по периметру).
func Parametric(s Structure) (Blueprint, error) {
	if s.Width < 3 || s.Length < 3 || s.Height < 3 {
		return Blueprint{}, fmt.Errorf("structure %dx%dx%d is too small", s.Width, s.Length, s.Height)
	}
	if s.Width*s.Length*s.Height > 32*32*16 {
		return Blueprint{}, fmt.Errorf("structure %dx%dx%d is too big", s.Width, s.Length, s.Height)
	}
	if s.Primary == "" {
		s.Primary = "cobblestone"
	}
	if s.Secondary == "" {
		s.Secondary = "oak_planks"
	}
	if s.Roof == "" {
		s.Roof = "oak_planks"
	}
	w, l, h := s.Width, s.Length, s.Height
	layers := make([][][]string, h)
	for y := 0; y < h; y++ {
		layer := newLayer(w, l, air)
		for x := 0; x < w; x++ {
			for z := 0; z < l; z++ {
				edge := x == 0 || x == w-1 || z == 0 || z == l-1
				switch {
				case y == 0:
					layer[x][z] = s.Primary
				case y == h-1:
					if s.Category != "castle" {
						layer[x][z] = s.Roof
					} else if edge {
						layer[x][z] = s.Secondary
					}
				case edge:
					layer[x][z] = s.Secondary
					if y == 1 && x == w/2 && z == 0 {
						layer[x][z] = "oak_door"
					}
					if y >= 2 && (((x == 0 || x == w-1) && z%3 == 1) || ((z == 0 || z == l-1) && x%3 == 1)) {
						layer[x][z] = "glass"
					}
				}
			}
		}
		layers[y] = layer
	}
	name := s.Category
	if name == "" {
		name = "structure"
	}
	return Blueprint{Name: fmt.Sprintf("%s %dx%dx%d", name, w, l, h), Layers: layers}, nil
}

// LookupBlueprint: "house"/"nhà nhỏ", "tower"/"tháp nhỏ", "bridge"/"cầu",
// либо "<category> WxLxH [primary] [secondary] [roof]".
func LookupBlueprint(kind string, args ...string) (Blueprint, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	switch k {
	case "house", "nhà", "nhà nhỏ":
		return SmallHouse(), nil
	case "tower", "tháp", "tháp nhỏ":
		return SmallTower(), nil
	case "bridge", "cầu":
		return Bridge(), nil
	}
	if len(args) == 0 {
		return Blueprint{}, fmt.Errorf("unknown build %q (house, tower, bridge, <kind> WxLxH)", kind)
	}
	s := Structure{Category: k}
	if _, err := fmt.Sscanf(strings.ToLower(args[0]), "%dx%dx%d", &s.Width, &s.Length, &s.Height); err != nil {
		return Blueprint{}, fmt.Errorf("bad size %q, want WxLxH", args[0])
	}
	mats := args[1:]
	if len(mats) > 0 {
		s.Primary = mats[0]
	}
	if len(mats) > 1 {
		s.Secondary = mats[1]
	}
	if len(mats) > 2 {
		s.Roof = mats[2]
	}
	return Parametric(s)
}
