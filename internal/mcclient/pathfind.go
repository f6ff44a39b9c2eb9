package mcclient

import (
	"container/heap"
	"math"
	"strings"

	"github.com/EgorLis/botlolicute/internal/game"
)

// terrain отдаёт имя блока; ok=false — чанк не загружен.
type terrain func(pos game.BlockPos) (name string, ok bool)

const (
	maxFall       = 3
	maxPathNodes  = 6000
	stepUpCost    = 1.5
	dropCostPerY  = 0.5
	diagonalCost  = math.Sqrt2
	straightCost  = 1.0
	waterMoveCost = 2.0
)

var passableBlocks = map[string]bool{
	"air": true, "cave_air": true, "void_air": true,
	"short_grass": true, "grass": true, "tall_grass": true, "fern": true, "large_fern": true,
	"dead_bush": true, "snow": true, "torch": true, "wall_torch": true,
	"wheat": true, "carrots": true, "potatoes": true, "beetroots": true,
	"sugar_cane": true, "vine": true, "rail": true, "redstone_wire": true,
	"water": true,
}

// опасные блоки: не наступаем и не проходим сквозь
var dangerousBlocks = map[string]bool{
	"lava": true, "fire": true, "soul_fire": true, "cactus": true,
	"sweet_berry_bush": true, "powder_snow": true, "magma_block": true,
	"wither_rose": true, "campfire": true, "soul_campfire": true,
}

func isPassable(name string) bool {
	if passableBlocks[name] {
		return true
	}
	return strings.HasSuffix(name, "_sapling") ||
		strings.HasSuffix(name, "_flower") ||
		strings.HasSuffix(name, "_tulip") ||
		strings.HasSuffix(name, "_carpet") ||
		strings.HasSuffix(name, "_pressure_plate") ||
		strings.HasSuffix(name, "_button") ||
		strings.HasSuffix(name, "_sign") ||
		name == "dandelion" || name == "poppy"
}

// стоять можно на твёрдом безопасном блоке
func isFloor(name string) bool {
	return !isPassable(name) && !dangerousBlocks[name] && !strings.HasSuffix(name, "_fence") && !strings.HasSuffix(name, "_wall")
}

// можно ли стоять в pos: ноги и голова свободны, под ногами опора или вода
func standable(t terrain, pos game.BlockPos) bool {
	feet, ok := t(pos)
	if !ok || !isPassable(feet) {
		return false
	}
	head, ok := t(pos.Offset(0, 1, 0))
	if !ok || !isPassable(head) {
		return false
	}
	below, ok := t(pos.Offset(0, -1, 0))
	if !ok {
		return false
	}
	return isFloor(below) || below == "water" || feet == "water"
}

func freeAt(t terrain, pos game.BlockPos) bool {
	name, ok := t(pos)
	return ok && isPassable(name)
}

type pathNode struct {
	pos    game.BlockPos
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func heuristic(a, b game.BlockPos) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dz := math.Abs(float64(a.Z - b.Z))
	dy := math.Abs(float64(a.Y - b.Y))
	if dx > dz {
		return dx + (math.Sqrt2-1)*dz + dy
	}
	return dz + (math.Sqrt2-1)*dx + dy
}

type neighbor struct {
	dx, dz int
	cost   float64
}

var neighbors = []neighbor{
	{1, 0, straightCost}, {-1, 0, straightCost}, {0, 1, straightCost}, {0, -1, straightCost},
	{1, 1, diagonalCost}, {1, -1, diagonalCost}, {-1, 1, diagonalCost}, {-1, -1, diagonalCost},
}

// successors — куда можно шагнуть из pos: по ровному, на блок вверх или спрыгнуть до maxFall.
func successors(t terrain, pos game.BlockPos, fn func(next game.BlockPos, cost float64)) {
	for _, n := range neighbors {
		// по диагонали только если оба прямых соседа свободны
		if n.dx != 0 && n.dz != 0 {
			if !freeAt(t, pos.Offset(n.dx, 0, 0)) || !freeAt(t, pos.Offset(n.dx, 1, 0)) ||
				!freeAt(t, pos.Offset(0, 0, n.dz)) || !freeAt(t, pos.Offset(0, 1, n.dz)) {
				continue
			}
		}
		side := pos.Offset(n.dx, 0, n.dz)
		extra := 0.0
		if name, _ := t(side); name == "water" {
			extra = waterMoveCost
		}
		if standable(t, side) {
			fn(side, n.cost+extra)
			continue
		}
		// шаг вверх: над головой должно быть свободно
		up := side.Offset(0, 1, 0)
		if n.dx*n.dz == 0 && freeAt(t, pos.Offset(0, 2, 0)) && standable(t, up) {
			fn(up, n.cost+stepUpCost)
			continue
		}
		if !freeAt(t, side) || !freeAt(t, side.Offset(0, 1, 0)) {
			continue
		}
		for dy := 1; dy <= maxFall; dy++ {
			down := side.Offset(0, -dy, 0)
			if standable(t, down) {
				fn(down, n.cost+dropCostPerY*float64(dy))
				break
			}
			if !freeAt(t, down) {
				break
			}
		}
	}
}

// findPath — A* по блокам от start до любой клетки не дальше rng от goal.
// Если цель недостижима, возвращает путь к ближайшей найденной клетке и reached=false.
func findPath(t terrain, start game.BlockPos, goal game.Vec3, rng float64, limit int) (path []game.BlockPos, reached bool) {
	if limit <= 0 {
		limit = maxPathNodes
	}
	goalBlock := goal.Block()
	near := func(p game.BlockPos) bool { return p.Vec3().Distance(goal) <= math.Max(rng, 0.5) }

	open := &pathQueue{}
	heap.Init(open)
	startNode := &pathNode{pos: start, f: heuristic(start, goalBlock)}
	heap.Push(open, startNode)
	gScore := map[game.BlockPos]float64{start: 0}
	closed := make(map[game.BlockPos]struct{})
	best := startNode
	bestH := heuristic(start, goalBlock)

	for open.Len() > 0 && len(closed) < limit {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.pos]; seen {
			continue
		}
		closed[current.pos] = struct{}{}
		if near(current.pos) {
			return reconstructPath(current), true
		}
		if h := heuristic(current.pos, goalBlock); h < bestH {
			best, bestH = current, h
		}

		successors(t, current.pos, func(next game.BlockPos, cost float64) {
			if _, seen := closed[next]; seen {
				return
			}
			tentativeG := current.g + cost
			if prev, ok := gScore[next]; ok && tentativeG >= prev {
				return
			}
			gScore[next] = tentativeG
			heap.Push(open, &pathNode{
				pos:    next,
				g:      tentativeG,
				f:      tentativeG + heuristic(next, goalBlock),
				parent: current,
			})
		})
	}
	if best == startNode {
		return nil, false
	}
	return reconstructPath(best), false
}

func reconstructPath(end *pathNode) []game.BlockPos {
	path := make([]game.BlockPos, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.pos)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	// стартовая клетка — там, где мы уже стоим
	return path[1:]
}
