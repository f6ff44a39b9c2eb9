package game

import (
	"fmt"
	"math"
)

// Vec3 — точка в мире (координаты ног сущности).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

func (v Vec3) Offset(dx, dy, dz float64) Vec3 { return Vec3{v.X + dx, v.Y + dy, v.Z + dz} }

func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Len() }

// HorizontalDistance — расстояние без учёта высоты.
func (v Vec3) HorizontalDistance(o Vec3) float64 {
	dx, dz := v.X-o.X, v.Z-o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Block — блок, в котором находится точка.
func (v Vec3) Block() BlockPos {
	return BlockPos{int(math.Floor(v.X)), int(math.Floor(v.Y)), int(math.Floor(v.Z))}
}

func (v Vec3) String() string { return fmt.Sprintf("%.1f %.1f %.1f", v.X, v.Y, v.Z) }

// BlockPos — целочисленные координаты блока.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p BlockPos) Offset(dx, dy, dz int) BlockPos { return BlockPos{p.X + dx, p.Y + dy, p.Z + dz} }

// Vec3 возвращает центр нижней грани блока (куда встают ноги).
func (p BlockPos) Vec3() Vec3 { return Vec3{float64(p.X) + 0.5, float64(p.Y), float64(p.Z) + 0.5} }

// Center — геометрический центр блока.
func (p BlockPos) Center() Vec3 {
	return Vec3{float64(p.X) + 0.5, float64(p.Y) + 0.5, float64(p.Z) + 0.5}
}

func (p BlockPos) String() string { return fmt.Sprintf("%d %d %d", p.X, p.Y, p.Z) }

// Face — грань блока для установки/копания.
type Face int

const (
	FaceBottom Face = iota
	FaceTop
	FaceNorth
	FaceSouth
	FaceWest
	FaceEast
)

// Offset — смещение к соседнему блоку со стороны грани.
func (f Face) Offset() BlockPos {
	switch f {
	case FaceBottom:
		return BlockPos{0, -1, 0}
	case FaceTop:
		return BlockPos{0, 1, 0}
	case FaceNorth:
		return BlockPos{0, 0, -1}
	case FaceSouth:
		return BlockPos{0, 0, 1}
	case FaceWest:
		return BlockPos{-1, 0, 0}
	default:
		return BlockPos{1, 0, 0}
	}
}

// FaceTowards — грань блока from, смотрящая на соседний блок to.
func FaceTowards(from, to BlockPos) (Face, bool) {
	d := BlockPos{to.X - from.X, to.Y - from.Y, to.Z - from.Z}
	for f := FaceBottom; f <= FaceEast; f++ {
		if f.Offset() == d {
			return f, true
		}
	}
	return 0, false
}
