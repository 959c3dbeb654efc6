// Package preview draws generated chunks for the desktop viewer.
package preview

import (
	"image/color"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

var (
	floorColor   = color.RGBA{R: 0xb9, G: 0xa2, B: 0x7f, A: 0xff}
	wallColor    = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	missingColor = color.RGBA{R: 0x40, G: 0x10, B: 0x10, A: 0xff}
)

// View is a square block of chunks centred on one chunk.
type View struct {
	Center    tile.ChunkPos
	Radius    int
	ChunkSize int
}

// Side returns the width and height of the view in tiles.
func (v View) Side() int { return (2*v.Radius + 1) * v.ChunkSize }

// Chunks lists the chunks covered by the view.
func (v View) Chunks() []tile.ChunkPos {
	var out []tile.ChunkPos
	for dy := -v.Radius; dy <= v.Radius; dy++ {
		for dx := -v.Radius; dx <= v.Radius; dx++ {
			out = append(out, v.Center.Add(dx, dy))
		}
	}
	return out
}

// Fill writes the RGBA pixels of the view into buf, one pixel per tile and
// the top row first. Chunks absent from grids are drawn in missingColor.
func (v View) Fill(buf []byte, grids map[tile.ChunkPos]*tile.Grid) {
	side := v.Side()
	for _, pos := range v.Chunks() {
		g := grids[pos]
		ox := (pos.X - v.Center.X + v.Radius) * v.ChunkSize
		oy := (pos.Y - v.Center.Y + v.Radius) * v.ChunkSize
		for ly := 0; ly < v.ChunkSize; ly++ {
			row := side - 1 - (oy + ly)
			for lx := 0; lx < v.ChunkSize; lx++ {
				c := missingColor
				if g != nil {
					c = wallColor
					if g.At(lx, ly) {
						c = floorColor
					}
				}
				base := (row*side + ox + lx) * 4
				buf[base+0] = c.R
				buf[base+1] = c.G
				buf[base+2] = c.B
				buf[base+3] = c.A
			}
		}
	}
}
