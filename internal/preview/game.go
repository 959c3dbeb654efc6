//go:build ebiten

package preview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/OCharnyshevich/endless-cavern/internal/server/world"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/region"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Game adapts a cave world to the ebiten.Game interface. Arrow keys move the
// camera one chunk, R reseeds, Q or Escape quits.
type Game struct {
	cfg   gen.Config
	log   *slog.Logger
	world *world.World
	view  View
	scale int

	grids  map[tile.ChunkPos]*tile.Grid
	pixels []byte
	canvas *ebiten.Image
	dirty  bool
	status string
}

// New constructs a Game showing radius chunks around the origin.
func New(cfg gen.Config, radius, scale int, log *slog.Logger) (*Game, error) {
	g := &Game{
		cfg:   cfg,
		log:   log,
		scale: scale,
		view:  View{Radius: radius, ChunkSize: cfg.ChunkSize},
	}
	if err := g.Reset(cfg.GlobalSeed); err != nil {
		return nil, err
	}
	side := g.view.Side()
	g.pixels = make([]byte, side*side*4)
	g.canvas = ebiten.NewImage(side, side)
	return g, nil
}

// Reset rebuilds the world with a new seed.
func (g *Game) Reset(seed int64) error {
	g.cfg.GlobalSeed = seed
	p, err := gen.NewPipeline(g.cfg, gen.WithLogger(g.log))
	if err != nil {
		return err
	}
	g.world = world.New(p, g.log)
	g.grids = make(map[tile.ChunkPos]*tile.Grid)
	g.dirty = true
	return nil
}

// Update handles input and generates chunks entering the view.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	moves := map[ebiten.Key][2]int{
		ebiten.KeyArrowLeft:  {-1, 0},
		ebiten.KeyArrowRight: {1, 0},
		ebiten.KeyArrowUp:    {0, 1},
		ebiten.KeyArrowDown:  {0, -1},
	}
	for key, d := range moves {
		if inpututil.IsKeyJustPressed(key) {
			g.view.Center = g.view.Center.Add(d[0], d[1])
			g.dirty = true
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.Reset(time.Now().UnixNano()); err != nil {
			return err
		}
	}
	if !g.dirty {
		return nil
	}

	ctx := context.Background()
	var open, components, unmerged int
	for _, pos := range g.view.Chunks() {
		grid, ok := g.grids[pos]
		if !ok {
			var err error
			if grid, err = g.world.Chunk(ctx, pos); err != nil {
				return fmt.Errorf("generate chunk %s: %w", pos, err)
			}
			g.grids[pos] = grid
		}
		st := region.Measure(grid)
		open += st.Open
		components += st.Components
		if ids, _ := g.world.Pipeline().Unmerged(pos); len(ids) > 0 {
			unmerged++
		}
	}
	g.view.Fill(g.pixels, g.grids)
	g.canvas.WritePixels(g.pixels)
	g.status = fmt.Sprintf("seed %d  chunk %s\nopen %d  components %d  disconnected chunks %d",
		g.cfg.GlobalSeed, g.view.Center, open, components, unmerged)
	g.dirty = false
	return nil
}

// Draw renders the view scaled to the window.
func (g *Game) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.canvas, op)
	ebitenutil.DebugPrint(screen, g.status)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	side := g.view.Side() * g.scale
	return side, side
}
