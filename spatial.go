package main

// Box is an axis-aligned bounding box
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoxAround returns the bounding box of a circle at (x,y) with radius r
func BoxAround(x, y, r float64) Box {
	return Box{MinX: x - r, MinY: y - r, MaxX: x + r, MaxY: y + r}
}

// Overlaps reports whether two boxes intersect
func (b Box) Overlaps(o Box) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

type spatialEntry struct {
	id  string
	box Box
}

// SpatialGrid is a fixed-cell grid index over entity bounding boxes.
// Each entry is stored in every cell its box overlaps; queries gather the
// overlapping cells and filter by exact box intersection. One grid is
// owned by exactly one room's arena state.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]spatialEntry
}

// NewSpatialGrid creates a grid covering a world of the given size
func NewSpatialGrid(worldW, worldH, cellSize float64) *SpatialGrid {
	cols := int(worldW/cellSize) + 1
	rows := int(worldH/cellSize) + 1
	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]spatialEntry, cols*rows),
	}
}

// cellRange returns the clamped cell index range covered by a box
func (g *SpatialGrid) cellRange(b Box) (minCX, maxCX, minCY, maxCY int) {
	minCX = int(b.MinX / g.cellSize)
	maxCX = int(b.MaxX / g.cellSize)
	minCY = int(b.MinY / g.cellSize)
	maxCY = int(b.MaxY / g.cellSize)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= g.cols {
		maxCX = g.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= g.rows {
		maxCY = g.rows - 1
	}
	return
}

// Insert adds an entity's bounding box to the grid
func (g *SpatialGrid) Insert(id string, b Box) {
	minCX, maxCX, minCY, maxCY := g.cellRange(b)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			g.cells[idx] = append(g.cells[idx], spatialEntry{id: id, box: b})
		}
	}
}

// Remove deletes the entity's entries from every cell its box overlaps.
// The box must be the same one passed to Insert.
func (g *SpatialGrid) Remove(id string, b Box) {
	minCX, maxCX, minCY, maxCY := g.cellRange(b)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			cell := g.cells[idx]
			for i := 0; i < len(cell); i++ {
				if cell[i].id == id {
					cell[i] = cell[len(cell)-1]
					cell = cell[:len(cell)-1]
					i--
				}
			}
			g.cells[idx] = cell
		}
	}
}

// Query returns the ids of all entities whose boxes overlap b.
// Entities spanning several cells are reported once.
func (g *SpatialGrid) Query(b Box) []string {
	minCX, maxCX, minCY, maxCY := g.cellRange(b)
	var result []string
	var seen map[string]bool
	multiCell := maxCX > minCX || maxCY > minCY
	if multiCell {
		seen = make(map[string]bool)
	}
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, e := range g.cells[cy*g.cols+cx] {
				if !e.box.Overlaps(b) {
					continue
				}
				if multiCell {
					if seen[e.id] {
						continue
					}
					seen[e.id] = true
				}
				result = append(result, e.id)
			}
		}
	}
	return result
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}
