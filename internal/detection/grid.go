// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"math"
	"slices"
	"sort"
)

// maxGridColumns bounds the longitude span of one query. Wider bands, which
// only occur close to the poles, scan the whole category instead.
const maxGridColumns = 64

// candidateFinder returns, in ascending order, the positions after p that
// share p's category and may lie within the radius of p.
type candidateFinder interface {
	candidates(p int, dst []int) []int
}

// linearScan is the reference finder: every later report of the same category.
type linearScan struct {
	category []string
}

func (l linearScan) candidates(p int, dst []int) []int {
	cat := l.category[p]
	for q := p + 1; q < len(l.category); q++ {
		if l.category[q] == cat {
			dst = append(dst, q)
		}
	}
	return dst
}

type cellKey struct {
	row, col int
}

// spatialIndex buckets report positions by category and lat/lon cell. Cells
// are one search radius wide, so a query touches a handful of cells instead of
// the whole category. It only narrows candidates: the exact haversine check
// still decides membership.
type spatialIndex struct {
	cellDeg   float64
	radiusDeg float64
	halfAngle float64

	coords   []Coordinates
	category []string
	cells    map[string]map[cellKey][]int
	byCat    map[string][]int
}

func newSpatialIndex(coords []Coordinates, category []string, radiusMeters float64) *spatialIndex {
	angle := radiusMeters / EarthRadiusMeters
	// Pad slightly so points exactly on the radius survive float rounding.
	radiusDeg := angle/degToRad*(1+1e-9) + 1e-12

	idx := &spatialIndex{
		cellDeg:   radiusDeg,
		radiusDeg: radiusDeg,
		halfAngle: angle * (1 + 1e-9) / 2,
		coords:    coords,
		category:  category,
		cells:     make(map[string]map[cellKey][]int),
		byCat:     make(map[string][]int),
	}

	for p, c := range coords {
		cat := category[p]
		grid, ok := idx.cells[cat]
		if !ok {
			grid = make(map[cellKey][]int)
			idx.cells[cat] = grid
		}
		key := idx.cellOf(c.Latitude, c.Longitude)
		grid[key] = append(grid[key], p)
		idx.byCat[cat] = append(idx.byCat[cat], p)
	}
	return idx
}

func (idx *spatialIndex) cellOf(lat, lon float64) cellKey {
	return cellKey{
		row: int(math.Floor(lat / idx.cellDeg)),
		col: int(math.Floor(lon / idx.cellDeg)),
	}
}

// lonSpan returns the widest longitude offset, in degrees, that a point within
// the radius of a point at lat can have. ok is false when the search cap
// reaches a pole.
func (idx *spatialIndex) lonSpan(lat float64) (span float64, ok bool) {
	phiMax := math.Min(90, math.Abs(lat)+idx.radiusDeg) * degToRad
	cosPhi := math.Cos(phiMax)
	if cosPhi <= 0 {
		return 0, false
	}
	ratio := math.Sin(idx.halfAngle) / cosPhi
	if ratio >= 1 {
		return 0, false
	}
	return 2 * math.Asin(ratio) / degToRad, true
}

func (idx *spatialIndex) candidates(p int, dst []int) []int {
	c := idx.coords[p]
	span, ok := idx.lonSpan(c.Latitude)
	if !ok || math.Abs(c.Longitude)+span > 180 {
		return idx.scanCategory(p, dst)
	}

	lo := idx.cellOf(c.Latitude-idx.radiusDeg, c.Longitude-span)
	hi := idx.cellOf(c.Latitude+idx.radiusDeg, c.Longitude+span)
	if hi.col-lo.col+1 > maxGridColumns {
		return idx.scanCategory(p, dst)
	}

	grid := idx.cells[idx.category[p]]
	start := len(dst)
	for row := lo.row; row <= hi.row; row++ {
		for col := lo.col; col <= hi.col; col++ {
			for _, q := range grid[cellKey{row: row, col: col}] {
				if q > p {
					dst = append(dst, q)
				}
			}
		}
	}
	slices.Sort(dst[start:])
	return dst
}

func (idx *spatialIndex) scanCategory(p int, dst []int) []int {
	members := idx.byCat[idx.category[p]]
	i := sort.SearchInts(members, p+1)
	return append(dst, members[i:]...)
}
