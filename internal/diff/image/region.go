package image

import (
	"image"
)

const (
	regionMergeDistance = 10
	minRegionSize       = 2
)

type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FindRegions groups the red pixels of a difference image into bounding
// boxes. Boxes of at most 2 pixels in either direction are dropped and
// boxes that overlap or lie within 10 pixels of each other are merged.
func FindRegions(diff *image.RGBA) []Region {
	if diff == nil {
		return []Region{}
	}

	bounds := diff.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	changed := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := diff.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			changed[y*width+x] = diff.Pix[offset] == 255 && diff.Pix[offset+1] == 0 && diff.Pix[offset+2] == 0 && diff.Pix[offset+3] == 255
		}
	}

	visited := make([]bool, width*height)
	regions := []Region{}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if changed[y*width+x] && !visited[y*width+x] {
				region := findBoundingBox(changed, visited, x, y, width, height)
				if region.Width > minRegionSize && region.Height > minRegionSize {
					regions = append(regions, region)
				}
			}
		}
	}

	return mergeRegions(regions)
}

func findBoundingBox(changed []bool, visited []bool, startX int, startY int, width int, height int) Region {
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	queue := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(queue) > 0 {
		point := queue[0]
		queue = queue[1:]

		minX = min(minX, point.X)
		maxX = max(maxX, point.X)
		minY = min(minY, point.Y)
		maxY = max(maxY, point.Y)

		// 8-connected
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}

				nx := point.X + dx
				ny := point.Y + dy
				if nx >= 0 && nx < width && ny >= 0 && ny < height &&
					changed[ny*width+nx] && !visited[ny*width+nx] {
					visited[ny*width+nx] = true
					queue = append(queue, image.Point{X: nx, Y: ny})
				}
			}
		}
	}

	return Region{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}
}

func mergeRegions(regions []Region) []Region {
	if len(regions) <= 1 {
		return regions
	}

	merged := make([]Region, 0, len(regions))
	used := make([]bool, len(regions))

	for i := 0; i < len(regions); i++ {
		if used[i] {
			continue
		}

		current := regions[i]
		mergedAny := true
		for mergedAny {
			mergedAny = false
			for j := i + 1; j < len(regions); j++ {
				if used[j] {
					continue
				}

				if current.overlaps(regions[j]) || current.expand(regionMergeDistance).overlaps(regions[j].expand(regionMergeDistance)) {
					current = current.union(regions[j])
					used[j] = true
					mergedAny = true
				}
			}
		}

		merged = append(merged, current)
	}

	return merged
}

func (r Region) overlaps(o Region) bool {
	return !(r.X+r.Width <= o.X || o.X+o.Width <= r.X ||
		r.Y+r.Height <= o.Y || o.Y+o.Height <= r.Y)
}

func (r Region) expand(by int) Region {
	return Region{
		X:      r.X - by,
		Y:      r.Y - by,
		Width:  r.Width + 2*by,
		Height: r.Height + 2*by,
	}
}

func (r Region) union(o Region) Region {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.Width, o.X+o.Width)
	maxY := max(r.Y+r.Height, o.Y+o.Height)

	return Region{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
