// Package fusion merges text detections from multiple OCR engines into a
// single deduplicated, confidence-ranked list.
//
// Detections from all engines are pooled, weighted by a per-engine bias,
// clustered by bounding-box overlap (Intersection over Union) and collapsed
// to one item per cluster: the highest-confidence member supplies the text,
// the cluster confidence is the harmonic mean of all members, and the
// bounding box is the union of all member boxes. The output is sorted in
// reading order, top to bottom and left to right.
//
// Fusion is a pure, total function: it never fails, it holds no state
// between calls, and it is safe to invoke concurrently.
package fusion

import (
	"math"
	"sort"
	"strings"

	"multas/internal/ocr"
)

const (
	// DefaultIoUThreshold is the minimum overlap for two detections to be
	// considered the same text region.
	DefaultIoUThreshold = 0.6

	// gridCellSize is the bucket edge length in pixels for the spatial grid
	// that limits pairwise IoU comparisons to nearby boxes.
	gridCellSize = 100

	// lineTolerancePx is the vertical distance within which two boxes are
	// treated as sitting on the same printed line. OCR boxes on one line
	// rarely share the exact same top coordinate.
	lineTolerancePx = 20
)

// Options controls fusion behavior.
type Options struct {
	// IoUThreshold is the minimum Intersection-over-Union for two items to
	// merge. Zero or negative falls back to DefaultIoUThreshold.
	IoUThreshold float64

	// Bias maps an engine name to a confidence multiplier applied before
	// comparison, compensating for engines of known unequal reliability.
	// Engines not present in the map get a multiplier of 1.
	Bias map[string]float64
}

// DefaultOptions returns the stock fusion configuration: 0.6 IoU threshold
// and a 1.1 bias for PaddleOCR, which detects box geometry more reliably
// than Tesseract on scanned tickets.
func DefaultOptions() *Options {
	return &Options{
		IoUThreshold: DefaultIoUThreshold,
		Bias: map[string]float64{
			ocr.EngineTesseract: 1,
			ocr.EnginePaddle:    1.1,
		},
	}
}

func (o *Options) threshold() float64 {
	if o == nil || o.IoUThreshold <= 0 {
		return DefaultIoUThreshold
	}
	return o.IoUThreshold
}

func (o *Options) bias(engine string) float64 {
	if o == nil || o.Bias == nil {
		return 1
	}
	if b, ok := o.Bias[engine]; ok && b > 0 {
		return b
	}
	return 1
}

// Fuse merges per-engine detection lists into one deduplicated list.
//
// With no results it returns an empty slice. With a single engine's results
// it passes the items through unchanged except for clamping confidence into
// [0,1]. With two or more engines it performs full fusion: every input item
// ends up in exactly one output cluster, never dropped or duplicated.
func Fuse(results []ocr.Result, opts *Options) []ocr.Item {
	if opts == nil {
		opts = DefaultOptions()
	}

	if len(results) == 0 {
		return []ocr.Item{}
	}

	// Single engine: nothing to merge, just normalize confidence.
	if len(results) == 1 {
		out := make([]ocr.Item, len(results[0].Items))
		for i, item := range results[0].Items {
			item.Confidence = clamp01(item.Confidence)
			out[i] = item
		}
		return out
	}

	// Pool all items with the engine bias applied.
	var pool []ocr.Item
	for _, result := range results {
		for _, item := range result.Items {
			item.Confidence *= opts.bias(item.Engine)
			pool = append(pool, item)
		}
	}
	if len(pool) == 0 {
		return []ocr.Item{}
	}

	clusters := clusterByOverlap(pool, opts.threshold())

	fused := make([]ocr.Item, 0, len(clusters))
	for _, cluster := range clusters {
		fused = append(fused, fuseCluster(pool, cluster))
	}

	// Reading order: top to bottom, left to right within a line.
	sort.SliceStable(fused, func(i, j int) bool {
		dy := fused[i].BBox.Y0 - fused[j].BBox.Y0
		if math.Abs(dy) > lineTolerancePx {
			return dy < 0
		}
		return fused[i].BBox.X0 < fused[j].BBox.X0
	})

	return fused
}

// JoinText concatenates fused items into a single text block, inserting line
// breaks between items that sit on different printed lines. The items must
// already be in reading order, as returned by Fuse.
func JoinText(items []ocr.Item) string {
	var b strings.Builder
	for i, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			if i > 0 && item.BBox.Y0-items[i-1].BBox.Y0 > lineTolerancePx {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(text)
	}
	return b.String()
}

// clusterByOverlap partitions the pool into groups of transitively
// overlapping items. Overlap is checked only against candidates sharing a
// grid bucket, which keeps the pass sub-quadratic, but expansion is
// breadth-first over the whole cluster: an item bridging two otherwise
// non-overlapping items pulls all three together regardless of input order.
func clusterByOverlap(pool []ocr.Item, threshold float64) [][]int {
	grid := make(map[[2]int][]int, len(pool))
	for i, item := range pool {
		for _, cell := range cellsOf(item.BBox) {
			grid[cell] = append(grid[cell], i)
		}
	}

	visited := make([]bool, len(pool))
	var clusters [][]int

	for i := range pool {
		if visited[i] {
			continue
		}
		cluster := []int{i}
		visited[i] = true

		for next := 0; next < len(cluster); next++ {
			cur := cluster[next]
			for _, cell := range cellsOf(pool[cur].BBox) {
				for _, cand := range grid[cell] {
					if visited[cand] {
						continue
					}
					if iou(pool[cur].BBox, pool[cand].BBox) >= threshold {
						visited[cand] = true
						cluster = append(cluster, cand)
					}
				}
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}

// fuseCluster collapses one cluster into a single item: winner text, harmonic
// mean confidence, union bounding box, "<winner>_primary" engine tag.
func fuseCluster(pool []ocr.Item, cluster []int) ocr.Item {
	winner := cluster[0]
	for _, idx := range cluster[1:] {
		if pool[idx].Confidence > pool[winner].Confidence {
			winner = idx
		}
	}

	confidences := make([]float64, len(cluster))
	union := pool[cluster[0]].BBox
	for i, idx := range cluster {
		confidences[i] = pool[idx].Confidence
		union = unionBBox(union, pool[idx].BBox)
	}

	return ocr.Item{
		Text:       strings.TrimSpace(pool[winner].Text),
		Confidence: harmonicMean(confidences),
		BBox:       union,
		Engine:     pool[winner].Engine + "_primary",
	}
}

func cellsOf(b ocr.BBox) [][2]int {
	minX := int(math.Floor(b.X0 / gridCellSize))
	minY := int(math.Floor(b.Y0 / gridCellSize))
	maxX := int(math.Floor(b.X1 / gridCellSize))
	maxY := int(math.Floor(b.Y1 / gridCellSize))

	cells := make([][2]int, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			cells = append(cells, [2]int{x, y})
		}
	}
	return cells
}

// iou computes the Intersection over Union of two boxes. Degenerate boxes
// (inverted or zero-area) yield non-negative areas, never NaN: a zero union
// area is defined as IoU 0.
func iou(a, b ocr.BBox) float64 {
	x0 := math.Max(a.X0, b.X0)
	y0 := math.Max(a.Y0, b.Y0)
	x1 := math.Min(a.X1, b.X1)
	y1 := math.Min(a.Y1, b.Y1)

	inter := math.Max(0, x1-x0) * math.Max(0, y1-y0)
	areaA := math.Max(0, a.X1-a.X0) * math.Max(0, a.Y1-a.Y0)
	areaB := math.Max(0, b.X1-b.X0) * math.Max(0, b.Y1-b.Y0)

	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func unionBBox(a, b ocr.BBox) ocr.BBox {
	return ocr.BBox{
		X0: math.Min(a.X0, b.X0),
		Y0: math.Min(a.Y0, b.Y0),
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
	}
}

// harmonicMean combines cluster confidences so that a single near-zero
// detection pulls the result down sharply: the fused score represents
// agreement, not just the best guess. Zero values contribute to the count
// but not to the reciprocal sum; an all-zero cluster yields zero.
func harmonicMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	var sum float64
	for _, v := range values {
		if v > 0 {
			sum += 1 / v
		}
	}
	if sum == 0 {
		return 0
	}
	return float64(len(values)) / sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
