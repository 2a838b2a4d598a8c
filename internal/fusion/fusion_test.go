package fusion

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"multas/internal/ocr"
)

func item(engine, text string, confidence float64, x0, y0, x1, y1 float64) ocr.Item {
	return ocr.Item{
		Text:       text,
		Confidence: confidence,
		BBox:       ocr.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1},
		Engine:     engine,
	}
}

func result(engine string, items ...ocr.Item) ocr.Result {
	return ocr.Result{Engine: engine, Items: items, TimeMS: 100}
}

func TestFuseEmptyInput(t *testing.T) {
	fused := Fuse(nil, nil)
	if len(fused) != 0 {
		t.Fatalf("Fuse(nil) = %d items, want 0", len(fused))
	}
	fused = Fuse([]ocr.Result{}, DefaultOptions())
	if len(fused) != 0 {
		t.Fatalf("Fuse([]) = %d items, want 0", len(fused))
	}
}

func TestFuseSingleEnginePassthrough(t *testing.T) {
	in := result(ocr.EngineTesseract,
		item(ocr.EngineTesseract, "Auto", 0.85, 10, 20, 50, 40),
		item(ocr.EngineTesseract, "overflow", 1.4, 10, 60, 50, 80),
		item(ocr.EngineTesseract, "negative", -0.2, 10, 100, 50, 120),
	)

	fused := Fuse([]ocr.Result{in}, nil)
	if len(fused) != 3 {
		t.Fatalf("got %d items, want 3", len(fused))
	}
	if fused[0].Text != "Auto" || fused[0].Engine != ocr.EngineTesseract {
		t.Errorf("passthrough changed item: %+v", fused[0])
	}
	if fused[0].Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", fused[0].Confidence)
	}
	if fused[1].Confidence != 1 {
		t.Errorf("confidence above 1 not clamped: %v", fused[1].Confidence)
	}
	if fused[2].Confidence != 0 {
		t.Errorf("negative confidence not clamped: %v", fused[2].Confidence)
	}
}

func TestFuseHarmonicMeanWithBias(t *testing.T) {
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "Hello", 0.8, 10, 20, 60, 40))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "Hello", 0.9, 10, 20, 60, 40))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 1 {
		t.Fatalf("got %d items, want 1", len(fused))
	}
	// Effective confidences: 0.8 and 0.9*1.1 = 0.99.
	// Harmonic mean: 2 / (1/0.8 + 1/0.99) = 0.8849...
	want := 2 / (1/0.8 + 1/0.99)
	if math.Abs(fused[0].Confidence-want) > 0.01 {
		t.Errorf("confidence = %v, want %v (±0.01)", fused[0].Confidence, want)
	}
	if fused[0].Engine != "paddle_primary" {
		t.Errorf("engine = %q, want paddle_primary", fused[0].Engine)
	}
	if fused[0].Text != "Hello" {
		t.Errorf("text = %q, want Hello", fused[0].Text)
	}
}

func TestFuseHigherConfidenceTextWins(t *testing.T) {
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "12-AB-34", 0.95, 100, 200, 200, 230))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "12-AR-34", 0.6, 100, 200, 200, 230))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 1 {
		t.Fatalf("got %d items, want 1", len(fused))
	}
	if fused[0].Text != "12-AB-34" {
		t.Errorf("text = %q, want the higher-confidence reading 12-AB-34", fused[0].Text)
	}
	if fused[0].Engine != "tesseract_primary" {
		t.Errorf("engine = %q, want tesseract_primary", fused[0].Engine)
	}
}

func TestFuseWinnerTextTrimmed(t *testing.T) {
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "  Lisboa  ", 0.9, 0, 0, 50, 20))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "Lisboa", 0.5, 0, 0, 50, 20))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 1 || fused[0].Text != "Lisboa" {
		t.Fatalf("got %+v, want single item with trimmed text", fused)
	}
}

func TestFuseNoMergeBelowThreshold(t *testing.T) {
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "Item 1", 0.7, 10, 20, 60, 40))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "Item 2", 0.8, 400, 300, 460, 320))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 2 {
		t.Fatalf("got %d items, want 2 (no overlap, no merge)", len(fused))
	}
}

func TestFuseUnionBBox(t *testing.T) {
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "word", 0.9, 10, 20, 60, 40))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "word", 0.8, 30, 30, 80, 50))

	// Partial overlap: IoU is ~0.17, so lower the threshold to force the merge.
	fused := Fuse([]ocr.Result{tess, paddle}, &Options{IoUThreshold: 0.15})
	if len(fused) != 1 {
		t.Fatalf("got %d items, want 1", len(fused))
	}
	want := ocr.BBox{X0: 10, Y0: 20, X1: 80, Y1: 50}
	if fused[0].BBox != want {
		t.Errorf("bbox = %+v, want %+v", fused[0].BBox, want)
	}
}

func TestFuseReadingOrder(t *testing.T) {
	tess := result(ocr.EngineTesseract,
		item(ocr.EngineTesseract, "left", 0.9, 10, 130, 60, 150),
		item(ocr.EngineTesseract, "top", 0.9, 50, 10, 100, 30),
	)
	paddle := result(ocr.EnginePaddle,
		item(ocr.EnginePaddle, "bottom", 0.9, 50, 300, 100, 320),
		item(ocr.EnginePaddle, "right", 0.9, 400, 100, 450, 120),
	)

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 4 {
		t.Fatalf("got %d items, want 4", len(fused))
	}
	wantOrder := []string{"top", "right", "left", "bottom"}
	for i, want := range wantOrder {
		if fused[i].Text != want {
			t.Errorf("position %d = %q, want %q (full order: %v)", i, fused[i].Text, want, texts(fused))
		}
	}
}

func TestFuseSameLineToleranceOrdersByX(t *testing.T) {
	// Tops differ by 10px: same printed line, left edge decides.
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "second", 0.9, 300, 50, 360, 70))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "first", 0.9, 10, 60, 70, 80))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 2 || fused[0].Text != "first" || fused[1].Text != "second" {
		t.Fatalf("order = %v, want [first second]", texts(fused))
	}
}

func TestFuseBridgingItemMergesCluster(t *testing.T) {
	// A overlaps B and B overlaps C, but A and C fall below the threshold.
	// The bridge must pull all three together regardless of input order.
	a := item(ocr.EngineTesseract, "A", 0.9, 0, 0, 100, 40)
	b := item(ocr.EnginePaddle, "B", 0.8, 20, 0, 120, 40)
	c := item(ocr.EngineTesseract, "C", 0.7, 40, 0, 140, 40)

	opts := &Options{IoUThreshold: 0.5}
	for name, results := range map[string][]ocr.Result{
		"bridge first": {result(ocr.EnginePaddle, b), result(ocr.EngineTesseract, a, c)},
		"bridge last":  {result(ocr.EngineTesseract, a, c), result(ocr.EnginePaddle, b)},
	} {
		fused := Fuse(results, opts)
		if len(fused) != 1 {
			t.Errorf("%s: got %d items, want 1 transitively merged cluster", name, len(fused))
		}
	}
}

func TestFusePartitionInvariant(t *testing.T) {
	// Non-overlapping items must all survive fusion exactly once.
	rng := rand.New(rand.NewSource(7))
	var tessItems, paddleItems []ocr.Item
	for i := 0; i < 50; i++ {
		x := float64(i%10) * 300
		y := float64(i/10) * 300
		label := fmt.Sprintf("t%d", i)
		tessItems = append(tessItems, item(ocr.EngineTesseract, label, rng.Float64(), x, y, x+60, y+20))
		paddleItems = append(paddleItems, item(ocr.EnginePaddle, "p"+label, rng.Float64(), x+150, y+150, x+210, y+170))
	}

	fused := Fuse([]ocr.Result{
		result(ocr.EngineTesseract, tessItems...),
		result(ocr.EnginePaddle, paddleItems...),
	}, nil)

	if len(fused) != 100 {
		t.Fatalf("got %d items, want all 100 inputs preserved", len(fused))
	}
	seen := make(map[string]bool)
	for _, f := range fused {
		if seen[f.Text] {
			t.Errorf("item %q duplicated", f.Text)
		}
		seen[f.Text] = true
	}
}

func TestFuseAllZeroConfidenceCluster(t *testing.T) {
	tess := result(ocr.EngineTesseract, item(ocr.EngineTesseract, "ghost", 0, 0, 0, 50, 20))
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "ghost", 0, 0, 0, 50, 20))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) != 1 {
		t.Fatalf("got %d items, want 1", len(fused))
	}
	if fused[0].Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for all-zero cluster", fused[0].Confidence)
	}
}

func TestFuseDegenerateBoxes(t *testing.T) {
	// Inverted and zero-area boxes must not produce NaN or panic.
	tess := result(ocr.EngineTesseract,
		item(ocr.EngineTesseract, "inverted", 0.9, 100, 100, 20, 20),
		item(ocr.EngineTesseract, "point", 0.8, 50, 50, 50, 50),
	)
	paddle := result(ocr.EnginePaddle, item(ocr.EnginePaddle, "normal", 0.7, 40, 40, 90, 60))

	fused := Fuse([]ocr.Result{tess, paddle}, nil)
	if len(fused) == 0 {
		t.Fatal("degenerate boxes dropped from output")
	}
	for _, f := range fused {
		if math.IsNaN(f.Confidence) {
			t.Errorf("item %q has NaN confidence", f.Text)
		}
	}
}

func TestFusePerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}

	rng := rand.New(rand.NewSource(42))
	var tessItems, paddleItems []ocr.Item
	for i := 0; i < 1000; i++ {
		x := rng.Float64() * 2000
		y := rng.Float64() * 2000
		tessItems = append(tessItems, item(ocr.EngineTesseract, fmt.Sprintf("t%d", i), rng.Float64(), x, y, x+60, y+20))
		x = rng.Float64() * 2000
		y = rng.Float64() * 2000
		paddleItems = append(paddleItems, item(ocr.EnginePaddle, fmt.Sprintf("p%d", i), rng.Float64(), x, y, x+60, y+20))
	}
	results := []ocr.Result{
		result(ocr.EngineTesseract, tessItems...),
		result(ocr.EnginePaddle, paddleItems...),
	}

	start := time.Now()
	fused := Fuse(results, nil)
	elapsed := time.Since(start)

	if len(fused) == 0 {
		t.Fatal("no fused output")
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("fusing 2000 items took %v, want well under 100ms", elapsed)
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b ocr.BBox
		want float64
	}{
		{"identical", ocr.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, ocr.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, 1},
		{"disjoint", ocr.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, ocr.BBox{X0: 20, Y0: 20, X1: 30, Y1: 30}, 0},
		{"half overlap", ocr.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, ocr.BBox{X0: 5, Y0: 0, X1: 15, Y1: 10}, 50.0 / 150.0},
		{"zero union", ocr.BBox{X0: 5, Y0: 5, X1: 5, Y1: 5}, ocr.BBox{X0: 5, Y0: 5, X1: 5, Y1: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iou(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("iou = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJoinText(t *testing.T) {
	items := []ocr.Item{
		item("tesseract_primary", "Auto", 0.9, 10, 10, 60, 30),
		item("paddle_primary", "de", 0.9, 70, 12, 100, 32),
		item("tesseract_primary", "Contraordenação", 0.9, 10, 60, 200, 80),
	}
	want := "Auto de\nContraordenação"
	if got := JoinText(items); got != want {
		t.Errorf("JoinText = %q, want %q", got, want)
	}
}

func texts(items []ocr.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}
