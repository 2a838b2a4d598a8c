package cmd

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"multas/internal/logger"
	"multas/internal/ocr"
)

type fakeEngine struct {
	name   string
	result *ocr.Result
	err    error
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(ctx context.Context, image []byte) (*ocr.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestRunEnginesToleratesPartialFailure(t *testing.T) {
	engines := []ocr.Engine{
		&fakeEngine{name: ocr.EngineTesseract, err: errors.New("tesseract not installed")},
		&fakeEngine{name: ocr.EnginePaddle, result: &ocr.Result{
			Engine: ocr.EnginePaddle,
			Items: []ocr.Item{
				{Text: "Auto", Confidence: 0.9, BBox: ocr.BBox{X0: 10, Y0: 10, X1: 60, Y1: 30}, Engine: ocr.EnginePaddle},
			},
		}},
	}

	results := runEngines(context.Background(), engines, []byte("img"), logger.WithComponent("test"))
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (failed engine skipped)", len(results))
	}
	if results[0].Engine != ocr.EnginePaddle {
		t.Errorf("surviving engine = %q, want %q", results[0].Engine, ocr.EnginePaddle)
	}
}

func TestRunEnginesAllFailing(t *testing.T) {
	engines := []ocr.Engine{
		&fakeEngine{name: ocr.EngineTesseract, err: errors.New("down")},
		&fakeEngine{name: ocr.EnginePaddle, err: errors.New("down")},
	}
	if results := runEngines(context.Background(), engines, []byte("img"), logger.WithComponent("test")); len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestOverallConfidence(t *testing.T) {
	items := []ocr.Item{
		{Confidence: 0.8},
		{Confidence: 1.2}, // biased above 1, clamps to 1
		{Confidence: 0.6},
	}
	want := (0.8 + 1 + 0.6) / 3
	if got := overallConfidence(items); got != want {
		t.Errorf("overallConfidence = %v, want %v", got, want)
	}
	if got := overallConfidence(nil); got != 0 {
		t.Errorf("overallConfidence(nil) = %v, want 0", got)
	}
}

func TestEngineList(t *testing.T) {
	got := engineList("Tesseract, paddle ,,VISION")
	want := []string{"tesseract", "paddle", "vision"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("engineList = %v, want %v", got, want)
	}
	if got := engineList(""); got != nil {
		t.Errorf("engineList(\"\") = %v, want nil", got)
	}
}
