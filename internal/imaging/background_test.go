package imaging

import (
	"bytes"
	"context"
	"testing"
)

func TestReferenceSampleStrategy_WhiteImageBecomesTransparent(t *testing.T) {
	buf := solidBuffer(t, 100, 100, RGBAColor{255, 255, 255, 255})
	s := NewReferenceSampleStrategy(0, ReferenceTopLeft)

	got, err := s.Isolate(context.Background(), buf)
	if err != nil {
		t.Fatalf("Isolate failed: %v", err)
	}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			p := got.Pixel(x, y)
			if p != (RGBAColor{255, 255, 255, 0}) {
				t.Fatalf("pixel (%d,%d): got %+v, want {255 255 255 0}", x, y, p)
			}
		}
	}
}

func TestReferenceSampleStrategy_Tolerance(t *testing.T) {
	tests := []struct {
		name      string
		pixel     RGBAColor
		wantAlpha uint8
	}{
		{"identical", RGBAColor{200, 200, 200, 255}, 0},
		{"within tolerance", RGBAColor{229, 171, 200, 255}, 0},
		{"at tolerance on one channel", RGBAColor{230, 200, 200, 255}, 255},
		{"beyond tolerance", RGBAColor{100, 100, 100, 255}, 255},
		{"partially transparent match", RGBAColor{200, 200, 200, 128}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := solidBuffer(t, 3, 1, RGBAColor{200, 200, 200, 255})
			buf.SetPixel(2, 0, tt.pixel)

			s := NewReferenceSampleStrategy(DefaultReferenceTolerance, ReferenceTopLeft)
			if _, err := s.Isolate(context.Background(), buf); err != nil {
				t.Fatalf("Isolate failed: %v", err)
			}
			if a := buf.Pixel(2, 0).A; a != tt.wantAlpha {
				t.Errorf("alpha: got %d, want %d", a, tt.wantAlpha)
			}
		})
	}
}

func TestReferenceSampleStrategy_OnlyAlphaChanges(t *testing.T) {
	buf := quadrantBuffer(t, 10, 10)
	before := append([]byte(nil), buf.Samples...)

	s := NewReferenceSampleStrategy(0, ReferenceTopLeft)
	if _, err := s.Isolate(context.Background(), buf); err != nil {
		t.Fatalf("Isolate failed: %v", err)
	}

	for i := 0; i < len(before); i += 4 {
		if !bytes.Equal(before[i:i+3], buf.Samples[i:i+3]) {
			t.Fatalf("RGB changed at sample %d", i)
		}
	}
	// Red quadrant cleared, the rest kept.
	if a := buf.Pixel(0, 0).A; a != 0 {
		t.Errorf("red quadrant alpha: got %d, want 0", a)
	}
	if a := buf.Pixel(9, 9).A; a != 255 {
		t.Errorf("white quadrant alpha: got %d, want 255", a)
	}
}

func TestReferenceSampleStrategy_Border(t *testing.T) {
	// Dark corner pixel, light frame: border sampling ignores the corner.
	buf := solidBuffer(t, 10, 10, RGBAColor{240, 240, 240, 255})
	buf.SetPixel(0, 0, RGBAColor{0, 0, 0, 255})
	buf.SetPixel(5, 5, RGBAColor{30, 30, 30, 255})

	s := NewReferenceSampleStrategy(0, ReferenceBorder)
	if s.Name() != StrategyReferenceBorder {
		t.Errorf("Name: got %s, want %s", s.Name(), StrategyReferenceBorder)
	}
	if _, err := s.Isolate(context.Background(), buf); err != nil {
		t.Fatalf("Isolate failed: %v", err)
	}
	if a := buf.Pixel(3, 3).A; a != 0 {
		t.Errorf("background alpha: got %d, want 0", a)
	}
	if a := buf.Pixel(0, 0).A; a != 255 {
		t.Errorf("dark corner alpha: got %d, want 255", a)
	}
	if a := buf.Pixel(5, 5).A; a != 255 {
		t.Errorf("foreground alpha: got %d, want 255", a)
	}
}

func TestLuminanceThresholdStrategy(t *testing.T) {
	tests := []struct {
		name      string
		pixel     RGBAColor
		wantAlpha uint8
	}{
		{"white", RGBAColor{255, 255, 255, 255}, 0},
		{"exactly at threshold", RGBAColor{240, 240, 240, 255}, 0},
		{"average at threshold", RGBAColor{255, 225, 240, 255}, 0},
		{"just below", RGBAColor{240, 240, 239, 255}, 255},
		{"dark", RGBAColor{10, 10, 10, 255}, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := solidBuffer(t, 1, 1, tt.pixel)
			s := NewLuminanceThresholdStrategy(0)
			if _, err := s.Isolate(context.Background(), buf); err != nil {
				t.Fatalf("Isolate failed: %v", err)
			}
			if a := buf.Pixel(0, 0).A; a != tt.wantAlpha {
				t.Errorf("alpha: got %d, want %d", a, tt.wantAlpha)
			}
		})
	}
}

func TestBackgroundStrategies_Idempotent(t *testing.T) {
	strategies := []BackgroundStrategy{
		NewReferenceSampleStrategy(0, ReferenceTopLeft),
		NewReferenceSampleStrategy(0, ReferenceBorder),
		NewLuminanceThresholdStrategy(0),
	}

	for _, s := range strategies {
		t.Run(s.Name(), func(t *testing.T) {
			buf := quadrantBuffer(t, 12, 12)
			buf.SetPixel(3, 3, RGBAColor{250, 10, 5, 200})

			once, err := s.Isolate(context.Background(), buf)
			if err != nil {
				t.Fatalf("first Isolate failed: %v", err)
			}
			snapshot := append([]byte(nil), once.Samples...)

			twice, err := s.Isolate(context.Background(), once)
			if err != nil {
				t.Fatalf("second Isolate failed: %v", err)
			}
			if !bytes.Equal(snapshot, twice.Samples) {
				t.Error("isolate(isolate(x)) != isolate(x)")
			}
		})
	}
}

func TestStrategyNames(t *testing.T) {
	if got := NewReferenceSampleStrategy(0, ReferenceTopLeft).Name(); got != StrategyReference {
		t.Errorf("reference: got %s", got)
	}
	if got := NewLuminanceThresholdStrategy(0).Name(); got != StrategyLuminance {
		t.Errorf("luminance: got %s", got)
	}
	if s := NewLuminanceThresholdStrategy(0); s.Threshold != DefaultLuminanceThreshold {
		t.Errorf("default threshold: got %d", s.Threshold)
	}
	if s := NewReferenceSampleStrategy(-1, ReferenceTopLeft); s.Tolerance != DefaultReferenceTolerance {
		t.Errorf("default tolerance: got %d", s.Tolerance)
	}
}
