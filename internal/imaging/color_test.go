package imaging

import (
	"testing"
)

func TestRGBColor_Hex(t *testing.T) {
	c := RGBColor{R: 255, G: 128, B: 64}
	if got := c.Hex(); got != "#ff8040" {
		t.Errorf("Hex: got %s, want #ff8040", got)
	}
}

func TestLineColorPreset(t *testing.T) {
	tests := []struct {
		name string
		want *RGBColor
	}{
		{"brown", &RGBColor{80, 50, 30}},
		{"navy", &RGBColor{25, 35, 80}},
		{"white", &RGBColor{245, 245, 245}},
		{" Navy ", &RGBColor{25, 35, 80}},
		{"original", nil},
		{"", nil},
		{"chartreuse", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineColorPreset(tt.name)
			if tt.want == nil {
				if got != nil {
					t.Errorf("got %+v, want nil", *got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("got %v, want %+v", got, *tt.want)
			}
		})
	}
}

func TestLineColorPreset_ReturnsCopy(t *testing.T) {
	c := LineColorPreset("brown")
	c.R = 0
	if again := LineColorPreset("brown"); again.R != 80 {
		t.Errorf("preset table was mutated: R=%d", again.R)
	}
}

func TestLineColorPresetNames(t *testing.T) {
	names := LineColorPresetNames()
	want := []string{"original", "brown", "navy", "white"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d]: got %s, want %s", i, names[i], want[i])
		}
	}
}

func TestTextColorHex(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"white", "#ffffff"},
		{"black", "#000000"},
		{"brown", "#553322"},
		{"BLACK", "#000000"},
		{"magenta", "#ffffff"},
		{"", "#ffffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextColorHex(tt.name); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#553322")
	if err != nil {
		t.Fatalf("parseHexColor failed: %v", err)
	}
	if c.R != 0x55 || c.G != 0x33 || c.B != 0x22 || c.A != 255 {
		t.Errorf("got %+v, want {85 51 34 255}", c)
	}

	if _, err := parseHexColor("#zzzzzz"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := parseHexColor(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestSampleColor(t *testing.T) {
	buf := quadrantBuffer(t, 10, 10)

	tests := []struct {
		name string
		x, y int
		want RGBColor
	}{
		{"top-left", 0, 0, RGBColor{255, 0, 0}},
		{"top-right", 9, 0, RGBColor{0, 255, 0}},
		{"bottom-left", 0, 9, RGBColor{0, 0, 255}},
		{"bottom-right", 9, 9, RGBColor{255, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SampleColor(buf, tt.x, tt.y)
			if err != nil {
				t.Fatalf("SampleColor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSampleColor_IgnoresAlpha(t *testing.T) {
	buf := solidBuffer(t, 2, 2, RGBAColor{200, 100, 50, 0})
	got, err := SampleColor(buf, 0, 0)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if got != (RGBColor{200, 100, 50}) {
		t.Errorf("got %+v, want {200 100 50}", got)
	}
}

func TestSampleColor_OutOfBounds(t *testing.T) {
	buf := solidBuffer(t, 10, 10, RGBAColor{0, 0, 0, 255})

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 5},
		{"negative y", 5, -1},
		{"x too large", 10, 5},
		{"y too large", 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SampleColor(buf, tt.x, tt.y); err == nil {
				t.Error("expected error for out of bounds coordinates")
			}
		})
	}
}

func TestBorderDominantColor(t *testing.T) {
	// White frame around a dark interior: the interior never counts.
	buf := solidBuffer(t, 10, 10, RGBAColor{0, 0, 0, 255})
	for i := 0; i < 10; i++ {
		buf.SetPixel(i, 0, RGBAColor{250, 250, 250, 255})
		buf.SetPixel(i, 9, RGBAColor{252, 252, 252, 255})
		buf.SetPixel(0, i, RGBAColor{250, 250, 250, 255})
		buf.SetPixel(9, i, RGBAColor{252, 252, 252, 255})
	}
	// One off-color border pixel is outvoted.
	buf.SetPixel(5, 0, RGBAColor{255, 0, 0, 255})

	got := BorderDominantColor(buf)
	if got.R < 250 || got.R > 252 || got.G < 250 || got.B < 250 {
		t.Errorf("got %+v, want near-white mean", got)
	}
}

func TestBorderDominantColor_SinglePixel(t *testing.T) {
	buf := solidBuffer(t, 1, 1, RGBAColor{12, 34, 56, 255})
	if got := BorderDominantColor(buf); got != (RGBColor{12, 34, 56}) {
		t.Errorf("got %+v, want {12 34 56}", got)
	}
}
