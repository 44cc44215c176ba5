package repair

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"photo-recovery/internal/media"
)

func fixture(t *testing.T, format string, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode %s fixture: %v", format, err)
	}
	return buf.Bytes()
}

func withPrefix(prefix []byte, data []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(data))
	out = append(out, prefix...)
	return append(out, data...)
}

// noise returns bytes that cannot start any registered image signature.
func noise(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Intn(0x40))
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.ScanLimit != 512 || c.ScanStep != 4 || c.MinSize != 1024 {
		t.Errorf("DefaultConfig() = %+v", c)
	}
}

func TestNewEngineNormalizesConfig(t *testing.T) {
	e := NewEngine(Config{ScanLimit: -1, ScanStep: 0, MinSize: -3})
	if got := e.Config(); got != DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults", got)
	}

	e = NewEngine(Config{ScanLimit: 64, ScanStep: 2, MinSize: 0})
	if got := e.Config(); got.ScanLimit != 64 || got.ScanStep != 2 || got.MinSize != 0 {
		t.Errorf("Config() = %+v, want explicit values kept", got)
	}
}

func TestRepairOffsetScanRoundTrip(t *testing.T) {
	source := fixture(t, "jpeg", 200, 150)
	want, err := media.Probe(source)
	if err != nil {
		t.Fatalf("probe source: %v", err)
	}

	damaged := withPrefix(make([]byte, 50), source)
	engine := NewEngine(Config{ScanLimit: 512, ScanStep: 2, MinSize: 1024})

	result, err := engine.Repair(damaged)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if result.Strategy != StrategyOffsetScan {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyOffsetScan)
	}
	if result.Offset != 50 {
		t.Errorf("Offset = %d, want 50", result.Offset)
	}
	if result.Metadata.Width != want.Width || result.Metadata.Height != want.Height {
		t.Errorf("repaired %dx%d, want %dx%d",
			result.Metadata.Width, result.Metadata.Height, want.Width, want.Height)
	}
	if !bytes.Equal(result.Data, source) {
		t.Error("repaired data does not match the original image bytes")
	}
}

func TestRepairStrategies(t *testing.T) {
	jpegData := fixture(t, "jpeg", 200, 150)
	smallJPEG := fixture(t, "jpeg", 8, 8)
	pngData := fixture(t, "png", 64, 48)

	tests := []struct {
		name         string
		data         []byte
		wantStrategy Strategy
		wantOffset   int
		wantWidth    int
	}{
		{
			name:         "aligned prefix found by offset scan",
			data:         withPrefix(make([]byte, 48), jpegData),
			wantStrategy: StrategyOffsetScan,
			wantOffset:   48,
			wantWidth:    200,
		},
		{
			name:         "unaligned prefix falls through to jpeg boundary",
			data:         withPrefix(make([]byte, 50), jpegData),
			wantStrategy: StrategyJPEGBoundary,
			wantOffset:   50,
			wantWidth:    200,
		},
		{
			name:         "prefix beyond scan limit",
			data:         withPrefix(noise(600, 1), jpegData),
			wantStrategy: StrategyJPEGBoundary,
			wantOffset:   600,
			wantWidth:    200,
		},
		{
			name:         "jpeg with trailing garbage and short buffer",
			data:         append(withPrefix([]byte{1, 2, 3}, smallJPEG), 0x00, 0x11, 0x22),
			wantStrategy: StrategyJPEGBoundary,
			wantOffset:   3,
			wantWidth:    8,
		},
		{
			name:         "png behind unaligned prefix",
			data:         withPrefix(noise(37, 2), pngData),
			wantStrategy: StrategyPNGSignature,
			wantOffset:   37,
			wantWidth:    64,
		},
	}

	engine := NewEngine(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Repair(tt.data)
			if err != nil {
				t.Fatalf("Repair() error = %v", err)
			}
			if result.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", result.Strategy, tt.wantStrategy)
			}
			if result.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", result.Offset, tt.wantOffset)
			}
			if result.Metadata.Width != tt.wantWidth {
				t.Errorf("Width = %d, want %d", result.Metadata.Width, tt.wantWidth)
			}
		})
	}
}

func TestRepairExhausted(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name string
		data []byte
	}{
		{"random bytes", noise(4096, 42)},
		{"short random bytes", noise(100, 7)},
		{"soi without eoi", withPrefix(noise(64, 3), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00})},
		{"eoi before soi", append([]byte{0xFF, 0xD9, 0x00}, 0xFF, 0xD8, 0xFF, 0x00)},
		{"png signature with junk", append(append([]byte{}, pngMagic...), noise(200, 4)...)},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Repair(tt.data)
			if !errors.Is(err, ErrRecoveryExhausted) {
				t.Errorf("Repair() = (%+v, %v), want ErrRecoveryExhausted", result, err)
			}
		})
	}
}

func TestRepairIsDeterministic(t *testing.T) {
	data := withPrefix(make([]byte, 50), fixture(t, "jpeg", 200, 150))
	engine := NewEngine(DefaultConfig())

	first, err := engine.Repair(data)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := engine.Repair(data)
		if err != nil {
			t.Fatalf("Repair() error on run %d: %v", i, err)
		}
		if again.Strategy != first.Strategy || again.Offset != first.Offset || !bytes.Equal(again.Data, first.Data) {
			t.Fatalf("Repair() run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestRepairUsesInjectedProbe(t *testing.T) {
	var seen []int
	probe := func(data []byte) (*media.Metadata, error) {
		seen = append(seen, len(data))
		return nil, errors.New("never valid")
	}

	engine := NewEngineWithProbe(Config{ScanLimit: 16, ScanStep: 4, MinSize: 10}, probe)
	if _, err := engine.Repair(make([]byte, 100)); !errors.Is(err, ErrRecoveryExhausted) {
		t.Fatalf("Repair() error = %v", err)
	}

	want := []int{100, 96, 92, 88}
	if len(seen) != len(want) {
		t.Fatalf("probe called with lengths %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("probe call %d length = %d, want %d", i, seen[i], want[i])
		}
	}
}
