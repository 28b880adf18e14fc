package contrast

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_KnownColors(t *testing.T) {
	tests := []struct {
		color string
		want  Result
	}{
		{"#000000", White},
		{"#ffffff", Black},
		{"#FFFFFF", Black},
		{"#808080", Black},
		{"#777777", Black}, // 4.48:1 against white
		{"#767676", White}, // 4.54:1 against white
		{"#ff0000", Black},
		{"#0000ff", White},
		{"#00ff00", Black},
		{"#1a2b3c", White},
		{"#ffeb3b", Black},
		{"#3f51b5", White},
	}

	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			got, err := Decide(tt.color)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRatio_Extremes(t *testing.T) {
	black, err := Parse("#000000")
	require.NoError(t, err)
	white, err := Parse("#ffffff")
	require.NoError(t, err)

	assert.InDelta(t, 21.0, Ratio(black), 1e-9)
	assert.InDelta(t, 1.0, Ratio(white), 1e-9)
	assert.InDelta(t, 0.0, RelativeLuminance(black), 1e-12)
	assert.InDelta(t, 1.0, RelativeLuminance(white), 1e-12)
}

func TestRelativeLuminance_MidGray(t *testing.T) {
	gray, err := Parse("#808080")
	require.NoError(t, err)

	assert.InDelta(t, 0.2159, RelativeLuminance(gray), 1e-4)
	assert.InDelta(t, 3.95, Ratio(gray), 1e-2)
}

func TestDecide_Idempotent(t *testing.T) {
	for _, color := range []string{"#123456", "#abcdef", "#808080"} {
		first, err := Decide(color)
		require.NoError(t, err)
		second, err := Decide(color)
		require.NoError(t, err)
		assert.Equal(t, first, second, color)
	}
}

// TestDecide_SingleCrossing walks the gray ramp from black to white and
// checks the recommendation flips from white to black exactly once.
func TestDecide_SingleCrossing(t *testing.T) {
	prev := White
	flips := 0
	for v := 0; v <= 255; v++ {
		got, err := Decide(fmt.Sprintf("#%02x%02x%02x", v, v, v))
		require.NoError(t, err)
		if got != prev {
			flips++
			assert.Equal(t, Black, got, "ramp must move from white to black at %d", v)
			prev = got
		}
	}
	assert.Equal(t, 1, flips)
}

func TestDecide_Totality(t *testing.T) {
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 15 {
			for b := 0; b < 256; b += 15 {
				got, err := Decide(RGB{uint8(r), uint8(g), uint8(b)}.Hex())
				require.NoError(t, err)
				assert.Contains(t, []Result{Black, White}, got)
			}
		}
	}
}

func TestDecide_InvalidFormat(t *testing.T) {
	inputs := []string{
		"",
		"#",
		"#zzzzzz",
		"#12345",
		"#1234567",
		"#12345g",
		"#-12345",
		"#+f+f+f",
		"#ff ff0",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decide(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidColorFormat), "got %v", err)
		})
	}
}

func TestParse_SkipsMarker(t *testing.T) {
	c, err := Parse("x0a0b0c")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0x0a, G: 0x0b, B: 0x0c}, c)
	assert.Equal(t, "#0a0b0c", c.Hex())
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "black", Black.String())
	assert.Equal(t, "white", White.String())

	text, err := White.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "white", string(text))
}

func TestDecide_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			color := RGB{uint8(i * 8), uint8(i * 8), uint8(i * 8)}.Hex()
			want := ForRGB(RGB{uint8(i * 8), uint8(i * 8), uint8(i * 8)})
			got, err := Decide(color)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}(i)
	}
	wg.Wait()
}
