package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Freq is a frame rate.
type Freq float64

// Defines the unit of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
)

// DefaultFallbackFreq is the rate of the timer fallback when no native
// animation-frame provider exists.
const DefaultFallbackFreq = 60 * Hz

// Valid reports whether f is a finite, positive rate.
func (f Freq) Valid() bool {
	v := float64(f)
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Period returns the time between two consecutive frames.
func (f Freq) Period() time.Duration {
	if !f.Valid() {
		panic(fmt.Sprintf("frame: invalid frequency %v", float64(f)))
	}

	return time.Duration(float64(time.Second) / float64(f))
}

// FrameAt returns the index of the frame that contains the given offset from
// the first frame.
func (f Freq) FrameAt(offset time.Duration) uint64 {
	if offset <= 0 {
		return 0
	}

	return uint64(math.Floor(offset.Seconds() * float64(f)))
}

// NFramesLater returns the offset of the frame n frames after the given one.
func (f Freq) NFramesLater(n int, offset time.Duration) time.Duration {
	return offset + time.Duration(n)*f.Period()
}

func (f Freq) String() string {
	return strconv.FormatFloat(float64(f), 'f', -1, 64) + "Hz"
}

// ParseFreq parses values such as "60", "60Hz" or "0.5KHz".
func ParseFreq(s string) (Freq, error) {
	trimmed := strings.TrimSpace(s)
	unit := Hz

	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasSuffix(lower, "khz"):
		unit = KHz
		trimmed = trimmed[:len(trimmed)-3]
	case strings.HasSuffix(lower, "hz"):
		trimmed = trimmed[:len(trimmed)-2]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, fmt.Errorf("frame: invalid frequency %q: %w", s, err)
	}

	freq := Freq(v) * unit
	if !freq.Valid() {
		return 0, fmt.Errorf("frame: frequency must be finite and positive, got %q", s)
	}

	return freq, nil
}
