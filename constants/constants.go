package constants

import "os"

func GetScoreDir() string {
	path := os.Getenv("SCORE_PATH")
	if path != "" {
		return path
	}
	return "./scores"
}

func GetOutDir() string {
	path := os.Getenv("OUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

// Division is the tick count of a quarter note. Everything that leaves
// the rational timing path is emitted in these units.
const Division = 480

const TicksPerWhole = Division * 4

// MaxDots bounds the dot count of a single duration token.
const MaxDots = 4

// PlaybackTailSecs is silence appended after the last played tick so
// decay/reverb tails are not cut off.
const PlaybackTailSecs = 3.0

// DefaultTempoMicros is the tempo assumed before the first tempo event
// (120 BPM).
const DefaultTempoMicros = 500000
