package codec

import "math"

func float64Bits(v float64) uint64 { return math.Float64bits(v) }

func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }
