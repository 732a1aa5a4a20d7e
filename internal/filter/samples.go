package filter

import (
	"encoding/binary"
	"math"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

// decodeSample reads one sample at byte offset off in the given format and
// returns it normalized to [-1.0, 1.0] (clipping formats aside, DSD is not
// supported by the generic filters and is passed through unmodified by
// callers before reaching these helpers).
func decodeSample(data []byte, off int, f audioformat.SampleFormat) float64 {
	switch f {
	case audioformat.S8:
		return float64(int8(data[off])) / math.MaxInt8
	case audioformat.S16:
		v := int16(binary.LittleEndian.Uint16(data[off : off+2]))
		return float64(v) / math.MaxInt16
	case audioformat.S24P32, audioformat.S32:
		v := int32(binary.LittleEndian.Uint32(data[off : off+4]))
		return float64(v) / math.MaxInt32
	case audioformat.Float:
		bits := binary.LittleEndian.Uint32(data[off : off+4])
		return float64(math.Float32frombits(bits))
	default:
		return 0
	}
}

// encodeSample writes a normalized sample value v into data at byte offset
// off in the given format, clipping to the format's representable range.
func encodeSample(data []byte, off int, f audioformat.SampleFormat, v float64) {
	switch f {
	case audioformat.S8:
		data[off] = byte(int8(clip(v, -1, 1) * math.MaxInt8))
	case audioformat.S16:
		binary.LittleEndian.PutUint16(data[off:off+2], uint16(int16(clip(v, -1, 1)*math.MaxInt16)))
	case audioformat.S24P32, audioformat.S32:
		binary.LittleEndian.PutUint32(data[off:off+4], uint32(int32(clip(v, -1, 1)*math.MaxInt32)))
	case audioformat.Float:
		vf := float32(clip(v, -1, 1))
		binary.LittleEndian.PutUint32(data[off:off+4], math.Float32bits(vf))
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
