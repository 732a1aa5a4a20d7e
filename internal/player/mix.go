package player

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

// maxCrossfadeChunksPerTick bounds how many chunk pairs one tick mixes,
// mirroring forwardChunks' maxChunksPerTick backstop.
const maxCrossfadeChunksPerTick = 4

// forwardCrossfade linearly mixes the tail of the outgoing song (A) with
// the head of the incoming song (B) over the configured cross-fade
// window, per spec §8 scenario 2: frame i of the window equals
// (1 - i/N)*A[i] + (i/N)*B[i], where N is the window length in frames.
func (p *Player) forwardCrossfade() {
	p.mu.Lock()
	a := p.decPipe
	b := p.nextDecPipe
	format := p.format
	total := p.crossfadeTotal
	done := p.crossfadeDone
	dec := p.dec
	p.mu.Unlock()

	if a == nil || b == nil || !format.Valid() {
		return
	}
	frameSize := format.FrameSize()
	if frameSize <= 0 {
		return
	}

	for i := 0; i < maxCrossfadeChunksPerTick; i++ {
		ca := a.PeekHead()
		cb := b.PeekHead()
		if ca == nil && dec != nil && isClosed(dec.Done()) && a.IsEmpty() {
			// the outgoing song ended before the window filled: hand over
			// to the incoming song, whose remaining chunks play unmixed
			p.completeCrossfade()
			return
		}
		if ca == nil || cb == nil {
			break
		}

		frames := ca.Length / frameSize
		if fb := cb.Length / frameSize; fb < frames {
			frames = fb
		}
		if frames == 0 {
			break
		}

		mixed := make([]byte, frames*frameSize)
		for f := 0; f < frames; f++ {
			weightB := float64(done+f) / float64(total)
			if weightB > 1 {
				weightB = 1
			}
			weightA := 1 - weightB
			off := f * frameSize
			mixFrame(mixed[off:off+frameSize], ca.Data[off:off+frameSize], cb.Data[off:off+frameSize], weightA, weightB, format)
		}

		p.fanOut(mixed, format, ca.BitRate, ca.Tag, ca.ReplayGainSerial)

		a.Shift()
		p.decBuf.Return(ca)
		b.Shift()
		p.decBuf.Return(cb)

		done += frames
		p.mu.Lock()
		p.crossfadeDone = done
		if format.SampleRate > 0 {
			p.elapsed += time.Duration(frames) * time.Second / time.Duration(format.SampleRate)
		}
		p.mu.Unlock()

		if done >= total {
			p.completeCrossfade()
			return
		}
	}
}

// completeCrossfade promotes the incoming decoder to current once the mix
// window has fully elapsed; both songs share the format that made the
// cross-fade legal, so the outputs need no re-open (spec §8 scenario 2's
// "compatible formats" precondition).
func (p *Player) completeCrossfade() {
	p.mu.Lock()
	song := p.nextSong
	dec := p.nextDec
	decPipe := p.nextDecPipe
	p.mu.Unlock()

	if dec == nil {
		return
	}

	p.mu.Lock()
	p.currentSong = song
	p.dec = dec
	p.decPipe = decPipe
	p.nextDec = nil
	p.nextDecPipe = nil
	p.nextSong = nil
	p.elapsed = 0
	p.duration = 0
	p.crossfading = false
	p.crossfadeDone = 0
	p.crossfadeTotal = 0
	p.mu.Unlock()

	if song != nil {
		if d, ok := song.Duration(); ok {
			p.mu.Lock()
			p.duration = d
			p.mu.Unlock()
		} else if dur := dec.Duration(); dur > 0 {
			p.mu.Lock()
			p.duration = dur
			p.mu.Unlock()
		}
	}

	if p.notifier != nil {
		p.notifier.SongChanged(song)
	}
}

// mixFrame linearly combines one frame of a and b into dst, decoding and
// re-encoding each channel's sample (grounded on internal/filter/samples.go's
// decodeSample/encodeSample pair, duplicated here since that package keeps
// them unexported).
func mixFrame(dst, a, b []byte, weightA, weightB float64, format audioformat.AudioFormat) {
	sampleSize := format.Format.SampleSize()
	if sampleSize <= 0 {
		return
	}
	for off := 0; off+sampleSize <= len(dst); off += sampleSize {
		va := decodeSample(a, off, format.Format)
		vb := decodeSample(b, off, format.Format)
		encodeSample(dst, off, format.Format, va*weightA+vb*weightB)
	}
}

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

func encodeSample(data []byte, off int, f audioformat.SampleFormat, v float64) {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	switch f {
	case audioformat.S8:
		data[off] = byte(int8(v * math.MaxInt8))
	case audioformat.S16:
		binary.LittleEndian.PutUint16(data[off:off+2], uint16(int16(v*math.MaxInt16)))
	case audioformat.S24P32, audioformat.S32:
		binary.LittleEndian.PutUint32(data[off:off+4], uint32(int32(v*math.MaxInt32)))
	case audioformat.Float:
		binary.LittleEndian.PutUint32(data[off:off+4], math.Float32bits(float32(v)))
	}
}
