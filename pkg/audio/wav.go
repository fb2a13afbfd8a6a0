package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const bitsPerSample = 16

// ErrNotPCM is returned when a WAV file uses a codec other than
// uncompressed 16-bit PCM.
var ErrNotPCM = errors.New("audio: not 16-bit PCM")

// EncodeWAV wraps the buffer's raw 16-bit signed little-endian PCM data
// in a standard RIFF/WAV container. The result is suitable for direct
// upload to transcription and cloning endpoints.
func EncodeWAV(buf Buffer) []byte {
	byteRate := buf.SampleRate * buf.Channels * bitsPerSample / 8
	blockAlign := buf.Channels * bitsPerSample / 8
	dataSize := len(buf.Data)

	out := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize)) // file size − 8
	copy(out[8:12], "WAVE")

	// fmt sub-chunk
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(out[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(buf.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	// data sub-chunk
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
	copy(out[44:], buf.Data)

	return out
}

// DecodeWAV parses a RIFF/WAV container holding uncompressed 16-bit PCM.
// Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(b []byte) (Buffer, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Buffer{}, errors.New("audio: not a RIFF/WAVE file")
	}

	var buf Buffer
	haveFmt := false
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(b) {
			return Buffer{}, fmt.Errorf("audio: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Buffer{}, errors.New("audio: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(b[body : body+2])
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if format != 1 || bits != bitsPerSample {
				return Buffer{}, ErrNotPCM
			}
			buf.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			buf.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			haveFmt = true
		case "data":
			buf.Data = b[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size + size%2
	}

	if !haveFmt {
		return Buffer{}, errors.New("audio: missing fmt chunk")
	}
	if buf.Data == nil {
		return Buffer{}, errors.New("audio: missing data chunk")
	}
	return buf, nil
}

// Slice returns the samples between start and end. Bounds are clamped to
// the buffer; a reversed or out-of-range interval yields an empty buffer
// with the same format.
func Slice(buf Buffer, start, end time.Duration) Buffer {
	out := Buffer{SampleRate: buf.SampleRate, Channels: buf.Channels}
	if buf.SampleRate == 0 || buf.Channels == 0 {
		return out
	}
	frameSize := 2 * buf.Channels
	total := len(buf.Data) / frameSize

	lo := frameAt(start, buf.SampleRate)
	hi := frameAt(end, buf.SampleRate)
	if lo < 0 {
		lo = 0
	}
	if hi > total {
		hi = total
	}
	if lo >= hi {
		return out
	}
	out.Data = buf.Data[lo*frameSize : hi*frameSize]
	return out
}

// Concat joins buffers into one. All buffers must share the first
// buffer's sample rate and channel count.
func Concat(bufs ...Buffer) (Buffer, error) {
	var out Buffer
	for _, b := range bufs {
		if b.Empty() {
			continue
		}
		if out.SampleRate == 0 {
			out.SampleRate = b.SampleRate
			out.Channels = b.Channels
		} else if b.SampleRate != out.SampleRate || b.Channels != out.Channels {
			return Buffer{}, fmt.Errorf("audio: format mismatch: %dHz/%dch vs %dHz/%dch",
				b.SampleRate, b.Channels, out.SampleRate, out.Channels)
		}
		out.Data = append(out.Data, b.Data...)
	}
	return out, nil
}

func frameAt(t time.Duration, sampleRate int) int {
	return int(t * time.Duration(sampleRate) / time.Second)
}
