package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	MediaTypeWAV  = "audio/wav"
	MediaTypeWebM = "audio/webm"
)

var ErrEmptyAudio = errors.New("audio has no data")

// Blob is an opaque audio payload tagged with its container media type.
type Blob struct {
	Data      []byte
	MediaType string
}

func (b Blob) Size() int {
	return len(b.Data)
}

// Format describes what a capture stream emits. A stream with an empty
// Container emits raw little-endian PCM that is wrapped in WAV on finalization.
type Format struct {
	Container     string
	SampleRate    int
	Channels      int
	BitsPerSample int
}

func (f Format) IsRawPCM() bool {
	return f.Container == ""
}

// BytesPerSecond is zero for container formats.
func (f Format) BytesPerSecond() int {
	if !f.IsRawPCM() {
		return 0
	}
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// TrimPCM drops raw PCM beyond maxDur, cut on a sample frame boundary.
// Container formats are returned unchanged.
func TrimPCM(chunks [][]byte, f Format, maxDur time.Duration) [][]byte {
	bps := f.BytesPerSecond()
	if bps <= 0 || maxDur <= 0 {
		return chunks
	}
	limit := int64(bps) * int64(maxDur) / int64(time.Second)
	if frame := int64(f.Channels * f.BitsPerSample / 8); frame > 0 {
		limit -= limit % frame
	}
	out := make([][]byte, 0, len(chunks))
	var total int64
	for _, c := range chunks {
		if total >= limit {
			break
		}
		if rest := limit - total; int64(len(c)) > rest {
			c = c[:rest]
		}
		out = append(out, c)
		total += int64(len(c))
	}
	return out
}

// Finalize joins captured chunks into one blob.
func Finalize(chunks [][]byte, f Format) (Blob, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 {
		return Blob{}, ErrEmptyAudio
	}
	joined := make([]byte, 0, total)
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	if !f.IsRawPCM() {
		return Blob{Data: joined, MediaType: f.Container}, nil
	}
	return Blob{Data: EncodeWAV(joined, f), MediaType: MediaTypeWAV}, nil
}

// EncodeWAV prefixes PCM samples with a canonical 44-byte RIFF header.
func EncodeWAV(pcm []byte, f Format) []byte {
	blockAlign := f.Channels * f.BitsPerSample / 8
	byteRate := f.SampleRate * blockAlign
	dataSize := len(pcm)

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.BitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)
	return buf.Bytes()
}

// PCM16Bytes serializes samples as little-endian 16-bit PCM.
func PCM16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
