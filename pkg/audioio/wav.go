package audioio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// WAV format tags accepted by the reader.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVSource decodes RIFF/WAVE files holding integer PCM.
type WAVSource struct{}

// Name implements FileSource.
func (*WAVSource) Name() string { return "wav" }

// Load implements FileSource.
func (*WAVSource) Load(path string) (Clip, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("audioio: read %s: %w", path, err)
	}
	if len(raw) < 12 || !bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		return Clip{}, fmt.Errorf("%w: %s is not a RIFF/WAVE file", ErrUnsupportedFormat, path)
	}

	var clip Clip
	haveFmt := false
	// Walk the chunks; only fmt and data matter.
	for off := 12; off+8 <= len(raw); {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8
		if body+size > len(raw) {
			size = len(raw) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("%w: %s: truncated fmt chunk", ErrUnsupportedFormat, path)
			}
			format := binary.LittleEndian.Uint16(raw[body : body+2])
			if format != wavFormatPCM && format != wavFormatExtensible {
				return Clip{}, fmt.Errorf("%w: %s: non-PCM format %d", ErrUnsupportedFormat, path, format)
			}
			clip.Channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			clip.SampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			clip.SampleWidth = int(binary.LittleEndian.Uint16(raw[body+14:body+16])) / 8
			haveFmt = true
		case "data":
			clip.PCM = raw[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if !haveFmt || clip.PCM == nil {
		return Clip{}, fmt.Errorf("%w: %s: missing fmt or data chunk", ErrUnsupportedFormat, path)
	}
	if err := clip.Validate(); err != nil {
		return Clip{}, err
	}
	return clip, nil
}

// EncodeWAV writes a clip as a minimal RIFF/WAVE file, the inverse of
// Load. Used by tests and by persistence of trimmed intervals.
func EncodeWAV(c Clip) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	dataSize := len(c.PCM)
	byteRate := c.SampleRate * c.FrameSize()

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(c.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(c.FrameSize()))
	binary.Write(&buf, binary.LittleEndian, uint16(c.SampleWidth*8))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(c.PCM)
	return buf.Bytes(), nil
}
