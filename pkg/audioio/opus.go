package audioio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48 kHz.
const opusSampleRate = 48000

// OpusSource decodes Ogg/Opus files to 16-bit PCM via libopus.
type OpusSource struct{}

// Name implements FileSource.
func (*OpusSource) Name() string { return "opus" }

// Load implements FileSource.
func (*OpusSource) Load(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("audioio: open %s: %w", path, err)
	}
	defer f.Close()

	stream, err := opus.NewStream(f)
	if err != nil {
		return Clip{}, fmt.Errorf("audioio: opus stream %s: %w", path, err)
	}
	defer stream.Close()

	var samples []int16
	buf := make([]int16, 16384)
	for {
		n, err := stream.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Clip{}, fmt.Errorf("audioio: opus decode %s: %w", path, err)
		}
		samples = append(samples, buf[:n]...)
	}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	clip := Clip{
		PCM:         pcm,
		SampleRate:  opusSampleRate,
		SampleWidth: 2,
		Channels:    1,
	}
	if err := clip.Validate(); err != nil {
		return Clip{}, err
	}
	return clip, nil
}
