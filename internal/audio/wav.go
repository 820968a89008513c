package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadWAV decodes a RIFF/WAVE stream into mono float32 samples plus the
// file's sample rate. Only 16-bit PCM is supported; stereo input is
// downmixed by averaging the channels.
func ReadWAV(r io.Reader) ([]float32, int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("invalid wav header")
	}

	offset := 12
	var (
		sampleRate    int
		audioFormat   uint16
		channels      uint16
		bitsPerSample uint16
		audioData     []byte
	)

	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		chunkStart := offset + 8
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > len(data) {
			return nil, 0, fmt.Errorf("chunk %s out of range", chunkID)
		}
		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too small")
			}
			audioFormat = binary.LittleEndian.Uint16(data[chunkStart : chunkStart+2])
			channels = binary.LittleEndian.Uint16(data[chunkStart+2 : chunkStart+4])
			sampleRate = int(binary.LittleEndian.Uint32(data[chunkStart+4 : chunkStart+8]))
			bitsPerSample = binary.LittleEndian.Uint16(data[chunkStart+14 : chunkStart+16])
		case "data":
			audioData = data[chunkStart:chunkEnd]
		}
		// Chunks are word aligned.
		offset = chunkEnd
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if audioFormat != 1 {
		return nil, 0, fmt.Errorf("unsupported audio format %d, want PCM", audioFormat)
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d, want 16", bitsPerSample)
	}
	if channels != 1 && channels != 2 {
		return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
	}
	if sampleRate == 0 || audioData == nil {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}

	frames := len(audioData) / (2 * int(channels))
	samples := make([]float32, frames)
	for i := range samples {
		if channels == 1 {
			v := int16(binary.LittleEndian.Uint16(audioData[i*2:]))
			samples[i] = float32(v) / 32768
		} else {
			l := int16(binary.LittleEndian.Uint16(audioData[i*4:]))
			r := int16(binary.LittleEndian.Uint16(audioData[i*4+2:]))
			samples[i] = (float32(l) + float32(r)) / 2 / 32768
		}
	}
	return samples, sampleRate, nil
}

// DecodePCM16 converts raw little-endian 16-bit PCM bytes into float32
// samples in [-1, 1). A trailing odd byte is dropped.
func DecodePCM16(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768
	}
	return samples
}

// WriteWAV encodes mono float32 samples as a 16-bit PCM RIFF/WAVE
// stream.
func WriteWAV(w io.Writer, samples []float32, rate int) error {
	dataLen := len(samples) * 2

	var hdr [44]byte
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+dataLen))
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:], 1) // mono
	binary.LittleEndian.PutUint32(hdr[24:], uint32(rate))
	binary.LittleEndian.PutUint32(hdr[28:], uint32(rate*2))
	binary.LittleEndian.PutUint16(hdr[32:], 2)  // block align
	binary.LittleEndian.PutUint16(hdr[34:], 16) // bits per sample
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(dataLen))

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	buf := make([]byte, dataLen)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
