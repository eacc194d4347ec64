package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeWAV wraps raw 16-bit PCM data in a WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bytesPerSample = 2
	dataLen := len(pcm)
	fileLen := 36 + dataLen // 44-byte header minus 8 bytes for RIFF header = 36

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	// RIFF header
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))         // subchunk1 size
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))          // audio format (PCM)
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))   // channels
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate)) // sample rate
	byteRate := sampleRate * channels * bytesPerSample
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate)) // byte rate
	blockAlign := channels * bytesPerSample
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))       // block align
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8)) // bits per sample

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV extracts raw PCM and format parameters from a WAV container.
// Only uncompressed 16-bit PCM is supported, which is what both Kokoro and
// Piper produce.
func DecodeWAV(wav []byte) (pcm []byte, sampleRate, channels int, err error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		haveFmt  bool
		haveData bool
		bits     int
	)

	// Walk the chunk list; fmt and data may be separated by other chunks
	// (LIST, fact) depending on the encoder.
	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(wav) {
			return nil, 0, 0, fmt.Errorf("truncated %q chunk: need %d bytes, have %d", id, size, len(wav)-body)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(wav[body : body+2])
			if format != 1 {
				return nil, 0, 0, fmt.Errorf("unsupported audio format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = wav[body : body+size]
			haveData = true
		}

		// Chunks are word-aligned.
		pos = body + size + size%2
	}

	if !haveFmt || !haveData {
		return nil, 0, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if bits != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported bit depth %d (want 16)", bits)
	}
	return pcm, sampleRate, channels, nil
}

// pcmToInt16 converts little-endian PCM bytes to int16 samples. A trailing
// odd byte is dropped.
func pcmToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return samples
}
