package speech

import (
	"bytes"
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
)

const wavHeaderSize = 44

var pcmBits = regexp.MustCompile(`audio/L(\d+)`)

type pcmParams struct {
	bitsPerSample int
	rate          int
}

// parsePCMMimeType reads bit depth and rate from e.g. "audio/L16;codec=pcm;rate=24000".
func parsePCMMimeType(mimeType string) pcmParams {
	params := pcmParams{bitsPerSample: 16, rate: 24000}
	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(strings.ToLower(part), "rate="):
			if rate, err := strconv.Atoi(part[len("rate="):]); err == nil && rate > 0 {
				params.rate = rate
			}
		case strings.HasPrefix(part, "audio/L"):
			if m := pcmBits.FindStringSubmatch(part); len(m) > 1 {
				if bits, err := strconv.Atoi(m[1]); err == nil && bits > 0 {
					params.bitsPerSample = bits
				}
			}
		}
	}
	return params
}

// isRawPCM reports whether mimeType names headerless linear PCM.
func isRawPCM(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/L") || strings.HasPrefix(mimeType, "audio/pcm")
}

// pcmToWAV prefixes mono PCM data with a WAV header.
func pcmToWAV(data []byte, p pcmParams) []byte {
	const channels = 1
	blockAlign := channels * p.bitsPerSample / 8
	byteRate := p.rate * blockAlign

	header := new(bytes.Buffer)
	header.Grow(wavHeaderSize + len(data))
	header.WriteString("RIFF")
	_ = binary.Write(header, binary.LittleEndian, uint32(36+len(data)))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	_ = binary.Write(header, binary.LittleEndian, uint32(16))
	_ = binary.Write(header, binary.LittleEndian, uint16(1))
	_ = binary.Write(header, binary.LittleEndian, uint16(channels))
	_ = binary.Write(header, binary.LittleEndian, uint32(p.rate))
	_ = binary.Write(header, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(header, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(header, binary.LittleEndian, uint16(p.bitsPerSample))
	header.WriteString("data")
	_ = binary.Write(header, binary.LittleEndian, uint32(len(data)))
	header.Write(data)
	return header.Bytes()
}

// wavByteRate returns the byte rate from a canonical WAV header, or 0.
func wavByteRate(data []byte) int {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data[28:32]))
}
