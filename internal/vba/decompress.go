package vba

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	chunkSize       = 4096
	maxCompressed   = 4098
	containerHeader = 0x01
)

// Decompress expands a compressed container as stored in VBA project streams
// (MS-OVBA 2.4.1). The container starts with a 0x01 signature byte followed by
// chunks of at most 4096 decompressed bytes each.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty compressed container")
	}
	if data[0] != containerHeader {
		return nil, fmt.Errorf("invalid container signature 0x%02x", data[0])
	}

	out := make([]byte, 0, len(data)*2)
	pos := 1
	for pos < len(data) {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("truncated chunk header at offset %d", pos)
		}
		header := binary.LittleEndian.Uint16(data[pos:])
		size := int(header&0x0FFF) + 3
		compressed := header&0x8000 != 0
		if sig := (header >> 12) & 0x07; sig != 0x03 {
			return nil, fmt.Errorf("invalid chunk signature %d at offset %d", sig, pos)
		}
		if compressed && size > maxCompressed {
			return nil, fmt.Errorf("chunk size %d exceeds maximum at offset %d", size, pos)
		}

		end := pos + size
		if end > len(data) {
			end = len(data)
		}
		pos += 2

		if !compressed {
			raw := pos + chunkSize
			if raw > len(data) {
				raw = len(data)
			}
			out = append(out, data[pos:raw]...)
			pos = raw
			continue
		}

		start := len(out)
		for pos < end {
			flags := data[pos]
			pos++
			for bit := 0; bit < 8 && pos < end; bit++ {
				if flags&(1<<bit) == 0 {
					out = append(out, data[pos])
					pos++
					continue
				}
				if pos+2 > end {
					return nil, fmt.Errorf("truncated copy token at offset %d", pos)
				}
				token := binary.LittleEndian.Uint16(data[pos:])
				pos += 2

				length, offset, err := unpackCopyToken(token, len(out)-start)
				if err != nil {
					return nil, err
				}
				src := len(out) - offset
				if src < start {
					return nil, fmt.Errorf("copy token offset %d reaches before chunk start", offset)
				}
				// Source and destination may overlap, so copy byte by byte.
				for i := 0; i < length; i++ {
					out = append(out, out[src+i])
				}
			}
		}
		pos = end
	}
	return out, nil
}

func unpackCopyToken(token uint16, decompressed int) (length, offset int, err error) {
	if decompressed <= 0 {
		return 0, 0, fmt.Errorf("copy token at start of chunk")
	}
	bitCount := bits.Len(uint(decompressed - 1))
	if bitCount < 4 {
		bitCount = 4
	}
	lengthMask := uint16(0xFFFF) >> bitCount
	offsetMask := ^lengthMask
	length = int(token&lengthMask) + 3
	offset = int((token&offsetMask)>>(16-bitCount)) + 1
	return length, offset, nil
}
