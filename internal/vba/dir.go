package vba

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Record identifiers of the dir stream (MS-OVBA 2.3.4.2).
const (
	recProjectCodePage   = 0x0003
	recProjectVersion    = 0x0009
	recProjectTerminator = 0x0010
	recModuleName        = 0x0019
	recModuleStreamName  = 0x001A
	recStreamNameUnicode = 0x0032
	recModuleTerminator  = 0x002B
	recModuleOffset      = 0x0031
	recModuleNameUnicode = 0x0047
)

// moduleEntry is what the dir stream says about one module.
type moduleEntry struct {
	Name       string
	StreamName string
	TextOffset uint32
}

// projectInfo is the decoded dir stream.
type projectInfo struct {
	CodePage uint16
	Modules  []moduleEntry
}

// parseDir walks the records of a decompressed dir stream. Records it does not
// need are skipped by their declared size.
func parseDir(data []byte) (*projectInfo, error) {
	info := &projectInfo{CodePage: 1252}
	var cur *moduleEntry

	pos := 0
	for pos+6 <= len(data) {
		id := binary.LittleEndian.Uint16(data[pos:])
		size := int(binary.LittleEndian.Uint32(data[pos+2:]))
		pos += 6

		// PROJECTVERSION declares a size of 4 but carries 6 bytes.
		if id == recProjectVersion {
			size = 6
		}
		if size < 0 || pos+size > len(data) {
			return nil, fmt.Errorf("dir record 0x%04x at offset %d overruns stream", id, pos-6)
		}
		body := data[pos : pos+size]
		pos += size

		switch id {
		case recProjectCodePage:
			if len(body) >= 2 {
				info.CodePage = binary.LittleEndian.Uint16(body)
			}
		case recModuleName:
			info.Modules = append(info.Modules, moduleEntry{})
			cur = &info.Modules[len(info.Modules)-1]
			cur.Name = decodeCodePage(body, info.CodePage)
		case recModuleNameUnicode:
			if cur != nil && len(body) > 0 {
				cur.Name = decodeUTF16(body)
			}
		case recModuleStreamName:
			if cur != nil {
				cur.StreamName = decodeCodePage(body, info.CodePage)
			}
		case recStreamNameUnicode:
			if cur != nil && len(body) > 0 {
				cur.StreamName = decodeUTF16(body)
			}
		case recModuleOffset:
			if cur != nil && len(body) >= 4 {
				cur.TextOffset = binary.LittleEndian.Uint32(body)
			}
		case recModuleTerminator:
			cur = nil
		case recProjectTerminator:
			return info, nil
		}
	}
	return info, nil
}

func decodeUTF16(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, binary.LittleEndian.Uint16(b[i:]))
	}
	return string(utf16.Decode(u))
}

// codePages maps Windows code page identifiers to their decoders.
var codePages = map[uint16]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
}

// decodeCodePage converts MBCS bytes to UTF-8. Unknown code pages fall back
// to Windows-1252; 65001 is already UTF-8.
func decodeCodePage(b []byte, cp uint16) string {
	if cp == 65001 {
		return string(b)
	}
	enc, ok := codePages[cp]
	if !ok {
		enc = charmap.Windows1252
	}
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// normalizeNewlines turns CRLF and lone CR line breaks into LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
