package vba

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
)

// oleSignature is the first eight bytes of every compound file.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// IsOLE reports whether data starts with the compound file signature.
func IsOLE(data []byte) bool {
	return bytes.HasPrefix(data, oleSignature)
}

// container holds the streams of a compound file that extraction needs.
type container struct {
	// streams maps "storage/.../name" (lower-cased storages) to stream bytes,
	// limited to streams that live inside a VBA storage.
	streams map[string][]byte
	// vbaDir is the storage path of the VBA storage holding the dir stream.
	vbaDir string
	props  map[string]string
}

// readContainer walks a compound file, collecting VBA streams and any
// OLE property sets found along the way.
func readContainer(ra io.ReaderAt) (*container, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, fmt.Errorf("could not read compound file: %w", err)
	}

	c := &container{
		streams: make(map[string][]byte),
		props:   make(map[string]string),
	}
	ps := msoleps.New()

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if msoleps.IsMSOLEPS(entry.Initial) {
			if perr := ps.Reset(doc); perr == nil {
				for _, p := range ps.Property {
					if p == nil || p.Name == "" {
						continue
					}
					if v := strings.TrimSpace(p.String()); v != "" {
						c.props[p.Name] = v
					}
				}
			}
			continue
		}

		if len(entry.Path) == 0 || !strings.EqualFold(entry.Path[len(entry.Path)-1], "VBA") {
			continue
		}
		data, rerr := io.ReadAll(entry)
		if rerr != nil {
			return nil, fmt.Errorf("could not read stream %s: %w", entry.Name, rerr)
		}
		dir := storagePath(entry.Path)
		c.streams[dir+"/"+strings.ToLower(entry.Name)] = data
		if strings.EqualFold(entry.Name, "dir") && c.vbaDir == "" {
			c.vbaDir = dir
		}
	}
	return c, nil
}

func storagePath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "/")
}

// modules decodes every module listed in the dir stream, in dir order.
// A container without a VBA storage has no modules.
func (c *container) modules() ([]Module, error) {
	if c.vbaDir == "" {
		return nil, nil
	}

	raw, err := Decompress(c.streams[c.vbaDir+"/dir"])
	if err != nil {
		return nil, fmt.Errorf("could not decompress dir stream: %w", err)
	}
	info, err := parseDir(raw)
	if err != nil {
		return nil, err
	}

	mods := make([]Module, 0, len(info.Modules))
	for _, m := range info.Modules {
		stream, ok := c.streams[c.vbaDir+"/"+strings.ToLower(m.StreamName)]
		if !ok {
			return nil, fmt.Errorf("module %q: stream %q not found", m.Name, m.StreamName)
		}
		if int(m.TextOffset) > len(stream) {
			return nil, fmt.Errorf("module %q: text offset %d beyond stream size %d", m.Name, m.TextOffset, len(stream))
		}
		src, err := Decompress(stream[m.TextOffset:])
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", m.Name, err)
		}
		mods = append(mods, Module{
			Name:       m.Name,
			StreamName: m.StreamName,
			Source:     normalizeNewlines(decodeCodePage(src, info.CodePage)),
		})
	}
	return mods, nil
}
