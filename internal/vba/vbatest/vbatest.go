// Package vbatest builds VBA containers for tests: a minimal version 3
// compound file writer, MS-OVBA chunk encoders and dir stream records.
package vbatest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"
)

// Module is a fixture module: its name doubles as its stream name.
type Module struct {
	Name   string
	Source string
}

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	secSize      = 512
	miniSecSize  = 64
	miniCutoff   = 4096
	endOfChain   = 0xFFFFFFFE
	freeSect     = 0xFFFFFFFF
	fatSect      = 0xFFFFFFFD
	noStream     = 0xFFFFFFFF
	typeStorage  = 1
	typeStream   = 2
	typeRoot     = 5
	entriesPerSe = secSize / 128
	chunkSize    = 4096
	maxChunk     = 4098
)

// Node is a storage or stream of a compound file.
type Node struct {
	name     string
	storage  bool
	data     []byte
	children []*Node
}

// Storage returns a storage node.
func Storage(name string, children ...*Node) *Node {
	return &Node{name: name, storage: true, children: children}
}

// Stream returns a stream node.
func Stream(name string, data []byte) *Node {
	return &Node{name: name, data: data}
}

type cfbDirEntry struct {
	node        *Node
	typ         byte
	left, right uint32
	child       uint32
	start       uint32
	size        uint64
}

// CFB lays out the given root children as a compound file. Streams under
// 4096 bytes go to the mini stream.
func CFB(tb testing.TB, children ...*Node) []byte {
	tb.Helper()
	root := &Node{name: "Root Entry", storage: true, children: children}

	var entries []*cfbDirEntry
	var add func(n *Node, typ byte) uint32
	add = func(n *Node, typ byte) uint32 {
		id := uint32(len(entries))
		e := &cfbDirEntry{node: n, typ: typ, left: noStream, right: noStream, child: noStream}
		entries = append(entries, e)
		var prev *cfbDirEntry
		for _, c := range n.children {
			ct := byte(typeStream)
			if c.storage {
				ct = typeStorage
			}
			cid := add(c, ct)
			if prev == nil {
				e.child = cid
			} else {
				prev.right = cid
			}
			prev = entries[cid]
		}
		return id
	}
	add(root, typeRoot)

	// Mini stream allocation.
	var ministream []byte
	var miniFAT []uint32
	for _, e := range entries {
		if e.typ != typeStream || len(e.node.data) >= miniCutoff {
			continue
		}
		e.size = uint64(len(e.node.data))
		if len(e.node.data) == 0 {
			e.start = endOfChain
			continue
		}
		e.start = uint32(len(miniFAT))
		n := (len(e.node.data) + miniSecSize - 1) / miniSecSize
		for i := 0; i < n; i++ {
			next := uint32(len(miniFAT) + 1)
			if i == n-1 {
				next = endOfChain
			}
			miniFAT = append(miniFAT, next)
		}
		buf := make([]byte, n*miniSecSize)
		copy(buf, e.node.data)
		ministream = append(ministream, buf...)
	}

	// Regular sector allocation: FAT, directory, mini FAT, mini stream, big streams.
	var fat []uint32
	var body []byte
	chain := func(data []byte) uint32 {
		if len(data) == 0 {
			return endOfChain
		}
		start := uint32(len(fat))
		n := (len(data) + secSize - 1) / secSize
		for i := 0; i < n; i++ {
			next := uint32(len(fat) + 1)
			if i == n-1 {
				next = endOfChain
			}
			fat = append(fat, next)
		}
		buf := make([]byte, n*secSize)
		copy(buf, data)
		body = append(body, buf...)
		return start
	}

	fat = append(fat, fatSect)
	body = append(body, make([]byte, secSize)...) // FAT sector placeholder

	dirSectors := (len(entries) + entriesPerSe - 1) / entriesPerSe
	dirBuf := make([]byte, dirSectors*secSize)
	firstDir := chain(dirBuf)

	miniFATStart := uint32(endOfChain)
	miniFATSectors := 0
	if len(miniFAT) > 0 {
		mf := make([]byte, 0, len(miniFAT)*4)
		for _, v := range miniFAT {
			mf = binary.LittleEndian.AppendUint32(mf, v)
		}
		for len(mf)%secSize != 0 {
			mf = binary.LittleEndian.AppendUint32(mf, freeSect)
		}
		miniFATSectors = len(mf) / secSize
		miniFATStart = chain(mf)
	}

	entries[0].start = chain(ministream)
	entries[0].size = uint64(len(ministream))

	for _, e := range entries {
		if e.typ == typeStream && len(e.node.data) >= miniCutoff {
			e.start = chain(e.node.data)
			e.size = uint64(len(e.node.data))
		}
	}

	if len(fat) > secSize/4 {
		tb.Fatalf("fixture too large for a single FAT sector: %d sectors", len(fat))
	}

	// Directory entries.
	for i := len(entries); i < dirSectors*entriesPerSe; i++ {
		rec := dirBuf[i*128:]
		binary.LittleEndian.PutUint32(rec[68:], noStream)
		binary.LittleEndian.PutUint32(rec[72:], noStream)
		binary.LittleEndian.PutUint32(rec[76:], noStream)
	}
	for i, e := range entries {
		rec := dirBuf[i*128:]
		name := utf16.Encode([]rune(e.node.name))
		for j, c := range name {
			binary.LittleEndian.PutUint16(rec[j*2:], c)
		}
		binary.LittleEndian.PutUint16(rec[64:], uint16((len(name)+1)*2))
		rec[66] = e.typ
		rec[67] = 1
		binary.LittleEndian.PutUint32(rec[68:], e.left)
		binary.LittleEndian.PutUint32(rec[72:], e.right)
		binary.LittleEndian.PutUint32(rec[76:], e.child)
		binary.LittleEndian.PutUint32(rec[116:], e.start)
		binary.LittleEndian.PutUint64(rec[120:], e.size)
	}
	copy(body[int(firstDir)*secSize:], dirBuf)

	// FAT sector.
	fatBuf := make([]byte, secSize)
	for i := 0; i < secSize/4; i++ {
		v := uint32(freeSect)
		if i < len(fat) {
			v = fat[i]
		}
		binary.LittleEndian.PutUint32(fatBuf[i*4:], v)
	}
	copy(body[0:], fatBuf)

	// Header.
	hdr := make([]byte, secSize)
	copy(hdr, oleSignature)
	binary.LittleEndian.PutUint16(hdr[24:], 0x003E)
	binary.LittleEndian.PutUint16(hdr[26:], 0x0003)
	binary.LittleEndian.PutUint16(hdr[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(hdr[30:], 9)
	binary.LittleEndian.PutUint16(hdr[32:], 6)
	binary.LittleEndian.PutUint32(hdr[44:], 1)
	binary.LittleEndian.PutUint32(hdr[48:], firstDir)
	binary.LittleEndian.PutUint32(hdr[56:], miniCutoff)
	binary.LittleEndian.PutUint32(hdr[60:], miniFATStart)
	binary.LittleEndian.PutUint32(hdr[64:], uint32(miniFATSectors))
	binary.LittleEndian.PutUint32(hdr[68:], endOfChain)
	binary.LittleEndian.PutUint32(hdr[76:], 0)
	for i := 1; i < 109; i++ {
		binary.LittleEndian.PutUint32(hdr[76+i*4:], freeSect)
	}

	var out bytes.Buffer
	out.Write(hdr)
	out.Write(body)
	return out.Bytes()
}

// CompressRaw wraps data in uncompressed chunks.
func CompressRaw(data []byte) []byte {
	out := []byte{0x01}
	for len(data) > 0 {
		n := len(data)
		if n > chunkSize {
			n = chunkSize
		}
		out = append(out, 0xFF, 0x3F)
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return out
}

// CompressLiterals encodes data as a single compressed chunk made only of
// literal tokens.
func CompressLiterals(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var chunk []byte
	for i := 0; i < len(data); i += 8 {
		chunk = append(chunk, 0x00)
		end := i + 8
		if end > len(data) {
			end = len(data)
		}
		chunk = append(chunk, data[i:end]...)
	}
	size := len(chunk) + 2
	if size > maxChunk {
		tb.Fatalf("literal chunk too large: %d", size)
	}
	header := uint16(size-3) | 0x3000 | 0x8000
	out := []byte{0x01}
	out = binary.LittleEndian.AppendUint16(out, header)
	return append(out, chunk...)
}

func dirRecord(b []byte, id uint16, data []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, id)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}

func utf16LE(s string) []byte {
	var b []byte
	for _, c := range utf16.Encode([]rune(s)) {
		b = binary.LittleEndian.AppendUint16(b, c)
	}
	return b
}

// DirStream returns an uncompressed dir stream describing mods, each
// stored in a stream of the same name with the given text offset.
func DirStream(mods []Module, textOffset uint32) []byte {
	var b []byte
	b = dirRecord(b, 0x0001, []byte{1, 0, 0, 0})
	b = dirRecord(b, 0x0003, []byte{0xE4, 0x04}) // 1252
	b = dirRecord(b, 0x0004, []byte("VBAProject"))
	// PROJECTVERSION: size field says 4, body is 6 bytes.
	b = binary.LittleEndian.AppendUint16(b, 0x0009)
	b = binary.LittleEndian.AppendUint32(b, 4)
	b = append(b, 1, 0, 0, 0, 2, 0)
	b = dirRecord(b, 0x000F, []byte{byte(len(mods)), 0})
	b = dirRecord(b, 0x0013, []byte{0xFF, 0xFF})
	for _, m := range mods {
		b = dirRecord(b, 0x0019, []byte(m.Name))
		b = dirRecord(b, 0x0047, utf16LE(m.Name))
		b = dirRecord(b, 0x001A, []byte(m.Name))
		b = dirRecord(b, 0x0032, utf16LE(m.Name))
		b = dirRecord(b, 0x001C, nil)
		b = dirRecord(b, 0x0048, nil)
		off := make([]byte, 4)
		binary.LittleEndian.PutUint32(off, textOffset)
		b = dirRecord(b, 0x0031, off)
		b = dirRecord(b, 0x001E, []byte{0, 0, 0, 0})
		b = dirRecord(b, 0x002C, []byte{0xFF, 0xFF})
		b = dirRecord(b, 0x0021, nil)
		b = dirRecord(b, 0x002B, nil)
	}
	b = dirRecord(b, 0x0010, nil)
	return b
}

// VBAStorage builds a VBA storage holding the dir stream and one stream per module.
func VBAStorage(tb testing.TB, mods []Module) *Node {
	tb.Helper()
	const textOffset = 12
	nodes := []*Node{Stream("dir", CompressRaw(DirStream(mods, textOffset)))}
	for _, m := range mods {
		data := append(bytes.Repeat([]byte{0xCC}, textOffset), CompressLiterals(tb, []byte(m.Source))...)
		nodes = append(nodes, Stream(m.Name, data))
	}
	nodes = append(nodes, Stream("_VBA_PROJECT", []byte{0xCC, 0x61, 0xFF, 0xFF, 0x00, 0x00, 0x00}))
	return Storage("VBA", nodes...)
}

// ProjectBin builds the compound file stored as xl/vbaProject.bin.
func ProjectBin(tb testing.TB, mods []Module) []byte {
	tb.Helper()
	return CFB(tb,
		VBAStorage(tb, mods),
		Stream("PROJECT", []byte("ID=\"{00000000-0000-0000-0000-000000000000}\"\r\n")),
	)
}

// XLS builds a legacy workbook compound file with an embedded project.
func XLS(tb testing.TB, mods []Module) []byte {
	tb.Helper()
	nodes := []*Node{Stream("Workbook", bytes.Repeat([]byte{0x09}, 600))}
	if mods != nil {
		nodes = append(nodes, Storage("_VBA_PROJECT_CUR",
			VBAStorage(tb, mods),
			Stream("PROJECT", []byte("Name=\"VBAProject\"\r\n")),
		))
	}
	return CFB(tb, nodes...)
}

// WriteXLS writes a legacy workbook with mods to path. A nil mods slice
// writes a workbook without a VBA project.
func WriteXLS(tb testing.TB, path string, mods []Module) {
	tb.Helper()
	if err := os.WriteFile(path, XLS(tb, mods), 0644); err != nil {
		tb.Fatal(err)
	}
}

// WriteXLSM saves a macro-enabled package to path. A nil mods slice saves a
// package without a vbaProject.bin part.
func WriteXLSM(tb testing.TB, path string, mods []Module) {
	tb.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if mods != nil {
		if err := f.AddVBAProject(ProjectBin(tb, mods)); err != nil {
			tb.Fatalf("AddVBAProject: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		tb.Fatalf("SaveAs %s: %v", filepath.Base(path), err)
	}
}
