package testing

import (
	"bytes"
	"encoding/binary"
)

// ChunkNode describes a version 1 chunk B-tree node for test fixtures.
// Keys holds EntriesUsed+1 keys; each key is a chunk origin followed by
// the trailing element-size coordinate.
type ChunkNode struct {
	Level     uint8
	Keys      [][]uint64
	Children  []uint64
	ChunkSize uint32
}

// Encode serializes the node with 8-byte file addresses.
func (n ChunkNode) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("TREE")
	buf.WriteByte(1)
	buf.WriteByte(n.Level)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(n.Children)))
	_ = binary.Write(buf, binary.LittleEndian, uint64(0xFFFFFFFFFFFFFFFF))
	_ = binary.Write(buf, binary.LittleEndian, uint64(0xFFFFFFFFFFFFFFFF))

	for i, key := range n.Keys {
		_ = binary.Write(buf, binary.LittleEndian, n.ChunkSize)
		_ = binary.Write(buf, binary.LittleEndian, uint32(0))
		for _, c := range key {
			_ = binary.Write(buf, binary.LittleEndian, c)
		}
		if i < len(n.Children) {
			_ = binary.Write(buf, binary.LittleEndian, n.Children[i])
		}
	}
	return buf.Bytes()
}

// Image is a sparse in-memory file assembled at fixed addresses.
type Image struct {
	data []byte
}

// Put writes b at addr, growing the image as needed.
func (img *Image) Put(addr int, b []byte) {
	if end := addr + len(b); end > len(img.data) {
		img.data = append(img.data, make([]byte, end-len(img.data))...)
	}
	copy(img.data[addr:], b)
}

// Bytes returns the assembled image.
func (img *Image) Bytes() []byte {
	return img.data
}
