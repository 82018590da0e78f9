// Package utils provides errors, checked arithmetic and buffer pooling
// shared by the arrayio packages.
package utils

import "sync"

// nodeBufSize covers the header and entries of typical chunk B-tree nodes.
const nodeBufSize = 4096

var nodePool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, nodeBufSize)
		return &b
	},
}

// GetBuffer returns a scratch buffer of length size for raw node bytes.
// The contents are unspecified. Callers must not keep references into
// the buffer after ReleaseBuffer.
func GetBuffer(size int) []byte {
	bp := nodePool.Get().(*[]byte)
	if cap(*bp) < size {
		nodePool.Put(bp)
		return make([]byte, size)
	}
	return (*bp)[:size]
}

// ReleaseBuffer returns buf to the pool. Oversized buffers are dropped so
// one large node does not pin memory.
func ReleaseBuffer(buf []byte) {
	if cap(buf) > 4*nodeBufSize {
		return
	}
	buf = buf[:0]
	nodePool.Put(&buf)
}

// ReaderAt is the subset of io.ReaderAt the parsers need.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}
