// Package hasher computes several file digests in a single streaming pass.
//
// Files are read once in fixed-size chunks through a pooled buffer and
// every requested accumulator is fed the same chunk before the next read.
package hasher

import (
	"errors"
	"hash"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// ChunkSize is the read size used when streaming file content.
const ChunkSize = 8 * 1024

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// AcquireBuffer returns a ChunkSize scratch buffer from the pool. Its
// content is undefined. Callers must hand it back with ReleaseBuffer.
func AcquireBuffer() *[]byte {
	return bufPool.Get().(*[]byte)
}

// ReleaseBuffer returns a buffer obtained from AcquireBuffer to the pool.
func ReleaseBuffer(b *[]byte) {
	if b == nil || cap(*b) < ChunkSize {
		return
	}
	*b = (*b)[:ChunkSize]
	bufPool.Put(b)
}

type accumulator struct {
	alg Algorithm
	h   hash.Hash
}

// Engine hashes files with a fixed set of algorithms.
// An Engine is safe for concurrent use; each call uses its own buffer.
type Engine struct {
	algs  Set
	bytes atomic.Int64

	// OnChunk, when set, is called with the size of every chunk read.
	OnChunk func(n int)
}

// New returns an Engine computing every algorithm in algs.
func New(algs Set) (*Engine, error) {
	if len(algs) == 0 {
		return nil, ErrNoAlgorithms
	}
	return &Engine{algs: NewSet(algs...)}, nil
}

// Algorithms returns the algorithms the engine computes.
func (e *Engine) Algorithms() Set {
	return e.algs
}

// BytesHashed returns the total number of bytes read since creation.
// It only ever increases.
func (e *Engine) BytesHashed() int64 {
	return e.bytes.Load()
}

// HashFile reads the file at path once and returns its digests and the
// number of bytes read. Any open or read failure is reported as
// types.ErrFileUnreadable and no digests are returned.
func (e *Engine) HashFile(path string) (Digests, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, types.FileError("open", path, err)
	}
	defer f.Close()

	adviseSequential(f)

	d, n, err := e.Hash(f)
	if err != nil {
		return nil, 0, types.FileError("read", path, err)
	}
	return d, n, nil
}

// Hash streams r to EOF and returns the digests of its content.
func (e *Engine) Hash(r io.Reader) (Digests, int64, error) {
	accs := make([]accumulator, len(e.algs))
	for i, a := range e.algs {
		accs[i] = accumulator{alg: a, h: a.newHash()}
	}

	buf := AcquireBuffer()
	defer ReleaseBuffer(buf)

	var total int64
	for {
		n, err := r.Read(*buf)
		if n > 0 {
			chunk := (*buf)[:n]
			for _, acc := range accs {
				acc.h.Write(chunk) //nolint:errcheck // hash.Hash.Write never fails
			}
			total += int64(n)
			e.bytes.Add(int64(n))
			if e.OnChunk != nil {
				e.OnChunk(n)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, total, err
		}
	}

	out := make(Digests, len(accs))
	for _, acc := range accs {
		out[acc.alg] = acc.h.Sum(nil)
	}
	return out, total, nil
}
