package dedup

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// Comparer decides whether two files have identical content.
type Comparer interface {
	Equal(a, b string) (bool, error)
}

// ComparerFunc adapts a function to the Comparer interface.
type ComparerFunc func(a, b string) (bool, error)

// Equal calls f(a, b).
func (f ComparerFunc) Equal(a, b string) (bool, error) {
	return f(a, b)
}

// CompareFiles streams both files in lock-step and reports whether every
// byte matches, stopping at the first difference. Files of different
// length are unequal. Failures are reported as types.ErrFileUnreadable.
func CompareFiles(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, types.FileError("open", a, err)
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, types.FileError("open", b, err)
	}
	defer fb.Close()

	ba, bb := hasher.AcquireBuffer(), hasher.AcquireBuffer()
	defer hasher.ReleaseBuffer(ba)
	defer hasher.ReleaseBuffer(bb)

	for {
		na, errA := io.ReadFull(fa, *ba)
		if !endOfInput(errA) {
			return false, types.FileError("read", a, errA)
		}
		nb, errB := io.ReadFull(fb, *bb)
		if !endOfInput(errB) {
			return false, types.FileError("read", b, errB)
		}

		if na != nb || !bytes.Equal((*ba)[:na], (*bb)[:nb]) {
			return false, nil
		}
		if errA != nil {
			return true, nil
		}
	}
}

// endOfInput reports whether err is nil or one of the io.ReadFull end
// conditions.
func endOfInput(err error) bool {
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
