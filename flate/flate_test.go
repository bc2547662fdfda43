package flate

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/klauspost/zflate/checksum"
	"github.com/stretchr/testify/require"
)

type inputFn func() []byte

// testInputs are generated so the package needs no testdata files.
var testInputs = []struct {
	name string
	fn   inputFn
}{
	{name: "empty", fn: func() []byte { return nil }},
	{name: "one", fn: func() []byte { return []byte{'x'} }},
	{name: "fox", fn: func() []byte { return []byte(foxText) }},
	{name: "text", fn: func() []byte { return textInput(200<<10, 1) }},
	{name: "random", fn: func() []byte { return randomInput(100<<10, 2) }},
	{name: "zeroes", fn: func() []byte { return make([]byte, 150<<10) }},
	{name: "low-ent", fn: func() []byte { return []byte(strings.Repeat("1221", 20000)) }},
	{name: "mixed", fn: func() []byte {
		b := textInput(40<<10, 3)
		b = append(b, randomInput(40<<10, 4)...)
		b = append(b, make([]byte, 70000)...)
		return append(b, textInput(40<<10, 5)...)
	}},
}

const foxText = "the quick brown fox the quick brown fox\x00"

var words = strings.Fields(`four score and seven years ago our fathers brought forth on
this continent a new nation conceived in liberty and dedicated to the proposition
that all men are created equal now we are engaged in a great civil war testing
whether that nation or any nation so conceived and so dedicated can long endure`)

// textInput returns n bytes of word salad.
func textInput(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	var b bytes.Buffer
	for b.Len() < n {
		b.WriteString(words[rng.Intn(len(words))])
		if rng.Intn(12) == 0 {
			b.WriteString(".\n")
		} else {
			b.WriteByte(' ')
		}
	}
	return b.Bytes()[:n]
}

func randomInput(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// deflateChunked compresses in, feeding at most inChunk bytes and
// collecting at most outChunk bytes per call.
func deflateChunked(t testing.TB, d *Deflater, in []byte, inChunk, outChunk int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, outChunk)
	for i := 0; ; i++ {
		n := min(inChunk, len(in))
		flush := NoFlush
		if n == len(in) {
			flush = FinishFlush
		}
		res, err := d.Deflate(buf, in[:n], flush)
		require.NoError(t, err)
		out = append(out, buf[:res.Written]...)
		in = in[res.Read:]
		if res.Status == StatusStreamEnd {
			require.Empty(t, in)
			return out
		}
		require.Less(t, i, 1<<24, "no progress")
	}
}

// inflateChunked decompresses in like deflateChunked.
func inflateChunked(t testing.TB, f *Inflater, in []byte, inChunk, outChunk int) ([]byte, error) {
	t.Helper()
	var out []byte
	buf := make([]byte, outChunk)
	for i := 0; ; i++ {
		n := min(inChunk, len(in))
		flush := NoFlush
		if n == len(in) {
			flush = FinishFlush
		}
		res, err := f.Inflate(buf, in[:n], flush)
		out = append(out, buf[:res.Written]...)
		in = in[res.Read:]
		if err != nil {
			return out, err
		}
		switch res.Status {
		case StatusStreamEnd:
			return out, nil
		case StatusNeedDict:
			return out, ErrNeedDictionary
		}
		require.Less(t, i, 1<<24, "no progress")
	}
}

func compress(t testing.TB, in []byte, opts ...EOption) []byte {
	t.Helper()
	d, err := NewDeflater(opts...)
	require.NoError(t, err)
	defer d.End()
	return deflateChunked(t, d, in, len(in), 64<<10)
}

func decompress(t testing.TB, in []byte, opts ...DOption) ([]byte, error) {
	t.Helper()
	f, err := NewInflater(opts...)
	require.NoError(t, err)
	defer f.End()
	return inflateChunked(t, f, in, len(in), 64<<10)
}

func formatOpts(f Format) ([]EOption, []DOption) {
	return []EOption{WithEncoderFormat(f)}, []DOption{WithDecoderFormat(f)}
}

// failingAllocator fails after ok successful allocations.
type failingAllocator struct {
	ok    int
	freed int
}

func (a *failingAllocator) Alloc(n int) ([]byte, error) {
	if a.ok == 0 {
		return nil, errAllocFailed
	}
	a.ok--
	return make([]byte, n), nil
}

func (a *failingAllocator) Free([]byte) { a.freed++ }

var errAllocFailed = &kindError{kind: ErrResource, msg: "test allocator exhausted"}

func adlerOf(b []byte) uint32 { return checksum.Adler32(checksum.AdlerInit, b) }

func crcOf(b []byte) uint32 { return checksum.CRC32(checksum.CRCInit, b) }
