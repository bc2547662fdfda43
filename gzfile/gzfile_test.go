package gzfile

import (
	"bytes"
	stdgzip "compress/gzip"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"

	"github.com/klauspost/zflate"
	"github.com/klauspost/zflate/flate"
)

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want mode
	}{
		{"r", mode{access: accessRead, level: -1}},
		{"rb", mode{access: accessRead, level: -1}},
		{"wb9", mode{access: accessWrite, level: 9}},
		{"a1h", mode{access: accessAppend, level: 1, strategy: flate.StrategyHuffmanOnly, strategySet: true}},
		{"wR", mode{access: accessWrite, level: -1, strategy: flate.StrategyRLE, strategySet: true}},
		{"wF", mode{access: accessWrite, level: -1, strategy: flate.StrategyFixed, strategySet: true}},
		{"w6f", mode{access: accessWrite, level: 6, strategy: flate.StrategyFiltered, strategySet: true}},
		{"wT", mode{access: accessWrite, level: -1, transparent: true}},
		{"wxe", mode{access: accessWrite, level: -1, exclusive: true}},
		{"w0", mode{access: accessWrite, level: 0}},
	} {
		got, err := parseMode(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
	for _, bad := range []string{"", "b9", "r+", "w+b", "rw", "ara", "9h"} {
		_, err := parseMode(bad)
		require.ErrorIs(t, err, ErrInvalidMode, bad)
		require.ErrorIs(t, err, flate.ErrUsage, bad)
	}
}

func sampleData(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	words := strings.Fields("gzip file stream member header trailer window block huffman literal")
	var b bytes.Buffer
	for b.Len() < n {
		b.WriteString(words[rng.Intn(len(words))])
		b.WriteByte(' ')
	}
	return b.Bytes()[:n]
}

func writeFile(t *testing.T, name, mode string, chunks ...[]byte) {
	t.Helper()
	g, err := Open(name, mode)
	require.NoError(t, err)
	for _, c := range chunks {
		n, err := g.Write(c)
		require.NoError(t, err)
		require.Equal(t, len(c), n)
	}
	require.NoError(t, g.Close())
}

func readFile(t *testing.T, name string) []byte {
	t.Helper()
	g, err := Open(name, "rb")
	require.NoError(t, err)
	got, err := io.ReadAll(g)
	require.NoError(t, err)
	require.NoError(t, g.Close())
	return got
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	data := sampleData(200<<10, 1)
	for _, mode := range []string{"w", "wb9", "w1", "w0", "wh", "wR", "wF", "wf"} {
		name := filepath.Join(dir, mode+".gz")
		writeFile(t, name, mode, data[:1000], data[1000:])
		require.Equal(t, data, readFile(t, name), mode)

		f, err := os.Open(name)
		require.NoError(t, err)
		zr, err := stdgzip.NewReader(f)
		require.NoError(t, err)
		require.Equal(t, osCode(), zr.Header.OS)
		got, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.Equal(t, data, got, mode)
		require.NoError(t, f.Close())
	}
}

func TestAppend(t *testing.T) {
	name := filepath.Join(t.TempDir(), "log.gz")
	writeFile(t, name, "w", []byte("hello "))
	writeFile(t, name, "a9", []byte("world"))
	writeFile(t, name, "a", nil)
	require.Equal(t, "hello world", string(readFile(t, name)))

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	zr, err := stdgzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestTransparent(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "plain")
	writeFile(t, name, "wT", []byte("not compressed"))
	raw, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "not compressed", string(raw))

	g, err := Open(name, "r")
	require.NoError(t, err)
	require.True(t, g.Direct())
	require.Nil(t, g.Header())
	got, err := io.ReadAll(g)
	require.NoError(t, err)
	require.Equal(t, "not compressed", string(got))
	require.NoError(t, g.Close())

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.Empty(t, readFile(t, empty))
	g, err = Open(empty, "r")
	require.NoError(t, err)
	require.True(t, g.Direct())
	require.NoError(t, g.Close())
}

func TestTrailingGarbage(t *testing.T) {
	name := filepath.Join(t.TempDir(), "junk.gz")
	writeFile(t, name, "w", []byte("payload"))
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.WriteString("junk after the member")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := Open(name, "r")
	require.NoError(t, err)
	require.False(t, g.Direct())
	got, err := io.ReadAll(g)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
	require.Equal(t, osCode(), g.Header().OS)
	require.NoError(t, g.Close())
}

func TestTruncatedFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "cut.gz")
	writeFile(t, name, "w", sampleData(50000, 2))
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(name, b[:len(b)-5], 0o644))

	g, err := Open(name, "r")
	require.NoError(t, err)
	_, err = io.ReadAll(g)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.ErrorIs(t, g.Close(), io.ErrUnexpectedEOF)
}

func TestAdaptiveStrategy(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	random := make([]byte, 100<<10)
	rng.Read(random)
	skewed := make([]byte, 100<<10)
	for i := range skewed {
		skewed[i] = "0123456789abcdef"[rng.Intn(16)]
	}
	text := sampleData(100<<10, 4)

	name := filepath.Join(t.TempDir(), "mixed.gz")
	g, err := Open(name, "w")
	require.NoError(t, err)
	for _, tc := range []struct {
		data []byte
		want zflate.Class
	}{
		{text, zflate.Compressible},
		{random, zflate.Incompressible},
		{skewed, zflate.EntropyOnly},
		{text[:100], zflate.EntropyOnly}, // small writes keep the last choice
		{text, zflate.Compressible},
	} {
		_, err := g.Write(tc.data)
		require.NoError(t, err)
		require.Equal(t, tc.want, g.class)
	}
	require.NoError(t, g.Close())

	want := bytes.Join([][]byte{text, random, skewed, text[:100], text}, nil)
	require.Equal(t, want, readFile(t, name))

	// Stored blocks keep random data from growing much.
	fi, err := os.Stat(name)
	require.NoError(t, err)
	require.Less(t, fi.Size(), int64(len(want)))

	// An explicit strategy is never changed.
	g, err = Open(name, "wh")
	require.NoError(t, err)
	_, err = g.Write(random)
	require.NoError(t, err)
	require.Equal(t, zflate.Compressible, g.class)
	require.NoError(t, g.Close())
}

func TestFlush(t *testing.T) {
	name := filepath.Join(t.TempDir(), "flush.gz")
	g, err := Open(name, "w")
	require.NoError(t, err)
	_, err = g.Write([]byte("visible after flush"))
	require.NoError(t, err)
	require.NoError(t, g.Flush())

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	zr, err := flate.NewReader(f, flate.WithDecoderFormat(flate.FormatGzip))
	require.NoError(t, err)
	got := make([]byte, 19)
	_, err = io.ReadFull(zr, got)
	require.NoError(t, err)
	require.Equal(t, "visible after flush", string(got))
	require.NoError(t, g.Close())
}

func TestDopen(t *testing.T) {
	name := filepath.Join(t.TempDir(), "dopen.gz")
	f, err := os.Create(name)
	require.NoError(t, err)
	g, err := Dopen(f, "w")
	require.NoError(t, err)
	_, err = g.Write([]byte("through a handle"))
	require.NoError(t, err)
	require.NoError(t, g.Close())
	require.Error(t, f.Close(), "Close closes the handle")

	f, err = os.Open(name)
	require.NoError(t, err)
	g, err = Dopen(f, "r")
	require.NoError(t, err)
	got, err := io.ReadAll(g)
	require.NoError(t, err)
	require.Equal(t, "through a handle", string(got))
	require.NoError(t, g.Close())

	_, err = Dopen(f, "q")
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "u.gz")

	_, err := Open(name, "r+")
	require.ErrorIs(t, err, ErrInvalidMode)
	_, err = Open(filepath.Join(dir, "missing.gz"), "r")
	require.ErrorIs(t, err, os.ErrNotExist)
	g, err := Open(name, "w12")
	require.NoError(t, err)
	require.Equal(t, 2, g.mode.level, "last digit wins")
	require.NoError(t, g.Close())

	w, err := Open(name, "w")
	require.NoError(t, err)
	_, err = w.Read(make([]byte, 1))
	require.ErrorIs(t, err, flate.ErrStreamState)
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Close(), flate.ErrStreamState)
	_, err = w.Write([]byte("x"))
	require.ErrorIs(t, err, flate.ErrStreamState)
	require.ErrorIs(t, w.Flush(), flate.ErrStreamState)

	_, err = Open(name, "wx")
	require.ErrorIs(t, err, os.ErrExist)

	r, err := Open(name, "r")
	require.NoError(t, err)
	_, err = r.Write([]byte("x"))
	require.ErrorIs(t, err, flate.ErrStreamState)
	require.ErrorIs(t, r.Flush(), flate.ErrStreamState)
	require.NoError(t, r.Close())
}

func TestPgzipInterop(t *testing.T) {
	dir := t.TempDir()
	data := sampleData(2<<20, 5)

	name := filepath.Join(dir, "parallel.gz")
	f, err := os.Create(name)
	require.NoError(t, err)
	pw := pgzip.NewWriter(f)
	require.NoError(t, pw.SetConcurrency(64<<10, 8))
	_, err = pw.Write(data)
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, f.Close())
	require.Equal(t, data, readFile(t, name))

	name = filepath.Join(dir, "ours.gz")
	writeFile(t, name, "w6", data)
	f, err = os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	pr, err := pgzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(pr)
	require.NoError(t, err)
	require.Equal(t, data, got)
}
