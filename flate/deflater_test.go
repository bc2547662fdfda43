package flate

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var allFormats = []Format{FormatRaw, FormatZlib, FormatGzip}

var time1 = time.Unix(1700000000, 0)

func TestRoundTripLevels(t *testing.T) {
	for _, format := range allFormats {
		for level := DefaultCompression; level <= BestCompression; level++ {
			for _, in := range testInputs {
				if testing.Short() && level > 1 && level != 6 {
					continue
				}
				t.Run(fmt.Sprintf("%v/%d/%s", format, level, in.name), func(t *testing.T) {
					data := in.fn()
					eo, do := formatOpts(format)
					d, err := NewDeflater(append(eo, WithEncoderLevel(level))...)
					require.NoError(t, err)
					comp := deflateChunked(t, d, data, len(data), len(data)+1024)
					require.LessOrEqual(t, len(comp), d.Bound(len(data)))
					got, err := decompress(t, comp, do...)
					require.NoError(t, err)
					if diff := cmp.Diff(data, got, cmp.Comparer(bytes.Equal)); diff != "" {
						t.Fatalf("mismatch (-want +got):\n%s", diff)
					}
					require.Equal(t, int64(len(data)), d.TotalIn())
					require.Equal(t, int64(len(comp)), d.TotalOut())
					t.Logf("%d -> %d bytes", len(data), len(comp))
				})
			}
		}
	}
}

func TestRoundTripStrategies(t *testing.T) {
	strategies := []Strategy{StrategyDefault, StrategyFiltered, StrategyHuffmanOnly, StrategyRLE, StrategyFixed}
	for _, s := range strategies {
		for _, level := range []int{1, 4, 9} {
			for _, in := range testInputs {
				t.Run(fmt.Sprintf("%v/%d/%s", s, level, in.name), func(t *testing.T) {
					data := in.fn()
					comp := compress(t, data, WithEncoderFormat(FormatZlib), WithEncoderLevel(level), WithEncoderStrategy(s))
					got, err := decompress(t, comp, WithDecoderFormat(FormatZlib))
					require.NoError(t, err)
					require.True(t, bytes.Equal(data, got))
				})
			}
		}
	}
}

func TestFixedStrategyBlockType(t *testing.T) {
	data := textInput(10000, 7)
	comp := compress(t, data, WithEncoderStrategy(StrategyFixed))
	require.Equal(t, byte(1), comp[0]>>1&3, "first block is not fixed Huffman")

	comp = compress(t, data)
	require.Equal(t, byte(2), comp[0]>>1&3, "first block is not dynamic Huffman")
}

func TestWindowAndMemLevel(t *testing.T) {
	data := textInput(100<<10, 8)
	data = append(data, data[:20000]...)
	for wbits := minWindowBits; wbits <= maxWindowBits; wbits++ {
		for mem := 1; mem <= maxMemLevel; mem++ {
			for _, level := range []int{1, 6} {
				comp := compress(t, data, WithEncoderFormat(FormatZlib), WithEncoderWindow(wbits),
					WithEncoderMemLevel(mem), WithEncoderLevel(level))
				// The header announces the window actually used.
				require.Equal(t, byte(max(wbits, 9)-8), comp[0]>>4, "window %d", wbits)
				got, err := decompress(t, comp, WithDecoderFormat(FormatZlib), WithDecoderWindow(max(wbits, 9)))
				require.NoError(t, err, "window %d mem %d level %d", wbits, mem, level)
				require.True(t, bytes.Equal(data, got), "window %d mem %d level %d", wbits, mem, level)
			}
		}
	}
}

func TestDecoderWindowTooSmall(t *testing.T) {
	comp := compress(t, textInput(1000, 1), WithEncoderFormat(FormatZlib))
	_, err := decompress(t, comp, WithDecoderFormat(FormatZlib), WithDecoderWindow(10))
	require.ErrorIs(t, err, ErrHeader)
	require.ErrorIs(t, err, ErrData)
}

func TestChunkedDeflate(t *testing.T) {
	data := textInput(150<<10, 9)
	data = append(data, randomInput(20000, 10)...)
	sizes := []struct{ in, out int }{
		{1, 1 << 20}, {1 << 20, 1}, {7, 13}, {4096, 100}, {65536, 65536}, {300, 5000},
	}
	for _, format := range allFormats {
		for _, sz := range sizes {
			if testing.Short() && (sz.in == 1 || sz.out == 1) {
				continue
			}
			eo, do := formatOpts(format)
			d, err := NewDeflater(eo...)
			require.NoError(t, err)
			comp := deflateChunked(t, d, data, sz.in, sz.out)
			f, err := NewInflater(do...)
			require.NoError(t, err)
			got, err := inflateChunked(t, f, comp, sz.out, sz.in)
			require.NoError(t, err, "%v %+v", format, sz)
			require.True(t, bytes.Equal(data, got), "%v %+v", format, sz)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	require.Equal(t, []byte{0x03, 0x00}, compress(t, nil))
	require.Equal(t, []byte{0x03, 0x00}, compress(t, nil, WithEncoderLevel(0)))
	require.Equal(t, []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01}, compress(t, nil, WithEncoderFormat(FormatZlib)))

	gz := compress(t, nil, WithEncoderFormat(FormatGzip))
	require.Len(t, gz, 20)
	require.Equal(t, []byte{0x1f, 0x8b, 8}, gz[:3])
	require.Equal(t, byte(OSUnknown), gz[9])
	require.Equal(t, make([]byte, 8), gz[12:])

	for _, format := range allFormats {
		eo, do := formatOpts(format)
		got, err := decompress(t, compress(t, nil, eo...), do...)
		require.NoError(t, err)
		require.Empty(t, got)
	}
}

func TestQuickBrownFox(t *testing.T) {
	require.Len(t, foxText, 40)
	for _, format := range allFormats {
		eo, do := formatOpts(format)
		comp := compress(t, []byte(foxText), eo...)
		if format != FormatGzip {
			require.Less(t, len(comp), len(foxText), "%v", format)
		}
		got, err := decompress(t, comp, do...)
		require.NoError(t, err)
		require.Equal(t, foxText, string(got))
	}
	// The repeat must be a back-reference: the raw form is well below
	// what 40 fixed Huffman literals would take.
	require.Less(t, len(compress(t, []byte(foxText))), 32)
}

func TestZlibHeaderLevels(t *testing.T) {
	for level, flevel := range map[int]byte{0: 0, 1: 0, 2: 1, 5: 1, 6: 2, DefaultCompression: 2, 7: 3, 9: 3} {
		comp := compress(t, nil, WithEncoderFormat(FormatZlib), WithEncoderLevel(level))
		require.Equal(t, byte(0x78), comp[0])
		require.Equal(t, flevel, comp[1]>>6, "level %d", level)
		require.Zero(t, (uint16(comp[0])<<8|uint16(comp[1]))%31)
	}
	comp := compress(t, nil, WithEncoderFormat(FormatZlib), WithEncoderLevel(9), WithEncoderStrategy(StrategyHuffmanOnly))
	require.Equal(t, byte(0), comp[1]>>6)
}

func TestGzipHeaderRoundTrip(t *testing.T) {
	hdr := Header{
		Text:    true,
		ModTime: time1,
		Extra:   []byte("extra field"),
		Name:    "file.txt",
		Comment: "a comment",
		OS:      3,
		HCRC:    true,
	}
	data := textInput(5000, 11)
	for _, level := range []int{1, 9} {
		comp := compress(t, data, WithEncoderFormat(FormatGzip), WithEncoderHeader(hdr), WithEncoderLevel(level))
		require.Equal(t, gzipXFL(level, StrategyDefault), comp[8])

		f, err := NewInflater(WithDecoderFormat(FormatGzip))
		require.NoError(t, err)
		require.Nil(t, f.Header())
		got, err := inflateChunked(t, f, comp, 3, 100)
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, got))
		if diff := cmp.Diff(&hdr, f.Header()); diff != "" {
			t.Errorf("header mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestSetHeader(t *testing.T) {
	d, err := NewDeflater(WithEncoderFormat(FormatGzip))
	require.NoError(t, err)
	require.NoError(t, d.SetHeader(&Header{Name: "x", OS: OSUnknown}))

	err = d.SetHeader(&Header{Name: "a\x00b", Comment: "c\x00", Extra: make([]byte, 70000)})
	require.ErrorIs(t, err, ErrInvalidParam)
	require.Contains(t, err.Error(), "3 errors")

	res, err := d.Deflate(make([]byte, 100), []byte("hi"), NoFlush)
	require.NoError(t, err)
	require.Positive(t, res.Written)
	require.ErrorIs(t, d.SetHeader(&Header{}), ErrHeaderNotAllowed)

	raw, err := NewDeflater()
	require.NoError(t, err)
	require.ErrorIs(t, raw.SetHeader(&Header{}), ErrHeaderNotAllowed)
	_, err = NewDeflater(WithEncoderHeader(Header{}))
	require.ErrorIs(t, err, ErrHeaderNotAllowed)
}

func TestFlushMarkers(t *testing.T) {
	for _, flush := range []Flush{SyncFlush, FullFlush} {
		d, err := NewDeflater()
		require.NoError(t, err)
		buf := make([]byte, 1000)
		res, err := d.Deflate(buf, []byte("hello hello hello"), flush)
		require.NoError(t, err)
		require.Equal(t, StatusNeedInput, res.Status)
		out := buf[:res.Written]
		require.Equal(t, []byte{0, 0, 0xff, 0xff}, out[len(out)-4:], "%v", flush)

		// A repeated flush adds nothing.
		res, err = d.Deflate(buf, nil, flush)
		require.NoError(t, err)
		require.Zero(t, res.Written)

		f, err := NewInflater()
		require.NoError(t, err)
		res, err = f.Inflate(buf, out, NoFlush)
		require.NoError(t, err)
		require.Equal(t, StatusNeedInput, res.Status)
		require.Equal(t, "hello hello hello", string(buf[:res.Written]))
	}
}

func TestPartialFlush(t *testing.T) {
	d, err := NewDeflater(WithEncoderFormat(FormatZlib))
	require.NoError(t, err)
	var comp []byte
	buf := make([]byte, 1000)
	want := textInput(300, 12)
	res, err := d.Deflate(buf, want, PartialFlush)
	require.NoError(t, err)
	comp = append(comp, buf[:res.Written]...)

	f, err := NewInflater(WithDecoderFormat(FormatZlib))
	require.NoError(t, err)
	out := make([]byte, 1000)
	ires, err := f.Inflate(out, comp, NoFlush)
	require.NoError(t, err)
	require.Equal(t, string(want), string(out[:ires.Written]))

	// The stream continues normally after the marker.
	more := textInput(500, 13)
	comp = append(comp, deflateChunked(t, d, more, len(more), 100)...)
	got, err := decompress(t, comp, WithDecoderFormat(FormatZlib))
	require.NoError(t, err)
	require.Equal(t, string(want)+string(more), string(got))
}

func TestBlockFlush(t *testing.T) {
	d, err := NewDeflater()
	require.NoError(t, err)
	var comp []byte
	buf := make([]byte, 4096)
	data := textInput(20000, 14)
	for i := 0; i < len(data); i += 1000 {
		res, err := d.Deflate(buf, data[i:i+1000], BlockFlush)
		require.NoError(t, err)
		require.Equal(t, 1000, res.Read)
		comp = append(comp, buf[:res.Written]...)
	}
	comp = append(comp, deflateChunked(t, d, nil, 0, 100)...)
	got, err := decompress(t, comp)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))
}

func TestParams(t *testing.T) {
	a, b, c := textInput(50000, 15), randomInput(10000, 16), textInput(50000, 17)
	d, err := NewDeflater(WithEncoderFormat(FormatGzip), WithEncoderLevel(1))
	require.NoError(t, err)
	var comp []byte
	buf := make([]byte, 1<<20)
	for _, step := range []struct {
		in       []byte
		level    int
		strategy Strategy
	}{{a, 9, StrategyDefault}, {b, 0, StrategyDefault}, {c, 5, StrategyRLE}} {
		res, err := d.Deflate(buf, step.in, NoFlush)
		require.NoError(t, err)
		require.Equal(t, len(step.in), res.Read)
		comp = append(comp, buf[:res.Written]...)
		require.NoError(t, d.Params(step.level, step.strategy))
	}
	comp = append(comp, deflateChunked(t, d, nil, 0, 1000)...)
	got, err := decompress(t, comp, WithDecoderFormat(FormatGzip))
	require.NoError(t, err)
	require.True(t, bytes.Equal(append(append(a, b...), c...), got))

	require.ErrorIs(t, d.Params(6, StrategyDefault), ErrStreamState)
	d2, err := NewDeflater()
	require.NoError(t, err)
	require.ErrorIs(t, d2.Params(10, StrategyDefault), ErrInvalidParam)
	require.ErrorIs(t, d2.Params(6, Strategy(9)), ErrUsage)
}

func TestTuning(t *testing.T) {
	require.Equal(t, Tuning{Good: 8, Lazy: 16, Nice: 128, Chain: 128}, DefaultTuning(6))
	require.Equal(t, DefaultTuning(6), DefaultTuning(DefaultCompression))
	require.Equal(t, Tuning{Good: 4, Lazy: 4, Nice: 8, Chain: 4}, DefaultTuning(1))

	data := textInput(100000, 18)
	for _, tun := range []Tuning{
		{Good: 4, Lazy: 8, Nice: 16, Chain: 8},
		{Good: 258, Lazy: 258, Nice: 258, Chain: 8192},
		{},
	} {
		for _, level := range []int{2, 7} {
			comp := compress(t, data, WithEncoderTuning(tun), WithEncoderLevel(level))
			got, err := decompress(t, comp)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, got), "%+v level %d", tun, level)
		}
	}
	_, err := NewDeflater(WithEncoderTuning(Tuning{Nice: 300}))
	require.ErrorIs(t, err, ErrInvalidParam)
}

func TestInvalidOptions(t *testing.T) {
	for name, opt := range map[string]EOption{
		"level":    WithEncoderLevel(10),
		"level-2":  WithEncoderLevel(-2),
		"window":   WithEncoderWindow(16),
		"window-7": WithEncoderWindow(7),
		"mem":      WithEncoderMemLevel(0),
		"mem-10":   WithEncoderMemLevel(10),
		"format":   WithEncoderFormat(FormatAuto),
		"strategy": WithEncoderStrategy(Strategy(5)),
		"header":   WithEncoderHeader(Header{Name: "\x00"}),
	} {
		_, err := NewDeflater(opt)
		require.ErrorIs(t, err, ErrInvalidParam, name)
		require.ErrorIs(t, err, ErrUsage, name)
	}
	_, err := NewDeflater(WithEncoderFormat(FormatGzip), WithEncoderDict([]byte("abc")))
	require.ErrorIs(t, err, ErrDictionaryNotAllowed)
}

func TestDeflaterStateErrors(t *testing.T) {
	d, err := NewDeflater()
	require.NoError(t, err)
	buf := make([]byte, 100)
	_, err = d.Deflate(buf, nil, Flush(42))
	require.ErrorIs(t, err, ErrInvalidParam)

	// Finishing into a tiny buffer leaves the stream in the finishing state.
	res, err := d.Deflate(buf[:1], []byte("data data data"), FinishFlush)
	require.NoError(t, err)
	require.Equal(t, StatusNeedOutput, res.Status)
	_, err = d.Deflate(buf, []byte("more"), FinishFlush)
	require.ErrorIs(t, err, ErrStreamState)
	_, err = d.Deflate(buf, nil, NoFlush)
	require.ErrorIs(t, err, ErrStreamState)
	require.ErrorIs(t, d.SetDictionary([]byte("x")), ErrStreamState)

	res, err = d.Deflate(buf[1:], nil, FinishFlush)
	require.NoError(t, err)
	require.Equal(t, StatusStreamEnd, res.Status)
	_, err = d.Deflate(buf, nil, FinishFlush)
	require.ErrorIs(t, err, ErrStreamState)

	require.NoError(t, d.Reset())
	comp := deflateChunked(t, d, []byte("again"), 5, 100)
	got, err := decompress(t, comp)
	require.NoError(t, err)
	require.Equal(t, "again", string(got))

	require.NoError(t, d.End())
	require.ErrorIs(t, d.End(), ErrStreamState)
	_, err = d.Deflate(buf, nil, NoFlush)
	require.ErrorIs(t, err, ErrStreamState)
	_, err = d.Copy()
	require.ErrorIs(t, err, ErrStreamState)
	require.ErrorIs(t, d.Reset(), ErrStreamState)

	// A zero Deflater has no buffers and refuses every call.
	var zero Deflater
	_, err = zero.Deflate(buf, []byte("abc"), NoFlush)
	require.ErrorIs(t, err, ErrStreamState)
	require.ErrorIs(t, err, ErrUsage)
	require.ErrorIs(t, zero.SetDictionary([]byte("abc")), ErrStreamState)
	_, err = zero.GetDictionary()
	require.ErrorIs(t, err, ErrStreamState)
	require.ErrorIs(t, zero.SetHeader(&Header{}), ErrStreamState)
	require.ErrorIs(t, zero.Params(1, StrategyDefault), ErrStreamState)
	_, err = zero.Copy()
	require.ErrorIs(t, err, ErrStreamState)
	require.ErrorIs(t, zero.Reset(), ErrStreamState)
	require.ErrorIs(t, zero.End(), ErrStreamState)
}

func TestResetRejectedOptions(t *testing.T) {
	dict := textInput(2000, 20)
	data := textInput(5000, 21)
	d, err := NewDeflater(WithEncoderDict(dict))
	require.NoError(t, err)

	// A rejected Reset leaves the current stream untouched.
	require.ErrorIs(t, d.Reset(WithEncoderFormat(FormatGzip)), ErrDictionaryNotAllowed)
	require.ErrorIs(t, d.Reset(WithEncoderHeader(Header{Name: "x"})), ErrHeaderNotAllowed)
	comp := deflateChunked(t, d, data, 1000, 1000)
	got, err := decompress(t, comp, WithDecoderDict(dict))
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))
}

func TestResetOptions(t *testing.T) {
	d, err := NewDeflater(WithEncoderWindow(9))
	require.NoError(t, err)
	data := textInput(20000, 19)
	deflateChunked(t, d, data, 1000, 1000)
	require.NoError(t, d.Reset(WithEncoderFormat(FormatZlib), WithEncoderWindow(15)))
	comp := deflateChunked(t, d, data, 1000, 1000)
	require.Equal(t, byte(0x78), comp[0])
	got, err := decompress(t, comp, WithDecoderFormat(FormatZlib))
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))
}

func TestDeflateDictionary(t *testing.T) {
	dict := textInput(20000, 20)
	data := append([]byte(nil), dict[5000:9000]...)

	t.Run("raw", func(t *testing.T) {
		plain := compress(t, data)
		comp := compress(t, data, WithEncoderDict(dict))
		require.Less(t, len(comp), len(plain)/2)

		_, err := decompress(t, comp)
		require.Error(t, err, "history is needed")
		got, err := decompress(t, comp, WithDecoderDict(dict))
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, got))

		f, err := NewInflater()
		require.NoError(t, err)
		require.NoError(t, f.SetDictionary(dict))
		got, err = inflateChunked(t, f, comp, 10, 10)
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, got))
	})

	t.Run("raw-between-flushes", func(t *testing.T) {
		d, err := NewDeflater()
		require.NoError(t, err)
		buf := make([]byte, 1<<16)
		res, err := d.Deflate(buf, []byte("first part"), SyncFlush)
		require.NoError(t, err)
		first := append([]byte(nil), buf[:res.Written]...)
		require.NoError(t, d.SetDictionary(dict))
		rest := deflateChunked(t, d, data, len(data), 1000)

		f, err := NewInflater()
		require.NoError(t, err)
		ires, err := f.Inflate(buf, first, NoFlush)
		require.NoError(t, err)
		require.Equal(t, StatusNeedInput, ires.Status)
		require.Equal(t, "first part", string(buf[:ires.Written]))
		require.NoError(t, f.SetDictionary(dict))
		got, err := inflateChunked(t, f, rest, 100, 100)
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, got))
	})

	t.Run("zlib", func(t *testing.T) {
		comp := compress(t, data, WithEncoderFormat(FormatZlib), WithEncoderDict(dict))
		require.NotZero(t, comp[1]&zlibFDict)

		f, err := NewInflater(WithDecoderFormat(FormatZlib))
		require.NoError(t, err)
		out := make([]byte, len(data))
		res, err := f.Inflate(out, comp, FinishFlush)
		require.NoError(t, err)
		require.Equal(t, StatusNeedDict, res.Status)
		require.Equal(t, 6, res.Read)

		err = f.SetDictionary(dict[1:])
		require.ErrorIs(t, err, ErrDictionaryMismatch)
		require.ErrorIs(t, err, ErrData)
		require.NoError(t, f.SetDictionary(dict))
		res, err = f.Inflate(out, comp[6:], FinishFlush)
		require.NoError(t, err)
		require.Equal(t, StatusStreamEnd, res.Status)
		require.True(t, bytes.Equal(data, out[:res.Written]))

		got, err := decompress(t, comp, WithDecoderFormat(FormatZlib), WithDecoderDict(dict))
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, got))

		_, err = decompress(t, comp, WithDecoderFormat(FormatZlib), WithDecoderDict(dict[:100]))
		require.ErrorIs(t, err, ErrNeedDictionary)
	})

	t.Run("not-allowed", func(t *testing.T) {
		d, err := NewDeflater(WithEncoderFormat(FormatGzip))
		require.NoError(t, err)
		require.ErrorIs(t, d.SetDictionary(dict), ErrDictionaryNotAllowed)

		d, err = NewDeflater(WithEncoderFormat(FormatZlib))
		require.NoError(t, err)
		_, err = d.Deflate(make([]byte, 100), []byte("x"), NoFlush)
		require.NoError(t, err)
		require.ErrorIs(t, d.SetDictionary(dict), ErrDictionaryNotAllowed)

		d, err = NewDeflater()
		require.NoError(t, err)
		_, err = d.Deflate(make([]byte, 100), []byte("pending input"), NoFlush)
		require.NoError(t, err)
		require.ErrorIs(t, d.SetDictionary(dict), ErrDictionaryNotAllowed)
	})
}

func TestGetDictionary(t *testing.T) {
	data := textInput(100000, 21)
	d, err := NewDeflater()
	require.NoError(t, err)
	comp := deflateChunked(t, d, data, 999, 1<<20)
	hist, err := d.GetDictionary()
	require.NoError(t, err)
	// Sliding keeps at least a window minus the lookahead.
	require.True(t, bytes.HasSuffix(data, hist))
	require.GreaterOrEqual(t, len(hist), 32768-minLookahead)
	require.LessOrEqual(t, len(hist), 32768)

	f, err := NewInflater()
	require.NoError(t, err)
	_, err = inflateChunked(t, f, comp, 1000, 1000)
	require.NoError(t, err)
	hist, err = f.GetDictionary()
	require.NoError(t, err)
	require.True(t, bytes.Equal(data[len(data)-32768:], hist))

	small, err := NewDeflater()
	require.NoError(t, err)
	deflateChunked(t, small, []byte("short"), 5, 100)
	hist, err = small.GetDictionary()
	require.NoError(t, err)
	require.Equal(t, "short", string(hist))
}

func TestDeflaterCopy(t *testing.T) {
	a, b, c := textInput(70000, 22), textInput(30000, 23), randomInput(5000, 24)
	d, err := NewDeflater(WithEncoderFormat(FormatZlib))
	require.NoError(t, err)
	buf := make([]byte, 1<<20)
	res, err := d.Deflate(buf, a, NoFlush)
	require.NoError(t, err)
	prefix := append([]byte(nil), buf[:res.Written]...)

	d2, err := d.Copy()
	require.NoError(t, err)
	require.Equal(t, d.Adler(), d2.Adler())
	outB := append(append([]byte(nil), prefix...), deflateChunked(t, d, b, 1000, 1000)...)
	outC := append(append([]byte(nil), prefix...), deflateChunked(t, d2, c, 1000, 1000)...)

	got, err := decompress(t, outB, WithDecoderFormat(FormatZlib))
	require.NoError(t, err)
	require.True(t, bytes.Equal(append(append([]byte(nil), a...), b...), got))
	got, err = decompress(t, outC, WithDecoderFormat(FormatZlib))
	require.NoError(t, err)
	require.True(t, bytes.Equal(append(append([]byte(nil), a...), c...), got))
}

func TestDeflaterAllocator(t *testing.T) {
	_, err := NewDeflater(WithEncoderAllocator(&failingAllocator{}))
	require.ErrorIs(t, err, ErrMemory)
	require.ErrorIs(t, err, ErrResource)
	require.False(t, errors.Is(err, ErrUsage))

	alloc := &failingAllocator{ok: 1}
	d, err := NewDeflater(WithEncoderAllocator(alloc))
	require.NoError(t, err)
	_, err = d.Copy()
	require.ErrorIs(t, err, ErrMemory)

	// The original is still usable.
	comp := deflateChunked(t, d, []byte("still works"), 100, 100)
	got, err := decompress(t, comp)
	require.NoError(t, err)
	require.Equal(t, "still works", string(got))
	require.NoError(t, d.End())
	require.Equal(t, 1, alloc.freed)
}

func TestBound(t *testing.T) {
	for _, format := range allFormats {
		for _, level := range []int{0, 1, 6, 9} {
			for _, s := range []Strategy{StrategyDefault, StrategyHuffmanOnly, StrategyFixed} {
				d, err := NewDeflater(WithEncoderFormat(format), WithEncoderLevel(level), WithEncoderStrategy(s))
				require.NoError(t, err)
				prev := 0
				for _, n := range []int{0, 1, 100, 16383, 16384, 65535, 65536, 200000} {
					bound := d.Bound(n)
					require.GreaterOrEqual(t, bound, prev)
					prev = bound
					in := randomInput(n, int64(n))
					require.NoError(t, d.Reset())
					buf := make([]byte, bound)
					res, err := d.Deflate(buf, in, FinishFlush)
					require.NoError(t, err)
					require.Equal(t, StatusStreamEnd, res.Status, "%v level %d %v n %d", format, level, s, n)
				}
			}
		}
	}
}

func TestAdler(t *testing.T) {
	data := textInput(10000, 25)
	for format, want := range map[Format]uint32{
		FormatRaw:  1,
		FormatZlib: adlerOf(data),
		FormatGzip: crcOf(data),
	} {
		d, err := NewDeflater(WithEncoderFormat(format))
		require.NoError(t, err)
		deflateChunked(t, d, data, 777, 1<<16)
		require.Equal(t, want, d.Adler(), "%v", format)
	}
}
