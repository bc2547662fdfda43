package dict

import (
	"bytes"
	stdzlib "compress/zlib"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klauspost/zflate/flate"
)

func records(n int, seed int64) [][]byte {
	rng := rand.New(rand.NewSource(seed))
	cities := []string{"Copenhagen", "Aarhus", "Odense", "Aalborg", "Esbjerg"}
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf(`{"id":%d,"type":"measurement","sensor":{"city":%q,"model":"TX-%d"},"values":{"temperature":%d.%d,"humidity":%d},"status":"ok"}`,
			rng.Intn(1e6), cities[rng.Intn(len(cities))], rng.Intn(10), rng.Intn(30), rng.Intn(10), rng.Intn(100)))
	}
	return out
}

func TestBuild(t *testing.T) {
	samples := records(500, 1)
	d, err := Build(samples, Options{MaxDictSize: 2048})
	require.NoError(t, err)
	require.NotEmpty(t, d)
	require.LessOrEqual(t, len(d), 2048)

	d, err = Build(samples, Options{MaxDictSize: 1 << 20, HashBytes: 4})
	require.NoError(t, err)
	require.LessOrEqual(t, len(d), MaxDictSize)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil, Options{})
	require.Error(t, err)
	_, err = Build(records(10, 1), Options{HashBytes: 3})
	require.Error(t, err)
	_, err = Build([][]byte{[]byte("short")}, Options{})
	require.Error(t, err)
}

func TestMeasure(t *testing.T) {
	samples := records(500, 2)
	d, err := Build(samples, Options{MaxDictSize: 4096, Output: io.Discard})
	require.NoError(t, err)

	st, err := Measure(d, samples, flate.BestCompression)
	require.NoError(t, err)
	require.Positive(t, st.Input)
	require.Less(t, st.WithDict, st.Plain)

	_, err = Measure(d, samples, 12)
	require.ErrorIs(t, err, flate.ErrInvalidParam)
}

func TestDictionaryRoundTrip(t *testing.T) {
	d, err := Build(records(300, 3), Options{MaxDictSize: 4096})
	require.NoError(t, err)
	msg := records(1, 4)[0]

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.WithEncoderFormat(flate.FormatZlib), flate.WithEncoderDict(d))
	require.NoError(t, err)
	_, err = w.Write(msg)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	compressed := buf.Bytes()

	r, err := flate.NewReader(bytes.NewReader(compressed),
		flate.WithDecoderFormat(flate.FormatZlib), flate.WithDecoderDict(d))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, msg, got)

	sr, err := stdzlib.NewReaderDict(bytes.NewReader(compressed), d)
	require.NoError(t, err)
	got, err = io.ReadAll(sr)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}
