// Copyright 2023+ Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// builddict builds a DEFLATE preset dictionary from a directory of samples.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/zflate/dict"
	"github.com/klauspost/zflate/flate"
)

var (
	wantLenFlag   = flag.Int("len", dict.MaxDictSize, "Dictionary size, at most 32768")
	wantHashBytes = flag.Int("hash", 6, "Length of counted strings, 4 to 8")
	wantMaxBytes  = flag.Int("max", 32<<10, "Max input length to index per input file")
	wantOutput    = flag.String("o", "dictionary.bin", "Output name. Empty writes to stdout")
	level         = flag.Int("level", flate.DefaultCompression, "Level used to report the gain, -1 to 9")
	quiet         = flag.Bool("q", false, "Do not print progress")
)

func main() {
	flag.Parse()
	o := dict.Options{
		MaxDictSize: *wantLenFlag,
		HashBytes:   *wantHashBytes,
		Output:      os.Stderr,
	}
	if *quiet {
		o.Output = nil
	}
	base := flag.Arg(0)
	if base == "" {
		log.Fatal("no path with files specified")
	}

	var input [][]byte
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Print(err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			log.Print(err)
			return nil
		}
		defer f.Close()
		b, err := io.ReadAll(io.LimitReader(f, int64(*wantMaxBytes)))
		if err != nil {
			log.Print(err)
			return nil
		}
		if len(b) >= 8 {
			input = append(input, b)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	out, err := dict.Build(input, o)
	if err != nil {
		log.Fatal(err)
	}
	if !*quiet {
		st, err := dict.Measure(out, input, *level)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintf(os.Stderr, "%d samples, %d bytes. Compressed: %d bytes, %d with %d byte dictionary\n",
			len(input), st.Input, st.Plain, st.WithDict, len(out))
	}
	if *wantOutput != "" {
		err = os.WriteFile(*wantOutput, out, 0o666)
	} else {
		_, err = os.Stdout.Write(out)
	}
	if err != nil {
		log.Fatal(err)
	}
}
