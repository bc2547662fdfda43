// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

// Package fuzz loads seed corpora for the native fuzz tests.
package fuzz

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"strconv"
	"testing"
)

// AddFromZip adds every file in the zip archive filename to the corpus of f.
// Files in "go test fuzz v1" format are decoded; other files are added
// as-is when raw is set. With short only every tenth file is added.
// A missing archive is skipped so a checkout without testdata still runs.
func AddFromZip(f *testing.F, filename string, raw, short bool) {
	zr, err := zip.OpenReader(filename)
	if errors.Is(err, fs.ErrNotExist) {
		f.Logf("no seed corpus %s", filename)
		return
	}
	if err != nil {
		f.Fatal(err)
	}
	defer zr.Close()
	vals, err := readZip(&zr.Reader, raw, short)
	if err != nil {
		f.Fatalf("%s: %v", filename, err)
	}
	for _, v := range vals {
		f.Add(v)
	}
}

func readZip(zr *zip.Reader, raw, short bool) ([][]byte, error) {
	var out [][]byte
	for i, file := range zr.File {
		if short && i%10 != 0 {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		if raw && !bytes.HasPrefix(b, []byte("go test fuzz")) {
			out = append(out, b)
			continue
		}
		vals, err := unmarshalCorpusFile(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		out = append(out, vals...)
	}
	return out, nil
}

// unmarshalCorpusFile decodes a "go test fuzz v1" file holding []byte values.
func unmarshalCorpusFile(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("cannot unmarshal empty string")
	}
	lines := bytes.Split(b, []byte("\n"))
	if len(lines) < 2 {
		return nil, errors.New("must include version and at least one value")
	}
	vals := make([][]byte, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, err := parseCorpusValue(line)
		if err != nil {
			return nil, fmt.Errorf("malformed line %q: %v", line, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// parseCorpusValue parses a single []byte("...") line.
func parseCorpusValue(line []byte) ([]byte, error) {
	expr, err := parser.ParseExprFrom(token.NewFileSet(), "(test)", line, 0)
	if err != nil {
		return nil, err
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, errors.New("expected call expression")
	}
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("expected call expression with 1 argument; got %d", len(call.Args))
	}
	arrayType, ok := call.Fun.(*ast.ArrayType)
	if !ok || arrayType.Len != nil {
		return nil, errors.New("expected []byte")
	}
	if elt, ok := arrayType.Elt.(*ast.Ident); !ok || elt.Name != "byte" {
		return nil, errors.New("expected []byte")
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return nil, errors.New("string literal required for type []byte")
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
