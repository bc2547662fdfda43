// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package godebug reads settings from the $GODEBUG environment variable.
// Needed since internal/godebug is not available here.
package godebug

import (
	"os"
	"strings"
)

// Get returns the value of key in $GODEBUG, or "" if it is not set.
// Later settings override earlier ones and a '#' starts a comment
// that runs to the end of the value.
func Get(key string) string {
	return lookup(os.Getenv("GODEBUG"), key)
}

// Enabled reports whether key is set to "1".
func Enabled(key string) bool {
	return Get(key) == "1"
}

func lookup(env, key string) string {
	var val string
	for _, kv := range strings.Split(env, ",") {
		name, arg, ok := strings.Cut(kv, "=")
		if !ok || name != key {
			continue
		}
		if i := strings.IndexByte(arg, '#'); i >= 0 {
			arg = arg[:i]
		}
		val = arg
	}
	return val
}
