// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"log"

	"github.com/klauspost/zflate/internal/godebug"
)

// debug enables logging of stream events. Set GODEBUG=zflatedebug=1.
var debug = godebug.Enabled("zflatedebug")

func println(a ...interface{}) {
	if debug {
		log.Println(a...)
	}
}

func printf(format string, a ...interface{}) {
	if debug {
		log.Printf(format, a...)
	}
}
