package validate

import (
	"io/ioutil"
	"log"
	"os"
)

var debugLog = log.New(ioutil.Discard, "validate: ", log.Lshortfile)

// SetDebugMode toggles per-instruction depth-tracing to stderr.
func SetDebugMode(v bool) {
	w := ioutil.Discard
	if v {
		w = os.Stderr
	}
	debugLog = log.New(w, "validate: ", log.Lshortfile)
}
