// Package buildinfo exposes build metadata injected at link time and the
// compile-time build profile of the binary.
package buildinfo

import (
	"fmt"
	"io"
)

// Populated via -ldflags "-X ..." at build time.
var (
	BuildVersion = "N/A"
	BuildDate    = "N/A"
	BuildCommit  = "N/A"
)

// PrintBuildData writes the build metadata to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", BuildVersion)
	fmt.Fprintf(w, "Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "Build commit: %s\n", BuildCommit)
}
