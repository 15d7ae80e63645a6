// git-ibundle performs incremental, offline mirroring of a Git repository
// via ibundle files. Installed on PATH it is discoverable by Git as the
// `git ibundle` helper; `git -C <dir> ibundle ...` works because git
// changes the process working directory before running it.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/drmikehenry/git-ibundle/internal/mirror"
)

const (
	statusOK          = 0
	statusError       = 1
	statusEmptyBundle = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, mirror.ErrEmptyRefused) {
			return statusEmptyBundle
		}
		return statusError
	}
	return statusOK
}
