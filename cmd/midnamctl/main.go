// MIDNAM Core admin CLI.
//
// midnamctl manages the local device store directly, without a running
// daemon: it lists, reads, writes and deletes MIDNAM records, creates new
// device documents and normalizes files for inspection.
//
// The database is taken from --db, then from the config file named by
// --config or MIDNAM_CONFIG, then from the built-in default.
package main

import (
	"fmt"
	"os"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("Error:"), err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, styleMuted.Render(hint))
		}
		os.Exit(1)
	}
}
