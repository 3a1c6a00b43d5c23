// Command serve serves the current directory without livereload
package main

import (
	"os"

	"github.com/matthewmueller/devserve/internal/cli"
)

func main() {
	os.Exit(cli.Main("serve", os.Args[1:], false))
}
