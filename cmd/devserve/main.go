// Command devserve serves the current directory and reloads the browser when
// a watched file changes
package main

import (
	"os"

	"github.com/matthewmueller/devserve/internal/cli"
)

func main() {
	os.Exit(cli.Main("devserve", os.Args[1:], true))
}
