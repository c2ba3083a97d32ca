// syncwatch watches a directory and runs a deploy command once changes settle.
package main

import (
	"os"

	"github.com/hupe1980/syncwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
