package main

import (
	"os"

	"github.com/badrx15/ibericosgourmet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
