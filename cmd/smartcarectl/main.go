package main

import (
	"os"

	"github.com/Bezalel011/Smartcare/cmd/smartcarectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
