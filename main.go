package main

import (
	"os"

	"github.com/gilchrisn/graph-motif-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
