package main

import (
	"os"

	"github.com/novvoo/go-pdfdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
