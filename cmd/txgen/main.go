package main

import (
	"fmt"
	"os"

	"github.com/jamesenki/payments-ingestion-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "txgen:", err)
		os.Exit(1)
	}
}
