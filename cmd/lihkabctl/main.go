package main

import (
	"fmt"
	"os"

	"lihkab/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
