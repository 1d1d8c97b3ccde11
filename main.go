package main

import (
	"fmt"
	"os"

	"github.com/username/secid/backend/src/secidcli"
)

func main() {
	app := secidcli.GetApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
