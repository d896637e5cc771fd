// Command eats imports and exports EATSML documents and serves the HTTP API.
package main

import (
	"context"
	"eats/internal/cli"
	"fmt"
	"os"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "eats:", err)
		os.Exit(1)
	}
}
