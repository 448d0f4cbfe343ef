// Command putscanner finds puts whose bid is unusually large relative to the
// strike, and looks up the earnings, optionability and volatility context
// around them.
package main

import (
	"context"
	"fmt"
	"os"

	"inflated-puts/internal/cli"
)

func main() {
	root := cli.NewRootCommand(os.Stdout, cli.DefaultBuilder)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
