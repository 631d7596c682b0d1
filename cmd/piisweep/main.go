package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gonkalabs/piisweep-go/internal/cli"
)

func main() {
	err := cli.NewRootCmd().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
