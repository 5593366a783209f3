package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iudanet/chatsync/internal/client/cli"
	"github.com/iudanet/chatsync/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	version := fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit)

	err := cli.Execute(context.Background(), cli.StdOpener(iocli.NewStdio(), os.Stderr), version, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
