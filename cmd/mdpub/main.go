package main

import (
	"fmt"
	"os"

	"github.com/nerdneilsfield/go-markdown-publisher/internal/cli"
)

// 构建时通过 -ldflags 注入
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(version, commit, buildDate)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
