// cmd/emberdb/main.go
//
// emberdb - interactive shell over the ember MVCC/SST engine core.
//
// Usage:
//
//	emberdb
//
// Type .help once started for the available commands.
package main

import (
	"fmt"
	"os"

	"ember/internal/elog"
	"ember/pkg/cli"
)

func main() {
	elog.Init(elog.Config{Level: envOr("EMBER_LOG_LEVEL", "INFO"), Format: envOr("EMBER_LOG_FORMAT", "text")})

	repl, err := cli.NewREPL(os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emberdb: %v\n", err)
		os.Exit(1)
	}
	defer repl.Close()

	repl.Run()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
