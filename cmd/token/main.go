package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sheikh-saqib/research-funding-ledger/internal/tools/token"
)

func main() {
	cfg, err := token.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse flags: %v\n", err)
		os.Exit(1)
	}
	if err := token.Run(cfg, os.Stdout, nil, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
		os.Exit(1)
	}
}
