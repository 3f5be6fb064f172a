// Command r3k collects the Russell 3000 holdings of the iShares Russell 3000
// ETF from its N-CSR filings on SEC EDGAR.
//
//	r3k pull -o data/raw -a "Jane Doe jane@example.com"
//	r3k parse -i data/raw -o data/parsed
//	r3k inspect data/raw/2018-09-30_d511496dncsr.htm
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"ncsr_holdings/pkg/core/config"
)

func main() {
	// Load .env if present; the environment wins over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}
	cfg := config.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&pullCmd{cfg: cfg}, "edgar")
	commander.Register(&parseCmd{cfg: cfg}, "holdings")
	commander.Register(&inspectCmd{cfg: cfg}, "holdings")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(int(commander.Execute(ctx)))
}
