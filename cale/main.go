package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/dalenavi/cascade-ledger-sub003/cmd"
)

func main() {
	// GEMINI_API_KEY and friends may live in a local .env file.
	godotenv.Load()

	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion registers shell completion and exits early when invoked by the
// shell completion hook.
func completion() {
	globals := map[string]complete.Predictor{
		"ledger-file":    predict.Files("*.jsonl"),
		"account-config": predict.Files("*.json"),
		"v":              predict.Nothing,
	}
	cale := &complete.Command{
		Flags: globals,
		Sub: map[string]*complete.Command{
			"import":    {Args: predict.Files("*.csv")},
			"tx":        {},
			"fmt":       {},
			"coverage":  {Args: predict.Files("*.csv")},
			"balances":  {Args: predict.Files("*.csv")},
			"reconcile": {Args: predict.Files("*.csv")},
			"topic":     {},
		},
	}
	cale.Complete("cale")
}
