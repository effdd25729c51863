// Command fredprep prepares a FRED-MD vintage for factor models.
//
// Usage:
//
//	fredprep run --csv current.csv [--tcodes tcodes.json] [--groups groups.yaml]
//	fredprep tcodes --csv current.csv --out tcodes.json
//	fredprep labels --csv current.csv
//	fredprep missing --csv current.csv
//	fredprep stationarity --csv current.csv --transform
//	fredprep screen --csv current.csv --anchor 1960-01-01
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "fredprep",
		Usage:   "FRED-MD preprocessing: transformation codes, seasonal adjustment, grouping and diagnostics",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"FREDMD_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override logging.level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override logging.format (json, console)",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			tcodesCommand(),
			labelsCommand(),
			missingCommand(),
			stationarityCommand(),
			screenCommand(),
		},
	}
}
