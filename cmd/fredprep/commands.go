package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sartorproj/gofredmd/diagnostics"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/export"
	"github.com/sartorproj/gofredmd/pipeline"
	"github.com/sartorproj/gofredmd/tcode"
	"github.com/sartorproj/gofredmd/timeseries"
)

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "csv",
			Usage: "FRED-MD vintage CSV (default paths.raw_csv)",
		},
		&cli.StringFlag{
			Name:  "out-dir",
			Usage: "Output directory (default paths.output_dir)",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Replace existing output files",
		},
	}
}

func withInput(flags ...cli.Flag) []cli.Flag {
	return append(inputFlags(), flags...)
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Transform, deseasonalize, standardize and group a vintage",
		Flags: withInput(
			&cli.StringFlag{Name: "tcodes", Usage: "Transformation code JSON (default: embedded codes)"},
			&cli.StringFlag{Name: "groups", Usage: "Group map YAML (default: FRED-MD categories)"},
		),
		Action: runPipeline,
	}
}

func runPipeline(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	vintage, err := e.loadVintage()
	if err != nil {
		return err
	}
	codes, err := e.codes(c.String("tcodes"), vintage)
	if err != nil {
		return err
	}
	groups, err := e.groups(c.String("groups"))
	if err != nil {
		return err
	}

	opts, err := e.cfg.PipelineOptions()
	if err != nil {
		return err
	}
	opts.Logger = e.log
	flush, err := e.observability(c.Context, &opts)
	if err != nil {
		return err
	}

	orch, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	res, err := orch.Run(c.Context, pipeline.Input{Panel: vintage.Panel, Codes: codes, Groups: groups})
	if ferr := flush(); ferr != nil {
		e.log.Error().Err(ferr).Msg("flush observability")
	}
	if err != nil {
		return err
	}

	overwrite := c.Bool("overwrite")
	if res.Panel != nil && res.Panel.Len() > 0 {
		path, err := e.output("panel.csv")
		if err != nil {
			return err
		}
		if err := timeseries.SavePanelCSV(res.Panel, path); err != nil {
			return err
		}
	}
	if err := e.saveTables(overwrite, export.StatusTable(res)); err != nil {
		return err
	}
	path, err := e.output("result.json")
	if err != nil {
		return err
	}
	if err := export.SaveResult(path, res, overwrite); err != nil {
		return err
	}
	return e.saveWorkbook("pipeline.xlsx", overwrite,
		export.StatusTable(res),
		export.SummaryTable(res),
		export.MissingnessTable(diagnostics.Missingness(vintage.Panel)),
	)
}

// =============================================================================
// METADATA COMMANDS
// =============================================================================

func tcodesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tcodes",
		Usage: "Extract the embedded transformation codes to JSON with a provenance sidecar",
		Flags: withInput(
			&cli.StringFlag{Name: "out", Usage: "Output JSON (default <out-dir>/tcodes.json)"},
		),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			vintage, err := e.loadVintage()
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				if out, err = e.output("tcodes.json"); err != nil {
					return err
				}
			}
			meta, err := export.WriteTcodeMap(e.cfg.Paths.RawCSV, out, vintage, c.Bool("overwrite"))
			if err != nil {
				return err
			}
			e.log.Info().
				Str("path", out).
				Int("series", meta.NSeries).
				Int("tcode_row", meta.TcodeRow).
				Strs("missing", meta.MissingInTcodes).
				Str("sha256", meta.CSVSHA256).
				Msg("transformation codes written")
			return nil
		},
	}
}

func labelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "labels",
		Usage: "Write the series names of a vintage, one per line",
		Flags: withInput(
			&cli.StringFlag{Name: "out", Usage: "Output file (default <out-dir>/series_labels.txt)"},
		),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			vintage, err := e.loadVintage()
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				if out, err = e.output("series_labels.txt"); err != nil {
					return err
				}
			}
			names := vintage.Panel.Names()
			if err := export.SaveLabels(out, names, c.Bool("overwrite")); err != nil {
				return err
			}
			e.log.Info().Str("path", out).Int("series", len(names)).Msg("series labels written")
			return nil
		},
	}
}

// =============================================================================
// DIAGNOSTIC COMMANDS
// =============================================================================

func missingCommand() *cli.Command {
	return &cli.Command{
		Name:   "missing",
		Usage:  "Report missing values per series and contiguous missing runs",
		Flags:  inputFlags(),
		Action: runMissing,
	}
}

func runMissing(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	vintage, err := e.loadVintage()
	if err != nil {
		return err
	}
	rep := diagnostics.Missingness(vintage.Panel)
	runs := diagnostics.MissingRuns(vintage.Panel)

	e.log.Info().
		Int("series", len(rep.Series)).
		Int("any_missing", rep.Count(func(m diagnostics.SeriesMissingness) bool { return m.Missing > 0 })).
		Int("miss_first", rep.Count(func(m diagnostics.SeriesMissingness) bool { return m.MissFirst })).
		Int("miss_last", rep.Count(func(m diagnostics.SeriesMissingness) bool { return m.MissLast })).
		Int("miss_intermediate", rep.Count(func(m diagnostics.SeriesMissingness) bool { return m.MissIntermediate })).
		Int("runs", len(runs)).
		Msg("missingness")

	overwrite := c.Bool("overwrite")
	tables := []export.Table{export.MissingnessTable(rep), export.RunsTable(runs)}
	if err := e.saveTables(overwrite, tables...); err != nil {
		return err
	}
	return e.saveWorkbook("missingness.xlsx", overwrite, tables...)
}

func transformFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "transform",
			Usage: "Apply transformation codes first (embedded, --tcodes or paths.tcode_json)",
		},
		&cli.StringFlag{Name: "tcodes", Usage: "Transformation code JSON"},
	}
}

func stationarityCommand() *cli.Command {
	return &cli.Command{
		Name:   "stationarity",
		Usage:  "Run ADF and KPSS (and optionally Phillips-Perron) on every series",
		Flags:  withInput(transformFlags()...),
		Action: runStationarity,
	}
}

func runStationarity(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	p, err := e.diagnosticPanel(c)
	if err != nil {
		return err
	}
	results := diagnostics.Stationarity(p, e.cfg.StationarityOptions())
	counts := diagnostics.CountDecisions(results)
	e.log.Info().
		Int("series", len(results)).
		Int("stationary", counts[diagnostics.Stationary]).
		Int("non_stationary", counts[diagnostics.NonStationary]).
		Int("inconclusive", counts[diagnostics.Inconclusive]).
		Msg("stationarity")

	overwrite := c.Bool("overwrite")
	t := export.StationarityTable(results)
	if err := e.saveTables(overwrite, t); err != nil {
		return err
	}
	return e.saveWorkbook("stationarity.xlsx", overwrite, t)
}

func screenCommand() *cli.Command {
	return &cli.Command{
		Name:  "screen",
		Usage: "Pick a training window and drop series breaking the screening rules",
		Flags: withInput(append(transformFlags(),
			&cli.StringFlag{Name: "anchor", Usage: "First date kept, yyyy-mm-dd (default diagnostics.anchor)"},
		)...),
		Action: runScreen,
	}
}

func runScreen(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	if v := c.String("anchor"); v != "" {
		e.cfg.Diagnostics.Anchor = v
		if err := e.cfg.Validate(); err != nil {
			return err
		}
	}
	anchor, err := e.cfg.AnchorTime()
	if err != nil {
		return err
	}
	p, err := e.diagnosticPanel(c)
	if err != nil {
		return err
	}
	sr, err := diagnostics.Screen(p, anchor, e.cfg.ScreenRules(), e.cfg.WindowRules())
	if err != nil {
		return err
	}
	e.log.Info().
		Time("train_start", sr.Window.Start).
		Time("train_end", sr.Window.End).
		Int("kept", len(sr.Kept)).
		Int("dropped", len(sr.Dropped)).
		Msg("screening")

	overwrite := c.Bool("overwrite")
	if sr.Panel.Len() > 0 {
		path, err := e.output("screened.csv")
		if err != nil {
			return err
		}
		if err := timeseries.SavePanelCSV(sr.Panel, path); err != nil {
			return err
		}
	}
	t := export.ScreeningTable(sr)
	if err := e.saveTables(overwrite, t); err != nil {
		return err
	}
	return e.saveWorkbook("screening.xlsx", overwrite, t)
}

// diagnosticPanel loads the vintage and, with --transform, applies codes.
// Series without a usable code are logged and left out.
func (e *env) diagnosticPanel(c *cli.Context) (*timeseries.Panel, error) {
	vintage, err := e.loadVintage()
	if err != nil {
		return nil, err
	}
	if !c.Bool("transform") {
		return vintage.Panel, nil
	}
	codes, err := e.codes(c.String("tcodes"), vintage)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		return nil, fmt.Errorf("--transform: %w", errs.ErrMissingCodeMap)
	}
	p, err := tcode.ApplyPanel(vintage.Panel, codes)
	if err != nil {
		e.log.Warn().Err(err).Int("kept", p.Len()).Msg("some series could not be transformed")
	}
	return p, nil
}

func (e *env) saveTables(overwrite bool, tables ...export.Table) error {
	for _, t := range tables {
		path, err := e.output(t.Name + ".csv")
		if err != nil {
			return err
		}
		if err := export.SaveCSV(path, t, overwrite); err != nil {
			return err
		}
		e.log.Debug().Str("path", path).Int("rows", len(t.Rows)).Msg("table written")
	}
	return nil
}

func (e *env) saveWorkbook(name string, overwrite bool, tables ...export.Table) error {
	path, err := e.output(name)
	if err != nil {
		return err
	}
	if err := export.SaveWorkbook(path, overwrite, tables...); err != nil {
		return err
	}
	e.log.Info().Str("path", path).Msg("workbook written")
	return nil
}
