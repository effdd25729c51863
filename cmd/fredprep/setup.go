package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sartorproj/gofredmd/config"
	"github.com/sartorproj/gofredmd/factors"
	"github.com/sartorproj/gofredmd/logging"
	"github.com/sartorproj/gofredmd/pipeline"
	"github.com/sartorproj/gofredmd/tcode"
	"github.com/sartorproj/gofredmd/timeseries"
)

// env is the state shared by every command.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if c.IsSet("out-dir") {
		cfg.Paths.OutputDir = c.String("out-dir")
	}
	if v := c.String("csv"); v != "" {
		cfg.Paths.RawCSV = v
	}
	log, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

// loadVintage reads the raw CSV named by --csv or paths.raw_csv.
func (e *env) loadVintage() (*timeseries.FREDMD, error) {
	path := e.cfg.Paths.RawCSV
	if path == "" {
		return nil, fmt.Errorf("no input CSV: pass --csv or set paths.raw_csv")
	}
	vintage, err := timeseries.LoadFREDMD(path, nil)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Info().
		Str("path", path).
		Int("series", vintage.Panel.Len()).
		Int("rows", vintage.Panel.Rows()).
		Int("tcode_row", vintage.CodeRow).
		Msg("vintage loaded")
	return vintage, nil
}

// codes returns the map at path, falling back to paths.tcode_json and then
// to the codes embedded in the vintage.
func (e *env) codes(path string, vintage *timeseries.FREDMD) (tcode.Map, error) {
	if path == "" {
		path = e.cfg.Paths.TcodeJSON
	}
	if path == "" {
		if len(vintage.Codes) == 0 {
			return nil, nil
		}
		return tcode.ParseMap(vintage.Codes), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := tcode.LoadMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cov := m.Check(vintage.Panel.Names()); !cov.Complete() {
		e.log.Warn().
			Strs("missing", cov.Missing).
			Strs("extra", cov.Extra).
			Msg("transformation codes do not cover the panel")
	}
	return m, nil
}

// groups returns the map at path or paths.group_map, nil for the default.
func (e *env) groups(path string) (*factors.GroupMap, error) {
	if path == "" {
		path = e.cfg.Paths.GroupMap
	}
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gm, err := factors.LoadGroupMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gm, nil
}

// output returns name inside the output directory, creating the directory.
func (e *env) output(name string) (string, error) {
	if err := os.MkdirAll(e.cfg.Paths.OutputDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(e.cfg.Paths.OutputDir, name), nil
}

// observability wires metrics and tracing into opts as configured. The
// returned function flushes both and must be called after the run.
func (e *env) observability(ctx context.Context, opts *pipeline.Options) (func() error, error) {
	var (
		reg *prometheus.Registry
		tp  *sdktrace.TracerProvider
	)
	if e.cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		m, err := pipeline.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}
	if e.cfg.Metrics.Tracing {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		opts.Tracer = tp.Tracer(pipeline.TracerName)
	}

	return func() error {
		if tp != nil {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				return fmt.Errorf("trace shutdown: %w", err)
			}
		}
		if reg != nil {
			if err := prometheus.WriteToTextfile(e.cfg.Metrics.File, reg); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			e.log.Info().Str("path", e.cfg.Metrics.File).Msg("metrics written")
		}
		return nil
	}, nil
}
