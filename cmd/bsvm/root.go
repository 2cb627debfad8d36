package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/bsvm"
	"github.com/hupe1980/bsvm/config"
	"github.com/hupe1980/bsvm/diag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	configPath  string
	logLevel    string
	jsonLogs    bool
	metricsAddr string
	stageDir    string
	quiet       bool
	exitOnFatal bool

	zap     *zap.Logger
	metrics bsvm.MetricsCollector
	server  *http.Server
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bsvm",
		Short:         "Budgeted kernel learning toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Parameter file (yaml, json or toml); BSVM_* environment variables override it")
	pf.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.BoolVar(&a.jsonLogs, "json-logs", false, "Write logs as JSON")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.StringVar(&a.stageDir, "stage-dir", "", "Stage remote objects in this local directory before reading")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Disable the progress bar")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bsvm v%s\n", version)
		},
	})
	root.AddCommand(newScanCmd(a), newValidateCmd(a), newMaintainCmd(a))
	return root
}

func (a *app) setup() error {
	level, err := zapcore.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	if a.jsonLogs {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if a.zap, err = zc.Build(); err != nil {
		return err
	}

	if a.metricsAddr == "" {
		a.metrics = &bsvm.BasicMetricsCollector{}
		return nil
	}
	reg := prometheus.NewRegistry()
	pc, err := bsvm.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}
	a.metrics = pc

	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.zap.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.server != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	if a.zap != nil {
		_ = a.zap.Sync()
	}
	return nil
}

func (a *app) sink() diag.Sink {
	s := diag.Sink(diag.NewZapSink(a.zap))
	if a.exitOnFatal {
		s = diag.ExitOnFatal(s)
	}
	return s
}

func (a *app) logger() *bsvm.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(a.logLevel))); err != nil {
		level = slog.LevelWarn
	}
	if a.jsonLogs {
		return bsvm.NewJSONLogger(level)
	}
	return bsvm.NewTextLogger(level)
}

// params loads the parameter file and applies the flags that were set on
// cmd, then validates the result.
func (a *app) params(cmd *cobra.Command, apply func(p *config.Params) error) (config.Params, error) {
	p, err := config.Load(a.configPath)
	if err != nil {
		return config.Params{}, err
	}
	if apply != nil {
		if err := apply(&p); err != nil {
			return config.Params{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return config.Params{}, err
	}
	return p, nil
}

func (a *app) toolkit(p config.Params) (*bsvm.Toolkit, error) {
	return bsvm.New(p,
		bsvm.WithLogger(a.logger()),
		bsvm.WithSink(a.sink()),
		bsvm.WithMetricsCollector(a.metrics),
	)
}
