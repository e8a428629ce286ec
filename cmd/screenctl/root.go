package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"MomentumScreener/internal/di"
	"MomentumScreener/internal/domain/models"
	"MomentumScreener/internal/presenter"
	"MomentumScreener/internal/usecase"
	"MomentumScreener/pkg/config"
	xhttp "MomentumScreener/pkg/http"
	xlogger "MomentumScreener/pkg/logger"
	"MomentumScreener/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

type runOptions struct {
	configPath string
	symbols    string
	maxSymbols int
	fake       bool
	compact    bool
	rejected   bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "screenctl",
		Short:         "Run momentum screens from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one screening pass and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runScreen(ctx, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file path (defaults are used when empty)")
	f.StringVar(&opts.symbols, "symbols", "", "comma separated symbols to screen instead of the configured source")
	f.IntVar(&opts.maxSymbols, "max-symbols", 0, "cap on the number of symbols taken from the source")
	f.BoolVar(&opts.fake, "fake", false, "use the deterministic fake providers")
	f.BoolVar(&opts.compact, "compact", false, "print compact JSON")
	f.BoolVar(&opts.rejected, "rejected", false, "also print rejected symbols with their reason")
	return cmd
}

// runOutput is the screen-stocks document plus run metadata.
type runOutput struct {
	RunID     string `json:"run_id"`
	Evaluated int    `json:"evaluated"`
	presenter.ScreenDocument
	Rejected []presenter.StockView `json:"rejected,omitempty"`
}

func runScreen(ctx context.Context, opts *runOptions, out io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.fake {
		cfg.Providers.History = config.ProviderFake
		cfg.Providers.Fundamentals = config.ProviderFake
	}
	cfg.Logging.Output = "stderr"

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	rec := metrics.New(prometheus.NewRegistry())
	providers, err := di.ProvideProviders(cfg, rec, logger)
	if err != nil {
		return err
	}
	if providers.ConfigErr != nil {
		return fmt.Errorf("provider not configured: %w", providers.ConfigErr)
	}
	store := di.ProvideCacheStore(cfg, nil)
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}
	pipeline := di.ProvidePipeline(cfg, providers, store, rec, logger)
	svc := di.ProvideScreeningService(cfg, providers, pipeline, nil, rec, logger)

	var rejected []models.ScreenOutcome
	res, err := svc.Screen(ctx, usecase.ScreenParams{
		Symbols:    xhttp.ParseCSV(opts.symbols),
		MaxSymbols: opts.maxSymbols,
		OnOutcome: func(o models.ScreenOutcome) {
			if opts.rejected && !o.Accepted() {
				rejected = append(rejected, o)
			}
		},
	})
	if err != nil {
		return err
	}

	logger.Info("screen finished",
		xlogger.String("run_id", res.RunID),
		xlogger.Int("evaluated", res.Evaluated),
		xlogger.Int("rejected", len(rejected)),
	)

	doc := runOutput{
		RunID:          res.RunID,
		Evaluated:      res.Evaluated,
		ScreenDocument: presenter.Result(res),
	}
	if len(rejected) > 0 {
		doc.Rejected = presenter.Outcomes(rejected)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if opts.compact {
		b = pretty.Ugly(b)
	} else {
		b = pretty.Pretty(b)
	}
	_, err = out.Write(b)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadWithEnv(path)
}
