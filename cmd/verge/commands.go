package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"verge/internal/app"
	brcfg "verge/internal/config"
	"verge/internal/decision"
	"verge/internal/logger"
	"verge/internal/types"
)

const (
	configEnv         = "VERGE_CONFIG"
	defaultConfigPath = "configs/config.yaml"
)

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "verge",
		Short:         "Opportunity hunting engine for crypto futures",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), resolveConfigPath(cfgPath))
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default $"+configEnv+" or "+defaultConfigPath+")")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the monitor, the scanner and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), resolveConfigPath(cfgPath))
		},
	})
	root.AddCommand(newEvaluateCmd(&cfgPath))
	return root
}

func resolveConfigPath(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(configEnv)); p != "" {
		return p
	}
	return defaultConfigPath
}

func loadConfig(path string) (*brcfg.Config, func(), error) {
	cfg, err := brcfg.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	return cfg, func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}, nil
}

func runServe(ctx context.Context, path string) error {
	cfg, closeLog, err := loadConfig(path)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Infof("config loaded (env=%s, path=%s)", cfg.App.Env, path)

	if stop, err := brcfg.WatchLogLevel(path); err != nil {
		logger.Warnf("config watch disabled: %v", err)
	} else {
		defer stop()
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Infof("shutdown complete")
	return nil
}

type evaluateOptions struct {
	timeframe string
	style     string
	direction string
	universe  []string
	top       int
	output    string
}

func newEvaluateCmd(cfgPath *string) *cobra.Command {
	opts := evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate SYMBOL",
		Short: "Score one symbol, or AUTO over a universe, without opening a session",
		Example: `  verge evaluate BTCUSDT --timeframe 1h --style Swing
  verge evaluate AUTO --universe ETHUSDT,SOLUSDT --output text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), resolveConfigPath(*cfgPath), args[0], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.timeframe, "timeframe", "15m", "session timeframe")
	cmd.Flags().StringVar(&opts.style, "style", string(types.StyleAuto), "trading style or Auto")
	cmd.Flags().StringVar(&opts.direction, "direction", string(types.DirectionAuto), "Long, Short or Auto")
	cmd.Flags().StringSliceVar(&opts.universe, "universe", nil, "candidate symbols for AUTO")
	cmd.Flags().IntVar(&opts.top, "top", 3, "number of candidates to print")
	cmd.Flags().StringVar(&opts.output, "output", "yaml", "yaml or text")
	return cmd
}

func runEvaluate(ctx context.Context, path, sym string, opts evaluateOptions, out io.Writer) error {
	if opts.output != "yaml" && opts.output != "text" {
		return fmt.Errorf("unknown output %q", opts.output)
	}
	cfg, closeLog, err := loadConfig(path)
	if err != nil {
		return err
	}
	defer closeLog()
	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.Close()

	req := decision.SearchRequest{
		Symbol:    sym,
		Timeframe: opts.timeframe,
		Universe:  opts.universe,
		Style:     types.ParseStyle(opts.style),
		Direction: types.ParseDirection(opts.direction),
	}
	top, err := a.Explore(ctx, req, opts.top)
	if err != nil {
		return err
	}
	return writeOpportunities(out, opts.output, top)
}

type opportunityView struct {
	Symbol     string    `yaml:"symbol"`
	Timeframe  string    `yaml:"timeframe"`
	Style      string    `yaml:"style"`
	Direction  string    `yaml:"direction"`
	Decision   string    `yaml:"decision"`
	Score      int       `yaml:"score"`
	Confidence string    `yaml:"confidence"`
	Reason     string    `yaml:"reason"`
	EntryZone  []float64 `yaml:"entry_zone,omitempty"`
}

func writeOpportunities(out io.Writer, format string, ops []decision.Opportunity) error {
	views := make([]opportunityView, 0, len(ops))
	for _, op := range ops {
		v := opportunityView{
			Symbol:     op.Symbol,
			Timeframe:  op.Timeframe,
			Style:      string(op.Style),
			Direction:  string(op.Direction),
			Decision:   op.Result.Decision.String(),
			Score:      op.Result.Score,
			Confidence: string(op.Result.Confidence),
			Reason:     op.Result.Reason,
		}
		if op.Result.EntryMin > 0 && op.Result.EntryMax > 0 {
			v.EntryZone = []float64{op.Result.EntryMin, op.Result.EntryMax}
		}
		views = append(views, v)
	}
	if format == "text" {
		for i, v := range views {
			if _, err := fmt.Fprintf(out, "%d. %s %s %s %s: %s score=%d (%s)\n   %s\n",
				i+1, v.Symbol, v.Timeframe, v.Style, v.Direction, v.Decision, v.Score, v.Confidence, v.Reason); err != nil {
				return err
			}
		}
		return nil
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return err
	}
	return enc.Close()
}
