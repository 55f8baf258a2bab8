package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/internal/config"
	"github.com/aretw0/rowflow/internal/logging"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	v      = config.New()
	cfg    = &config.Config{}
	logger = logging.NewNop()
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"no-answer":  "no_answer",
	"auto-fill":  "auto_fill",
	"output":     "output",
	"mode":       "mode",
	"port":       "port",
	"redis-addr": "redis_addr",
	"result-ttl": "result_ttl",
	"store-dir":  "store_dir",
}

var rootCmd = &cobra.Command{
	Use:   "rowflow",
	Short: "rowflow validates questionnaire rows against their flow rules",
	Long: `rowflow walks a survey row through its schema once and classifies every
variable: answered in flow, skipped, out of flow, the one being asked now, or not
reached yet. It also reports where the questionnaire should continue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for flag, key := range flagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(v, path)
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}

		cfg = loaded
		logger = logging.New(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./rowflow.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringSlice("no-answer", []string{"-9", "-1"}, "Values meaning \"doesn't know\" or \"refuses to answer\"")
}

// newValidator builds the library facade from the loaded configuration.
func newValidator(opts ...rowflow.Option) *rowflow.Validator {
	base := []rowflow.Option{
		rowflow.WithLogger(logger),
		rowflow.WithNoAnswerValues(cfg.NoAnswerValues()...),
	}
	return rowflow.New(append(base, opts...)...)
}

// validationOptions maps the configured mode onto domain.Options.
func validationOptions() (domain.Options, error) {
	opts := domain.Options{AutoFill: cfg.AutoFill}
	switch cfg.Mode {
	case "", "both":
	case "detailed":
		detailed := true
		opts.MultiStateOutput = &detailed
	case "legacy":
		detailed := false
		opts.MultiStateOutput = &detailed
	default:
		return opts, fmt.Errorf("unknown mode %q (want both, detailed or legacy)", cfg.Mode)
	}
	return opts, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
