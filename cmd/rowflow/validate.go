package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/rowflow/internal/presentation/tui"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// errProblems makes --fail-on-problems exit non-zero.
var errProblems = errors.New("row has problems")

var validateCmd = &cobra.Command{
	Use:   "validate <schema> [row]",
	Short: "Validate a row against a schema",
	Long: `Reads a YAML or JSON schema and a JSON row and reports the state of every
variable. The row is read from stdin when omitted or given as "-".

With --row-id the result is stored under --store-dir (or in Redis with
--redis-addr) and the changes against the previous validation of the same row
are reported too.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("auto-fill", false, "Suggest values for empty variables that declare an auto-fill function")
	validateCmd.Flags().StringP("output", "o", "text", "Output format: text, json or markdown")
	validateCmd.Flags().String("mode", "both", "Result shape: both, detailed or legacy")
	validateCmd.Flags().String("row-id", "", "Track the row under this id and report what changed")
	validateCmd.Flags().String("store-dir", ".rowflow/results", "Directory holding tracked results")
	validateCmd.Flags().String("redis-addr", "", "Redis address used by --row-id instead of --store-dir")
	validateCmd.Flags().Duration("result-ttl", 24*time.Hour, "Expiry of tracked results")
	validateCmd.Flags().Bool("fail-on-problems", false, "Exit with status 1 when the row has problems")
}

func runValidate(cmd *cobra.Command, args []string) error {
	opts, err := validationOptions()
	if err != nil {
		return err
	}
	if err := checkOutput(cfg.Output); err != nil {
		return err
	}

	val := newValidator()
	schema, err := val.LoadSchema(args[0])
	if err != nil {
		return err
	}

	data, err := readRow(cmd, args[1:])
	if err != nil {
		return err
	}
	row, err := val.ParseRow(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var (
		res  *domain.Result
		diff *domain.ResultDiff
	)

	rowID, _ := cmd.Flags().GetString("row-id")
	if rowID == "" {
		res, err = val.Validate(ctx, schema, row, opts)
	} else {
		mgr, closeFn, mErr := newSessionManager(true)
		if mErr != nil {
			return mErr
		}
		defer closeFn()
		res, diff, err = mgr.Track(ctx, rowID, func(ctx context.Context) (*domain.Result, error) {
			return val.Validate(ctx, schema, row, opts)
		})
	}
	if err != nil {
		return err
	}

	if err := printResult(cmd.OutOrStdout(), cfg.Output, res, diff, rowID != ""); err != nil {
		return err
	}

	if fail, _ := cmd.Flags().GetBool("fail-on-problems"); fail && res.Summary == domain.SummaryProblems {
		return errProblems
	}
	return nil
}

func checkOutput(output string) error {
	switch output {
	case "text", "json", "markdown":
		return nil
	}
	return fmt.Errorf("unknown output %q (want text, json or markdown)", output)
}

func readRow(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read row from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}
	return data, nil
}

// trackedReport is the JSON output of a tracked validation.
type trackedReport struct {
	Result *domain.Result     `json:"result"`
	Diff   *domain.ResultDiff `json:"diff"`
}

func printResult(w io.Writer, output string, res *domain.Result, diff *domain.ResultDiff, tracked bool) error {
	switch output {
	case "json":
		var payload any = res
		if tracked {
			payload = trackedReport{Result: res, Diff: diff}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil

	case "markdown":
		if isTerminal(w) {
			out, err := tui.RenderMarkdown(res)
			if err != nil {
				return err
			}
			fmt.Fprint(w, out)
		} else {
			fmt.Fprint(w, tui.MarkdownReport(res))
		}

	default:
		fmt.Fprint(w, tui.RenderText(res, isTerminal(w)))
	}

	if tracked {
		fmt.Fprintln(w, describeDiff(diff))
	}
	return nil
}

func describeDiff(diff *domain.ResultDiff) string {
	if diff == nil {
		return "unchanged since the last validation"
	}
	changed := make([]string, 0, len(diff.Feedback))
	for name := range diff.Feedback {
		changed = append(changed, name)
	}
	sort.Strings(changed)
	if len(changed) == 0 {
		return "changed: summary only"
	}
	return "changed: " + strings.Join(changed, ", ")
}
