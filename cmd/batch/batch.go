// Package batch handles batch processing of files
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fjacquet/stmt-ingest/cmd/common"
	"fjacquet/stmt-ingest/cmd/root"
	"fjacquet/stmt-ingest/internal/batch"
	"fjacquet/stmt-ingest/internal/container"
	"fjacquet/stmt-ingest/internal/fileutils"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/report"

	"github.com/spf13/cobra"
)

// Options are the batch command settings.
type Options struct {
	InputDir  string
	OutputDir string
	Format    string
	Target    common.Target
	Commit    bool
}

var flags struct {
	account     string
	accountType string
	commit      bool
}

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch process files from a directory",
	Long: `Batch process every CSV, PDF and statement text file of an input directory.

Files are parsed concurrently (import.workers). A file that cannot be read or
parsed is reported and does not stop the others. With --commit every file is
committed to the same account; commits to one account are serialized.

With -o, one report per file is written to the output directory; otherwise a
short status line per file is printed.

Example:
  stmt-ingest batch -i input_dir/ -o reports/ --account acct-1 --commit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("container not initialized")
		}
		return Run(cmd.Context(), c, Options{
			InputDir:  root.SharedFlags.Input,
			OutputDir: root.SharedFlags.Output,
			Format:    root.SharedFlags.Format,
			Target:    common.Target{AccountID: flags.account, AccountType: flags.accountType},
			Commit:    flags.commit,
		}, cmd.OutOrStdout())
	},
}

func init() {
	Cmd.Flags().StringVar(&flags.account, "account", "", "Target account ID")
	Cmd.Flags().StringVar(&flags.accountType, "type", "", "Required account type (personal or business)")
	Cmd.Flags().BoolVar(&flags.commit, "commit", false, "Write the valid rows of every file to the account ledger")
}

// Run processes the input directory. It fails only when the directory or the
// options are unusable; per-file failures are listed in the output.
func Run(ctx context.Context, c *container.Container, opts Options, w io.Writer) error {
	if opts.InputDir == "" {
		return fmt.Errorf("input directory must be specified")
	}
	logger := c.GetLogger()

	accountType, err := opts.Target.Type()
	if err != nil {
		return err
	}

	runner := c.GetBatchRunner()
	files, err := runner.Discover(opts.InputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("No supported files found in input directory",
			logging.F(logging.FieldFile, opts.InputDir))
		return nil
	}

	result, err := runner.Run(ctx, files, batch.Options{
		AccountID:   opts.Target.AccountID,
		AccountType: accountType,
		DryRun:      !opts.Commit,
	})
	if err != nil && len(result.Files) == 0 {
		return err
	}

	if opts.OutputDir != "" {
		if err := fileutils.EnsureDirectoryExists(opts.OutputDir); err != nil {
			return err
		}
	}
	for _, f := range result.Files {
		fmt.Fprintln(w, statusLine(f))
		if opts.OutputDir == "" || f.Summary == nil {
			continue
		}
		out := filepath.Join(opts.OutputDir, reportName(f.File, opts.Format))
		if werr := common.WriteReport(c.GetReportGenerator(), f.Summary, opts.Format, out, w, logger); werr != nil {
			return werr
		}
	}

	fmt.Fprintf(w, "%d files, %d failed, %d potential duplicates", len(result.Files), result.Failed(), result.Duplicates)
	if r := result.DateRange.String(); r != "" {
		fmt.Fprintf(w, ", %s", r)
	}
	fmt.Fprintln(w)
	return err
}

func statusLine(f batch.FileResult) string {
	name := filepath.Base(f.File)
	if f.Err != nil {
		return fmt.Sprintf("FAIL %s: %v", name, f.Err)
	}
	line := fmt.Sprintf("OK   %s: %d valid, %d invalid", name, f.Summary.ValidCount, f.Summary.InvalidCount)
	if f.Summary.Commit != nil {
		line += fmt.Sprintf(", %d imported, balance %s", f.Summary.Commit.Imported, f.Summary.Commit.Balance.StringFixed(2))
	}
	return line
}

// reportName derives the report file of an upload, e.g. jan.csv -> jan.csv.report.json.
func reportName(file, format string) string {
	ext := strings.ToLower(format)
	if ext == "" || ext == report.FormatText {
		ext = "txt"
	}
	return filepath.Base(file) + ".report." + ext
}
