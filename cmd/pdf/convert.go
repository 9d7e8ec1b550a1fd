// Package pdf handles card statement imports (PDF or extracted text)
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"fjacquet/stmt-ingest/cmd/common"
	"fjacquet/stmt-ingest/cmd/root"
	"fjacquet/stmt-ingest/internal/container"
	"fjacquet/stmt-ingest/internal/fileutils"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/report"

	"github.com/spf13/cobra"
)

// Options are the pdf command settings.
type Options struct {
	Input  string
	Output string
	Format string
	// Text treats Input as already extracted statement text.
	Text   bool
	Target common.Target
	Commit bool
}

var flags struct {
	account     string
	accountType string
	text        bool
	commit      bool
}

// Cmd represents the pdf command
var Cmd = &cobra.Command{
	Use:   "pdf",
	Short: "Import a card statement",
	Long: `Import a card statement from a PDF or from text already extracted from one.

PDF text is extracted with pdftotext (see pdf.pdftotext_path). Lines that
look like transactions are recovered with the institution layout first and
a generic date/amount layout second; lines that were dropped are listed with
the reason.

Example:
  stmt-ingest pdf -i statement.pdf --account acct-1 --commit
  stmt-ingest pdf -i statement.txt --text --account acct-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("container not initialized")
		}
		return Run(cmd.Context(), c, Options{
			Input:  root.SharedFlags.Input,
			Output: root.SharedFlags.Output,
			Format: root.SharedFlags.Format,
			Text:   flags.text || fileutils.HasExtension(root.SharedFlags.Input, ".txt"),
			Target: common.Target{AccountID: flags.account, AccountType: flags.accountType},
			Commit: flags.commit,
		}, cmd.OutOrStdout())
	},
}

func init() {
	Cmd.Flags().StringVar(&flags.account, "account", "", "Target account ID (required with --commit)")
	Cmd.Flags().StringVar(&flags.accountType, "type", "", "Required account type (personal or business)")
	Cmd.Flags().BoolVar(&flags.text, "text", false, "Input is extracted statement text, not a PDF")
	Cmd.Flags().BoolVar(&flags.commit, "commit", false, "Write the recovered transactions to the account ledger")
}

// Run imports one statement and writes its report to w or opts.Output.
func Run(ctx context.Context, c *container.Container, opts Options, w io.Writer) error {
	if opts.Input == "" {
		return fmt.Errorf("input file must be specified")
	}
	logger := c.GetLogger().WithFields(logging.F(logging.FieldFile, opts.Input))

	data, err := fileutils.ReadUpload(opts.Input, c.GetConfig().Import.MaxUploadBytes)
	if err != nil {
		return err
	}

	var result models.StatementResult
	if opts.Text {
		result = c.GetStatementParser().ParseText(string(data))
	} else {
		result, err = c.GetStatementParser().Parse(bytes.NewReader(data))
		if err != nil {
			return err
		}
	}
	logger.Info("Statement processed",
		logging.F(logging.FieldStrategy, result.Strategy),
		logging.F(logging.FieldCount, len(result.Lines)),
		logging.F("skipped", len(result.Skipped)))

	summary := report.FromStatement(opts.Input, result)
	if opts.Commit {
		if err := common.CommitSummary(ctx, c.GetWriter(), summary, opts.Target); err != nil {
			return err
		}
	}
	return common.WriteReport(c.GetReportGenerator(), summary, opts.Format, opts.Output, w, logger)
}
