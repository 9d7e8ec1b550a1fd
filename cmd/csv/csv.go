// Package csv handles the import of delimited bank exports
package csv

import (
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

// Header modes of the --header flag.
const (
	HeaderAuto = "auto"
	HeaderYes  = "yes"
	HeaderNo   = "no"
)

// Options are the csv command settings.
type Options struct {
	Input   string
	Output  string
	Format  string
	Target  common.Target
	Header  string
	Mapping string
	Commit  bool
}

var flags struct {
	account     string
	accountType string
	header      string
	mapping     string
	commit      bool
}

// Cmd represents the csv command
var Cmd = &cobra.Command{
	Use:   "csv",
	Short: "Import a CSV bank export",
	Long: `Import a CSV bank export into an account.

The header row and the date, description, amount and category columns are
detected automatically. Every row is reported with its validation reasons;
with --commit the valid rows are written to the account ledger.

Example:
  stmt-ingest csv -i export.csv --account acct-1
  stmt-ingest csv -i export.csv --account acct-1 --header no --map date=0,description=2,amount=3 --commit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("container not initialized")
		}
		return Run(cmd.Context(), c, Options{
			Input:   root.SharedFlags.Input,
			Output:  root.SharedFlags.Output,
			Format:  root.SharedFlags.Format,
			Target:  common.Target{AccountID: flags.account, AccountType: flags.accountType},
			Header:  flags.header,
			Mapping: flags.mapping,
			Commit:  flags.commit,
		}, cmd.OutOrStdout())
	},
}

func init() {
	Cmd.Flags().StringVar(&flags.account, "account", "", "Target account ID")
	Cmd.Flags().StringVar(&flags.accountType, "type", "", "Required account type (personal or business)")
	Cmd.Flags().StringVar(&flags.header, "header", HeaderAuto, "Header row: auto, yes or no")
	Cmd.Flags().StringVar(&flags.mapping, "map", "", "Column mapping override, e.g. date=0,description=Memo,amount=2")
	Cmd.Flags().BoolVar(&flags.commit, "commit", false, "Write the valid rows to the account ledger")
}

// Run imports one CSV upload and writes its report to w or opts.Output.
func Run(ctx context.Context, c *container.Container, opts Options, w io.Writer) error {
	if opts.Input == "" {
		return fmt.Errorf("input file must be specified")
	}
	logger := c.GetLogger().WithFields(logging.F(logging.FieldFile, opts.Input))

	data, err := fileutils.ReadUpload(opts.Input, c.GetConfig().Import.MaxUploadBytes)
	if err != nil {
		return err
	}

	session, err := c.GetTabularIngestor().Open(data)
	if err != nil {
		return err
	}

	switch opts.Header {
	case HeaderAuto, "":
	case HeaderYes:
		session.SetHasHeader(true)
	case HeaderNo:
		session.SetHasHeader(false)
	default:
		return fmt.Errorf("invalid --header value %q (want auto, yes or no)", opts.Header)
	}

	if opts.Mapping != "" {
		mapping, err := models.ParseColumnMapping(opts.Mapping, session.Headers())
		if err != nil {
			return fmt.Errorf("invalid --map value: %w", err)
		}
		session.SetMapping(mapping)
	}

	result, err := session.Process(ctx, opts.Target.AccountID)
	if err != nil {
		return err
	}
	logger.Info("CSV upload processed",
		logging.F(logging.FieldValid, result.ValidCount),
		logging.F(logging.FieldInvalid, result.InvalidCount))

	summary := report.FromIngest(opts.Input, result)
	if opts.Commit {
		if err := common.CommitSummary(ctx, c.GetWriter(), summary, opts.Target); err != nil {
			return err
		}
	}
	return common.WriteReport(c.GetReportGenerator(), summary, opts.Format, opts.Output, w, logger)
}
