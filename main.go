package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/stmt-ingest/cmd/accounts"
	"fjacquet/stmt-ingest/cmd/batch"
	"fjacquet/stmt-ingest/cmd/csv"
	"fjacquet/stmt-ingest/cmd/pdf"
	"fjacquet/stmt-ingest/cmd/root"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(csv.Cmd)
	root.Cmd.AddCommand(pdf.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(accounts.Cmd)
}

func main() {
	// Interrupting stops the writer from issuing further rows; rows already
	// committed stay committed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
