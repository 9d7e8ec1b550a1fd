// Package accounts manages the ledger accounts that imports are committed to
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"fjacquet/stmt-ingest/cmd/root"
	"fjacquet/stmt-ingest/internal/container"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/normalizer"
	"fjacquet/stmt-ingest/internal/parsererror"
	"fjacquet/stmt-ingest/internal/report"

	"github.com/spf13/cobra"
)

// Cmd represents the accounts command
var Cmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage ledger accounts",
	Long: `List and create the accounts that imports are committed to, record single
transactions and show an account's transactions.`,
}

var (
	listType string

	addFlags struct {
		id       string
		name     string
		owner    string
		kind     string
		category string
		balance  string
	}

	recordFlags struct {
		account     string
		date        string
		description string
		amount      string
		category    string
	}

	transactionsAccount string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}
		return List(cmd.Context(), c, listType, root.SharedFlags.Format, cmd.OutOrStdout())
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account",
	Example: `  stmt-ingest accounts add --name "Main checking" --type personal --category checking --balance 143.20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}
		account, err := Add(cmd.Context(), c, AddOptions{
			ID:       addFlags.id,
			Name:     addFlags.name,
			Owner:    addFlags.owner,
			Type:     addFlags.kind,
			Category: addFlags.category,
			Balance:  addFlags.balance,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", account.ID, account.Name)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one transaction by hand",
	Example: `  stmt-ingest accounts record --account acct-1 --date 2026-01-07 --description "Coffee Shop" --amount -12.50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}
		balance, err := Record(cmd.Context(), c, RecordOptions{
			AccountID:   recordFlags.account,
			Date:        recordFlags.date,
			Description: recordFlags.description,
			Amount:      recordFlags.amount,
			Category:    recordFlags.category,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded. Balance: %s\n", balance)
		return nil
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List the transactions of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}
		return Transactions(cmd.Context(), c, transactionsAccount, root.SharedFlags.Format, cmd.OutOrStdout())
	},
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "Only list accounts of this type (personal or business)")

	addCmd.Flags().StringVar(&addFlags.id, "id", "", "Account ID (generated when empty)")
	addCmd.Flags().StringVar(&addFlags.name, "name", "", "Account name")
	addCmd.Flags().StringVar(&addFlags.owner, "owner", "", "Owner ID")
	addCmd.Flags().StringVar(&addFlags.kind, "type", string(models.AccountTypePersonal), "Account type: personal or business")
	addCmd.Flags().StringVar(&addFlags.category, "category", string(models.AccountCategoryChecking), "checking, savings, credit_card, loan or investment")
	addCmd.Flags().StringVar(&addFlags.balance, "balance", "0", "Opening balance")

	recordCmd.Flags().StringVar(&recordFlags.account, "account", "", "Target account ID")
	recordCmd.Flags().StringVar(&recordFlags.date, "date", "", "Transaction date")
	recordCmd.Flags().StringVar(&recordFlags.description, "description", "", "Description")
	recordCmd.Flags().StringVar(&recordFlags.amount, "amount", "", "Signed amount, negative for expenses")
	recordCmd.Flags().StringVar(&recordFlags.category, "category", "", "Category label")

	transactionsCmd.Flags().StringVar(&transactionsAccount, "account", "", "Account ID")

	Cmd.AddCommand(listCmd, addCmd, recordCmd, transactionsCmd)
}

func requireContainer() (*container.Container, error) {
	c := root.GetContainer()
	if c == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return c, nil
}

// List writes the accounts of accountType (all when empty) as a table or JSON.
func List(ctx context.Context, c *container.Container, accountType, format string, w io.Writer) error {
	var filter models.AccountType
	if accountType != "" {
		t, err := models.ParseAccountType(accountType)
		if err != nil {
			return err
		}
		filter = t
	}

	accounts, err := c.GetStore().ListAccounts(ctx, filter)
	if err != nil {
		return err
	}

	if strings.EqualFold(format, report.FormatJSON) {
		return writeJSON(w, accounts)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCATEGORY\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, a.Category, a.Balance.StringFixed(2))
	}
	return tw.Flush()
}

// AddOptions describe a new account as typed on the command line.
type AddOptions struct {
	ID       string
	Name     string
	Owner    string
	Type     string
	Category string
	Balance  string
}

// Add creates an account.
func Add(ctx context.Context, c *container.Container, opts AddOptions) (models.Account, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return models.Account{}, fmt.Errorf("account name must be specified")
	}
	accountType, err := models.ParseAccountType(opts.Type)
	if err != nil {
		return models.Account{}, err
	}
	category, err := models.ParseAccountCategory(opts.Category)
	if err != nil {
		return models.Account{}, err
	}
	balance, err := normalizer.NormalizeAmount(opts.Balance)
	if err != nil {
		return models.Account{}, fmt.Errorf("invalid opening balance: %w", err)
	}

	return c.GetStore().CreateAccount(ctx, models.Account{
		ID:       opts.ID,
		Name:     strings.TrimSpace(opts.Name),
		OwnerID:  opts.Owner,
		Type:     accountType,
		Category: category,
		Balance:  balance,
	})
}

// RecordOptions describe one manually entered transaction.
type RecordOptions struct {
	AccountID   string
	Date        string
	Description string
	Amount      string
	Category    string
}

// Record validates a manual entry with the same rules as imported rows and
// commits it. It returns the new balance.
func Record(ctx context.Context, c *container.Container, opts RecordOptions) (string, error) {
	row := models.Candidate{
		Row:         1,
		RawDate:     opts.Date,
		Description: strings.TrimSpace(opts.Description),
		RawAmount:   opts.Amount,
		Category:    opts.Category,
		Valid:       true,
	}
	if row.Category == "" {
		row.Category = c.GetCategorizer().Fallback()
	}
	if date, err := normalizer.NormalizeDate(opts.Date); err == nil {
		row.Date = date
	} else {
		row.AddError(models.ReasonInvalidDate)
	}
	if row.Description == "" {
		row.AddError(models.ReasonMissingDescription)
	}
	if amount, err := normalizer.NormalizeAmount(opts.Amount); err == nil {
		row.Amount = amount
	} else {
		row.AddError(models.ReasonInvalidAmount)
	}

	balance, err := c.GetWriter().Record(ctx, opts.AccountID, row)
	if err != nil {
		return "", err
	}
	return balance.StringFixed(2), nil
}

// Transactions writes the transactions of accountID as a table or JSON.
func Transactions(ctx context.Context, c *container.Container, accountID, format string, w io.Writer) error {
	if accountID == "" {
		return &parsererror.ValidationError{Operation: "transactions", Err: parsererror.ErrNoTargetAccount}
	}
	txs, err := c.GetStore().ListTransactions(ctx, accountID)
	if err != nil {
		return err
	}

	if strings.EqualFold(format, report.FormatJSON) {
		return writeJSON(w, txs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tCATEGORY\tSUBCATEGORY\tCREATED")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date, t.Description, t.AmountString(), t.Category, t.Subcategory, t.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
