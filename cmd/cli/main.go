package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	rootCmd := &cobra.Command{
		Use:           "gardenledger-cli",
		Short:         "Accounting garden ledger CLI",
		Long:          `A command line interface for the accounting garden ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	api := func() *client { return newClient(baseURL, timeout) }

	rootCmd.AddCommand(
		newJournalCmd(api),
		newAccountsCmd(api),
		newSnapshotCmd(api),
		newLedgerCmd(api),
		getCmd(api, "balances", "Show account balances", "/api/v1/balances"),
		getCmd(api, "summary", "Show asset and liability totals", "/api/v1/summary"),
	)

	return rootCmd
}

// getCmd is a command that prints the JSON at path.
func getCmd(api func() *client, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := api().do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}

func newJournalCmd(api func() *client) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Build and commit journals",
	}

	drafts := "/api/v1/journals/drafts/"

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open a draft journal and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := api().do(cmd.Context(), http.MethodPost, drafts, nil)
			if err != nil {
				return err
			}

			var draft struct {
				DraftID string `json:"draftId"`
				ID      int64  `json:"id"`
			}
			if err := json.Unmarshal(body, &draft); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", draft.DraftID)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show a draft journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := api().do(cmd.Context(), http.MethodGet, drafts+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	var account, kind string
	addCmd := &cobra.Command{
		Use:   "add <draft-id> <amount>",
		Short: "Add an entry; without --type the selected account decides",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseFloat(args[1], 64); err != nil {
				return fmt.Errorf("amount %q is not a number", args[1])
			}

			req := map[string]any{"amount": json.Number(args[1])}
			if kind != "" {
				req["account"] = account
				req["type"] = kind
			}

			body, _, err := api().do(cmd.Context(), http.MethodPost, drafts+url.PathEscape(args[0])+"/entries", req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	addCmd.Flags().StringVar(&account, "account", "", "Account name")
	addCmd.Flags().StringVar(&kind, "type", "", "Entry type: debit or credit")

	selectCmd := &cobra.Command{
		Use:   "select <draft-id> <account>",
		Short: "Click an account: unselected, debit, credit, excluded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := api().do(cmd.Context(), http.MethodPost, drafts+url.PathEscape(args[0])+"/select", map[string]string{"account": args[1]})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	var idempotencyKey string
	commitCmd := &cobra.Command{
		Use:   "commit <draft-id>",
		Short: "Commit a draft journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := api().do(cmd.Context(), http.MethodPost, drafts+url.PathEscape(args[0])+"/commit", nil, withIdempotencyKey(idempotencyKey))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	commitCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")

	discardCmd := &cobra.Command{
		Use:   "discard <draft-id>",
		Short: "Discard a draft journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := api().do(cmd.Context(), http.MethodDelete, drafts+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "discarded")
			return nil
		},
	}

	journalCmd.AddCommand(
		openCmd,
		showCmd,
		addCmd,
		selectCmd,
		commitCmd,
		discardCmd,
		getCmd(api, "list", "List committed journals", "/api/v1/journals/"),
	)

	return journalCmd
}

func newAccountsCmd(api func() *client) *cobra.Command {
	accountsCmd := getCmd(api, "accounts", "List accounts with balances", "/api/v1/accounts/")

	var limit int
	entriesCmd := &cobra.Command{
		Use:   "entries <name>",
		Short: "Show recent entries for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/accounts/%s/entries?limit=%d", url.PathEscape(args[0]), limit)
			body, _, err := api().do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	entriesCmd.Flags().IntVar(&limit, "limit", 3, "Number of entries")

	accountsCmd.AddCommand(entriesCmd)
	return accountsCmd
}

func newSnapshotCmd(api func() *client) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the whole ledger",
	}

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Download a snapshot; - writes to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, header, err := api().do(cmd.Context(), http.MethodGet, "/api/v1/snapshot", nil)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}

			path := output
			if path == "" {
				path = attachmentName(header)
			}

			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s\n", path)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: server suggested name)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace ledger state with a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			body, _, err := api().do(cmd.Context(), http.MethodPut, "/api/v1/snapshot", bytes.NewReader(data))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	snapshotCmd.AddCommand(exportCmd, importCmd)
	return snapshotCmd
}

func newLedgerCmd(api func() *client) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := api().do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil)

			var apiErr *apiError
			if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict) {
				return err
			}

			var result struct {
				Status      string `json:"status"`
				Consistent  bool   `json:"consistent"`
				Differences []struct {
					Account    string `json:"account"`
					Recorded   string `json:"recorded"`
					Calculated string `json:"calculated"`
				} `json:"differences"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			w := cmd.OutOrStdout()
			if !result.Consistent {
				fmt.Fprintf(w, "Consistency check FAILED\n")
				for _, d := range result.Differences {
					fmt.Fprintf(w, "  %s: recorded %s, calculated %s\n", d.Account, d.Recorded, d.Calculated)
				}
				return fmt.Errorf("ledger is inconsistent")
			}

			fmt.Fprintf(w, "Consistency check PASSED\n")
			fmt.Fprintf(w, "Status: %s\n", result.Status)
			return nil
		},
	}

	ledgerCmd.AddCommand(consistencyCmd)
	return ledgerCmd
}

func printJSON(w io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = w.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func attachmentName(header http.Header) string {
	_, params, err := mime.ParseMediaType(header.Get("Content-Disposition"))
	if err == nil && params["filename"] != "" {
		return filepath.Base(params["filename"])
	}
	return "accounting-garden.json"
}
