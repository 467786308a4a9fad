package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	token   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operator CLI for the general ledger service",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", envDefault("LEDGER_URL", "http://localhost:8080"), "ledger service base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("LEDGER_TOKEN"), "bearer token")

	rootCmd.AddCommand(postCmd(), reverseCmd(), closeYearCmd(), exportCmd(), accountsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func postCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Submit a voucher from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			body, err := call(http.MethodPost, "/api/v1/vouchers", data)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "voucher JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func reverseCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "reverse <voucher-id>",
		Short: "Reverse a posted voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(map[string]string{"date": date})
			body, err := call(http.MethodPost, "/api/v1/vouchers/"+args[0]+"/reverse", payload)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reversal date (YYYY-MM-DD, default today)")
	return cmd
}

func closeYearCmd() *cobra.Command {
	var retained string
	cmd := &cobra.Command{
		Use:   "close-year <year-id>",
		Short: "Close a financial year and carry balances forward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(map[string]string{"retained_earnings_code": retained})
			body, err := call(http.MethodPost, "/api/v1/years/"+args[0]+"/close", payload)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&retained, "retained-earnings", "", "retained earnings account code")
	_ = cmd.MarkFlagRequired("retained-earnings")
	return cmd
}

func exportCmd() *cobra.Command {
	var format, asOf, out string
	cmd := &cobra.Command{
		Use:   "export <report>",
		Short: "Export a report (trial-balance, profit-and-loss, balance-sheet)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/reports/" + args[0] + "/export." + format
			if asOf != "" {
				path += "?as_of=" + asOf
			}
			body, err := call(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + "." + format
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "export format (csv, xlsx, pdf)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	return cmd
}

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the chart of accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := call(http.MethodGet, "/api/v1/accounts", nil)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}
}

func call(method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(data))
	}
	return data, nil
}

func envDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
