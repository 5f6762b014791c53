package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/semre57/sengchain/internal/auth"
	"github.com/semre57/sengchain/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:8080"

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seng",
	Short: "SENG vote ledger CLI",
	Long: `seng talks to a sengd server: cast votes, inspect blocks, verify the
hash chain, and move chain snapshots between nodes.

Mutating commands (vote, import) need an operator token when the server
runs with auth.secret set. Mint one with 'seng token'.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.seng")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("seng")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.seng/config.yaml)")
	rootCmd.PersistentFlags().String("server", defaultServer, "sengd base URL")
	rootCmd.PersistentFlags().String("token", "", "operator bearer token")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.AddCommand(statusCmd, verifyCmd, chainCmd, inspectCmd, txCmd,
		voteCmd, tallyCmd, exportCmd, importCmd, tokenCmd, versionCmd)
}

func newClient() (*client.Client, error) {
	return client.New(viper.GetString("server"),
		client.WithBearerToken(viper.GetString("token")),
		client.WithTimeout(viper.GetDuration("timeout")),
	)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chain length, height and head hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Storage key: %s\n", st.StorageKey)
		fmt.Printf("Length:      %d\n", st.Length)
		fmt.Printf("Height:      %d\n", st.Height)
		fmt.Printf("Head:        %s\n", st.HeadHash)
		return nil
	},
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the full hash chain on the server",
	Long: `Verify asks the server to recompute every block hash and check every
backward and forward link. The command exits non-zero when the chain is broken.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Verify(cmd.Context())
		if err != nil {
			return err
		}
		if !res.Valid {
			fmt.Printf("✗ chain INVALID at block %d (%s)\n  %s\n", res.Index, res.Reason, res.Message)
			return errors.New("chain verification failed")
		}
		fmt.Printf("✓ chain valid: %d blocks, head %s\n", res.Height, res.HeadHash)
		return nil
	},
}

// ── chain ────────────────────────────────────────────────────────────────────

var chainFormat string

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "List every block, genesis first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		chain, err := c.Chain(cmd.Context())
		if err != nil {
			return err
		}
		if chainFormat == "json" {
			return printJSON(chain)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tTIMESTAMP\tCANDIDATE\tHASH")
		for _, b := range chain {
			candidate, _ := b.Data["candidateId"].(string)
			if b.Index == 0 {
				candidate = "(genesis)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", b.Index, b.Timestamp, candidate, shortHash(b.Hash))
		}
		return w.Flush()
	},
}

func init() {
	chainCmd.Flags().StringVar(&chainFormat, "format", "text", "Output format: text or json")
}

func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "…"
}

// ── inspect ──────────────────────────────────────────────────────────────────

var inspectCmd = &cobra.Command{
	Use:   "inspect <hash>",
	Short: "Show one block and its link consistency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Inspect(cmd.Context(), args[0])
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("no block with hash %s", strings.TrimSpace(args[0]))
		}
		if err != nil {
			return err
		}

		fmt.Printf("Block %d of %d (chain height %d)\n", res.BlockHeight, res.Length, res.Height)
		fmt.Printf("  hash      %s\n", checkMark(&res.Checks.HashOK))
		fmt.Printf("  prev link %s\n", checkMark(res.Checks.PrevOK))
		fmt.Printf("  next link %s\n", checkMark(res.Checks.NextOK))
		fmt.Printf("Head: %s\n\n", res.HeadHash)
		return printJSON(res.Block)
	},
}

func checkMark(ok *bool) string {
	switch {
	case ok == nil:
		return "n/a"
	case *ok:
		return "✓"
	default:
		return "✗"
	}
}

// ── tx ───────────────────────────────────────────────────────────────────────

var txCmd = &cobra.Command{
	Use:   "tx <txId>",
	Short: "Show the block holding a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.Transaction(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(b)
	},
}

// ── vote ─────────────────────────────────────────────────────────────────────

var voteExtra []string

var voteCmd = &cobra.Command{
	Use:   "vote <voterId> <candidateId>",
	Short: "Cast a vote",
	Long: `Vote appends a block recording the voter's choice. Only a hash of the
voter id is stored. Extra payload fields are passed as key=value pairs:

  seng vote alice cand-2 --extra precinct=P-7 --extra round=2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		extra, err := parseExtra(voteExtra)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		receipt, err := c.CastVote(cmd.Context(), args[0], args[1], extra)
		var apiErr *client.APIError
		switch {
		case errors.Is(err, client.ErrDuplicate):
			return errors.New("this voter has already voted")
		case errors.As(err, &apiErr) && apiErr.Verification != nil:
			v := apiErr.Verification
			return fmt.Errorf("vote refused, chain broken at block %d (%s): %s", v.Index, v.Reason, v.Message)
		case err != nil:
			return err
		}

		fmt.Printf("✓ vote recorded in block %d\n", receipt.Index)
		fmt.Printf("  tx:    %s\n", receipt.TxID)
		fmt.Printf("  block: %s\n", receipt.BlockHash)
		return nil
	},
}

func init() {
	voteCmd.Flags().StringArrayVar(&voteExtra, "extra", nil, "Extra payload field as key=value (repeatable)")
}

// parseExtra turns key=value pairs into payload fields. Values that parse as
// a number or boolean are sent as such.
func parseExtra(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --extra %q: want key=value", p)
		}
		switch {
		case v == "true" || v == "false":
			out[k] = v == "true"
		default:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				out[k] = n
			} else {
				out[k] = v
			}
		}
	}
	return out, nil
}

// ── tally ────────────────────────────────────────────────────────────────────

var tallyCmd = &cobra.Command{
	Use:   "tally",
	Short: "Count votes per candidate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		tally, err := c.Tally(cmd.Context())
		if err != nil {
			return err
		}

		candidates := make([]string, 0, len(tally))
		for k := range tally {
			candidates = append(candidates, k)
		}
		sort.Slice(candidates, func(i, j int) bool {
			if tally[candidates[i]] != tally[candidates[j]] {
				return tally[candidates[i]] > tally[candidates[j]]
			}
			return candidates[i] < candidates[j]
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CANDIDATE\tVOTES")
		for _, k := range candidates {
			fmt.Fprintf(w, "%s\t%d\n", k, tally[k])
		}
		return w.Flush()
	},
}

// ── export / import ──────────────────────────────────────────────────────────

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the chain as a snapshot document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.Export(cmd.Context())
		if err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err = os.Stdout.Write(append(raw, '\n'))
			return err
		}
		if err := os.WriteFile(exportOut, raw, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Fprintf(os.Stderr, "snapshot written to %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write the snapshot to a file instead of stdout")
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the server's chain with a verified snapshot",
	Long: `Import uploads a snapshot document or a bare JSON array of blocks. The
server verifies the whole chain first and keeps its current chain if any
block fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Import(cmd.Context(), data)
		if err != nil {
			return err
		}
		if !res.Valid {
			fmt.Printf("✗ import rejected at block %d (%s)\n  %s\n", res.Index, res.Reason, res.Message)
			return errors.New("import rejected")
		}
		fmt.Printf("✓ imported %d blocks, head %s\n", res.Height, res.HeadHash)
		return nil
	},
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator token from the shared auth secret",
	Long: `Token signs an operator token locally with auth.secret (config file or
SENG_AUTH_SECRET). Pass it to other commands with --token or SENG_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, err := auth.NewTokenIssuer(viper.GetString("auth.secret"), auth.DefaultIssuer, tokenTTL)
		if errors.Is(err, auth.ErrEmptySecret) {
			return errors.New("auth.secret is not set (config file or SENG_AUTH_SECRET)")
		}
		if err != nil {
			return err
		}
		tok, err := issuer.Issue(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seng CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seng %s\n", version)
	},
}
