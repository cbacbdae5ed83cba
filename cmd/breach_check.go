package main

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/pkg/hibp"
)

var breachCheckCmd = &cobra.Command{
	Use:   "breach-check <email>...",
	Short: "Look up breach exposure for one or more email addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("breach-check"); err != nil {
			return err
		}

		client := newBreachClient(cfg)
		results := client.CheckMultiple(ctx, args, func(done, total int, email string) {
			if email == "" {
				return
			}
			zap.L().Info("checking email", zap.String("email", email), zap.Int("done", done), zap.Int("total", total))
		})

		writeBreachReport(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breachCheckCmd)
}

// writeBreachReport prints one block per email, sorted by address.
func writeBreachReport(w io.Writer, results map[string]hibp.Outcome) {
	emails := make([]string, 0, len(results))
	for e := range results {
		emails = append(emails, e)
	}
	sort.Strings(emails)

	found := 0
	for _, email := range emails {
		out := results[email]
		switch {
		case out.Failed():
			fmt.Fprintf(w, "%s: error %s (%s)\n", email, out.Code, out.Message)
		case !out.Found:
			fmt.Fprintf(w, "%s: no breaches\n", email)
		default:
			found++
			fmt.Fprintf(w, "%s: %d breach(es)\n", email, out.Count)
			for _, b := range out.Breaches {
				fmt.Fprintf(w, "  [%s] %s\n", b.Severity, b.BreachName)
			}
		}
	}
	fmt.Fprintf(w, "%d of %d email(s) found in breaches\n", found, len(emails))
}
