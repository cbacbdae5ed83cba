package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/profile-cli/internal/store"
)

var (
	profilesMinCompleteness float64
	profilesLimit           int
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List stored profiles by completeness",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListProfiles(ctx, store.ProfileFilter{
			MinCompleteness: profilesMinCompleteness,
			Limit:           profilesLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SUBJECT\tCOMPLETENESS\tUPDATED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%.0f%%\t%s\n", r.SubjectID, r.Completeness*100, r.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	profilesCmd.Flags().Float64Var(&profilesMinCompleteness, "min-completeness", 0, "only list profiles at or above this score (0..1)")
	profilesCmd.Flags().IntVar(&profilesLimit, "limit", 100, "max number of profiles")
	rootCmd.AddCommand(profilesCmd)
}
