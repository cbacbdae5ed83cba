package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Bulk-load profile JSON files into the store",
	Long:  "Each <subject>.json file in the directory is normalized against the profile schema and upserted in one batch.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		records, err := readProfiles(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			zap.L().Info("no profile files found", zap.String("dir", args[0]))
			return nil
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.SaveProfiles(ctx, records)
		if err != nil {
			return eris.Wrap(err, "import profiles")
		}

		zap.L().Info("import complete", zap.Int64("saved", n), zap.String("dir", args[0]))
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d profile(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// readProfiles loads every *.json file in dir as a normalized profile record.
func readProfiles(dir string) ([]store.ProfileRecord, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, eris.Wrap(err, "list profile files")
	}
	sort.Strings(paths)

	records := make([]store.ProfileRecord, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		p, err := profile.Load(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		data, err := json.Marshal(p)
		if err != nil {
			return nil, eris.Wrapf(err, "encode %s", path)
		}
		base := filepath.Base(path)
		records = append(records, store.ProfileRecord{
			SubjectID:    strings.TrimSuffix(base, filepath.Ext(base)),
			Data:         data,
			Completeness: profile.Completeness(p),
		})
	}
	return records, nil
}
