package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/extraction"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/internal/store"
)

var extractSubject string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract a profile draft from a document",
	Long:  "Runs document extraction and prints the draft. With --subject the draft is merged into the stored profile.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read document")
		}
		file := extraction.File{Name: filepath.Base(args[0]), Data: data}

		text := newTextService(cfg)
		if !text.Supported(file.Name) {
			return eris.Errorf("unsupported file type: %s", file.Name)
		}

		ctx, cancel := context.WithTimeout(ctx, seconds(cfg.Extraction.JobTimeoutSecs))
		defer cancel()

		res, err := newExtractor(cfg, text).Extract(ctx, file)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Summary)

		if extractSubject == "" {
			return printJSON(cmd.OutOrStdout(), res.Extracted)
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		merged, err := mergeIntoSubject(ctx, st, extractSubject, res)
		if err != nil {
			return err
		}
		zap.L().Info("extraction merged",
			zap.String("subject", extractSubject),
			zap.String("file", res.FileName),
			zap.Strings("tagged", merged.TaggedFieldPaths),
		)
		return printJSON(cmd.OutOrStdout(), merged.Merged)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractSubject, "subject", "", "merge the draft into this subject's stored profile")
	rootCmd.AddCommand(extractCmd)
}

// mergeIntoSubject merges an extraction result into the stored profile and
// flushes it.
func mergeIntoSubject(ctx context.Context, st store.Store, subjectID string, res model.ExtractionResult) (profile.MergeResult, error) {
	sess, err := profile.NewSessions(st, 0).Open(ctx, subjectID)
	if err != nil {
		return profile.MergeResult{}, err
	}
	var merged profile.MergeResult
	sess.Apply(func(cur model.Profile) model.Profile {
		merged = profile.MergeExtraction(cur, res.Extracted)
		return merged.Merged
	})
	if err := sess.Flush(ctx); err != nil {
		return profile.MergeResult{}, eris.Wrapf(err, "save subject %s", subjectID)
	}
	return merged, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
