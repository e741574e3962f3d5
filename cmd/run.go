package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/pipeline"
)

var (
	runLabel    string
	runExtended bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the evaluation pipeline over all active queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p := pipeline.New(cfg, st, initChatClient())

		exec := p.Run
		if runExtended {
			exec = p.RunExtended
		}

		r, results, err := exec(ctx, runLabel)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("evaluation complete",
			zap.String("run_id", r.ID),
			zap.String("label", r.Label),
			zap.Int("stages", len(results)),
		)

		out := struct {
			RunID  string                 `json:"run_id"`
			Label  string                 `json:"label"`
			Stages []pipeline.StageResult `json:"stages"`
		}{RunID: r.ID, Label: r.Label, Stages: results}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	runCmd.Flags().StringVar(&runLabel, "label", "", "run label (required)")
	runCmd.Flags().BoolVar(&runExtended, "extended", false, "also run expansion, expanded answers, and opportunity stages")
	_ = runCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(runCmd)
}
