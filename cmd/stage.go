package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/pipeline"
)

var stageRunID string

var stageCmd = &cobra.Command{
	Use:   "stage <name>",
	Short: "Run a single pipeline stage against an existing run",
	Long:  "Stages: capture, score, counterfactual, brand-delta, expand, expanded-answers, opportunity.",
	Args:  cobra.ExactArgs(1),
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

		if _, err := st.GetRun(ctx, stageRunID); err != nil {
			return eris.Wrapf(err, "run %s", stageRunID)
		}

		p := pipeline.New(cfg, st, initChatClient())

		stages := map[string]func(context.Context, string) (*pipeline.StageResult, error){
			model.StageCapture:         p.CaptureRun,
			model.StageScore:           p.ScoreRun,
			model.StageCounterfactual:  p.CounterfactualRun,
			model.StageBrandDelta:      p.BrandDeltaRun,
			model.StageExpand:          p.ExpandRun,
			model.StageExpandedAnswers: p.ExpandedAnswersRun,
			model.StageOpportunity:     p.OpportunityRun,
		}

		fn, ok := stages[args[0]]
		if !ok {
			return eris.Errorf("unknown stage: %s", args[0])
		}

		result, err := fn(ctx, stageRunID)
		if err != nil {
			return eris.Wrapf(err, "stage %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	stageCmd.Flags().StringVar(&stageRunID, "run-id", "", "target run ID (required)")
	_ = stageCmd.MarkFlagRequired("run-id")
	rootCmd.AddCommand(stageCmd)
}
