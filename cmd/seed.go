package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load engines and queries from a YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := seed.Load(seedFile)
		if err != nil {
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

		res, err := f.Apply(ctx, st)
		if err != nil {
			return eris.Wrap(err, "apply seed")
		}

		zap.L().Info("seed applied",
			zap.String("file", seedFile),
			zap.Int("engines_upserted", res.EnginesUpserted),
			zap.Int("queries_created", res.QueriesCreated),
			zap.Int("queries_skipped", res.QueriesSkipped),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "seed.yaml", "path to seed file")
	rootCmd.AddCommand(seedCmd)
}
