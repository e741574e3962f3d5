package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/slug"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Manage the evaluation query set",
}

// -- queries list --

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		queries, err := st.ListQueries(ctx)
		if err != nil {
			return eris.Wrap(err, "queries list")
		}

		if len(queries) == 0 {
			fmt.Fprintln(os.Stderr, "No queries found.")
			return nil
		}

		formatQueriesList(os.Stdout, queries)
		return nil
	},
}

// -- queries add --

var (
	queryFunnel    string
	queryPriority  int
	queryTargetURL string
	queryInactive  bool
)

var queriesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		q, err := st.CreateQuery(ctx, model.Query{
			Text:        args[0],
			Slug:        slug.Make(args[0]),
			FunnelStage: model.FunnelStage(queryFunnel),
			Priority:    queryPriority,
			TargetURL:   queryTargetURL,
			Active:      !queryInactive,
		})
		if err != nil {
			return eris.Wrap(err, "queries add")
		}

		zap.L().Info("query created",
			zap.String("id", q.ID),
			zap.String("slug", q.Slug),
		)
		return nil
	},
}

func init() {
	queriesAddCmd.Flags().StringVar(&queryFunnel, "funnel", string(model.FunnelConsideration), "funnel stage (awareness, consideration, decision)")
	queriesAddCmd.Flags().IntVar(&queryPriority, "priority", 2, "priority (1 = highest)")
	queriesAddCmd.Flags().StringVar(&queryTargetURL, "target-url", "", "page the query should ideally surface")
	queriesAddCmd.Flags().BoolVar(&queryInactive, "inactive", false, "create the query deactivated")

	queriesCmd.AddCommand(queriesListCmd)
	queriesCmd.AddCommand(queriesAddCmd)
	rootCmd.AddCommand(queriesCmd)
}

// formatQueriesList writes a tabular list of queries to w.
func formatQueriesList(out io.Writer, queries []model.Query) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tFUNNEL\tPRI\tACTIVE")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t---\t------")

	for _, q := range queries {
		s := q.Slug
		if len(s) > 40 {
			s = s[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n",
			truncateID(q.ID),
			s,
			q.FunnelStage,
			q.Priority,
			q.Active,
		)
	}
	_ = w.Flush()
}
