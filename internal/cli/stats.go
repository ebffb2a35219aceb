package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show garden and database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsResult struct {
	*store.Stats
	Metrics model.Metrics `json:"metrics"`
	Streak  model.Streak  `json:"streak"`
}

func runStats(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	stats, err := s.store.Stats(ctx, getDBPath(s.cfg))
	if err != nil {
		exitErr("stats", err)
	}
	metrics, streak := s.engine.Metrics()

	printJSON(statsResult{Stats: stats, Metrics: metrics, Streak: streak})
}
