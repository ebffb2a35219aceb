package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Run one promotion pass",
		Long:  "Fold the tags of satisfied, unpromoted replies into the seeds that answered them.",
		Run:   runPromote,
	}

	RootCmd.AddCommand(cmd)
}

func runPromote(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	report := s.engine.PromoteOnce()
	if err := s.save(ctx); err != nil {
		exitErr("save", err)
	}

	printJSON(report)
}
