package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation",
		Long:  "Drop caretaker and garden messages. Seeds and the welcome message stay.",
		Run:   runClear,
	}

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	s.engine.ClearConversation()
	if err := s.save(ctx); err != nil {
		exitErr("save", err)
	}

	fmt.Println(`{"ok":true}`)
}
