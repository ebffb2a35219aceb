package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/promotion"
)

func init() {
	cmd := &cobra.Command{
		Use:   "feedback [message-id]",
		Short: "Mark a garden reply as satisfying or not",
		Long:  "Record the caretaker's verdict on a garden reply. Satisfied replies are promoted into their seed on the next promotion pass.",
		Args:  cobra.ExactArgs(1),
		Run:   runFeedback,
	}

	cmd.Flags().Bool("unsatisfied", false, "Mark the reply as not satisfying")
	cmd.Flags().Bool("promote", false, "Run a promotion pass right away")

	RootCmd.AddCommand(cmd)
}

type feedbackResult struct {
	MessageID string            `json:"messageId"`
	Feedback  model.Feedback    `json:"feedback"`
	Promotion *promotion.Report `json:"promotion,omitempty"`
}

func runFeedback(cmd *cobra.Command, args []string) {
	unsatisfied, _ := cmd.Flags().GetBool("unsatisfied")
	promote, _ := cmd.Flags().GetBool("promote")

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	fb, err := s.engine.Feedback(args[0], !unsatisfied)
	if err != nil {
		exitErr("feedback", err)
	}
	out := feedbackResult{MessageID: args[0], Feedback: fb}
	if promote {
		r := s.engine.PromoteOnce()
		out.Promotion = &r
		// The verdict may have just been promoted.
		if m := findMessage(s, args[0]); m != nil && m.Meta.Feedback != nil {
			out.Feedback = *m.Meta.Feedback
		}
	}
	if err := s.save(ctx); err != nil {
		exitErr("save", err)
	}

	printJSON(out)
}

func findMessage(s *session, id string) *model.Message {
	state, err := s.engine.Snapshot()
	if err != nil {
		return nil
	}
	return state.FindMessage(id)
}
