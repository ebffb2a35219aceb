package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reply [text]",
		Short: "Ask the garden for one reply",
		Long:  "Synthesize one reply. Text can be a positional arg or piped via stdin.",
		Run:   runReply,
	}

	cmd.Flags().IntP("creativity", "C", -1, "Creativity dial 0-100 (default: config creativity)")
	cmd.Flags().Bool("text", false, "Print only the reply text")

	RootCmd.AddCommand(cmd)
}

func runReply(cmd *cobra.Command, args []string) {
	creativity, _ := cmd.Flags().GetInt("creativity")
	textOnly, _ := cmd.Flags().GetBool("text")

	text, err := readText(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(text) == "" {
		exitErr("reply", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	if creativity < 0 {
		creativity = s.cfg.Creativity
	}
	reply, err := s.engine.Synthesize(text, creativity)
	if err != nil {
		exitErr("reply", err)
	}
	if err := s.save(ctx); err != nil {
		exitErr("save", err)
	}

	if textOnly {
		fmt.Println(reply.Text)
		return
	}
	printJSON(reply)
}
