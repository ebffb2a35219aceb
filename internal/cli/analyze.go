package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-garden/internal/garden"
)

func init() {
	tagsCmd := &cobra.Command{
		Use:   "tags [text]",
		Short: "Show the tags the garden derives from text",
		Run:   runTags,
	}

	intentCmd := &cobra.Command{
		Use:   "intent [text]",
		Short: "Show the intent profile of text",
		Run:   runIntent,
	}

	RootCmd.AddCommand(tagsCmd, intentCmd)
}

// analyzeArgs reads text and analyzes it with the configured tagging. The
// garden itself is not opened.
func analyzeArgs(args []string) garden.Analysis {
	text, err := readText(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(text) == "" {
		exitErr("analyze", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	return garden.New(nil, garden.Options{Tagging: &cfg.Tagging}).Analyze(text)
}

func runTags(cmd *cobra.Command, args []string) {
	a := analyzeArgs(args)
	if len(a.Tags) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(a.Tags)
}

func runIntent(cmd *cobra.Command, args []string) {
	printJSON(analyzeArgs(args).Intent)
}
