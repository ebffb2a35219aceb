package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/store"
	"github.com/rcliao/memory-garden/internal/tagger"
)

func init() {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Plant, list, search and remove knowledge seeds",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Plant a seed",
		Long:  "Plant a prompt/response pair. Tags are comma-separated terms, optionally weighted as term:weight.",
		Run:   runSeedAdd,
	}
	addCmd.Flags().StringP("prompt", "p", "", "Prompt the seed answers (required)")
	addCmd.Flags().StringP("response", "r", "", "Response text (required)")
	addCmd.Flags().StringP("tags", "t", "", "Comma-separated tags, e.g. welcome,ritual:1.5")
	addCmd.MarkFlagRequired("prompt")
	addCmd.MarkFlagRequired("response")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List seeds",
		Run:   runSeedList,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [seed-id]",
		Short: "Remove a seed",
		Args:  cobra.ExactArgs(1),
		Run:   runSeedRm,
	}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search seeds by keyword",
		Long:  "Search seed prompts, responses and tags for matching text, most used first.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSeedSearch,
	}
	searchCmd.Flags().IntP("limit", "l", 20, "Max results")

	seedCmd.AddCommand(addCmd, listCmd, rmCmd, searchCmd)
	RootCmd.AddCommand(seedCmd)
}

func runSeedAdd(cmd *cobra.Command, args []string) {
	prompt, _ := cmd.Flags().GetString("prompt")
	response, _ := cmd.Flags().GetString("response")
	tagsStr, _ := cmd.Flags().GetString("tags")

	tags, err := parseTags(tagsStr)
	if err != nil {
		exitErr("parse tags", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	seed, err := s.engine.PlantSeed(prompt, response, tags)
	if err != nil {
		exitErr("plant seed", err)
	}
	if err := s.save(ctx); err != nil {
		exitErr("save", err)
	}

	printJSON(seed)
}

func runSeedList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	state, err := s.engine.Snapshot()
	if err != nil {
		exitErr("list seeds", err)
	}
	if len(state.Seeds) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(state.Seeds)
}

func runSeedRm(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	if err := s.engine.RemoveSeed(args[0]); err != nil {
		exitErr("remove seed", err)
	}
	if err := s.save(ctx); err != nil {
		exitErr("save", err)
	}

	fmt.Printf(`{"ok":true,"removed":%q}`+"\n", args[0])
}

func runSeedSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.SearchSeeds(cmd.Context(), store.SearchParams{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}

// parseTags reads "a,b:1.5" into tag inputs. Unweighted terms take the
// tagger's unit weight.
func parseTags(s string) ([]tagger.Input, error) {
	var tags []tagger.Input
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term, weight, ok := strings.Cut(part, ":")
		if !ok {
			tags = append(tags, tagger.Term(part))
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", part, err)
		}
		tags = append(tags, tagger.Weighted(strings.TrimSpace(term), w, model.KindSeed))
	}
	return tags, nil
}
