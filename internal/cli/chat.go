package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/memory-garden/internal/config"
	"github.com/rcliao/memory-garden/internal/promotion"
)

const chatHelp = `commands:
  /good, /bad         rate the last reply
  /plant P => R       plant a seed
  /dial N             set creativity (0-100)
  /promote            run a promotion pass now
  /stats              show garden and session counters
  /clear              clear the conversation
  /quit               leave`

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the garden interactively",
		Long: "Start an interactive session. Satisfied replies are promoted in the background, " +
			"and edits to the config file apply without restarting.",
		Run: runChat,
	}

	cmd.Flags().IntP("creativity", "C", -1, "Creativity dial 0-100 (default: config creativity)")
	cmd.Flags().Bool("no-watch", false, "Do not reload the config file on change")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	creativity, _ := cmd.Flags().GetInt("creativity")
	noWatch, _ := cmd.Flags().GetBool("no-watch")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		exitErr("open garden", err)
	}
	defer s.close()

	c := newChat(s, cmd.OutOrStdout())
	if creativity >= 0 {
		c.creativity.Store(int64(creativity))
	}

	sched := promotion.NewScheduler(s.cfg.PromoteInterval, s.engine.PromotionJob(c.afterPromotion), s.logger)
	sched.Start(ctx)
	defer sched.Stop()

	if !noWatch {
		w, err := config.Watch(getConfigPath(), config.DefaultDebounce, c.applyConfig, s.logger)
		if err != nil {
			s.logger.Warn("config reload disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	if err := c.run(ctx, os.Stdin); err != nil {
		exitErr("chat", err)
	}
}

// chat is one interactive session over an open garden.
type chat struct {
	s          *session
	out        io.Writer
	creativity atomic.Int64
	lastReply  string

	// fileCreativity is the dial last read from the config file. A reload
	// only moves the dial when this value changes.
	fileCreativity atomic.Int64
}

func newChat(s *session, out io.Writer) *chat {
	c := &chat{s: s, out: out}
	c.creativity.Store(int64(s.cfg.Creativity))
	c.fileCreativity.Store(int64(s.cfg.Creativity))
	return c
}

// run reads lines until EOF, /quit or ctx is done. Input is read on its own
// goroutine so an interrupt does not wait for the next line.
func (c *chat) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.intro()
	for {
		fmt.Fprint(c.out, promptStyle.Render("> "))
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return c.s.save(context.WithoutCancel(ctx))
		case line, ok := <-lines:
			if !ok {
				if err := c.s.save(ctx); err != nil {
					return err
				}
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if !c.handle(ctx, strings.TrimSpace(line)) {
				return c.s.save(ctx)
			}
		}
	}
}

func (c *chat) intro() {
	state, err := c.s.engine.Snapshot()
	if err != nil || len(state.Messages) == 0 {
		return
	}
	fmt.Fprintln(c.out, introStyle.Render(state.Messages[0].Content))
	fmt.Fprintln(c.out, detailStyle.Render("(type /help for commands)"))
}

// handle processes one line and reports whether the session continues.
func (c *chat) handle(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		c.reply(ctx, line)
		return true
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/quit", "/exit":
		return false
	case "/help":
		fmt.Fprintln(c.out, chatHelp)
	case "/good", "/bad":
		c.feedback(ctx, name == "/good")
	case "/plant":
		c.plant(ctx, rest)
	case "/dial":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n > 100 {
			fmt.Fprintln(c.out, noticeStyle.Render("dial takes a number from 0 to 100"))
			return true
		}
		c.creativity.Store(int64(n))
		fmt.Fprintf(c.out, "creativity set to %d\n", n)
	case "/promote":
		r := c.s.engine.PromoteOnce()
		c.afterPromotion(r)
		fmt.Fprintf(c.out, "promoted %d replies into %d seeds\n", r.Promoted, r.SeedsUpdated)
	case "/stats":
		c.stats()
	case "/clear":
		c.s.engine.ClearConversation()
		c.lastReply = ""
		c.persist(ctx)
		fmt.Fprintln(c.out, "conversation cleared")
	default:
		fmt.Fprintln(c.out, noticeStyle.Render("unknown command "+name))
	}
	return true
}

func (c *chat) reply(ctx context.Context, text string) {
	r, err := c.s.engine.Synthesize(text, int(c.creativity.Load()))
	if err != nil {
		fmt.Fprintln(c.out, errorStyle.Render("error: "+err.Error()))
		return
	}
	c.lastReply = r.MessageID
	fmt.Fprintln(c.out, r.Text)

	detail := []string{string(r.Meta.Strategy), string(r.Meta.Tone)}
	if r.Meta.Similarity != "" {
		detail = append(detail, "similarity "+r.Meta.Similarity)
	}
	fmt.Fprintln(c.out, detailStyle.Render("  ["+strings.Join(detail, ", ")+"]"))
	c.persist(ctx)
}

func (c *chat) feedback(ctx context.Context, satisfied bool) {
	if c.lastReply == "" {
		fmt.Fprintln(c.out, noticeStyle.Render("nothing to rate yet"))
		return
	}
	fb, err := c.s.engine.Feedback(c.lastReply, satisfied)
	if err != nil {
		fmt.Fprintln(c.out, errorStyle.Render("error: "+err.Error()))
		return
	}
	fmt.Fprintf(c.out, "marked %s\n", fb.Status)
	c.persist(ctx)
}

func (c *chat) plant(ctx context.Context, rest string) {
	prompt, response, ok := strings.Cut(rest, "=>")
	if !ok {
		fmt.Fprintln(c.out, noticeStyle.Render("usage: /plant prompt => response"))
		return
	}
	seed, err := c.s.engine.PlantSeed(prompt, response, nil)
	if err != nil {
		fmt.Fprintln(c.out, errorStyle.Render("error: "+err.Error()))
		return
	}
	fmt.Fprintf(c.out, "planted %s with %d tags\n", seed.ID, len(seed.Tags))
	c.persist(ctx)
}

func (c *chat) stats() {
	m, streak := c.s.engine.Metrics()
	fmt.Fprintf(c.out, "messages %d, seed uses %d, satisfied %d, promoted %d, reuse %.3f, streak %d days\n",
		m.TotalMessages, m.SeedUses, m.SatisfiedReplies, m.PromotedReplies, m.SeedReuseRate, streak.Days)

	summary, err := c.s.metrics.Summary()
	if err != nil {
		c.s.logger.Warn("read session counters", zap.Error(err))
		return
	}
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.out, "  %s %g\n", k, summary[k])
	}
}

// afterPromotion saves when a pass changed something. It runs on the
// scheduler goroutine as well as from /promote.
func (c *chat) afterPromotion(r promotion.Report) {
	if r.Promoted == 0 {
		return
	}
	c.persist(context.Background())
}

func (c *chat) persist(ctx context.Context) {
	if err := c.s.save(ctx); err != nil {
		c.s.logger.Warn("save garden", zap.Error(err))
	}
}

// applyConfig takes a reloaded config. The database path and promotion
// interval are fixed for the session, and a dial set with /dial or
// --creativity survives reloads that leave creativity unchanged.
func (c *chat) applyConfig(cfg *config.Config) {
	if err := c.s.engine.SetTagging(cfg.Tagging); err != nil {
		c.s.logger.Warn("reload tagging", zap.Error(err))
	}
	c.s.engine.SetMinScore(cfg.Match.MinScore)
	if lvl, err := config.ParseLevel(cfg.LogLevel); err == nil {
		c.s.level.SetLevel(lvl)
	}
	if prev := c.fileCreativity.Swap(int64(cfg.Creativity)); prev != int64(cfg.Creativity) {
		c.creativity.Store(int64(cfg.Creativity))
	}
	c.s.logger.Info("config reloaded",
		zap.Float64("min_score", cfg.Match.MinScore),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("creativity", cfg.Creativity),
	)
}
