package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/pipeline"
	"github.com/dealmap/promo-cli/internal/runlock"
	"github.com/dealmap/promo-cli/pkg/anthropic"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review flagged and rejected entries via Claude",
	Long: `Sends every undecided flagged or rejected promotion entry through LLM
review in batches. High-confidence verdicts are applied immediately and the
affected spots rebuilt; the rest are listed for a human to decide.`,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Anthropic.Key == "" {
		return eris.New("anthropic.key is not configured (set PROMO_ANTHROPIC_KEY)")
	}

	lock := runlock.New(cfg.Lock.Path, time.Duration(cfg.Lock.StaleAfterM)*time.Minute)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			zap.L().Warn("release run lock", zap.Error(err))
		}
	}()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := pipeline.New(cfg, st, anthropic.NewClient(cfg.Anthropic.Key))
	if err != nil {
		return err
	}

	out, err := p.ReviewFlagged(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("auto-applied %d decision(s), %d awaiting human review, %d error(s)\n",
		len(out.AutoApplied), len(out.NeedsHumanReview), out.Errors)
	for _, e := range out.NeedsHumanReview {
		fmt.Printf("  - %s %q times=%q days=%q: %s\n",
			e.ActivityType, e.Label, e.Times, e.Days, e.LLMReasoning)
	}
	return nil
}
