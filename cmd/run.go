package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/pipeline"
	"github.com/dealmap/promo-cli/internal/runlock"
	"github.com/dealmap/promo-cli/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full extraction pipeline",
	Long: `Processes every gold record: validates extracted promotion entries,
assembles spots, links them to canonical venues, and replaces the previous
run's automated spots. Records whose content hash is unchanged since the
last run are skipped.

Manual spots and admin-edited spots are never touched.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	p, err := pipeline.New(cfg, st, nil)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("processed %d record(s), skipped %d, failed %d\n", res.Records, res.Skipped, res.Failed)
	fmt.Printf("created %d spot(s); %d flagged, %d rejected for review\n", res.SpotsCreated, res.Flagged, res.Rejected)
	return nil
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
