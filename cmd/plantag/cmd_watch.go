package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/plantag/pkg/plantag"
	"github.com/cognicore/plantag/pkg/plantag/config"
	"github.com/cognicore/plantag/pkg/plantag/internalerr"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Classify tags read from stdin while reloading changed registry files",
	Long: `Read one tag per line from stdin and print a one-line summary per tag:

  ITEM-ID  BUCKET  SCORE  IDENTIFIER

Registry files are watched; an edit takes effect for the next line. A broken
edit is logged and the previous registries stay active.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if fromDB {
		return fmt.Errorf("watch reloads registry files; drop --from-db")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	w := config.NewWatcher(s.loader, s.holder, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		// The watcher only stops on cancellation.
		defer stop()
		return classifyLines(gctx, cmd, s.engine)
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func classifyLines(ctx context.Context, cmd *cobra.Command, e *plantag.Engine) error {
	// Scanning blocks on stdin, so it runs apart from the cancellable loop.
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			o, err := e.Process(ctx, plantag.Item{Tag: strings.TrimSpace(line)})
			if err != nil && !errors.Is(err, internalerr.ErrHardInput) {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\t%d\t%s\n",
				o.ItemID, o.Disposition.QualityBucket, o.Tokens.Score0to100, o.Disposition.Identifier)
		}
	}
}
