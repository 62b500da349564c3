package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/marsvis/internal/ingest"
	"github.com/san-kum/marsvis/internal/state"
)

var (
	probeCount   int
	probeTimeout time.Duration
)

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "read a few snapshots and summarize the stream",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}
	cmd.Flags().IntVarP(&probeCount, "count", "n", 50, "messages to read")
	cmd.Flags().DurationVar(&probeTimeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

// collect drives the client directly until want messages have been
// merged. onMerge runs after every merge.
func collect(ctx context.Context, client *ingest.Client, want int, onMerge func()) error {
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	for merged := 0; merged < want; {
		if !client.Connected() {
			if err := client.Connect(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
		status, err := client.ReceiveAndMerge()
		switch {
		case status == ingest.Merged:
			merged++
			onMerge()
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ingest.ErrClosed):
			return err
		}
	}
	return nil
}

type probeResult struct {
	elapsed time.Duration
	ticks   []float64
	last    state.Snapshot
	stats   ingest.Stats
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Headless = true
	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signalContext(cmd)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var res probeResult
	start := time.Now()
	err = collect(ctx, sess.client, probeCount, func() {
		res.ticks = append(res.ticks, float64(sess.store.Progress().CurrentTick))
	})
	res.elapsed = time.Since(start)
	res.stats = sess.client.Stats()
	res.last, _ = sess.store.Snapshot()

	if len(res.ticks) == 0 {
		if err == nil {
			err = errors.New("no messages received")
		}
		return fmt.Errorf("probe %s: %w", cfg.Address, err)
	}
	if err != nil {
		sess.log.Info("probe ended early", "received", len(res.ticks), "err", err.Error())
	}
	printProbe(cmd.OutOrStdout(), cfg.Address, res)
	return nil
}

func printProbe(out io.Writer, addr string, res probeResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ADDRESS\t%s\n", addr)
	fmt.Fprintf(w, "MESSAGES\t%d\n", res.stats.Merged)
	fmt.Fprintf(w, "DISCARDED\t%d\n", res.stats.Discarded)
	fmt.Fprintf(w, "BYTES\t%d\n", res.stats.Bytes)
	fmt.Fprintf(w, "ELAPSED\t%s\n", res.elapsed.Round(time.Millisecond))
	if secs := res.elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(w, "RATE\t%.1f msg/s\n", float64(res.stats.Merged)/secs)
	}
	p := res.last.Progress
	fmt.Fprintf(w, "TICK\t%d / %d\n", p.CurrentTick, p.MaxTicks)
	b := res.last.Bounds
	fmt.Fprintf(w, "WORLD\t(%d,%d)-(%d,%d)\n", b.MinX, b.MinY, b.MaxX, b.MaxY)
	fmt.Fprintf(w, "ENTITIES\t%d in %d types\n", res.last.EntityCount(), len(res.last.Entities))
	fmt.Fprintf(w, "GEOMETRIES\t%d\n", res.last.Geometries.Len())
	fmt.Fprintf(w, "RASTERS\t%d (%d cells)\n", len(res.last.Rasters), res.last.CellCount())
	w.Flush()

	if len(res.ticks) > 1 {
		graph := asciigraph.Plot(res.ticks,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("tick per message"))
		fmt.Fprintf(out, "\n%s\n", graph)
	}
}
