package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/marsvis/internal/export"
	"github.com/san-kum/marsvis/internal/state"
	"github.com/san-kum/marsvis/internal/viz"
)

var (
	captureFormat  string
	captureOut     string
	captureAfter   int
	captureWidth   int
	captureHeight  int
	captureScale   float64
	captureTimeout time.Duration
)

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "wait for data and write one snapshot as svg or json",
		Args:  cobra.NoArgs,
		RunE:  runCapture,
	}
	cmd.Flags().StringVarP(&captureFormat, "format", "f", "svg", "output format (svg, json)")
	cmd.Flags().StringVarP(&captureOut, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().IntVar(&captureAfter, "after", 1, "messages to merge before capturing")
	cmd.Flags().IntVar(&captureWidth, "width", 80, "canvas width in cells (svg)")
	cmd.Flags().IntVar(&captureHeight, "height", 40, "canvas height in cells (svg)")
	cmd.Flags().Float64Var(&captureScale, "scale", 4, "svg units per dot")
	cmd.Flags().DurationVar(&captureTimeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(captureFormat)
	if format != "svg" && format != "json" {
		return fmt.Errorf("unknown format: %s (available: svg, json)", captureFormat)
	}

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
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	if err := collect(ctx, sess.client, captureAfter, func() {}); err != nil {
		return fmt.Errorf("capture %s: %w", cfg.Address, err)
	}
	snap, ok := sess.store.Snapshot()
	if !ok {
		return fmt.Errorf("capture %s: simulation sent no data", cfg.Address)
	}

	out := cmd.OutOrStdout()
	if captureOut != "-" {
		f, err := os.Create(captureOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	bw := bufio.NewWriter(out)
	if err := writeCapture(bw, format, snap); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if captureOut != "-" {
		sess.log.Info("snapshot written", "file", captureOut, "format", format, "tick", snap.Progress.CurrentTick)
	}
	return nil
}

func writeCapture(w io.Writer, format string, snap state.Snapshot) error {
	if format == "json" {
		return export.WriteJSON(w, snap)
	}
	c := viz.NewCanvas(captureWidth, captureHeight)
	viz.Draw(c, snap)
	_, err := io.WriteString(w, export.CanvasToSVG(c, captureScale)+"\n")
	return err
}
