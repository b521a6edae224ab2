package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/compute/internal/backend/webgpu"
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Tune GPU workgroup sizes and save them to the tuner table",
		Args:  cobra.NoArgs,
		RunE:  TuneHandler,
	}
	cmd.Flags().String("mode", "", "Tuning mode: rapid, normal or exhaustive (default BORN_TUNER_MODE)")
	cmd.Flags().String("file", "", "Tuner table path (default BORN_TUNER_FILE)")
	cmd.Flags().StringSlice("shape", []string{"640x480", "1920x1080"}, "Image shapes as WIDTHxHEIGHT")
	cmd.Flags().IntSlice("size", []int{3, 5, 7, 9}, "Convolution matrix sizes")
	cmd.Flags().Bool("addition", true, "Also tune the F32 addition")
	return cmd
}

func parseShape(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid shape %q", s)
	}
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, fmt.Errorf("invalid shape %q: %w", s, err)
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("invalid shape %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid shape %q", s)
	}
	return width, height, nil
}

// TuneHandler runs every requested GPU kernel configuration once, which
// tunes it, then prints the tuner table. The table is saved when the
// context closes.
func TuneHandler(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	mode, _ := flags.GetString("mode")
	file, _ := flags.GetString("file")
	shapes, _ := flags.GetStringSlice("shape")
	sizes, _ := flags.GetIntSlice("size")
	addition, _ := flags.GetBool("addition")

	// The context reads its tuner settings from the environment.
	if mode != "" {
		if _, err := webgpu.ParseTunerMode(mode); err != nil {
			return err
		}
		if err := os.Setenv("BORN_TUNER_MODE", mode); err != nil {
			return err
		}
	}
	if file != "" {
		if err := os.Setenv("BORN_TUNER_FILE", file); err != nil {
			return err
		}
	}

	ctx, err := webgpu.NewContext()
	if err != nil {
		return err
	}
	tuner := ctx.Tuner()
	out := cmd.OutOrStdout()
	err = runTuning(ctx, shapes, sizes, addition)
	if cerr := ctx.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("saving tuner table: %w", cerr))
	}
	if err != nil {
		return err
	}

	entries := tuner.Entries()
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	table := newTable(out, "CONFIGURATION", "WORKGROUP", "MEAN", "STDDEV")
	for _, id := range ids {
		e := entries[id]
		table.Append([]string{id, e.Workgroup.String(), formatMicros(e.MeanUS), formatMicros(e.StdDevUS)})
	}
	table.Render()

	if path := tuner.Path(); path != "" {
		fmt.Fprintf(out, "\nSaved to %s\n", path)
	}
	return nil
}

func runTuning(ctx *webgpu.Context, shapes []string, sizes []int, addition bool) error {
	if ctx.Tuner().Mode() == webgpu.TunerNone {
		return errors.New("tuning is disabled, set --mode or BORN_TUNER_MODE")
	}
	slog.Info("tuning", "adapter", ctx.AdapterName(), "mode", ctx.Tuner().Mode())
	for _, shape := range shapes {
		width, height, err := parseShape(shape)
		if err != nil {
			return err
		}
		for _, size := range sizes {
			wg, err := ctx.TuneConvolution(width, height, size)
			if err != nil {
				return fmt.Errorf("convolution %dx%d on %s: %w", size, size, shape, err)
			}
			slog.Debug("tuned", "kernel", "convolution", "size", size, "shape", shape, "workgroup", wg)
		}
		if addition {
			wg, err := ctx.TuneAddition(width, height)
			if err != nil {
				return fmt.Errorf("addition on %s: %w", shape, err)
			}
			slog.Debug("tuned", "kernel", "addition", "shape", shape, "workgroup", wg)
		}
	}
	return nil
}
