package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/compute/internal/array"
	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/function"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

func newConvolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convolve",
		Short: "Time a convolution of a random image on the CPU",
		Args:  cobra.NoArgs,
		RunE:  ConvolveHandler,
	}
	cmd.Flags().Int("width", 1920, "Image width")
	cmd.Flags().Int("height", 1080, "Image height")
	cmd.Flags().Int("size", 3, "Matrix size: 3, 5, 7 or 9")
	cmd.Flags().String("matrix", "gaussian", "Matrix: gaussian, box or sharpen")
	cmd.Flags().String("border", "replicate", "Border mode: undefined, constant or replicate")
	cmd.Flags().Uint8("constant", 0, "Border value for the constant mode")
	cmd.Flags().String("output", "U8", "Output data type: U8 or S16")
	addBenchFlags(cmd)
	return cmd
}

func newMinMaxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minmax",
		Short: "Time a min max location of a random image on the CPU",
		Args:  cobra.NoArgs,
		RunE:  MinMaxHandler,
	}
	cmd.Flags().Int("width", 1920, "Image width")
	cmd.Flags().Int("height", 1080, "Image height")
	cmd.Flags().String("type", "U8", "Data type: U8, S16 or F32")
	cmd.Flags().Int("locations", 8, "Number of locations kept for each extremum")
	addBenchFlags(cmd)
	return cmd
}

func addBenchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("threads", 0, "Scheduler workers (default BORN_NUM_THREADS or one per CPU)")
	cmd.Flags().Int("repeat", 10, "Number of timed runs")
	cmd.Flags().Uint64("seed", 1, "Random image seed")
}

type benchOptions struct {
	threads int
	repeat  int
	seed    uint64
}

func getBenchOptions(cmd *cobra.Command) (benchOptions, error) {
	var opts benchOptions
	var err error
	if opts.threads, err = cmd.Flags().GetInt("threads"); err != nil {
		return opts, err
	}
	if opts.repeat, err = cmd.Flags().GetInt("repeat"); err != nil {
		return opts, err
	}
	if opts.seed, err = cmd.Flags().GetUint64("seed"); err != nil {
		return opts, err
	}
	if opts.threads < 0 {
		return opts, fmt.Errorf("invalid thread count %d", opts.threads)
	}
	if opts.repeat < 1 {
		return opts, fmt.Errorf("invalid repeat count %d", opts.repeat)
	}
	return opts, nil
}

// convolutionMatrix returns the size x size coefficients of the named
// matrix, row major.
func convolutionMatrix(name string, size int) ([]int16, error) {
	switch name {
	case "gaussian":
		row := binomial(size)
		m := make([]int16, 0, size*size)
		for _, a := range row {
			for _, b := range row {
				m = append(m, a*b)
			}
		}
		return m, nil
	case "box":
		m := make([]int16, size*size)
		for i := range m {
			m[i] = 1
		}
		return m, nil
	case "sharpen":
		// Laplacian cross added to the identity; not separable.
		m := make([]int16, size*size)
		c := size / 2
		m[c*size+c] = 5
		m[(c-1)*size+c], m[(c+1)*size+c] = -1, -1
		m[c*size+c-1], m[c*size+c+1] = -1, -1
		return m, nil
	default:
		return nil, fmt.Errorf("unknown matrix %q", name)
	}
}

// binomial returns row size-1 of Pascal's triangle.
func binomial(size int) []int16 {
	row := []int16{1}
	for range size - 1 {
		next := make([]int16, len(row)+1)
		next[0], next[len(row)] = 1, 1
		for i := 1; i < len(row); i++ {
			next[i] = row[i-1] + row[i]
		}
		row = next
	}
	return row
}

// allocateRandom allocates x and fills its valid region with values
// spanning the range of its data type.
func allocateRandom(x *tensor.Tensor, seed uint64) error {
	if err := x.Allocate(); err != nil {
		return err
	}
	info := x.Info()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	lo, hi := info.DataType().Range()
	if info.DataType().IsFloat() {
		lo, hi = -1000, 1000
	}
	tensor.ForEachValid(x, func(_ int, c tensor.Coordinates) {
		x.SetFloat(c, lo+rng.Float64()*(hi-lo))
	})
	return nil
}

// timeRuns calls run repeat times and returns the durations in
// microseconds.
func timeRuns(repeat int, run func()) []float64 {
	samples := make([]float64, repeat)
	for i := range samples {
		start := time.Now()
		run()
		samples[i] = float64(time.Since(start).Microseconds())
	}
	return samples
}

func printTimings(w io.Writer, samples []float64) {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	mean, std := stat.MeanStdDev(samples, nil)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	table := newTable(w, "RUNS", "MEAN", "STDDEV", "MEDIAN", "MIN", "MAX")
	table.Append([]string{
		strconv.Itoa(len(samples)),
		formatMicros(mean),
		formatMicros(std),
		formatMicros(median),
		formatMicros(floats.Min(samples)),
		formatMicros(floats.Max(samples)),
	})
	table.Render()
}

func formatMicros(us float64) string {
	return (time.Duration(us) * time.Microsecond).String()
}

// ConvolveHandler runs a convolution of a random U8 image and prints its
// timings.
func ConvolveHandler(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	size, _ := flags.GetInt("size")
	name, _ := flags.GetString("matrix")
	borderName, _ := flags.GetString("border")
	constant, _ := flags.GetUint8("constant")
	outputName, _ := flags.GetString("output")
	opts, err := getBenchOptions(cmd)
	if err != nil {
		return err
	}

	mode, err := tensor.ParseBorderMode(borderName)
	if err != nil {
		return err
	}
	coeffs, err := convolutionMatrix(name, size)
	if err != nil {
		return err
	}
	inInfo, err := tensor.NewInfo(tensor.Shape{width, height}, tensor.U8)
	if err != nil {
		return err
	}
	outInfo, err := tensor.NewInfo(tensor.Shape{width, height}, tensor.ParseDataType(outputName))
	if err != nil {
		return err
	}

	sched := scheduler.NewCPU(opts.threads)
	src, dst := tensor.New(inInfo), tensor.New(outInfo)
	conv := function.NewConvolution(sched)
	if err := conv.Configure(src, dst, coeffs, size, 0, mode, float64(constant)); err != nil {
		return err
	}
	defer conv.Close()

	// Configure has added the padding the kernels need.
	if err := allocateRandom(src, opts.seed); err != nil {
		return err
	}
	if err := dst.Allocate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Convolution %dx%d %s on %dx%d, %s border, %s output, %d threads, separable %t\n\n",
		size, size, name, width, height, mode, dst.Info().DataType(), sched.NumThreads(), conv.Separable())
	printTimings(out, timeRuns(opts.repeat, conv.Run))
	return nil
}

// MinMaxHandler runs a min max location of a random image and prints the
// extrema and timings.
func MinMaxHandler(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	typeName, _ := flags.GetString("type")
	locations, _ := flags.GetInt("locations")
	opts, err := getBenchOptions(cmd)
	if err != nil {
		return err
	}

	info, err := tensor.NewInfo(tensor.Shape{width, height}, tensor.ParseDataType(typeName))
	if err != nil {
		return err
	}
	x := tensor.New(info)
	if err := allocateRandom(x, opts.seed); err != nil {
		return err
	}

	sched := scheduler.NewCPU(opts.threads)
	minLoc, maxLoc := array.New[array.Coordinates2D](locations), array.New[array.Coordinates2D](locations)
	f := function.NewMinMaxLocation(sched)
	if err := f.Configure(x, minLoc, maxLoc); err != nil {
		return err
	}

	var result cpu.MinMaxResult
	samples := timeRuns(opts.repeat, func() { result = f.Run() })

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Min max location on %dx%d %s, %d threads\n\n", width, height, info.DataType(), sched.NumThreads())
	table := newTable(out, "", "VALUE", "COUNT", "LOCATIONS")
	table.Append([]string{"min", strconv.FormatFloat(result.Min, 'g', -1, 64), strconv.FormatUint(uint64(result.MinCount), 10), formatLocations(minLoc)})
	table.Append([]string{"max", strconv.FormatFloat(result.Max, 'g', -1, 64), strconv.FormatUint(uint64(result.MaxCount), 10), formatLocations(maxLoc)})
	table.Render()
	fmt.Fprintln(out)
	printTimings(out, samples)
	return nil
}

func formatLocations(a *array.Coordinates2DArray) string {
	s := fmt.Sprint(a.Values())
	if a.Overflow() {
		s += " ..."
	}
	return s
}
