package main

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/backend/webgpu"
	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/envconfig"
	"github.com/born-ml/compute/internal/logutil"
)

// appendEnvDocs lists envs in the usage text of cmd.
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI builds the root command with every subcommand.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "born",
		Short:         "Image kernels on CPU and WebGPU",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				versionHandler(cmd, args)
				return
			}
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run:   versionHandler,
	}
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show configuration read from the environment",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}
	featuresCmd := &cobra.Command{
		Use:   "features",
		Short: "Show CPU features, selected kernel routines and the GPU",
		Args:  cobra.NoArgs,
		RunE:  FeaturesHandler,
	}
	featuresCmd.Flags().Bool("all", false, "List every registered routine, not only the selected one")

	convolveCmd := newConvolveCmd()
	minMaxCmd := newMinMaxCmd()
	tuneCmd := newTuneCmd()

	envVars := envconfig.AsMap()
	cpuEnvs := []envconfig.EnvVar{
		envVars["BORN_DEBUG"],
		envVars["BORN_NUM_THREADS"],
		envVars["BORN_NO_SIMD"],
		envVars["BORN_NO_FP16"],
	}
	appendEnvDocs(featuresCmd, cpuEnvs)
	appendEnvDocs(convolveCmd, cpuEnvs)
	appendEnvDocs(minMaxCmd, cpuEnvs)
	appendEnvDocs(tuneCmd, []envconfig.EnvVar{
		envVars["BORN_DEBUG"],
		envVars["BORN_TUNER_FILE"],
		envVars["BORN_TUNER_MODE"],
		envVars["BORN_GPU_SYNC"],
	})

	rootCmd.AddCommand(
		versionCmd,
		envCmd,
		featuresCmd,
		convolveCmd,
		minMaxCmd,
		tuneCmd,
	)

	return rootCmd
}

func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "born compute %s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// newTable returns a borderless, left aligned table writing to w.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// EnvHandler prints every configuration variable with its current value.
func EnvHandler(cmd *cobra.Command, _ []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	table := newTable(cmd.OutOrStdout(), "NAME", "VALUE", "DESCRIPTION")
	for _, name := range names {
		v := vars[name]
		table.Append([]string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	table.Render()
	return nil
}

// FeaturesHandler prints the host features, the routine each CPU kernel
// selected and the GPU adapter, if any.
func FeaturesHandler(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	backend := cpu.New()
	host := cpuinfo.Host()
	fmt.Fprintf(out, "CPU:      %s (%d threads)\n", orNone(host.String()), backend.Scheduler().NumThreads())
	if used := backend.Features(); used != host {
		fmt.Fprintf(out, "Enabled:  %s\n", orNone(used.String()))
	}
	if ctx, err := webgpu.NewContext(); err == nil {
		fmt.Fprintf(out, "GPU:      %s\n", ctx.AdapterName())
		if err := ctx.Close(); err != nil {
			slog.Warn("closing gpu context", "error", err)
		}
	} else {
		slog.Debug("no gpu", "error", err)
		fmt.Fprintln(out, "GPU:      none")
	}
	fmt.Fprintln(out)

	header := []string{"KERNEL", "KEY", "ROUTINE"}
	if all {
		header = append(header, "REGISTERED")
	}
	table := newTable(out, header...)
	for _, r := range backend.Routines() {
		row := []string{r.Kernel, r.Key, orNone(r.Selected)}
		if all {
			row = append(row, strings.Join(r.Choices, ", "))
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
