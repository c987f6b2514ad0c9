package cmd

import (
	"fmt"
	"github.com/cay-lang/cay/internal/log"
	"github.com/cay-lang/cay/trace"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
)

var TraceCmd = &cobra.Command{
	Use:          "trace file.yml [file2.yml ...]",
	Short:        "Replay inference scenarios and report what the solver did",
	RunE:         runTrace,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	logLevel *int
	noColor  *bool
)

func init() {
	logLevel = TraceCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
	noColor = TraceCmd.Flags().Bool("no-color", false, "disable colors in the report")
}

func runTrace(cmd *cobra.Command, args []string) (err error) {
	log.SetLevel(slog.Level(*logLevel))

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rErr, ok := r.(error)
		if !ok {
			panic(r)
		}
		err = fmt.Errorf("solver invariant broken (this is a bug and not a scenario error):\n%+v", rErr)
	}()

	color := !*noColor && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	for i, file := range args {
		contents, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("could not read scenario: %w", err)
		}

		var sc trace.Scenario
		if err := yaml.Unmarshal(contents, &sc); err != nil {
			return fmt.Errorf("could not parse scenario %s: %w", file, err)
		}
		if sc.Name == "" {
			sc.Name = file
		}

		report, err := trace.Run(sc)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		if i > 0 {
			fmt.Println()
		}
		report.Render(os.Stdout, color)
	}
	return nil
}
