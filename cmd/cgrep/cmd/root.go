package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/logging"
	"github.com/cgrep/cgrep/internal/profiling"
)

var (
	debugMode      bool
	cpuProfilePath string
	loggingCleanup func()
	stopCPUProfile func()
)

// NewRootCmd creates the root cgrep command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cgrep",
		Short: "Local-first hybrid code search (BM25 + symbols + semantic)",
		Long: `cgrep indexes a codebase's text, symbols, and (optionally) semantic
embeddings, then answers keyword, semantic, or hybrid queries entirely
offline. Run 'cgrep index' once, then 'cgrep search <query>'.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.cgrep/logs/")
	cmd.PersistentFlags().StringVar(&cpuProfilePath, "cpuprofile", "", "write a CPU profile to this path for the duration of the command")
	cmd.PersistentPreRunE = startInstrumentation
	cmd.PersistentPostRunE = stopInstrumentation

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSymbolsCmd())
	cmd.AddCommand(newDefinitionCmd())
	cmd.AddCommand(newCallersCmd())
	cmd.AddCommand(newReferencesCmd())
	cmd.AddCommand(newDependentsCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// startInstrumentation honors CGREP_LOG (§6 Environment), --debug, and
// --cpuprofile, wiring them up before the subcommand's RunE executes.
func startInstrumentation(cmd *cobra.Command, args []string) error {
	if err := startLogging(cmd, args); err != nil {
		return err
	}
	return startCPUProfile()
}

func stopInstrumentation(cmd *cobra.Command, args []string) error {
	if stopCPUProfile != nil {
		stopCPUProfile()
		stopCPUProfile = nil
	}
	return stopLogging(cmd, args)
}

// startLogging honors CGREP_LOG (§6 Environment) and --debug, both routing
// to the same rotating file logger.
func startLogging(_ *cobra.Command, _ []string) error {
	level := os.Getenv("CGREP_LOG")
	if level == "" && !debugMode {
		return nil
	}
	if level == "" {
		level = "debug"
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

func startCPUProfile() error {
	if cpuProfilePath == "" {
		return nil
	}
	cleanup, err := profiling.NewProfiler().StartCPU(cpuProfilePath)
	if err != nil {
		return fmt.Errorf("start cpu profile: %w", err)
	}
	stopCPUProfile = cleanup
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
