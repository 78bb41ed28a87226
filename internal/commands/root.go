package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/config"
	"github.com/avanti-suite/timekeep/internal/store"
	"github.com/avanti-suite/timekeep/internal/tracker"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "timekeep",
	Short: "Task time tracking for support teams",
	Long: `timekeep records working sessions against support tasks and keeps
per-task totals consistent across everyone watching the same task.`,
}

// runtime bundles everything a command needs: config, logger, the
// ledger store and the process-wide session manager. Constructing the
// manager also recovers any session orphaned by a previous run.
type runtime struct {
	cfg     config.Config
	log     *logrus.Logger
	store   *store.Store
	manager *tracker.Manager
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	st, err := store.Open(cfg, log)
	if err != nil {
		return nil, err
	}

	mgr, err := tracker.NewManager(st, cfg.StateDir, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, log: log, store: st, manager: mgr}, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		rt.log.WithError(err).Warn("failed to close store")
	}
}

// withRuntime wraps a command function so the runtime is opened first
// and closed afterwards.
func withRuntime(fn func(*runtime, *cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		rt, err := openRuntime()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer rt.Close()
		fn(rt, cmd, args)
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("timekeep %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(totalCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
