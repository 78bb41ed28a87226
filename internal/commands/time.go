package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/format"
	"github.com/avanti-suite/timekeep/internal/tracker"
	"github.com/avanti-suite/timekeep/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start tracking time on a task",
	Long: `Start tracking time on a task. Opens the interactive timer by
default; use --no-ui to start the session and return immediately.

Examples:
  timekeep start 42         # Start timer with interactive UI
  timekeep start 42 --no-ui # Start timer and detach`,
	Args: cobra.ExactArgs(1),
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		taskID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Printf("Error: invalid task ID '%s'\n", args[0])
			return
		}
		ctx := context.Background()

		task, err := rt.store.GetTask(ctx, uint(taskID))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if !task.Status.Trackable() {
			fmt.Printf("Error: task #%d is %s and cannot be tracked\n", task.ID, task.Status)
			return
		}

		agg := tracker.NewAggregator(rt.store, task.ID, rt.log)
		aggCtx, stopAgg := context.WithCancel(ctx)
		defer stopAgg()
		go agg.Run(aggCtx)

		ctrl := tracker.NewController(rt.store, rt.manager, agg, task.ID, rt.cfg.UserID, rt.log)
		ctrl.SetStatus(ctx, task.Status)
		ctrl.SetViewActive(ctx, true)
		if !ctrl.Tracking() {
			fmt.Println("Error: could not start a session, try again")
			return
		}

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			// Leave the session running and hand it back to the ledger.
			rt.manager.Detach()
			fmt.Printf("⏱️  Started tracking time for task #%d: %s\n", task.ID, task.Title)
			fmt.Println("Stop it later with 'timekeep stop'.")
			return
		}

		// A kill signal mid-timer must not lose the interval: flush on
		// a detached context before exiting.
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)
		go func() {
			<-sigs
			rt.manager.EndCurrent(ctx, true)
			os.Exit(1)
		}()

		outcome, err := tui.RunTimerTUI(rt.store, ctrl, agg, task)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		switch outcome {
		case tui.TimerDetached:
			rt.manager.Detach()
			fmt.Printf("⏱️  Still tracking task #%d in the background. Stop with 'timekeep stop'.\n", task.ID)
		case tui.TimerStopped:
			ctrl.SetViewActive(ctx, false)
			rt.manager.EndCurrent(ctx, true)
			total, _ := rt.store.SumTaskDuration(ctx, task.ID)
			fmt.Printf("⏹️  Stopped tracking task #%d: %s\n", task.ID, task.Title)
			fmt.Printf("Task total: %s\n", format.HHMMSS(total))
		case tui.TimerCompleted:
			fmt.Printf("✅ Task #%d completed: %s\n", task.ID, task.Title)
		}
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracking time",
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		ctx := context.Background()

		session, err := rt.store.FindOpenSessionForUser(ctx, rt.cfg.UserID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if session == nil {
			fmt.Println("No active time tracking session")
			return
		}

		task, err := rt.store.GetTask(ctx, session.TaskID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		elapsed := format.ElapsedSeconds(session.StartedAt, time.Now())
		if !rt.manager.Adopt(ctx, session) || !rt.manager.EndCurrent(ctx, false) {
			fmt.Println("Error: failed to stop the session, try again")
			return
		}

		if elapsed < 1 {
			fmt.Printf("⏹️  Discarded a sub-second session for task #%d: %s\n", task.ID, task.Title)
			return
		}
		fmt.Printf("⏹️  Stopped tracking time for task #%d: %s\n", task.ID, task.Title)
		fmt.Printf("Session duration: %s\n", format.Human(time.Duration(elapsed)*time.Second))
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current time tracking status",
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		ctx := context.Background()

		session, err := rt.store.FindOpenSessionForUser(ctx, rt.cfg.UserID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if session == nil {
			fmt.Println("No active time tracking session")
			return
		}

		task, err := rt.store.GetTask(ctx, session.TaskID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		elapsed := format.ElapsedSeconds(session.StartedAt, time.Now())
		fmt.Printf("⏱️  Currently tracking: task #%d: %s\n", task.ID, task.Title)
		fmt.Printf("Started at: %s\n", session.StartedAt.Format("15:04:05"))
		fmt.Printf("Elapsed time: %s\n", format.HHMMSS(int64(elapsed)))
	}),
}

func init() {
	startCmd.Flags().Bool("no-ui", false, "Start timer without interactive UI")
}
