package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/models"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task as completed",
	Long: `Mark a task as completed. A session currently tracked against the
task by this process is closed first; completed tasks never track time.`,
	Args: cobra.ExactArgs(1),
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		setStatus(rt, args[0], models.StatusCompleted)
	}),
}

var reopenCmd = &cobra.Command{
	Use:   "reopen [task-id]",
	Short: "Reopen a completed task",
	Args:  cobra.ExactArgs(1),
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		setStatus(rt, args[0], models.StatusNew)
	}),
}

func setStatus(rt *runtime, rawID string, status models.TaskStatus) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		fmt.Printf("Error: invalid task ID '%s'\n", rawID)
		return
	}
	ctx := context.Background()

	if !status.Trackable() {
		// Completing a task while its timer runs locally flushes the
		// interval before the status flips.
		if _, activeTask, ok := rt.manager.Active(); ok && activeTask == uint(id) {
			rt.manager.EndCurrent(ctx, false)
		}
	}

	task, err := rt.store.SetTaskStatus(ctx, uint(id), status)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("✅ Task #%d is now %s: %s\n", task.ID, task.Status, task.Title)
}
