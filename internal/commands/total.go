package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/format"
)

var totalCmd = &cobra.Command{
	Use:   "total [task-id]",
	Short: "Show the tracked total for a task across all users",
	Args:  cobra.ExactArgs(1),
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
		total, err := rt.store.SumTaskDuration(ctx, task.ID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		fmt.Printf("Task #%d: %s\n", task.ID, task.Title)
		fmt.Printf("Tracked total: %s (%d seconds)\n", format.HHMMSS(total), total)
	}),
}
