package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/format"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with their tracked totals",
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		tasks, err := rt.store.ListTasks(context.Background())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks yet. Create one with 'timekeep add'.")
			return
		}

		fmt.Printf("%-5s %-12s %-10s %s\n", "ID", "STATUS", "TRACKED", "TITLE")
		for _, task := range tasks {
			fmt.Printf("#%-4d %-12s %-10s %s\n",
				task.ID,
				task.Status,
				format.HHMMSS(task.TotalDurationSeconds),
				task.Title,
			)
		}
	}),
}
