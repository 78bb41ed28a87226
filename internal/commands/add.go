package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/tui"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task. With a title argument the task is created directly;
without one an interactive form opens.

Examples:
  timekeep add "Customer cannot log in" --note "ticket 4711"
  timekeep add`,
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		note, _ := cmd.Flags().GetString("note")

		if len(args) == 0 {
			if err := tui.RunAddTaskTUI(rt.store); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			return
		}

		title := strings.TrimSpace(strings.Join(args, " "))
		if title == "" {
			fmt.Println("Error: title must not be empty")
			return
		}

		task, err := rt.store.CreateTask(context.Background(), title, note)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("✅ Task #%d created: %s\n", task.ID, task.Title)
	}),
}

func init() {
	addCmd.Flags().String("note", "", "Optional note for the task")
}
