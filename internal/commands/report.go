package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/format"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List tracked sessions in a date range",
	Long: `List closed sessions within a date range. Defaults to today.

Examples:
  timekeep report
  timekeep report --from 2026-08-01 --to 2026-08-31`,
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		now := time.Now()
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		to := from.AddDate(0, 0, 1)

		if raw, _ := cmd.Flags().GetString("from"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
			if err != nil {
				fmt.Printf("Error: invalid --from date '%s' (expected YYYY-MM-DD)\n", raw)
				return
			}
			from = parsed
		}
		if raw, _ := cmd.Flags().GetString("to"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
			if err != nil {
				fmt.Printf("Error: invalid --to date '%s' (expected YYYY-MM-DD)\n", raw)
				return
			}
			to = parsed.AddDate(0, 0, 1)
		}

		sessions, err := rt.store.SessionsInRange(context.Background(), from, to)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(sessions) == 0 {
			fmt.Println("No tracked sessions in this range.")
			return
		}

		var total int64
		fmt.Printf("%-20s %-6s %-10s %s\n", "STARTED", "TASK", "DURATION", "USER")
		for _, sess := range sessions {
			total += int64(sess.DurationSeconds)
			fmt.Printf("%-20s #%-5d %-10s %s\n",
				sess.StartedAt.Format("2006-01-02 15:04:05"),
				sess.TaskID,
				format.HHMMSS(int64(sess.DurationSeconds)),
				sess.UserID,
			)
		}
		fmt.Printf("\nTotal: %s across %d sessions\n", format.HHMMSS(total), len(sessions))
	}),
}

func init() {
	reportCmd.Flags().String("from", "", "Range start (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Range end, inclusive (YYYY-MM-DD)")
}
