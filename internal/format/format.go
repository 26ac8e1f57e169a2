// Package format renders dispatch results for chat-style consumers. All
// functions are pure so digests can be tested against fixed inputs.
package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xiy/taskbridge/internal/bridge"
	"github.com/xiy/taskbridge/pkg/types"
)

// Digest renders a human-readable summary of a successful dispatch result.
func Digest(res bridge.Result) string {
	switch res.Kind {
	case bridge.ResultAccount:
		if res.Empty {
			return "No matching account found."
		}
		return prettyJSON(res.Account)
	case bridge.ResultAccounts:
		return listDigest(len(res.Accounts), "account", res.Accounts)
	case bridge.ResultWorkItem:
		if res.Empty {
			return "No matching task found."
		}
		return prettyJSON(res.WorkItem)
	case bridge.ResultWorkItems:
		return listDigest(len(res.WorkItems), "task", res.WorkItems)
	case bridge.ResultDatabaseStats:
		return databaseStatsDigest(*res.DatabaseStats)
	case bridge.ResultAccountStats:
		return accountStatsDigest(*res.AccountStats)
	}
	return prettyJSON(res.Value())
}

func listDigest(n int, noun string, payload any) string {
	if n == 0 {
		return fmt.Sprintf("0 %ss found.", noun)
	}
	plural := noun
	if n != 1 {
		plural += "s"
	}
	return fmt.Sprintf("%d %s found:\n%s", n, plural, prettyJSON(payload))
}

func databaseStatsDigest(stats types.DatabaseStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Database statistics\n")
	fmt.Fprintf(&sb, "Users: %d\n", stats.UserCount)
	fmt.Fprintf(&sb, "Tasks: %d\n", stats.TaskCount)

	sb.WriteString("\nBy status:\n")
	for _, s := range types.Statuses() {
		fmt.Fprintf(&sb, "  %-10s %d\n", string(s), stats.ByStatus[s])
	}

	sb.WriteString("\nBy priority:\n")
	for _, p := range types.Priorities() {
		fmt.Fprintf(&sb, "  %-10s %d\n", string(p), stats.ByPriority[p])
	}

	if len(stats.RecentItems) > 0 {
		sb.WriteString("\nRecent activity:\n")
		for _, item := range stats.RecentItems {
			fmt.Fprintf(&sb, "  [%s] %s (%s)\n",
				item.CreatedAt.UTC().Format(time.RFC3339),
				item.Title,
				string(item.Status),
			)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func accountStatsDigest(stats types.AccountStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task statistics for account %s\n", stats.AccountID)
	fmt.Fprintf(&sb, "Created:  %d\n", stats.CreatedCount)
	fmt.Fprintf(&sb, "Assigned: %d\n", stats.AssignedCount)

	sb.WriteString("\nBy status:\n")
	for _, s := range types.Statuses() {
		fmt.Fprintf(&sb, "  %-10s %d\n", string(s), stats.ByStatus[s])
	}
	return strings.TrimRight(sb.String(), "\n")
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
