package store

import (
	"context"
	"errors"
	"time"

	"github.com/xiy/taskbridge/pkg/types"
)

// ErrNotFound signals an absent single-record lookup. Callers distinguish it
// from transport or database faults.
var ErrNotFound = errors.New("not found")

// DefaultLimit caps list results when the caller passes no limit.
const DefaultLimit = 100

// RequestLog captures one tool invocation handled by a transport.
type RequestLog struct {
	Transport  string    `bson:"transport"`
	Method     string    `bson:"method"`
	ToolName   string    `bson:"tool_name"`
	Success    bool      `bson:"success"`
	ErrorText  string    `bson:"error_text,omitempty"`
	DurationMS int64     `bson:"duration_ms"`
	CreatedAt  time.Time `bson:"created_at"`
}

// Store represents the read-only query operations used by the dispatch
// bridge, plus the request-log sink used for observability.
type Store interface {
	AccountByID(ctx context.Context, id string) (types.Account, error)
	AccountByUsername(ctx context.Context, username string) (types.Account, error)
	ListAccounts(ctx context.Context, limit int) ([]types.Account, error)

	WorkItemByID(ctx context.Context, id string) (types.WorkItem, error)
	ListWorkItems(ctx context.Context, limit int) ([]types.WorkItem, error)
	WorkItemsForAccount(ctx context.Context, accountID string, limit int) ([]types.WorkItem, error)
	WorkItemsByStatus(ctx context.Context, status types.Status, limit int) ([]types.WorkItem, error)
	WorkItemsByPriority(ctx context.Context, priority types.Priority, limit int) ([]types.WorkItem, error)
	SearchWorkItems(ctx context.Context, term string, limit int) ([]types.WorkItem, error)

	DatabaseStats(ctx context.Context) (types.DatabaseStats, error)
	AccountStats(ctx context.Context, accountID string) (types.AccountStats, error)

	InsertRequestLog(ctx context.Context, rec RequestLog) error
	RecentRequestLogs(ctx context.Context, limit int) ([]RequestLog, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
