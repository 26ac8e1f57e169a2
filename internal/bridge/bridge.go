// Package bridge validates tool-call arguments against the catalog, resolves
// account references and delegates to the query layer. It holds no per-call
// state, so any number of invocations may run concurrently.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/xiy/taskbridge/internal/catalog"
	"github.com/xiy/taskbridge/internal/store"
	"github.com/xiy/taskbridge/pkg/types"
)

// ResultKind tags the payload carried by a Result.
type ResultKind int

const (
	ResultAccount ResultKind = iota
	ResultAccounts
	ResultWorkItem
	ResultWorkItems
	ResultDatabaseStats
	ResultAccountStats
)

// Result is a successful dispatch outcome. Empty marks a valid single-record
// lookup that matched nothing; transports render it as normal output, not as
// a failure.
type Result struct {
	Op    catalog.Op
	Kind  ResultKind
	Empty bool

	Account       *types.Account
	Accounts      []types.Account
	WorkItem      *types.WorkItem
	WorkItems     []types.WorkItem
	DatabaseStats *types.DatabaseStats
	AccountStats  *types.AccountStats
}

// Value returns the raw structured payload for programmatic consumers.
func (r Result) Value() any {
	switch r.Kind {
	case ResultAccount:
		if r.Empty {
			return nil
		}
		return r.Account
	case ResultAccounts:
		return r.Accounts
	case ResultWorkItem:
		if r.Empty {
			return nil
		}
		return r.WorkItem
	case ResultWorkItems:
		return r.WorkItems
	case ResultDatabaseStats:
		return r.DatabaseStats
	default:
		return r.AccountStats
	}
}

// Bridge dispatches catalog operations against a store.
type Bridge struct {
	store        store.Store
	logger       *log.Logger
	defaultLimit int
}

// New constructs a dispatch bridge.
func New(st store.Store, logger *log.Logger, defaultLimit int) *Bridge {
	if defaultLimit <= 0 || defaultLimit > store.DefaultLimit {
		defaultLimit = store.DefaultLimit
	}
	return &Bridge{store: st, logger: logger, defaultLimit: defaultLimit}
}

// Invoke validates args against the catalog entry for name, resolves account
// references and runs the matching query.
func (b *Bridge) Invoke(ctx context.Context, name string, args map[string]any) (Result, *DispatchError) {
	desc, ok := catalog.ByName(name)
	if !ok {
		return Result{}, errUnknownOperation(name)
	}

	if derr := b.validate(desc, args); derr != nil {
		return Result{}, derr
	}

	switch desc.Op {
	case catalog.OpGetUserByID:
		acct, err := b.store.AccountByID(ctx, stringArg(args, "user_id"))
		return b.singleAccount(desc.Op, acct, err)
	case catalog.OpGetUserByUsername:
		acct, err := b.store.AccountByUsername(ctx, stringArg(args, "username"))
		return b.singleAccount(desc.Op, acct, err)
	case catalog.OpListUsers:
		accts, err := b.store.ListAccounts(ctx, b.limitArg(args))
		if err != nil {
			return Result{}, b.upstream(err)
		}
		return Result{Op: desc.Op, Kind: ResultAccounts, Accounts: accts}, nil
	case catalog.OpGetTaskByID:
		item, err := b.store.WorkItemByID(ctx, stringArg(args, "task_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Result{Op: desc.Op, Kind: ResultWorkItem, Empty: true}, nil
			}
			return Result{}, b.upstream(err)
		}
		return Result{Op: desc.Op, Kind: ResultWorkItem, WorkItem: &item}, nil
	case catalog.OpListTasks:
		items, err := b.store.ListWorkItems(ctx, b.limitArg(args))
		return b.itemList(desc.Op, items, err)
	case catalog.OpGetTasksByUser:
		accountID, derr := b.resolveAccountRef(ctx, stringArg(args, "user"))
		if derr != nil {
			return Result{}, derr
		}
		items, err := b.store.WorkItemsForAccount(ctx, accountID, b.limitArg(args))
		return b.itemList(desc.Op, items, err)
	case catalog.OpGetTasksByStatus:
		items, err := b.store.WorkItemsByStatus(ctx, types.Status(stringArg(args, "status")), b.limitArg(args))
		return b.itemList(desc.Op, items, err)
	case catalog.OpGetTasksByPriority:
		items, err := b.store.WorkItemsByPriority(ctx, types.Priority(stringArg(args, "priority")), b.limitArg(args))
		return b.itemList(desc.Op, items, err)
	case catalog.OpSearchTasks:
		items, err := b.store.SearchWorkItems(ctx, stringArg(args, "term"), b.limitArg(args))
		return b.itemList(desc.Op, items, err)
	case catalog.OpGetDatabaseStats:
		stats, err := b.store.DatabaseStats(ctx)
		if err != nil {
			return Result{}, b.upstream(err)
		}
		return Result{Op: desc.Op, Kind: ResultDatabaseStats, DatabaseStats: &stats}, nil
	case catalog.OpGetUserTaskStats:
		accountID, derr := b.resolveAccountRef(ctx, stringArg(args, "user"))
		if derr != nil {
			return Result{}, derr
		}
		stats, err := b.store.AccountStats(ctx, accountID)
		if err != nil {
			return Result{}, b.upstream(err)
		}
		return Result{Op: desc.Op, Kind: ResultAccountStats, AccountStats: &stats}, nil
	default:
		return Result{}, errUnknownOperation(name)
	}
}

func (b *Bridge) singleAccount(op catalog.Op, acct types.Account, err error) (Result, *DispatchError) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{Op: op, Kind: ResultAccount, Empty: true}, nil
		}
		return Result{}, b.upstream(err)
	}
	return Result{Op: op, Kind: ResultAccount, Account: &acct}, nil
}

func (b *Bridge) itemList(op catalog.Op, items []types.WorkItem, err error) (Result, *DispatchError) {
	if err != nil {
		return Result{}, b.upstream(err)
	}
	return Result{Op: op, Kind: ResultWorkItems, WorkItems: items}, nil
}

func (b *Bridge) upstream(err error) *DispatchError {
	b.logger.Error("query layer fault", "error", err)
	return errUpstream(err)
}

// resolveAccountRef accepts a store identifier or a username. Usernames are
// resolved to the account's identifier before delegation.
func (b *Bridge) resolveAccountRef(ctx context.Context, ref string) (string, *DispatchError) {
	if catalog.ObjectIDPattern.MatchString(ref) {
		return ref, nil
	}
	acct, err := b.store.AccountByUsername(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errNotFound(fmt.Sprintf("no account with username %q", ref))
		}
		return "", b.upstream(err)
	}
	return acct.ID, nil
}

// validate applies the catalog schema: required parameters present, strings
// non-empty, enum membership, identifier format. It fails on the first
// violation; identifier checks run before any store round-trip.
func (b *Bridge) validate(desc catalog.Descriptor, args map[string]any) *DispatchError {
	for _, p := range desc.Params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return errInvalidArgument(p.Name, "required parameter is missing")
			}
			continue
		}

		switch p.Type {
		case catalog.TypeString:
			s, ok := raw.(string)
			if !ok {
				return errInvalidArgument(p.Name, "must be a string")
			}
			if s == "" {
				return errInvalidArgument(p.Name, "must not be empty")
			}
			if len(p.Enum) > 0 && !containsString(p.Enum, s) {
				return errInvalidArgument(p.Name, fmt.Sprintf("must be one of %v", p.Enum))
			}
			if p.ObjectID && !catalog.ObjectIDPattern.MatchString(s) {
				return errInvalidArgument(p.Name, "must be a 24-character hexadecimal identifier")
			}
		case catalog.TypeNumber:
			if _, ok := asNumber(raw); !ok {
				return errInvalidArgument(p.Name, "must be a number")
			}
		}
	}
	return nil
}

func (b *Bridge) limitArg(args map[string]any) int {
	raw, present := args["limit"]
	if !present {
		return b.defaultLimit
	}
	n, ok := asNumber(raw)
	if !ok {
		return b.defaultLimit
	}
	limit := int(n)
	if limit <= 0 || limit > store.DefaultLimit {
		return b.defaultLimit
	}
	return limit
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
