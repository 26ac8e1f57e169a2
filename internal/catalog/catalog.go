// Package catalog is the single source of truth for the tool surface exposed
// to AI agents. Both transports render the same descriptors, so parameter
// schemas cannot drift between them.
package catalog

import (
	"regexp"

	"github.com/xiy/taskbridge/pkg/types"
)

// Op identifies one catalog operation. The set is closed: the dispatch
// bridge switches exhaustively over these constants.
type Op int

const (
	OpGetUserByID Op = iota
	OpGetUserByUsername
	OpListUsers
	OpGetTaskByID
	OpListTasks
	OpGetTasksByUser
	OpGetTasksByStatus
	OpGetTasksByPriority
	OpSearchTasks
	OpGetDatabaseStats
	OpGetUserTaskStats
)

// ParamType is the primitive type of a tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
)

// Param describes one tool parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Enum, when non-empty, is the closed set of legal values.
	Enum []string
	// ObjectID marks parameters that must be a 24-hex store identifier.
	ObjectID bool
	// AccountRef marks parameters that accept either a store identifier or
	// a username; the bridge resolves usernames before dispatch.
	AccountRef bool
}

// Descriptor describes one callable tool.
type Descriptor struct {
	Op          Op
	Name        string
	Description string
	Params      []Param
}

// ObjectIDPattern matches the store's fixed-length hexadecimal identifiers.
var ObjectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

var limitParam = Param{
	Name:        "limit",
	Type:        TypeNumber,
	Description: "Maximum number of results (default 100).",
}

func statusValues() []string {
	values := make([]string, 0, 4)
	for _, s := range types.Statuses() {
		values = append(values, string(s))
	}
	return values
}

func priorityValues() []string {
	values := make([]string, 0, 4)
	for _, p := range types.Priorities() {
		values = append(values, string(p))
	}
	return values
}

var descriptors = []Descriptor{
	{
		Op:          OpGetUserByID,
		Name:        "get_user_by_id",
		Description: "Look up a single user account by its identifier.",
		Params: []Param{
			{Name: "user_id", Type: TypeString, Description: "Account identifier (24-character hex).", Required: true, ObjectID: true},
		},
	},
	{
		Op:          OpGetUserByUsername,
		Name:        "get_user_by_username",
		Description: "Look up a single user account by username.",
		Params: []Param{
			{Name: "username", Type: TypeString, Description: "Unique username.", Required: true},
		},
	},
	{
		Op:          OpListUsers,
		Name:        "list_users",
		Description: "List user accounts, most recently created first.",
		Params:      []Param{limitParam},
	},
	{
		Op:          OpGetTaskByID,
		Name:        "get_task_by_id",
		Description: "Look up a single task by its identifier.",
		Params: []Param{
			{Name: "task_id", Type: TypeString, Description: "Task identifier (24-character hex).", Required: true, ObjectID: true},
		},
	},
	{
		Op:          OpListTasks,
		Name:        "list_tasks",
		Description: "List tasks, most recently created first.",
		Params:      []Param{limitParam},
	},
	{
		Op:          OpGetTasksByUser,
		Name:        "get_tasks_by_user",
		Description: "List tasks a user created or is assigned to.",
		Params: []Param{
			{Name: "user", Type: TypeString, Description: "Account identifier or username.", Required: true, AccountRef: true},
			limitParam,
		},
	},
	{
		Op:          OpGetTasksByStatus,
		Name:        "get_tasks_by_status",
		Description: "List tasks with the given status.",
		Params: []Param{
			{Name: "status", Type: TypeString, Description: "Task status.", Required: true, Enum: statusValues()},
			limitParam,
		},
	},
	{
		Op:          OpGetTasksByPriority,
		Name:        "get_tasks_by_priority",
		Description: "List tasks with the given priority.",
		Params: []Param{
			{Name: "priority", Type: TypeString, Description: "Task priority.", Required: true, Enum: priorityValues()},
			limitParam,
		},
	},
	{
		Op:          OpSearchTasks,
		Name:        "search_tasks",
		Description: "Search tasks by title, description or tags (case-insensitive).",
		Params: []Param{
			{Name: "term", Type: TypeString, Description: "Search term.", Required: true},
			limitParam,
		},
	},
	{
		Op:          OpGetDatabaseStats,
		Name:        "get_database_stats",
		Description: "Summarize the database: user and task counts, breakdowns by status and priority, recent activity.",
		Params:      []Param{},
	},
	{
		Op:          OpGetUserTaskStats,
		Name:        "get_user_task_stats",
		Description: "Summarize one user's tasks: created and assigned counts plus a status breakdown.",
		Params: []Param{
			{Name: "user", Type: TypeString, Description: "Account identifier or username.", Required: true, AccountRef: true},
		},
	},
}

// All returns every tool descriptor in a stable order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// ByName resolves a tool name to its descriptor.
func ByName(name string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// InputSchema renders the descriptor's parameters as a JSON-schema object,
// the shape both MCP tool definitions and provider function definitions use.
func (d Descriptor) InputSchema() map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, p := range d.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
