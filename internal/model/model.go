package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Todo is one checklist entry inside a TaskList.
type Todo struct {
	ID       string     `json:"id,omitempty"`
	Content  string     `json:"content"`
	Checked  bool       `json:"checked"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// TaskList is the document the backend stores: a titled checklist extracted
// from a source document (or created by hand).
type TaskList struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Todos       []Todo    `json:"todos"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Page mirrors the backend's paginated responses (0-indexed page number).
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Number        int `json:"number"`
}

type User struct {
	ID                     int        `json:"id,omitempty"`
	Email                  string     `json:"email"`
	Enabled                bool       `json:"enabled"`
	NotionWorkspaceName    string     `json:"notionWorkspaceName,omitempty"`
	NotionWorkspaceIcon    string     `json:"notionWorkspaceIcon,omitempty"`
	NotionTargetDatabaseID string     `json:"notionTargetDatabaseId,omitempty"`
	NotionTargetDatabase   string     `json:"notionTargetDatabaseName,omitempty"`
	RequestsInCurrentDay   int        `json:"requestsInCurrentDay,omitempty"`
	RequestsInCurrentMonth int        `json:"requestsInCurrentMonth,omitempty"`
	PlanRefreshDate        *time.Time `json:"planRefreshDate,omitempty"`
}

func (u User) NotionConnected() bool  { return u.NotionWorkspaceName != "" }
func (u User) DatabaseSelected() bool { return u.NotionTargetDatabaseID != "" }

type PlanUsage struct {
	PlanName        string     `json:"planName"`
	DailyLimit      int        `json:"dailyLimit"`
	MonthlyLimit    int        `json:"monthlyLimit"`
	RequestsToday   int        `json:"requestsInCurrentDay"`
	RequestsMonth   int        `json:"requestsInCurrentMonth"`
	PlanRefreshDate *time.Time `json:"planRefreshDate,omitempty"`
}

type NotionDatabase struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const tempIDPrefix = "tmp-"

// NewTempID returns a client-side id for a todo that has never been persisted.
// The save path strips temp ids so the server assigns real ones.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was generated client-side by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// Clone returns a deep copy of the task list (todos included), so optimistic
// snapshots cannot alias the caller's slice.
func (t TaskList) Clone() TaskList {
	out := t
	out.Todos = CloneTodos(t.Todos)
	return out
}

func CloneTodos(todos []Todo) []Todo {
	if todos == nil {
		return nil
	}
	out := make([]Todo, len(todos))
	copy(out, todos)
	for i := range out {
		if out[i].Deadline != nil {
			d := *out[i].Deadline
			out[i].Deadline = &d
		}
	}
	return out
}
