package tui

import (
	"taskpilot-cli/internal/checklist"
	"taskpilot-cli/internal/model"
)

type view int

const (
	viewBrowser view = iota
	viewEditor
	viewSettings
)

// Background results carry the seq of the request that started them; a
// response whose seq no longer matches the model's is stale and dropped.

type tasksLoadedMsg struct {
	seq  int
	page model.Page[model.TaskList]
	err  error
}

type taskLoadedMsg struct {
	seq  int
	task model.TaskList
	err  error
}

type saveDoneMsg struct {
	seq    int
	taskID string
	task   model.TaskList
	err    error
}

type deleteDoneMsg struct {
	taskID string
	err    error
}

type exportDoneMsg struct {
	taskID string
	schema bool
	err    error
}

type databasesLoadedMsg struct {
	dbs []model.NotionDatabase
	err error
}

type databaseChosenMsg struct {
	db  model.NotionDatabase
	err error
}

type statusClearMsg struct{ seq int }

// docChangedMsg and noticeMsg arrive from the checklist's callbacks, which
// fire on background goroutines and cross into the update loop via sender.

type docChangedMsg struct{ doc model.TaskList }

type noticeMsg struct{ notice checklist.Notice }
