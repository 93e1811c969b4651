package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskpilot-cli/internal/api"
	"taskpilot-cli/internal/model"
	"taskpilot-cli/internal/session"
	"taskpilot-cli/internal/store"
)

const requestTimeout = 30 * time.Second

const statusTTL = 4 * time.Second

type appModel struct {
	client *api.Client
	sess   *session.Session
	cache  store.Cache
	send   *sender

	width  int
	height int
	view   view

	// Browser state. The list holds one page of server results; paging and
	// search are server-side, so the bubbles filter stays disabled.
	taskList  list.Model
	page      model.Page[model.TaskList]
	query     api.ListQuery
	searching bool
	search    textinput.Model
	loading   bool
	offline   bool
	spin      spinner.Model

	// Editor state; nil while no task list is open.
	ed *editor

	// Settings state.
	dbs        []model.NotionDatabase
	dbCursor   int
	dbsLoading bool

	// Transient status line.
	status    string
	statusErr bool
	statusSeq int

	loadSeq int
	saveSeq int
}

func newAppModel(client *api.Client, sess *session.Session, cache store.Cache, send *sender) appModel {
	search := textinput.New()
	search.Placeholder = "search title"
	search.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	l := list.New(nil, newTaskRowDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)

	return appModel{
		client:   client,
		sess:     sess,
		cache:    cache,
		send:     send,
		view:     viewBrowser,
		taskList: l,
		search:   search,
		spin:     sp,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadTasksCmd(m.loadSeq))
}

// loadTasksCmd fetches the current page. When the backend is unreachable it
// falls back to the offline cache so the browser still shows something.
func (m appModel) loadTasksCmd(seq int) tea.Cmd {
	client, cache, query := m.client, m.cache, m.query
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		page, err := client.ListTasks(ctx, query)
		if err == nil {
			// Refresh the offline cache with what we just saw.
			_ = cache.Replace(ctx, page.Content)
			return tasksLoadedMsg{seq: seq, page: page}
		}

		cached, _, cerr := cache.Load(ctx)
		if cerr != nil {
			return tasksLoadedMsg{seq: seq, err: err}
		}
		return tasksLoadedMsg{
			seq: seq,
			page: model.Page[model.TaskList]{
				Content:       cached,
				TotalPages:    1,
				TotalElements: len(cached),
			},
			err: err,
		}
	}
}

func (m appModel) openTaskCmd(seq int, id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		t, err := client.GetTask(ctx, id)
		return taskLoadedMsg{seq: seq, task: t, err: err}
	}
}

// saveDocCmd PUTs the whole document. New documents (no id yet) go through
// the create endpoint instead.
func (m appModel) saveDocCmd(seq int, doc model.TaskList) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if doc.ID == "" {
			created, err := client.CreateTask(ctx, doc)
			return saveDoneMsg{seq: seq, taskID: created.ID, task: created, err: err}
		}
		if err := client.SaveTask(ctx, doc); err != nil {
			return saveDoneMsg{seq: seq, taskID: doc.ID, err: err}
		}
		// Re-fetch so server-assigned item ids replace temp ids.
		t, err := client.GetTask(ctx, doc.ID)
		return saveDoneMsg{seq: seq, taskID: doc.ID, task: t, err: err}
	}
}

func (m appModel) deleteTaskCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deleteDoneMsg{taskID: id, err: client.DeleteTask(ctx, id)}
	}
}

func (m appModel) exportTaskCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := client.ExportTaskList(ctx, id)
		return exportDoneMsg{taskID: id, schema: api.IsSchemaError(err), err: err}
	}
}

func (m appModel) loadDatabasesCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		dbs, err := client.ListDatabases(ctx)
		return databasesLoadedMsg{dbs: dbs, err: err}
	}
}

func (m appModel) chooseDatabaseCmd(db model.NotionDatabase) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := client.SetTargetDatabase(ctx, db)
		if err == nil {
			if user, uerr := client.Me(ctx); uerr == nil {
				if cfg, cerr := session.LoadConfig(); cerr == nil {
					cfg.User = &user
					_ = session.SaveConfig(cfg)
				}
			}
		}
		return databaseChosenMsg{db: db, err: err}
	}
}

// setStatus shows a transient message; the seq tag makes a later clear from
// an older status a no-op.
func (m *appModel) setStatus(text string, isErr bool) tea.Cmd {
	m.status = text
	m.statusErr = isErr
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

func (m *appModel) setTasks(page model.Page[model.TaskList]) {
	m.page = page
	items := make([]list.Item, len(page.Content))
	for i, t := range page.Content {
		items[i] = taskRow{t: t}
	}
	m.taskList.SetItems(items)
	if m.taskList.Index() >= len(items) && len(items) > 0 {
		m.taskList.Select(len(items) - 1)
	}
}

func (m appModel) selectedTask() (model.TaskList, bool) {
	row, ok := m.taskList.SelectedItem().(taskRow)
	if !ok {
		return model.TaskList{}, false
	}
	return row.t, true
}
