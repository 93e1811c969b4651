package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"taskpilot-cli/internal/model"
)

// ListQuery mirrors the backend's paging parameters. Zero values mean
// "first page, default size, newest first, no search".
type ListQuery struct {
	Page   int
	Size   int
	Sort   string
	Search string
}

func (q ListQuery) encode() string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	size := q.Size
	if size <= 0 {
		size = 10
	}
	v.Set("size", strconv.Itoa(size))
	sort := q.Sort
	if sort == "" {
		sort = "createdAt,desc"
	}
	v.Set("sort", sort)
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v.Encode()
}

func (c *Client) ListTasks(ctx context.Context, q ListQuery) (model.Page[model.TaskList], error) {
	var page model.Page[model.TaskList]
	err := c.do(ctx, http.MethodGet, "/tasks?"+q.encode(), nil, &page)
	return page, err
}

func (c *Client) GetTask(ctx context.Context, id string) (model.TaskList, error) {
	var t model.TaskList
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &t)
	return t, err
}

// taskBody is the create/save payload; ids of never-persisted todos are
// stripped so the server assigns real ones, and todos absent from the list
// are deleted server-side (delete-by-omission).
type taskBody struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Todos       []model.Todo `json:"todos"`
}

func outgoingTodos(todos []model.Todo) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, td := range todos {
		if model.IsTempID(td.ID) {
			td.ID = ""
		}
		out = append(out, td)
	}
	return out
}

func (c *Client) CreateTask(ctx context.Context, t model.TaskList) (model.TaskList, error) {
	body := taskBody{Title: t.Title, Description: t.Description, Todos: outgoingTodos(t.Todos)}
	var created model.TaskList
	err := c.do(ctx, http.MethodPost, "/tasks", body, &created)
	return created, err
}

// SaveTask replaces the whole document (title, description, items).
func (c *Client) SaveTask(ctx context.Context, t model.TaskList) error {
	if t.ID == "" {
		return fmt.Errorf("save task: missing id")
	}
	body := taskBody{Title: t.Title, Description: t.Description, Todos: outgoingTodos(t.Todos)}
	return c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(t.ID), body, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteTasks(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/batch", ids, nil)
}

// SetTodoChecked flips one item's completion flag through the dedicated
// endpoint. This is intentionally separate from SaveTask: checking is a
// high-frequency toggle with its own patch path.
func (c *Client) SetTodoChecked(ctx context.Context, todoID string, checked bool) error {
	path := "/tasks/todo/" + url.PathEscape(todoID) + "/check?checked=" + strconv.FormatBool(checked)
	return c.do(ctx, http.MethodPatch, path, nil, nil)
}

// ProcessDocument uploads a document (or pasted text wrapped as a file) to the
// AI extraction endpoint and returns the created task list.
func (c *Client) ProcessDocument(ctx context.Context, filename string, r io.Reader, equations bool) (model.TaskList, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return model.TaskList{}, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return model.TaskList{}, err
	}
	if err := mw.WriteField("equations", strconv.FormatBool(equations)); err != nil {
		return model.TaskList{}, err
	}
	if err := mw.Close(); err != nil {
		return model.TaskList{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/tasks/process", &buf)
	if err != nil {
		return model.TaskList{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var t model.TaskList
	err = c.send(req, &t)
	return t, err
}
