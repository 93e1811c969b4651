package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskpilot-cli/internal/model"
)

func TestListTasksQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"id":"task-1","title":"T"}],"totalPages":3,"totalElements":21,"number":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	page, err := c.ListTasks(context.Background(), ListQuery{Page: 2, Search: "milk"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalPages != 3 || page.Number != 2 || len(page.Content) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	for _, want := range []string{"page=2", "size=10", "sort=createdAt%2Cdesc", "search=milk"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestSaveTaskStripsTempIDs(t *testing.T) {
	var got taskBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/tasks/task-9" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	tmp := model.NewTempID()
	doc := model.TaskList{
		ID:    "task-9",
		Title: "Groceries",
		Todos: []model.Todo{
			{ID: "todo-1", Content: "Buy milk", Checked: true},
			{ID: tmp, Content: "Buy bread"},
		},
	}

	c := New(srv.URL, "tok")
	if err := c.SaveTask(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(got.Todos) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(got.Todos))
	}
	if got.Todos[0].ID != "todo-1" {
		t.Fatalf("server id must survive, got %q", got.Todos[0].ID)
	}
	if got.Todos[1].ID != "" {
		t.Fatalf("temp id must be stripped, got %q", got.Todos[1].ID)
	}
}

func TestSaveTaskRequiresID(t *testing.T) {
	c := New("http://unused", "tok")
	if err := c.SaveTask(context.Background(), model.TaskList{Title: "no id"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestSetTodoChecked(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	if err := c.SetTodoChecked(context.Background(), "todo-7", true); err != nil {
		t.Fatalf("check: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", gotMethod)
	}
	if gotPath != "/api/v1/tasks/todo/todo-7/check" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotQuery != "checked=true" {
		t.Fatalf("unexpected query %s", gotQuery)
	}
}

func TestDeleteTasksBatch(t *testing.T) {
	var gotIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/tasks/batch" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotIDs); err != nil {
			t.Errorf("decode ids: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	if err := c.DeleteTasks(context.Background(), []string{"task-1", "task-2"}); err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if len(gotIDs) != 2 || gotIDs[0] != "task-1" || gotIDs[1] != "task-2" {
		t.Fatalf("unexpected ids %v", gotIDs)
	}
}

func TestProcessDocumentMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks/process" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("equations"); got != "true" {
			t.Errorf("expected equations=true, got %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			defer f.Close()
			b, _ := io.ReadAll(f)
			if string(b) != "meeting notes" {
				t.Errorf("unexpected file body %q", b)
			}
			if hdr.Filename != "pasted-text.txt" {
				t.Errorf("unexpected filename %q", hdr.Filename)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"task-5","title":"Meeting","todos":[{"id":"todo-1","content":"Send recap"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	got, err := c.ProcessDocument(context.Background(), "pasted-text.txt", strings.NewReader("meeting notes"), true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.ID != "task-5" || len(got.Todos) != 1 {
		t.Fatalf("unexpected task %+v", got)
	}
}
