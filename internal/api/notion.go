package api

import (
	"context"
	"net/http"
	"net/url"

	"taskpilot-cli/internal/model"
)

// ExchangeCode trades the OAuth callback code for a workspace connection.
// The backend stores the Notion credentials; the client never sees them.
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	body := map[string]string{"code": code}
	return c.do(ctx, http.MethodPost, "/notion/exchange-code", body, nil)
}

func (c *Client) ListDatabases(ctx context.Context) ([]model.NotionDatabase, error) {
	var dbs []model.NotionDatabase
	err := c.do(ctx, http.MethodGet, "/notion/databases", nil, &dbs)
	return dbs, err
}

func (c *Client) SetTargetDatabase(ctx context.Context, db model.NotionDatabase) error {
	body := map[string]string{
		"databaseId":   db.ID,
		"databaseName": db.Name,
	}
	return c.do(ctx, http.MethodPut, "/users/me/notion-database", body, nil)
}

// ExportTaskList creates a Notion page from the stored task list. A target
// database with missing columns fails with the recognizable schema error
// (see IsSchemaError).
func (c *Client) ExportTaskList(ctx context.Context, taskListID string) error {
	return c.do(ctx, http.MethodPost, "/notion/taskList/"+url.PathEscape(taskListID), nil, nil)
}
