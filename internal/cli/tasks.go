package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskpilot-cli/internal/api"
	"taskpilot-cli/internal/checklist"
	"taskpilot-cli/internal/format"
	"taskpilot-cli/internal/model"
	"taskpilot-cli/internal/store"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Browse and edit your task lists",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksCheckCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var page, size int
	var sort, search string
	var cached bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task lists (newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cached {
				return listCached(cmd, app)
			}

			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			result, err := c.ListTasks(cmd.Context(), api.ListQuery{Page: page, Size: size, Sort: sort, Search: search})
			if err != nil {
				return writeErr(cmd, err)
			}

			// Refresh the offline cache with what we just saw.
			_ = taskCache().Replace(cmd.Context(), result.Content)

			return writeOut(cmd, app, result, func() {
				out := cmd.OutOrStdout()
				if len(result.Content) == 0 {
					fmt.Fprintln(out, "No task lists yet. Try `taskpilot extract <file>`.")
					return
				}
				for _, t := range result.Content {
					fmt.Fprintln(out, taskLine(t))
				}
				fmt.Fprintf(out, "\nPage %d of %d (%d total)\n", result.Number+1, max(result.TotalPages, 1), result.TotalElements)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number (0-indexed)")
	cmd.Flags().IntVar(&size, "size", 10, "Page size")
	cmd.Flags().StringVar(&sort, "sort", "createdAt,desc", "Sort expression")
	cmd.Flags().StringVar(&search, "search", "", "Filter by title")
	cmd.Flags().BoolVar(&cached, "cached", false, "Read the local offline cache instead of the backend")
	return cmd
}

func listCached(cmd *cobra.Command, app *App) error {
	tasks, fetchedAt, err := taskCache().Load(cmd.Context())
	if errors.Is(err, store.ErrEmpty) {
		return writeErr(cmd, fmt.Errorf("offline cache is empty; run `taskpilot tasks list` online first"))
	}
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, tasks, func() {
		out := cmd.OutOrStdout()
		for _, t := range tasks {
			fmt.Fprintln(out, taskLine(t))
		}
		fmt.Fprintf(out, "\nCached %s\n", fetchedAt.Format(time.RFC1123))
	})
}

func taskLine(t model.TaskList) string {
	done := 0
	for _, td := range t.Todos {
		if td.Checked {
			done++
		}
	}
	return fmt.Sprintf("%-12s  %3d/%-3d  %s", t.ID, done, len(t.Todos), t.Title)
}

func newTasksShowCmd(app *App) *cobra.Command {
	var markdown, cached bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])

			var t model.TaskList
			if cached {
				var err error
				t, err = taskCache().Get(cmd.Context(), id)
				if errors.Is(err, store.ErrEmpty) {
					return writeErr(cmd, fmt.Errorf("task list %s is not in the offline cache", id))
				}
				if err != nil {
					return writeErr(cmd, err)
				}
			} else {
				c, _, err := authedClient(app)
				if err != nil {
					return writeErr(cmd, err)
				}
				t, err = c.GetTask(cmd.Context(), id)
				if err != nil {
					return writeErr(cmd, err)
				}
			}

			return writeOut(cmd, app, t, func() {
				out := cmd.OutOrStdout()
				if markdown {
					fmt.Fprint(out, renderShowMarkdown(t))
					return
				}
				fmt.Fprint(out, format.TaskListText(t))
			})
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render the description as markdown")
	cmd.Flags().BoolVar(&cached, "cached", false, "Read the local offline cache instead of the backend")
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var title, description string
	var items []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task list by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			title = strings.TrimSpace(title)
			if title == "" {
				return writeErr(cmd, errInvalid("title", "required"))
			}

			doc := model.TaskList{Title: title, Description: description}
			for _, it := range items {
				it = strings.TrimSpace(it)
				if it == "" {
					continue
				}
				doc.Todos = append(doc.Todos, model.Todo{Content: it})
			}

			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			created, err := c.CreateTask(cmd.Context(), doc)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, created, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d items\n", created.ID, len(created.Todos))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task list title")
	cmd.Flags().StringVar(&description, "description", "", "Task list description")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Checklist item (repeatable)")
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var title, description string
	var add, remove []string

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change fields or items and save the whole document",
		Long: strings.TrimSpace(`
Fetches the task list, applies the requested changes and saves it back as one
document. Items removed with --remove disappear server-side because the saved
document no longer contains them.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed("title") || cmd.Flags().Changed("description") ||
				len(add) > 0 || len(remove) > 0
			if !changed {
				return writeErr(cmd, errInvalid("flags", "nothing to change; pass --title, --description, --add or --remove"))
			}
			if cmd.Flags().Changed("title") && strings.TrimSpace(title) == "" {
				return writeErr(cmd, errInvalid("title", "cannot be empty"))
			}

			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := c.GetTask(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			cl := checklist.New(t, c, checklist.Options{})
			defer cl.Close()
			if cmd.Flags().Changed("title") {
				cl.SetTitle(title)
			}
			if cmd.Flags().Changed("description") {
				cl.SetDescription(description)
			}
			for _, content := range add {
				content = strings.TrimSpace(content)
				if content == "" {
					continue
				}
				id := cl.AddItem()
				cl.UpdateContent(id, content)
			}
			for _, id := range remove {
				cl.RemoveItem(id)
			}

			doc := cl.Document()
			if err := c.SaveTask(cmd.Context(), doc); err != nil {
				return writeErr(cmd, err)
			}
			saved, err := c.GetTask(cmd.Context(), doc.ID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, saved, func() {
				fmt.Fprint(cmd.OutOrStdout(), format.TaskListText(saved))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringArrayVar(&add, "add", nil, "Add a checklist item (repeatable)")
	cmd.Flags().StringArrayVar(&remove, "remove", nil, "Remove an item by id (repeatable)")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id> [task-id...]",
		Short: "Delete task lists (several ids use the batch endpoint)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(args) == 1 {
				err = c.DeleteTask(cmd.Context(), args[0])
			} else {
				err = c.DeleteTasks(cmd.Context(), args)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": args}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d task list(s)\n", len(args))
			})
		},
	}
}

func newTasksCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <todo-id> <true|false>",
		Short: "Set one item's completion flag (dedicated patch endpoint)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			checked, err := strconv.ParseBool(args[1])
			if err != nil {
				return writeErr(cmd, errInvalid("checked", "must be true or false"))
			}
			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.SetTodoChecked(cmd.Context(), args[0], checked); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"id": args[0], "checked": checked}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Item %s marked %v\n", args[0], checked)
			})
		},
	}
}
