package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"taskpilot-cli/internal/api"
	"taskpilot-cli/internal/model"
	"taskpilot-cli/internal/session"
)

// notionAuthorizeURL is Notion's OAuth consent endpoint; the client id is
// configured per deployment.
const notionAuthorizeURL = "https://api.notion.com/v1/oauth/authorize"

func newNotionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notion",
		Short: "Link a Notion workspace and export task lists to it",
	}
	cmd.AddCommand(newNotionConnectCmd(app))
	cmd.AddCommand(newNotionDatabasesCmd(app))
	cmd.AddCommand(newNotionUseDatabaseCmd(app))
	cmd.AddCommand(newNotionExportCmd(app))
	return cmd
}

func newNotionConnectCmd(app *App) *cobra.Command {
	var clientID, redirect, code string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Link a Notion workspace (OAuth)",
		Long: strings.TrimSpace(`
Without --code, prints the Notion consent URL to open in a browser. After
approving, Notion redirects to the callback URL with a code; pass that code
back with --code to finish the link.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code != "" {
				c, _, err := authedClient(app)
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := c.ExchangeCode(cmd.Context(), code); err != nil {
					return writeErr(cmd, err)
				}
				// The workspace name lands on the profile; refresh the cache.
				if user, err := c.Me(cmd.Context()); err == nil {
					if cfg, err := session.LoadConfig(); err == nil {
						cfg.User = &user
						_ = session.SaveConfig(cfg)
					}
				}
				return writeOut(cmd, app, map[string]any{"connected": true}, func() {
					fmt.Fprintln(cmd.OutOrStdout(), "Notion workspace linked. Pick a database with `taskpilot notion use-database`.")
				})
			}

			if clientID == "" {
				return writeErr(cmd, errInvalid("client-id", "required to build the consent URL"))
			}
			q := url.Values{}
			q.Set("client_id", clientID)
			q.Set("response_type", "code")
			q.Set("owner", "user")
			if redirect != "" {
				q.Set("redirect_uri", redirect)
			}
			consent := notionAuthorizeURL + "?" + q.Encode()
			return writeOut(cmd, app, map[string]any{"url": consent}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL, approve access, then run `taskpilot notion connect --code <code>`:\n\n  %s\n", consent)
			})
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", envOr("TASKPILOT_NOTION_CLIENT_ID", ""), "Notion OAuth client id")
	cmd.Flags().StringVar(&redirect, "redirect-uri", "", "OAuth redirect URI")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the OAuth callback")
	return cmd
}

func newNotionDatabasesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases the linked workspace shares with TaskPilot",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			dbs, err := c.ListDatabases(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, dbs, func() {
				out := cmd.OutOrStdout()
				if len(dbs) == 0 {
					fmt.Fprintln(out, "No databases shared. Share one with the TaskPilot integration in Notion.")
					return
				}
				current := ""
				if sess.User != nil {
					current = sess.User.NotionTargetDatabaseID
				}
				for _, db := range dbs {
					marker := "  "
					if db.ID == current {
						marker = "* "
					}
					fmt.Fprintf(out, "%s%s  %s\n", marker, db.ID, db.Name)
				}
			})
		},
	}
}

func newNotionUseDatabaseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use-database <database-id>",
		Short: "Choose the database new exports are created in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			// Resolve the name so the backend can show it in settings.
			dbs, err := c.ListDatabases(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			var target *model.NotionDatabase
			for i := range dbs {
				if dbs[i].ID == args[0] {
					target = &dbs[i]
					break
				}
			}
			if target == nil {
				return writeErr(cmd, fmt.Errorf("database %s is not shared with TaskPilot (see `taskpilot notion databases`)", args[0]))
			}

			if err := c.SetTargetDatabase(cmd.Context(), *target); err != nil {
				return writeErr(cmd, err)
			}
			if user, err := c.Me(cmd.Context()); err == nil {
				if cfg, err := session.LoadConfig(); err == nil {
					cfg.User = &user
					_ = session.SaveConfig(cfg)
				}
			}
			return writeOut(cmd, app, target, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "New exports will be created in %q\n", target.Name)
			})
		},
	}
}

func newNotionExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <task-id>",
		Short: "Create a Notion page from a task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if sess.User != nil && !sess.User.NotionConnected() {
				return writeErr(cmd, fmt.Errorf("no Notion workspace linked; run `taskpilot notion connect` first"))
			}

			if err := c.ExportTaskList(cmd.Context(), args[0]); err != nil {
				if api.IsSchemaError(err) {
					// Not retryable: the target database is missing required
					// columns. Point at configuration instead.
					return writeErr(cmd, fmt.Errorf("the selected Notion database is missing required columns; pick another with `taskpilot notion use-database` or fix its schema"))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"exported": args[0]}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Notion page created for %s\n", args[0])
			})
		},
	}
}
