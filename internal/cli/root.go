package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"taskpilot-cli/internal/api"
	"taskpilot-cli/internal/format"
	"taskpilot-cli/internal/session"
	"taskpilot-cli/internal/store"
	"taskpilot-cli/internal/tui"
)

type App struct {
	BaseURL    string
	JSON       bool
	PrettyJSON bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskpilot",
		Short:        "TaskPilot CLI + TUI: extract action items from documents, edit checklists, export to Notion",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskpilot

  # Scriptable commands
  taskpilot login
  taskpilot extract meeting-notes.pdf
  taskpilot tasks list

  # Direct task lookup (shortcut for: taskpilot tasks show <task-id>)
  taskpilot task-8f3
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.BaseURL, "api", envOr("TASKPILOT_API_URL", ""), "Backend base URL (default: config value or "+session.DefaultBaseURL+")")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Emit JSON instead of human-readable output")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newVerifyCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newPlanCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newExtractCmd(app))
	cmd.AddCommand(newNotionCmd(app))

	return cmd
}

func runTUI(app *App) error {
	client, sess, err := authedClient(app)
	if err != nil {
		return err
	}
	return tui.Run(client, sess, taskCache())
}

// client builds an API client with whatever token is stored; commands that
// work logged-out (signup, verify) use this.
func client(app *App) (*api.Client, error) {
	cfg, err := session.LoadConfig()
	if err != nil {
		return nil, err
	}
	base := app.BaseURL
	if base == "" {
		base = session.BaseURL(cfg)
	}
	sess, err := session.Current()
	if err != nil {
		return nil, err
	}
	token := ""
	if sess != nil {
		token = sess.Token
	}
	return api.New(base, token), nil
}

// authedClient additionally requires a stored session.
func authedClient(app *App) (*api.Client, *session.Session, error) {
	sess, err := session.Current()
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, errNotLoggedIn()
	}
	c, err := client(app)
	if err != nil {
		return nil, nil, err
	}
	return c, sess, nil
}

func taskCache() store.Cache {
	dir, err := session.ConfigDir()
	if err != nil {
		// Fall back to a throwaway dir; the cache is best-effort.
		dir = filepath.Join(os.TempDir(), "taskpilot")
	}
	return store.Cache{Dir: dir}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut prints v as JSON when --json is set, otherwise calls human().
func writeOut(cmd *cobra.Command, app *App, v any, human func()) error {
	if app.JSON {
		return format.WriteJSON(cmd.OutOrStdout(), v, app.PrettyJSON)
	}
	human()
	return nil
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
