package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"taskpilot-cli/internal/format"
)

func newExtractCmd(app *App) *cobra.Command {
	var text string
	var equations bool

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Send a document to the AI extractor and save the resulting task list",
		Long: strings.TrimSpace(`
Send a document (PDF, text, ...) to the backend AI extractor. The backend
parses it, extracts action items, and stores the result as a new task list.

With --text, the given text (or stdin via --text -) is sent instead of a file.
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				name string
				rd   io.Reader
			)
			switch {
			case text == "-" && len(args) == 0:
				name, rd = "pasted-text.txt", cmd.InOrStdin()
			case text != "" && len(args) == 0:
				name, rd = "pasted-text.txt", strings.NewReader(text)
			case text == "" && len(args) == 1:
				f, err := os.Open(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				defer f.Close()
				name, rd = filepath.Base(args[0]), f
			default:
				return writeErr(cmd, errInvalid("input", "pass a file or --text, not both"))
			}

			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			created, err := c.ProcessDocument(cmd.Context(), name, rd, equations)
			if err != nil {
				return writeErr(cmd, err)
			}

			return writeOut(cmd, app, created, func() {
				out := cmd.OutOrStdout()
				if len(created.Todos) == 0 {
					fmt.Fprintln(out, "The AI could not identify any actionable items in the document.")
					return
				}
				fmt.Fprintf(out, "Extracted %d items into %s\n\n", len(created.Todos), created.ID)
				fmt.Fprint(out, format.TaskListText(created))
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Extract from this text instead of a file (use - for stdin)")
	cmd.Flags().BoolVar(&equations, "equations", false, "Ask the extractor to preserve mathematical notation")
	return cmd
}
