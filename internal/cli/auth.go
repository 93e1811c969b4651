package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"taskpilot-cli/internal/api"
	"taskpilot-cli/internal/session"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := readCredentials(cmd, email, password, false)
			if err != nil {
				return writeErr(cmd, err)
			}

			c, err := client(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			token, err := c.Login(cmd.Context(), creds)
			if err != nil {
				// A rejected login on an unverified account is a verification
				// problem, not a credentials problem.
				if enabled, eerr := c.UserEnabled(cmd.Context(), creds.Email); eerr == nil && !enabled {
					return writeErr(cmd, fmt.Errorf("account %s is not verified; run `taskpilot verify --email %s --resend`", creds.Email, creds.Email))
				}
				return writeErr(cmd, err)
			}
			if err := session.SaveToken(token); err != nil {
				return writeErr(cmd, err)
			}

			// Cache the profile so whoami and the TUI render instantly.
			c.SetToken(token)
			if user, err := c.Me(cmd.Context()); err == nil {
				if cfg, err := session.LoadConfig(); err == nil {
					cfg.User = &user
					_ = session.SaveConfig(cfg)
				}
			}

			return writeOut(cmd, app, map[string]any{"email": creds.Email, "loggedIn": true}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", creds.Email)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account (a verification code is emailed to you)",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := readCredentials(cmd, email, password, true)
			if err != nil {
				return writeErr(cmd, err)
			}

			c, err := client(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Signup(cmd.Context(), creds); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"email": creds.Email, "verificationSent": true}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Account created. Check %s for a verification code, then run `taskpilot verify --email %s --code <code>`.\n", creds.Email, creds.Email)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newVerifyCmd(app *App) *cobra.Command {
	var email, code string
	var resend bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm the emailed verification code (or resend it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateEmail(email); err != nil {
				return writeErr(cmd, err)
			}

			c, err := client(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			if resend {
				if err := c.ResendVerification(cmd.Context(), email); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"email": email, "resent": true}, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "Verification code resent to %s\n", email)
				})
			}

			if strings.TrimSpace(code) == "" {
				return writeErr(cmd, errInvalid("code", "required unless --resend is set"))
			}
			token, err := c.Verify(cmd.Context(), api.VerifyRequest{Email: email, Code: code})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := session.SaveToken(token); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"email": email, "verified": true}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Email verified; you are logged in.\n")
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&code, "code", "", "Verification code from the email")
	cmd.Flags().BoolVar(&resend, "resend", false, "Resend the verification code instead of confirming")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Best-effort server-side logout; the local clear is what matters.
			if c, sess, err := authedClient(app); err == nil && sess != nil {
				_ = c.Logout(cmd.Context())
			}
			if err := session.Clear(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"loggedOut": true}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current account and Notion connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			user, err := c.Me(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if cfg, err := session.LoadConfig(); err == nil {
				cfg.User = &user
				_ = session.SaveConfig(cfg)
			}
			return writeOut(cmd, app, user, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Email:  %s\n", user.Email)
				if user.NotionConnected() {
					fmt.Fprintf(out, "Notion: connected to %s\n", user.NotionWorkspaceName)
					if user.DatabaseSelected() {
						fmt.Fprintf(out, "Target: %s\n", user.NotionTargetDatabase)
					} else {
						fmt.Fprintln(out, "Target: none selected (run `taskpilot notion use-database`)")
					}
				} else {
					fmt.Fprintln(out, "Notion: not connected (run `taskpilot notion connect`)")
				}
			})
		},
	}
}

func newPlanCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show plan limits and current usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			plan, err := c.MyPlan(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, plan, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Plan:  %s\n", plan.PlanName)
				fmt.Fprintf(out, "Today: %d/%d extractions\n", plan.RequestsToday, plan.DailyLimit)
				fmt.Fprintf(out, "Month: %d/%d extractions\n", plan.RequestsMonth, plan.MonthlyLimit)
				if plan.PlanRefreshDate != nil {
					fmt.Fprintf(out, "Resets: %s\n", plan.PlanRefreshDate.Format("2006-01-02"))
				}
			})
		},
	}
}

// readCredentials validates flags and prompts for anything missing. Signup
// applies the backend's password rules locally so bad input never leaves the
// machine.
func readCredentials(cmd *cobra.Command, email, password string, signup bool) (api.Credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Email: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil {
			return api.Credentials{}, err
		}
		email = strings.TrimSpace(line)
	}
	if err := validateEmail(email); err != nil {
		return api.Credentials{}, err
	}

	if password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return api.Credentials{}, err
			}
			password = string(b)
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil {
				return api.Credentials{}, err
			}
			password = strings.TrimRight(line, "\r\n")
		}
	}
	if err := validatePassword(password, signup); err != nil {
		return api.Credentials{}, err
	}
	return api.Credentials{Email: email, Password: password}, nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errInvalid("email", "required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return errInvalid("email", "must look like name@example.com")
	}
	return nil
}

func validatePassword(password string, signup bool) error {
	if password == "" {
		return errInvalid("password", "required")
	}
	if !signup {
		return nil
	}
	if len(password) < 8 {
		return errInvalid("password", "must be at least 8 characters")
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter || !hasDigit || !hasSpecial {
		return errInvalid("password", "must mix letters, digits and a special character")
	}
	return nil
}
