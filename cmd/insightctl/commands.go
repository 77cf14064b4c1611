package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const passwordEnv = "INSIGHTCTL_PASSWORD"

var errNotSignedIn = errors.New("not signed in, run `insightctl login` first")

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var (
		jsonOut bool
		verbose bool
		a       *app
	)

	root := &cobra.Command{
		Use:           "insightctl",
		Short:         "Query the MONTI Insights call analytics from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), in, out, errOut, jsonOut, verbose)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests and session changes")

	// commands run after PersistentPreRunE, so a is set by then
	current := func() *app { return a }

	root.AddCommand(
		newLoginCmd(current),
		newLogoutCmd(current),
		newWhoamiCmd(current),
		newKPIsCmd(current),
		newChartsCmd(current),
		newAgentsCmd(current),
		newRecentCmd(current),
		newCallsCmd(current),
		newTranscriptCmd(current),
	)
	return root
}

func newLoginCmd(current func() *app) *cobra.Command {
	var email, password, idToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with a Google ID token",
		Example: `  insightctl login --email client@dabur.com
  INSIGHTCTL_PASSWORD=client123 insightctl login --email client@dabur.com
  insightctl login --id-token "$GOOGLE_ID_TOKEN"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			ctx := cmd.Context()

			var (
				user *types.User
				err  error
			)
			if idToken != "" {
				user, err = a.sessions.LoginWithExternalProvider(ctx, idToken)
			} else {
				if email == "" {
					return errors.New("--email or --id-token is required")
				}
				if password == "" {
					if password, err = readPassword(a); err != nil {
						return err
					}
				}
				user, err = a.sessions.Login(ctx, email, password)
			}
			if err != nil {
				return err
			}
			return a.print(user, func(w io.Writer) { renderUser(w, user) })
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prefer "+passwordEnv+" or the prompt)")
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token")
	return cmd
}

// readPassword takes the password from the environment, a prompt, or piped stdin
func readPassword(a *app) (string, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	if f, ok := a.in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(a.errOut, "Password: ")
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("a password is required")
	}
	return password, nil
}

func newLogoutCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current().sessions.Logout(cmd.Context())
		},
	}
}

func newWhoamiCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := a.user()
			if err != nil {
				return err
			}
			return a.print(user, func(w io.Writer) { renderUser(w, user) })
		},
	}
}

func newKPIsCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Show the KPI cards of the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			view, err := a.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(view.KPIs, func(w io.Writer) { renderKPIs(w, view) })
		},
	}
}

func newChartsCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "charts",
		Short: "Show the chart summary of the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			view, err := a.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(view.Charts, func(w io.Writer) { renderCharts(w, view.Charts) })
		},
	}
}

func newAgentsCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := a.user()
			if err != nil {
				return err
			}
			agents, err := a.views.Agents(cmd.Context(), user)
			if err != nil {
				return err
			}
			return a.print(agents, func(w io.Writer) { renderAgents(w, agents) })
		},
	}
}

func newRecentCmd(current func() *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent analysed calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := a.user()
			if err != nil {
				return err
			}
			calls, err := a.views.RecentCalls(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			return a.print(calls, func(w io.Writer) { renderCalls(w, calls) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", aggregator.DefaultRecentLimit, "number of calls")
	return cmd
}

func newCallsCmd(current func() *app) *cobra.Command {
	var q aggregator.CallLogQuery

	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Show the call log",
		Example: `  insightctl calls --search john
  insightctl calls --disposition "No Answer"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := a.user()
			if err != nil {
				return err
			}
			page, err := a.views.CallLogs(cmd.Context(), user, q)
			if err != nil {
				return err
			}
			return a.print(page, func(w io.Writer) { renderCallLogs(w, page) })
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "filter by contact name or phone number")
	cmd.Flags().StringVar(&q.Disposition, "disposition", aggregator.DispositionAll, "Answered, No Answer, Busy, Failed or all")
	return cmd
}

func newTranscriptCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <call-id>",
		Short: "Print the transcript of a call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := a.user()
			if err != nil {
				return err
			}
			view, err := a.views.Transcript(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			return a.print(view, func(w io.Writer) { renderTranscript(w, view) })
		},
	}
}

func (a *app) user() (*types.User, error) {
	user, err := a.sessions.Authorize("")
	if errors.Is(err, session.ErrNotAuthenticated) {
		return nil, errNotSignedIn
	}
	return user, err
}

func (a *app) dashboard(ctx context.Context) (*types.DashboardView, error) {
	user, err := a.user()
	if err != nil {
		return nil, err
	}
	return a.views.Dashboard(ctx, user)
}

// print writes v as JSON with --json, otherwise renders it for humans
func (a *app) print(v any, human func(io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(a.out)
	return nil
}
