package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/guard"
	"github.com/ghaggin/courseweb/internal/logger"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/repository"
	"github.com/ghaggin/courseweb/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	errNotLoggedIn  = errors.New("not logged in, run \"courseweb login\" first")
	errNotPermitted = errors.New("your role is not permitted to do this")
)

type clientEnv struct {
	log    *zap.Logger
	client *api.Client
	holder *session.Holder
}

func newClientEnv(opts *rootOptions) (*clientEnv, error) {
	cfg, err := config.New(config.Path(opts.configPath))
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	store := repository.NewCredentialFile(cfg.Credentials.Path, log)
	client, err := api.New(api.Params{Config: cfg, Log: log, Tokens: store})
	if err != nil {
		return nil, err
	}

	return &clientEnv{
		log:    log,
		client: client,
		holder: session.New(session.Params{Store: store, Client: client, Log: log}),
	}, nil
}

// requireSession validates the stored credential and applies the guard for
// roles.
func (e *clientEnv) requireSession(ctx context.Context, roles ...model.Role) (*model.Session, error) {
	s, err := e.holder.Restore(ctx)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}

	switch guard.Decide(roles, s) {
	case guard.RedirectLogin:
		return nil, errNotLoggedIn
	case guard.RedirectHome:
		return nil, errNotPermitted
	}
	return s, nil
}

func loginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(opts)
			if err != nil {
				return err
			}

			if password == "" {
				password, err = readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			s, err := env.holder.Login(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, session.ErrInvalidCredentials) {
					return errors.New("Invalid email or password")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", s.User.Name, s.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(opts)
			if err != nil {
				return err
			}
			if err := env.holder.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(opts)
			if err != nil {
				return err
			}
			s, err := env.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", s.User.Name, s.User.Email, s.User.Role)
			return nil
		},
	}
}

func coursesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List active courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(opts)
			if err != nil {
				return err
			}

			courses, err := env.client.ListCourses(cmd.Context())
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active courses available at the moment.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tTITLE\tSEATS\tSTATUS")
			for _, c := range courses {
				status := "available"
				if c.Full() {
					status = "full"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%s\n", c.ID, c.Code, c.Title, c.EnrolledCount, c.Capacity, status)
			}
			return tw.Flush()
		},
	}
}

func enrollCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <course-id>",
		Short: "Enroll in a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid course id %q", args[0])
			}

			env, err := newClientEnv(opts)
			if err != nil {
				return err
			}
			if _, err := env.requireSession(cmd.Context(), model.RoleStudent); err != nil {
				return err
			}

			if _, err := env.client.Enroll(cmd.Context(), id); err != nil {
				return errors.New(api.DetailOf(err, "Enrollment failed"))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Enrolled successfully!")
			return nil
		},
	}
}

func dropCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <course-id>",
		Short: "Drop a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid course id %q", args[0])
			}

			env, err := newClientEnv(opts)
			if err != nil {
				return err
			}
			if _, err := env.requireSession(cmd.Context(), model.RoleStudent); err != nil {
				return err
			}

			if err := env.client.Drop(cmd.Context(), id); err != nil {
				env.log.Debug("drop failed", zap.Error(err))
				return errors.New("Failed to drop course")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Course dropped")
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
