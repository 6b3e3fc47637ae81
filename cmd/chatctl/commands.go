package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tech-arch1tect/chatauth/client"
	"github.com/tech-arch1tect/chatauth/client/session"
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/logging"
)

type options struct {
	baseURL  string
	email    string
	password string
	verbose  bool
	timeout  time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Exercise the chatauth API from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL (default CLIENT_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.email, "email", "", "account email")
	cmd.PersistentFlags().StringVar(&opts.password, "password", os.Getenv("CHATCTL_PASSWORD"), "account password (default CHATCTL_PASSWORD)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")

	cmd.AddCommand(newSignupCommand(opts), newMeCommand(opts), newSessionCommand(opts))
	return cmd
}

func newSignupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client) error {
				id, err := c.Signup(ctx, opts.email, opts.password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d\n", id)
				return nil
			})
		},
	}
}

func newMeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Log in and show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client) error {
				if err := c.Login(ctx, opts.email, opts.password); err != nil {
					return err
				}
				defer func() { _ = c.Logout(ctx) }()

				user, err := c.Me(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", user.ID, user.Username)
				return nil
			})
		},
	}
}

// newSessionCommand logs in, rotates the pair a number of times through
// authenticated calls and logs out.
func newSessionCommand(opts *options) *cobra.Command {
	var calls int
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Log in, make repeated authenticated calls, log out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client) error {
				if err := c.Login(ctx, opts.email, opts.password); err != nil {
					return err
				}
				for i := range calls {
					user, err := c.Me(ctx)
					if err != nil {
						return fmt.Errorf("call %d: %w", i+1, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "call %d: %s\n", i+1, user.Username)
				}
				if err := c.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&calls, "calls", 3, "number of authenticated calls")
	return cmd
}

func withClient(cmd *cobra.Command, opts *options, fn func(context.Context, *client.Client) error) error {
	if opts.email == "" || opts.password == "" {
		return fmt.Errorf("--email and --password are required")
	}

	cfg, err := config.LoadClientConfig()
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.Client.BaseURL = opts.baseURL
	}

	level := logging.Warn
	if opts.verbose {
		level = logging.Debug
	}
	logger, err := logging.NewService(logging.Config{Level: level, Format: "console", OutputPath: "stderr"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c := client.New(cfg, session.New(), logger, client.WithReauthHook(func() {
		fmt.Fprintln(cmd.ErrOrStderr(), "session expired, log in again")
	}))

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	return fn(ctx, c)
}
