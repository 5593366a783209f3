package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/chatsync/internal/models"
)

// app дерево команд и Cli, собранный перед выполнением
type app struct {
	open  Opener
	cli   *Cli
	flags GlobalFlags
}

// Execute выполняет команду клиента с аргументами args
func Execute(ctx context.Context, open Opener, version string, args []string) error {
	a := &app{open: open}
	root := a.rootCommand(version)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.cli != nil {
		err = errors.Join(err, a.cli.Close())
	}
	return err
}

func (a *app) rootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "chatsync",
		Short:         "Offline-first chat and task client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.open(cmd.Context(), a.flags)
			if err != nil {
				return err
			}
			a.cli = cli
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", "", "path to TOML config file")
	pf.StringVar(&a.flags.ServerURL, "server", "", "server URL (overrides config)")
	pf.StringVar(&a.flags.DBPath, "db", "", "path to local database (overrides config)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.sendCommand(),
		a.editCommand(),
		a.deleteCommand(),
		a.reactCommand(),
		a.listCommand(),
		a.taskCommand(),
		a.syncCommand(),
		a.statusCommand(),
		a.retryCommand(),
		a.listenCommand(),
	)
	return root
}

func (a *app) loginCommand() *cobra.Command {
	var tokens Tokens
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save access token for the server",
		Long: "Save access token for the server.\n\n" +
			"Token priority: " + TokenEnv + " environment variable, --token-file, --token, interactive prompt.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runLogin(cmd.Context(), a.flags.ServerURL, tokens)
		},
	}
	cmd.Flags().StringVar(&tokens.FromArgs, "token", "", "access token (not recommended, use env var or file)")
	cmd.Flags().StringVar(&tokens.FromFile, "token-file", "", "file containing access token")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runLogout(cmd.Context())
		},
	}
}

func (a *app) sendCommand() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:     "send <conversation> <text>...",
		Short:   "Send message to conversation",
		Example: "  chatsync send general hello everyone",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runSend(cmd.Context(), args[0], strings.Join(args[1:], " "), offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "only queue the change, do not sync")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "edit <message-id> <text>...",
		Short: "Edit own message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runEdit(cmd.Context(), args[0], strings.Join(args[1:], " "), offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "only queue the change, do not sync")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete own message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDelete(cmd.Context(), args[0], offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "only queue the change, do not sync")
	return cmd
}

func (a *app) reactCommand() *cobra.Command {
	var remove, offline bool
	cmd := &cobra.Command{
		Use:   "react <message-id> <emoji>",
		Short: "Add or remove reaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runReact(cmd.Context(), args[0], args[1], remove, offline)
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the reaction")
	cmd.Flags().BoolVar(&offline, "offline", false, "only queue the change, do not sync")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	var fetch bool
	cmd := &cobra.Command{
		Use:   "list <conversation>",
		Short: "Show conversation messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runList(cmd.Context(), args[0], fetch)
		},
	}
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch new messages from server first")
	return cmd
}

func (a *app) taskCommand() *cobra.Command {
	var (
		offline bool
		changes = TaskChanges{Fields: map[string]string{}}
		values  = map[string]*string{}
	)
	cmd := &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show or edit shared task",
		Example: "  chatsync task task-1 --title 'Write docs' --add-label docs\n" +
			"  chatsync task task-1",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for field, value := range values {
				if cmd.Flags().Changed(field) {
					changes.Fields[field] = *value
				}
			}
			return a.cli.runTask(cmd.Context(), args[0], changes, offline)
		},
	}
	for _, field := range models.TaskFields {
		values[field] = cmd.Flags().String(field, "", "set task "+field)
	}
	cmd.Flags().StringSliceVar(&changes.AddLabels, "add-label", nil, "add label")
	cmd.Flags().StringSliceVar(&changes.RemoveLabels, "remove-label", nil, "remove label")
	cmd.Flags().BoolVar(&offline, "offline", false, "only queue the change, do not sync")
	return cmd
}

func (a *app) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [conversation]...",
		Short: "Send queued changes and fetch conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runSync(cmd.Context(), args)
		},
	}
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runStatus(cmd.Context())
		},
	}
}

func (a *app) retryCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "retry [action-id]...",
		Short: "Send failed changes again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("specify action ids or --all")
			}
			return a.cli.runRetry(cmd.Context(), args, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "retry all failed changes")
	return cmd
}

func (a *app) listenCommand() *cobra.Command {
	var tasks []string
	cmd := &cobra.Command{
		Use:   "listen <conversation>...",
		Short: "Receive live updates and sync in background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(tasks) == 0 {
				return errors.New("specify conversations or --task")
			}
			return a.cli.runListen(cmd.Context(), args, tasks)
		},
	}
	cmd.Flags().StringSliceVar(&tasks, "task", nil, "task to follow")
	return cmd
}
