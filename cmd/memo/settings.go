package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/model"
)

func printSettings(w io.Writer, st *model.UserSettings) {
	fmt.Fprintf(w, "User name:     %s\n", st.UserName)
	fmt.Fprintf(w, "Display mode:  %s\n", st.DefaultDisplayMode)
	fmt.Fprintf(w, "Custom AIs:    %s\n", strings.Join(st.CustomAINames, ", "))
}

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change your preferences",
	}

	// Each subcommand changes one thing and prints the result.
	change := func(use, short string, fn func(cmd *cobra.Command, arg string) (*model.UserSettings, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := fn(cmd, args[0])
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), st)
				return nil
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show your settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := a.session.Settings(cmd.Context())
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), st)
				return nil
			},
		},
		change("name <user-name>", "Set the sender name of your own messages",
			func(cmd *cobra.Command, name string) (*model.UserSettings, error) {
				return a.session.UpdateUserName(cmd.Context(), name)
			}),
		change("mode markdown|plain", "Set the default display mode",
			func(cmd *cobra.Command, mode string) (*model.UserSettings, error) {
				return a.session.SetDisplayMode(cmd.Context(), model.DisplayMode(mode))
			}),
		change("ai-add <name>", "Add a name to the legacy custom AI list",
			func(cmd *cobra.Command, name string) (*model.UserSettings, error) {
				return a.session.AddCustomAI(cmd.Context(), name)
			}),
		change("ai-rm <name>", "Remove a name from the legacy custom AI list",
			func(cmd *cobra.Command, name string) (*model.UserSettings, error) {
				return a.session.RemoveCustomAI(cmd.Context(), name)
			}),
	)
	return cmd
}
