package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/model"
)

func printProviders(w io.Writer, list []model.AIProvider) {
	for _, p := range list {
		kind := "custom"
		if p.IsDefault {
			kind = "default"
		}
		fmt.Fprintf(w, "%s  %-20s %-8s %s\n", p.ID, p.Name, kind, p.Icon)
	}
}

func (a *app) aiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Manage AI providers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List default and custom AI providers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := a.session.AIProviders(cmd.Context())
				if err != nil {
					return err
				}
				printProviders(cmd.OutOrStdout(), list)
				return nil
			},
		},
		a.aiAddCmd(),
		a.aiRenameCmd(),
		a.aiRmCmd(),
		&cobra.Command{
			Use:   "defaults",
			Short: "Make sure the default providers exist and list them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := a.session.EnsureDefaultAIProviders(cmd.Context())
				if err != nil {
					return err
				}
				printProviders(cmd.OutOrStdout(), list)
				return nil
			},
		},
		&cobra.Command{
			Use:       "toggle <id> on|off",
			Short:     "Offer or hide a provider as a sender",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"on", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				var active bool
				switch args[1] {
				case "on":
					active = true
				case "off":
				default:
					return fmt.Errorf("expected on or off, got %q", args[1])
				}
				ua, err := a.session.ToggleActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", ua.AIProviderID, args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "active",
			Short: "Show which providers are offered as senders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rows, err := a.session.ActiveAIs(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(w, "No provider toggled yet")
				}
				for _, ua := range rows {
					name := ua.AIProviderID
					if ua.AIProvider != nil {
						name = ua.AIProvider.Name
					}
					state := "off"
					if ua.IsActive {
						state = "on"
					}
					fmt.Fprintf(w, "%-20s %s\n", name, state)
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) aiAddCmd() *cobra.Command {
	var icon string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a custom AI provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ic *string
			if icon != "" {
				ic = &icon
			}
			p, err := a.session.CreateAIProvider(cmd.Context(), args[0], ic)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created AI provider %s\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "Icon")
	return cmd
}

func (a *app) aiRenameCmd() *cobra.Command {
	var icon string
	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a custom AI provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ic *string
			if cmd.Flags().Changed("icon") {
				ic = &icon
			}
			p, err := a.session.RenameAIProvider(cmd.Context(), args[0], args[1], ic)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed AI provider %s to %q\n", p.ID, p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "New icon")
	return cmd
}

func (a *app) aiRmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a custom AI provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirm(cmd, yes, "Delete AI provider %s?", args[0]); err != nil {
				return err
			}
			if err := a.session.DeleteAIProvider(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted AI provider %s\n", args[0])
			return nil
		},
	}
	addYesFlag(cmd, &yes)
	return cmd
}
