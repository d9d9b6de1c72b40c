package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/model"
)

func (a *app) tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tag",
		Aliases: []string{"t"},
		Short:   "Manage tags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls [snippet-id]",
			Short: "List your tags, or the tags of one snippet",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var tags []model.Tag
				var err error
				if len(args) == 1 {
					tags, err = a.session.API().SnippetTags(cmd.Context(), args[0])
				} else {
					tags, err = a.session.Tags(cmd.Context())
				}
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(tags) == 0 {
					fmt.Fprintln(w, "No tags")
				}
				for _, t := range tags {
					color := ""
					if t.Color != nil {
						color = *t.Color
					}
					fmt.Fprintf(w, "%s  %-20s %-8s %s\n", t.ID, t.Name, color, humanize.Time(t.CreatedAt))
				}
				return nil
			},
		},
		a.tagNewCmd(),
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a tag",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := a.session.RenameTag(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed tag %s to %q\n", t.ID, t.Name)
				return nil
			},
		},
		a.tagRmCmd(),
		&cobra.Command{
			Use:   "attach <snippet-id> <tag-id>",
			Short: "Attach a tag to a snippet",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := a.session.AddTagToSnippet(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s with %s\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "detach <snippet-id> <tag-id>",
			Short: "Remove a tag from a snippet",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.session.RemoveTagFromSnippet(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed tag %s from %s\n", args[1], args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *app) tagNewCmd() *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c *string
			if color != "" {
				c = &color
			}
			t, err := a.session.CreateTag(cmd.Context(), args[0], c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Color, e.g. #3b82f6")
	return cmd
}

func (a *app) tagRmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a tag and detach it from every snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirm(cmd, yes, "Delete tag %s from every snippet?", args[0]); err != nil {
				return err
			}
			if err := a.session.DeleteTag(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %s\n", args[0])
			return nil
		},
	}
	addYesFlag(cmd, &yes)
	return cmd
}
