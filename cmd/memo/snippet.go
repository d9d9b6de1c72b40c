package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/service"
)

func (a *app) snippetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snippet",
		Aliases: []string{"s"},
		Short:   "Manage snippets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List snippets, most recently updated first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := a.session.Snippets(cmd.Context())
				if err != nil {
					return err
				}
				printSnippets(cmd.OutOrStdout(), list)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a snippet with its messages",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sn, err := a.session.Snippet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				st, err := a.session.Settings(cmd.Context())
				if err != nil {
					return err
				}
				printSnippet(cmd.OutOrStdout(), sn, st.DefaultDisplayMode)
				return nil
			},
		},
		a.snippetNewCmd(),
		&cobra.Command{
			Use:   "rename <id> <title>",
			Short: "Change a snippet's title",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				sn, err := a.session.UpdateSnippet(cmd.Context(), args[0], service.UpdateSnippetInput{Title: &args[1]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", sn.ID, sn.Title)
				return nil
			},
		},
		a.snippetRmCmd(),
		&cobra.Command{
			Use:   "search <query>",
			Short: "Find snippets whose title contains the query",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.session.API().SearchSnippets(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				printSnippets(cmd.OutOrStdout(), list)
				return nil
			},
		},
		&cobra.Command{
			Use:   "filter <tag-id>...",
			Short: "List snippets carrying any of the tags",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.session.API().FilterSnippets(cmd.Context(), args)
				if err != nil {
					return err
				}
				printSnippets(cmd.OutOrStdout(), list)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) snippetNewCmd() *cobra.Command {
	var tagIDs []string
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sn, err := a.session.CreateSnippet(cmd.Context(), args[0], tagIDs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created snippet %s\n", sn.ID)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tagIDs, "tag", "t", nil, "Tag id to attach (repeatable)")
	return cmd
}

func (a *app) snippetRmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a snippet and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirm(cmd, yes, "Delete snippet %s and all its messages?", args[0]); err != nil {
				return err
			}
			if err := a.session.DeleteSnippet(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted snippet %s\n", args[0])
			return nil
		},
	}
	addYesFlag(cmd, &yes)
	return cmd
}

func tagNames(tags []model.Tag) string {
	if len(tags) == 0 {
		return ""
	}
	return "[" + strings.Join(lo.Map(tags, func(t model.Tag, _ int) string { return t.Name }), ", ") + "]"
}

func printSnippets(w io.Writer, list []model.Snippet) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No snippets")
		return
	}
	for _, sn := range list {
		fmt.Fprintf(w, "%s  %s  %s %s\n", sn.ID, humanize.Time(sn.UpdatedAt), sn.Title, tagNames(sn.Tags))
	}
}

func printSnippet(w io.Writer, sn *model.Snippet, mode model.DisplayMode) {
	fmt.Fprintf(w, "%s %s\n", sn.Title, tagNames(sn.Tags))
	fmt.Fprintf(w, "id %s, created %s, updated %s\n\n", sn.ID, humanize.Time(sn.CreatedAt), humanize.Time(sn.UpdatedAt))
	if len(sn.Messages) == 0 {
		fmt.Fprintln(w, "No messages")
		return
	}
	for _, m := range sn.Messages {
		fmt.Fprintf(w, "#%d %s (%s, %s) %s\n", m.Position, m.Sender, m.SenderType, m.EffectiveDisplayMode(mode), m.ID)
		for _, line := range strings.Split(m.Content, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
