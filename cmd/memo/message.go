package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/service"
)

func parseMode(s string) (*model.DisplayMode, error) {
	if s == "" {
		return nil, nil
	}
	mode := model.DisplayMode(s)
	if !mode.Valid() {
		return nil, fmt.Errorf("display mode must be %q or %q", model.DisplayMarkdown, model.DisplayPlain)
	}
	return &mode, nil
}

func (a *app) msgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "msg",
		Aliases: []string{"m"},
		Short:   "Manage the messages of a snippet",
	}
	cmd.AddCommand(a.msgAddCmd(), a.msgEditCmd(), a.msgRmCmd())
	return cmd
}

func (a *app) msgAddCmd() *cobra.Command {
	var ai, sender, mode string
	cmd := &cobra.Command{
		Use:   "add <snippet-id> <content>",
		Short: "Append a message, as yourself or as an AI with --ai",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dm, err := parseMode(mode)
			if err != nil {
				return err
			}
			in := service.CreateMessageInput{
				SnippetID:   args[0],
				SenderType:  model.SenderUser,
				Sender:      sender,
				Content:     args[1],
				DisplayMode: dm,
			}
			if ai != "" {
				in.SenderType = model.SenderAI
				in.Sender = ai
			}
			m, err := a.session.CreateMessage(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added message %s at position %d\n", m.ID, m.Position)
			return nil
		},
	}
	cmd.Flags().StringVar(&ai, "ai", "", "Post as this AI provider")
	cmd.Flags().StringVar(&sender, "as", "", "Sender name for your own message (default: your user name)")
	cmd.Flags().StringVar(&mode, "mode", "", "Display mode: markdown or plain (default: your setting)")
	return cmd
}

func (a *app) msgEditCmd() *cobra.Command {
	var content, mode string
	cmd := &cobra.Command{
		Use:   "edit <snippet-id> <message-id>",
		Short: "Change a message's content or display mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in service.UpdateMessageInput
			if cmd.Flags().Changed("content") {
				in.Content = &content
			}
			dm, err := parseMode(mode)
			if err != nil {
				return err
			}
			in.DisplayMode = dm
			if in.Content == nil && in.DisplayMode == nil {
				return fmt.Errorf("nothing to change: pass --content or --mode")
			}

			m, err := a.session.EditMessage(cmd.Context(), args[0], args[1], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated message %s\n", m.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&mode, "mode", "", "Display mode: markdown or plain")
	return cmd
}

func (a *app) msgRmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <snippet-id> <message-id>",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirm(cmd, yes, "Delete message %s?", args[1]); err != nil {
				return err
			}
			if err := a.session.DeleteMessage(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %s\n", args[1])
			return nil
		},
	}
	addYesFlag(cmd, &yes)
	return cmd
}
