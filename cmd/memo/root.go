package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/client"
	"github.com/sakif/chat-memo/internal/config"
)

var errAborted = errors.New("aborted")

// app is shared by every subcommand of one command tree.
type app struct {
	flags struct {
		ConfigFile string
		Server     string
		LogLevel   string
	}
	cfg     *config.ClientConfig
	session *client.Session
	in      *bufio.Reader
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "memo",
		Short: "Save and browse AI chat excerpts",
		Long:  `memo talks to a Chat Memo server: snippets of conversations, their messages, tags, AI providers and settings.`,
		Example: `memo register me@example.com
  memo login me@example.com
  memo snippet ls
  memo --server http://memo.local:8080 tag ls`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.flags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.chatmemo, /etc/chatmemo)")
	root.PersistentFlags().StringVar(&a.flags.Server, "server", "", "Server URL - overrides config file setting")
	root.PersistentFlags().StringVar(&a.flags.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.snippetCmd(),
		a.msgCmd(),
		a.tagCmd(),
		a.aiCmd(),
		a.settingsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(a.flags.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	cfg, err := config.LoadClient(a.flags.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.flags.Server != "" {
		cfg.Server = strings.TrimRight(a.flags.Server, "/")
	}
	a.cfg = cfg

	var opts []client.Option
	if token, err := os.ReadFile(cfg.TokenFile); err == nil {
		opts = append(opts, client.WithToken(strings.TrimSpace(string(token))))
	}

	// Rolled-back changes are reported here; the command still fails with
	// the server's error.
	notices := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "memo"})
	a.session = client.NewSession(client.New(cfg.Server, opts...), client.NotifierFunc(func(name string, err error) {
		notices.Warn("change rolled back", "change", name, "error", err)
	}))
	a.in = bufio.NewReader(cmd.InOrStdin())
	log.Debug("Using server", "url", cfg.Server)
	return nil
}

func (a *app) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.TokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(a.cfg.TokenFile, []byte(token+"\n"), 0o600)
}

func (a *app) forgetToken() error {
	err := os.Remove(a.cfg.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (a *app) readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks before destructive commands unless --yes was given.
func (a *app) confirm(cmd *cobra.Command, yes bool, format string, args ...any) error {
	if yes {
		return nil
	}
	answer, err := a.readLine(cmd, fmt.Sprintf(format, args...)+" [y/N]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	}
	return errAborted
}

func addYesFlag(cmd *cobra.Command, yes *bool) {
	cmd.Flags().BoolVarP(yes, "yes", "y", false, "Do not ask for confirmation")
}
