package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"helpdesk/internal/chat"
	"helpdesk/internal/tui"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "helpdesk [files...]",
		Short: "Chat with a document-backed help desk",
		Long: `Index the help-desk documents (PDF, TXT, CSV) and answer questions about them.

Every question is answered twice: once with the most relevant document
excerpts as context and once without, so both answers can be compared.

Files come from the config file ("files:") unless given as arguments.
The API key is read from the variable named by completion.api_key_env
(OPENAI_API_KEY by default); a .env file in the working directory is honoured.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is fine
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file (default ./config.yaml or ~/.config/helpdesk/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newAskCmd(opts), newIndexCmd(opts))
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, args []string) error {
	a, err := newApp(opts, true)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	completer, err := a.completer()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Indexing documents...")
	idx, err := a.buildIndex(cmd.Context(), args)
	if err != nil {
		return err
	}

	controller := chat.NewController(idx, completer, a.log, chat.Options{TopK: a.cfg.Retrieval.TopK})
	state := chat.NewSessionState()
	a.log.Info("session started", "session", state.ID.String(), "chunks", idx.Len())

	m := tui.New(cmd.Context(), controller, state, tui.Options{
		Title:    a.cfg.UI.Title,
		Summary:  idx.Summary(),
		Warnings: warningStrings(idx.Warnings()),
		Markdown: true,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func warningStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
