package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"helpdesk/internal/chat"
	"helpdesk/internal/domain"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Long:  `Build the index, answer one question with and without document context, and print both answers.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				return chat.ErrEmptyPrompt
			}
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.log.Sync()

			completer, err := a.completer()
			if err != nil {
				return err
			}
			idx, err := a.buildIndex(cmd.Context(), files)
			if err != nil {
				return err
			}
			for _, w := range idx.Warnings() {
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("skipped: "+w.Error()))
			}
			controller := chat.NewController(idx, completer, a.log, chat.Options{TopK: a.cfg.Retrieval.TopK})
			ex, err := controller.HandleUserInput(cmd.Context(), chat.NewSessionState(), prompt, nil)
			if err != nil {
				return err
			}
			printExchange(cmd.OutOrStdout(), ex)
			if ex.AugmentedErr != nil && ex.DirectErr != nil {
				return errors.Join(ex.AugmentedErr, ex.DirectErr)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Document to index (repeatable; defaults to the config file list)")
	return cmd
}

func printExchange(w io.Writer, ex *chat.Exchange) {
	fmt.Fprintln(w, headingStyle.Render("With context"))
	fmt.Fprintln(w, turnText(ex.Augmented))
	if len(ex.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Sources"))
		for _, s := range ex.Sources {
			fmt.Fprintf(w, "  %s %s\n", s.Chunk.Source, dimStyle.Render(fmt.Sprintf("(chunk %d, score %.3f)", s.Chunk.Index, s.Score)))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("Without context"))
	fmt.Fprintln(w, turnText(ex.Direct))
}

func turnText(t domain.Turn) string {
	if t.Failed {
		return errorStyle.Render("no answer: " + t.Err)
	}
	return t.Content
}
