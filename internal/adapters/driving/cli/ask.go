package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

var (
	askFileID   string
	askSession  string
	askNoStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your documents",
	Long: `Retrieve relevant passages and stream an answer to stdout.

Citations are printed after the answer. With --session the question and
answer are kept in that conversation's history. --no-stream waits for the
full answer and never touches history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askFileID, "file", "", "restrict retrieval to one file id")
	askCmd.Flags().StringVar(&askSession, "session", "", "conversation session id")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "print the answer once it is complete")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	chat, err := chatService()
	if err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	out := cmd.OutOrStdout()
	pr := newAnswerPrinter(out, isTerminal(out))

	if askNoStream {
		answer, err := chat.Query(cmd.Context(), question, askFileID)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		pr.token(answer.Text)
		for _, c := range answer.Citations {
			pr.citation(c)
		}
		pr.done(answer.UsedRetrieval)
		return nil
	}

	var streamErr error
	err = chat.Chat(cmd.Context(), domain.ChatRequest{
		Message:   question,
		SessionID: askSession,
		FileID:    askFileID,
	}, func(ev domain.Event) error {
		switch e := ev.(type) {
		case domain.CitationEvent:
			pr.citation(e.Citation)
		case domain.TokenEvent:
			pr.token(e.Text)
		case domain.DoneEvent:
			pr.done(e.UsedRetrieval)
		case domain.ErrorEvent:
			streamErr = fmt.Errorf("answer failed: %s", e.Message)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	return streamErr
}

// answerPrinter writes tokens as they arrive and holds citations back
// until the answer is complete.
type answerPrinter struct {
	w         io.Writer
	styles    *styles.Styles
	styled    bool
	citations []domain.Citation
	wrote     bool
}

func newAnswerPrinter(w io.Writer, styled bool) *answerPrinter {
	return &answerPrinter{w: w, styles: styles.DefaultStyles(), styled: styled}
}

func (p *answerPrinter) token(text string) {
	if text == "" {
		return
	}
	p.wrote = true
	fmt.Fprint(p.w, text)
}

func (p *answerPrinter) citation(c domain.Citation) {
	p.citations = append(p.citations, c)
}

func (p *answerPrinter) done(usedRetrieval bool) {
	if p.wrote {
		fmt.Fprintln(p.w)
	}
	if len(p.citations) == 0 {
		if !usedRetrieval {
			fmt.Fprintln(p.w, p.render(p.styles.Muted.Render, "(answered without document context)"))
		}
		return
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.render(p.styles.Title.Render, "Sources:"))
	for _, c := range p.citations {
		name := c.SourceName
		if name == "" {
			name = c.SourceID
		}
		line := fmt.Sprintf("  [%d] %s p.%d (%.2f)", c.Rank, name, c.Page, c.Score)
		fmt.Fprintln(p.w, p.render(p.styles.Muted.Render, line))
	}
}

func (p *answerPrinter) render(style func(...string) string, s string) string {
	if !p.styled {
		return s
	}
	return style(s)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
