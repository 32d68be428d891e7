package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui"
)

var (
	chatSession string
	chatFileID  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive terminal chat",
	Long: `Launch an interactive chat over your indexed documents.

Answers stream into the view with their sources listed underneath.

Controls:
  Enter       - Send question
  Ctrl+L      - Clear the session
  PgUp/PgDn   - Scroll
  Esc/Ctrl+C  - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "conversation session id (default \"default\")")
	chatCmd.Flags().StringVar(&chatFileID, "file", "", "restrict retrieval to one file id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI crashed: %v", r)
		}
	}()

	chat, err := chatService()
	if err != nil {
		return err
	}

	ui, err := tui.NewApp(tui.NewPorts(chat),
		tui.WithSessionID(chatSession),
		tui.WithFileID(chatFileID),
	)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := ui.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
