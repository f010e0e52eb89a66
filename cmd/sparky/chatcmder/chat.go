package chatcmder

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/cmd/sparky/wiring"
	"github.com/papercomputeco/sparky/pkg/logger"
)

const chatLongDesc string = `Chat with Sparky in the terminal.

Opens an interactive session. The conversation so far is sent with every
question, so follow-ups work; it is discarded when the session ends.

Keys:
  enter   send the question
  esc     quit (ctrl+c also quits)

Examples:
  sparky chat
  sparky chat --db-driver sqlite --db ./chillspace.db`

const chatShortDesc string = "Interactive chat session"

type chatCommander struct {
	flags wiring.Flags
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:          "chat",
		Short:        chatShortDesc,
		Long:         chatLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.flags.Register(cmd)

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.flags.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	// The terminal belongs to the TUI; logs only go to stderr when asked for.
	log := zap.NewNop()
	if c.flags.Debug {
		log = logger.NewJSONLogger(cmd.ErrOrStderr(), true)
	}
	defer log.Sync()

	assistant, err := wiring.NewAssistant(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer assistant.Close()

	program := tea.NewProgram(
		newModel(ctx, assistant.Orchestrator),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}
