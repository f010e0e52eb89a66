package askcmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/cmd/sparky/termrender"
	"github.com/papercomputeco/sparky/cmd/sparky/wiring"
	"github.com/papercomputeco/sparky/pkg/logger"
	"github.com/papercomputeco/sparky/pkg/orchestrator"
)

const askLongDesc string = `Ask Sparky a single question.

Runs one orchestration against the configured model backend and store,
and prints the answer. Answers are rendered as markdown when writing to a
terminal.

Examples:
  sparky ask "who is online right now?"
  sparky ask --db-driver sqlite --db ./chillspace.db "what files were shared today?"
  sparky ask --plain "summarize the house rules" > answer.md`

const askShortDesc string = "Ask a single question"

// ErrNoAnswer is returned when the assistant produced only a degraded answer.
var ErrNoAnswer = errors.New("assistant could not answer")

type askCommander struct {
	flags   wiring.Flags
	plain   bool
	verbose bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:          "ask <question...>",
		Short:        askShortDesc,
		Long:         askLongDesc,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmder.flags.Register(cmd)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the answer without markdown rendering")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Report iterations and tool calls on stderr")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, query string) error {
	cfg, err := c.flags.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log := zap.NewNop()
	if c.flags.Debug {
		log = logger.NewJSONLogger(cmd.ErrOrStderr(), true)
	}
	defer log.Sync()

	var opts []orchestrator.Option
	if c.verbose {
		opts = append(opts, orchestrator.WithObserver(func(e orchestrator.Event) {
			if e.State == orchestrator.ExecutingTool {
				fmt.Fprintf(cmd.ErrOrStderr(), "  [%d] %s\n", e.Iteration, e.Tool)
			}
		}))
	}

	assistant, err := wiring.NewAssistant(ctx, cfg, log, opts...)
	if err != nil {
		return err
	}
	defer assistant.Close()

	res, err := assistant.Orchestrator.Run(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("could not run assistant: %w", err)
	}

	answer := res.FinalText
	if !c.plain {
		answer = termrender.Answer(cmd.OutOrStdout(), answer)
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)

	if c.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "(%d iteration(s))\n", res.IterationsUsed)
	}

	if !res.Succeeded {
		return ErrNoAnswer
	}
	return nil
}
