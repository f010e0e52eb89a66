package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/sparky/cmd/sparky/askcmder"
	"github.com/papercomputeco/sparky/cmd/sparky/chatcmder"
	"github.com/papercomputeco/sparky/cmd/sparky/mcpcmder"
	"github.com/papercomputeco/sparky/cmd/sparky/seedcmder"
	"github.com/papercomputeco/sparky/cmd/sparky/servecmder"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

const sparkyLongDesc string = `Sparky is the ChillSpace assistant.

It answers questions about the community by letting a Gemini model call
lookup tools (online users, shared files, recent messages) and by
grounding answers in the documents of the knowledge directory.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sparky",
		Short:        "The ChillSpace assistant",
		Long:         sparkyLongDesc,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(servecmder.NewServeCmd(version))
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd(version))
	cmd.AddCommand(seedcmder.NewSeedCmd())

	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
