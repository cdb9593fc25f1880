// Package cmd wires the cobra root command the way bennypowers-cem's
// cmd package wires serveCmd: RegisterFlags onto the command's
// FlagSet, bind them through internal/config.New, resolve a Config in
// RunE and hand it to the supervisor. Unlike cem this proxy has no
// subcommands, so the root command itself starts the server.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lewin671/oneline-editor/internal/config"
	"github.com/Lewin671/oneline-editor/internal/logging"
	"github.com/Lewin671/oneline-editor/internal/supervisor"
)

var rootCmd = &cobra.Command{
	Use:   "lsp-proxy",
	Short: "Multiplex browser editor sessions onto a pool of language server subprocesses",
	Long: `lsp-proxy accepts WebSocket connections from browser-hosted code
editors, speaks JSON-RPC 2.0 LSP over each connection, and forwards
requests to a small pool of per-language analyzer subprocesses (gopls,
typescript-language-server), rewriting document URIs between the
client's identity and the analyzer's workspace.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.New(cmd.Flags())
		if err != nil {
			return fmt.Errorf("building config: %w", err)
		}
		cfg, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log := logging.New(cfg.LogLevel)

		sup, err := supervisor.New(cfg, log)
		if err != nil {
			return fmt.Errorf("starting supervisor: %w", err)
		}

		return sup.Run(cmd.Context())
	},
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	rootCmd.SetContext(context.Background())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
