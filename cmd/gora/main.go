// Package main provides the GORA Workspace CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gora/cmd/gora/chat"
	"gora/internal/config"
	"gora/internal/llm"
	"gora/internal/logging"
	"gora/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

var (
	// Global flags
	verbose    bool
	apiKey     string
	configPath string
	modelID    string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// newClient builds the remote model client; tests swap it.
	newClient llm.Factory = llm.NewGeminiClient
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gora",
	Short: "GORA Workspace - Gemini chat with a persistent Go Lab",
	Long: `GORA Workspace combines a multi-session Gemini chat, with documents and
images injected as context, and a Lab that runs Go snippets in a namespace
that persists between runs.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if apiKey != "" {
			loaded.LLM.APIKey = apiKey
		}
		if modelID != "" {
			loaded.LLM.Model = modelID
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
			return err
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Get(logging.CategoryBoot).Info("starting",
			zap.String("command", cmd.Name()),
			zap.String("config", configPath),
			zap.Bool("credential", cfg.HasCredential()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gora %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (to the configured log file)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GOOGLE_API_KEY / GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Config file")
	rootCmd.PersistentFlags().StringVarP(&modelID, "model", "m", "", "Model id (default: first available)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(labCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newWorkspace builds the workspace for a command.
func newWorkspace() (*workspace.Workspace, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return workspace.New(cfg, workspace.Deps{Factory: newClient})
}

func runInteractive() error {
	ws, err := newWorkspace()
	if err != nil {
		return err
	}
	return chat.Run(ws, chat.Config{
		APIKey:       cfg.LLM.APIKey,
		Stream:       cfg.LLM.Stream,
		Theme:        cfg.UX.Theme,
		SidebarWidth: cfg.UX.SidebarWidth,
	})
}

// joinArgs joins positional arguments into one prompt.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
