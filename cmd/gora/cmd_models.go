package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// modelsCmd lists the models available to the credential
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models that support content generation",
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ws, err := newWorkspace()
	if err != nil {
		return err
	}
	if err := ws.Configure(ctx, cfg.LLM.APIKey); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	selected := ws.Registry.Selected()
	for _, id := range ws.Registry.Models() {
		marker := " "
		if id == selected {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, id)
	}
	return nil
}
