// Package cli wires the hirebotd commands.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root hirebotd command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hirebotd",
		Short: "Chat session coordinator for hired AI employees",
		Long: `hirebotd runs the chat session service: it stores conversations,
routes message exchanges to the configured LLM providers and dispatches
provider-requested tools.

Examples:
  hirebotd serve --config hirebot.yaml
  hirebotd version`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}
