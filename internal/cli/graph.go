package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowforge/pkg/automation"
	"github.com/matzehuels/flowforge/pkg/engine"
	"github.com/matzehuels/flowforge/pkg/flow"
	"github.com/matzehuels/flowforge/pkg/wire"
)

// newNewCmd creates the new command, which writes a starter flow graph
// file containing the minimal valid graph.
func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <file>",
		Short: "Write a starter flow graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if err := wire.WriteGraphFile(flow.New(), args[0]); err != nil {
				return err
			}
			logger.Info("wrote starter graph", "file", args[0])
			return nil
		},
	}
}

// newValidateCmd creates the validate command, which checks a flow graph
// file against the full save-time rule set and prints every problem.
func newValidateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a flow graph file against the save-time rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if cmd.Flags().Changed("name") {
				if err := automation.ValidateName(name); err != nil {
					return err
				}
			}
			g, err := wire.ReadGraphFile(args[0])
			if err != nil {
				return err
			}

			problems := g.Validate(time.Now())
			if len(problems) == 0 {
				logger.Info("graph is valid", "nodes", g.NodeCount(), "edges", g.EdgeCount())
				return nil
			}
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p.String())
			}
			return fmt.Errorf("%d validation problems", len(problems))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "also check an automation name")
	return cmd
}

// newRunCmd creates the run command, which executes a flow graph file
// locally against a sample input and prints the visited steps.
func newRunCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a flow graph file against a sample input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := wire.ReadGraphFile(args[0])
			if err != nil {
				return err
			}

			steps, err := engine.TestRun(g, engine.Input{Email: email})
			for _, st := range steps {
				line := fmt.Sprintf("%s  %s", st.Type, st.NodeID)
				if st.Detail != "" {
					line += "  " + st.Detail
				}
				if st.Branch != "" {
					line += "  -> " + st.Branch
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email field of the sample input")
	return cmd
}
