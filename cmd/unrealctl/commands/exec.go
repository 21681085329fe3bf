package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/unrealctl/internal/command"
	"github.com/danmuck/unrealctl/internal/payload"
	"github.com/danmuck/unrealctl/internal/remote"
)

var execCmd = &cobra.Command{
	Use:   "exec [python]",
	Short: "Run Python on a discovered editor instance",
	Long: `Discover an editor over multicast, open a command connection and run
Python on it.

Examples:
  # Evaluate an expression and print its value
  unrealctl exec "2 + 2"

  # Run statements
  unrealctl exec --mode statement "unreal.log('hello')"

  # Run a script file with arguments
  unrealctl exec --file build.py -- --level Main
`,
	RunE: runExec,
}

var (
	execMode       string
	execFile       string
	execUnattended bool
	execRaise      bool
)

func init() {
	execCmd.Flags().StringVar(&execMode, "mode", "eval", "Execution mode: eval, statement or file")
	execCmd.Flags().StringVar(&execFile, "file", "", "Run this Python file instead of an inline command")
	execCmd.Flags().BoolVar(&execUnattended, "unattended", true, "Run without editor prompts")
	execCmd.Flags().BoolVar(&execRaise, "raise", false, "Exit non-zero when the remote command fails")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	s, err := resolveSettings()
	if err != nil {
		return err
	}

	session := remote.NewSession(s.base, remote.Options{
		DiscoveryTimeout: s.discoveryTimeout,
		CommandTimeout:   s.commandTimeout,
		RaiseOnFailure:   execRaise,
	})
	if err := session.Open(); err != nil {
		return err
	}
	defer session.Close()

	res, err := session.Execute(req)
	if err != nil {
		return err
	}
	if out := res.String(); out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	// Evaluations carry their value in the result field, not the output.
	if res.Success && res.Result != "" && res.Result != "None" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Result)
	}
	return nil
}

func buildRequest(args []string) (command.Request, error) {
	if execFile != "" {
		script, err := payload.RunFile(execFile, args...)
		if err != nil {
			return command.Request{}, err
		}
		return command.Request{
			Command:    script,
			Unattended: execUnattended,
			ExecMode:   command.ExecuteFile,
		}, nil
	}

	if len(args) != 1 {
		return command.Request{}, fmt.Errorf("expected exactly one python command, got %d", len(args))
	}

	mode, err := parseMode(execMode)
	if err != nil {
		return command.Request{}, err
	}
	return command.Request{
		Command:    args[0],
		Unattended: execUnattended,
		ExecMode:   mode,
	}, nil
}

func parseMode(raw string) (command.ExecMode, error) {
	switch raw {
	case "eval":
		return command.EvaluateStatement, nil
	case "statement":
		return command.ExecuteStatement, nil
	case "file":
		return command.ExecuteFile, nil
	}
	return "", fmt.Errorf("unknown mode %q, want eval, statement or file", raw)
}
