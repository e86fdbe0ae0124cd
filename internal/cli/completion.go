package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for versolve.

To load completions:

Bash:
  $ source <(versolve completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ versolve completion bash > /etc/bash_completion.d/versolve
  # macOS:
  $ versolve completion bash > $(brew --prefix)/etc/bash_completion.d/versolve

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ versolve completion zsh > "${fpath[1]}/_versolve"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ versolve completion fish | source

  # To load completions for each session, execute once:
  $ versolve completion fish > ~/.config/fish/completions/versolve.fish

PowerShell:
  PS> versolve completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> versolve completion powershell > versolve.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(c.Out)
			case "zsh":
				return cmd.Root().GenZshCompletion(c.Out)
			case "fish":
				return cmd.Root().GenFishCompletion(c.Out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(c.Out)
			}
			return nil
		},
	}

	return cmd
}
