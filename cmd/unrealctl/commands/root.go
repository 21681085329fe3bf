// Package commands wires the unrealctl CLI: discovery, remote Python
// execution and Remote Control queries against a running editor.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/unrealctl/internal/config"
	"github.com/danmuck/unrealctl/internal/logging"
)

var (
	// Version is set at build time.
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "unrealctl",
	Short: "Remote control for a running Unreal Engine editor",
	Long: `unrealctl discovers editor instances over multicast and runs Python
commands on them through the remote execution protocol. It also exposes the
editor's Remote Control web API for object and preset access.

Use "unrealctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime()
	},
}

var (
	flagConfig   string
	flagUProject string
	flagProject  string
	flagGroup    string
	flagBind     string
	flagTTL      int
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "unrealctl %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&flagUProject, "uproject", "", "Path to a .uproject file to read protocol settings from")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Only talk to editors running this project")
	rootCmd.PersistentFlags().StringVar(&flagGroup, "group", "", "Multicast group endpoint, ip:port")
	rootCmd.PersistentFlags().StringVar(&flagBind, "bind", "", "Multicast bind address")
	rootCmd.PersistentFlags().IntVar(&flagTTL, "ttl", -1, "Multicast TTL")
}

// resolveSettings layers the protocol configuration: defaults, then the
// .uproject file, then the TOML config, then flags.
func resolveSettings() (settings, error) {
	s := defaultSettings()

	if flagUProject != "" {
		cfg, err := config.FromUProject(flagUProject)
		if err != nil {
			return settings{}, err
		}
		s.base = cfg
	}

	if flagConfig != "" {
		loaded, err := loadSettings(flagConfig, s)
		if err != nil {
			return settings{}, err
		}
		s = loaded
	}

	if flagProject != "" {
		s.base.ProjectName = flagProject
	}
	if flagGroup != "" {
		group, err := config.ParseEndpoint(flagGroup)
		if err != nil {
			return settings{}, err
		}
		s.base.MulticastGroup = group
	}
	if flagBind != "" {
		s.base.MulticastBindAddress = flagBind
	}
	if flagTTL >= 0 {
		s.base.MulticastTTL = flagTTL
	}

	cfg, err := config.New(s.base)
	if err != nil {
		return settings{}, err
	}
	s.base = cfg
	return s, nil
}
