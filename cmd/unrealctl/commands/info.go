package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/unrealctl/internal/rc"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the editor's Remote Control route catalog",
	RunE:  runInfo,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search assets through the Remote Control API",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

var (
	searchPaths     []string
	searchClasses   []string
	searchRecursive bool
)

func init() {
	searchCmd.Flags().StringSliceVar(&searchPaths, "path", nil, "Restrict to these package paths")
	searchCmd.Flags().StringSliceVar(&searchClasses, "class", nil, "Restrict to these class names")
	searchCmd.Flags().BoolVar(&searchRecursive, "recursive", true, "Search subfolders of the given paths")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(searchCmd)
}

func remoteControlClient() (*rc.Client, error) {
	s, err := resolveSettings()
	if err != nil {
		return nil, err
	}
	return rc.NewClient(rc.Options{Host: s.rcHost, Port: s.rcPort}), nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := remoteControlClient()
	if err != nil {
		return err
	}
	info, err := client.Info(cmd.Context())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := remoteControlClient()
	if err != nil {
		return err
	}

	var q rc.Query
	if len(args) == 1 {
		q.Query = args[0]
	}
	q.Filter.PackagePaths = searchPaths
	q.Filter.ClassNames = searchClasses
	q.Filter.RecursivePaths = searchRecursive

	assets, err := client.SearchAssets(cmd.Context(), q)
	if err != nil {
		return err
	}
	for _, asset := range assets {
		name, _ := asset["Name"].(string)
		path, _ := asset["Path"].(string)
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", name, path)
	}
	return nil
}
