package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mdsalman850/co-teachers-sub003/internal/config"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List the textbooks in the configured GitHub library",
	Args:  cobra.NoArgs,
	RunE:  runLibrary,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runLibrary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Library == nil {
		return fmt.Errorf("%w: set library.owner and library.repo", library.ErrNoLibrary)
	}

	entries, err := a.Library.List(ctx)
	if err != nil {
		return err
	}
	rev, err := a.Library.Revision(ctx)
	if err != nil {
		rev = "unknown"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s @ %s\n", a.Library, rev)
	for _, e := range entries {
		fmt.Fprintf(out, "  %s%s  (%d KB)\n", library.LibraryPrefix, e.Path, e.Size/1024)
	}
	fmt.Fprintf(out, "%d textbooks\n", len(entries))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.DefaultUserConfigPath()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", abs)
	return nil
}
