package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "brix",
		Short:         "Build tool for Brix programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildCmd(), cleanCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "brix:", err)
		os.Exit(1)
	}
}

func projectDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return os.Getwd()
}

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [dir]",
		Short: "Build binaries from the project's compiled IR",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			m, err := LoadManifest(dir)
			if err != nil {
				return err
			}
			return buildAll(m, dir)
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove the project's build cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			m, err := LoadManifest(dir)
			if err != nil {
				return err
			}
			return os.RemoveAll(filepath.Join(cacheDir(), m.Project.Name))
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the brix version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("brix", Version)
			if Commit != "unknown" {
				fmt.Println("  commit:", Commit)
			}
			if BuildDate != "unknown" {
				fmt.Println("  built: ", BuildDate)
			}
		},
	}
}
