package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "console",
		Short:        "Admin console for the marketplace API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(logoutCmd())
	root.AddCommand(listCmd())
	root.AddCommand(deleteCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
