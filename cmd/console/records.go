package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/transport"
)

func listCmd() *cobra.Command {
	var parentID, search, status string
	var page int
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List records of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(); err != nil {
				return err
			}

			con, err := a.consoleFor(args[0], parentID)
			if err != nil {
				return err
			}
			if _, err := con.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("%s", transport.PublicMessage(err, con.Definition().Messages.Load))
			}

			view, err := con.View(cmd.Context(), resource.Query{Search: search, Status: status, Page: page})
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), con.Definition(), view)
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "Parent record id, for nested entities")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive search over the entity's search fields")
	cmd.Flags().StringVar(&status, "status", "", "Status filter name, or all")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func deleteCmd() *cobra.Command {
	var parentID string
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s %s without --yes", args[0], args[1])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(); err != nil {
				return err
			}

			con, err := a.consoleFor(args[0], parentID)
			if err != nil {
				return err
			}
			out := con.Delete(cmd.Context(), args[1])
			if !out.OK() {
				return fmt.Errorf("%s", out.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", con.Definition().Singular, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "Parent record id, for nested entities")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

// printView writes one row per record: the id, then the searchable fields.
func printView(w io.Writer, def *resource.Definition, view *resource.View) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "ID")
	for _, f := range def.Search {
		fmt.Fprintf(tw, "\t%s", f)
	}
	fmt.Fprintln(tw)

	for _, rec := range view.Items {
		fmt.Fprint(tw, rec.ID)
		for _, f := range def.Search {
			fmt.Fprintf(tw, "\t%s", rec.String(f))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	fmt.Fprintf(w, "page %d of %d, %d %s\n", view.Page, max(view.TotalPages, 1), view.TotalCount, def.Name)
	if view.State.Stale {
		fmt.Fprintf(w, "warning: showing stale data: %s\n", view.State.LastError)
	}
}
