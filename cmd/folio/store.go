package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/folio/internal/serial"
)

var (
	saveID    string
	saveTitle string
)

var saveCmd = &cobra.Command{
	Use:   "save [file]",
	Short: "Store a JSON document",
	Long:  `Save checks a JSON document and writes it to the configured store. Without --id a new id is generated; an existing id is replaced.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}
		defer a.Shutdown(ctx)

		st, err := a.Store()
		if err != nil {
			fatal("Error opening store", err)
		}
		data, err := readInput(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}
		if _, err := serial.UnmarshalJSON(a.Schema(), data); err != nil {
			fatal("Invalid document", err)
		}
		id := saveID
		if id == "" {
			id = uuid.NewString()
		}
		if err := st.Put(ctx, id, saveTitle, data, 0); err != nil {
			fatal("Error saving document", err)
		}
		fmt.Println(id)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load [id]",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}
		defer a.Shutdown(ctx)

		st, err := a.Store()
		if err != nil {
			fatal("Error opening store", err)
		}
		data, _, err := st.Get(ctx, args[0])
		if err != nil {
			fatal("Error loading document", err)
		}
		if err := writeOutput(outPath, serial.Pretty(data)); err != nil {
			fatal("Error writing document", err)
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}
		defer a.Shutdown(ctx)

		st, err := a.Store()
		if err != nil {
			fatal("Error opening store", err)
		}
		docs, err := st.List(ctx)
		if err != nil {
			fatal("Error listing documents", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tVERSION\tUPDATED")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Version, d.UpdatedAt.Format(time.RFC3339))
		}
		_ = w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}
		defer a.Shutdown(ctx)

		st, err := a.Store()
		if err != nil {
			fatal("Error opening store", err)
		}
		if err := st.Delete(ctx, args[0]); err != nil {
			fatal("Error deleting document", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(saveCmd, loadCmd, listCmd, deleteCmd)

	saveCmd.Flags().StringVar(&saveID, "id", "", "Document id (generated when empty)")
	saveCmd.Flags().StringVar(&saveTitle, "title", "", "Document title")
	loadCmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
}
