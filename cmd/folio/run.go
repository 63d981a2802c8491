package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/serial"
)

var (
	runParams []string
	runAt     int
	runTo     int
	listLimit int
)

var runCmd = &cobra.Command{
	Use:   "run [file] [command...]",
	Short: "Apply commands to a JSON document",
	Long: `Run loads a document, places the cursor with --at (and --to for a
range), applies each named command in order and prints the result.
Parameters given with --param apply to every command; values that parse
as JSON are passed as JSON, anything else as a string.`,
	Example: `  folio run hours.json insert-callout --param type=warning --param text="Closed today"
  folio run hours.json toggle-mark --at 1 --to 6 --param mark=bold`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}
		defer a.Shutdown(ctx)

		tree, err := readTree(a.Schema(), args[0])
		if err != nil {
			fatal("Invalid document", err)
		}
		doc, err := a.NewDocument(args[0], tree)
		if err != nil {
			fatal("Invalid document", err)
		}
		if cmd.Flags().Changed("at") {
			sel := selection.Cursor(runAt)
			if cmd.Flags().Changed("to") {
				sel = selection.Text(runAt, runTo)
			}
			if err := doc.Editor.SetSelection(sel); err != nil {
				fatal("Invalid selection", err)
			}
		}

		params, err := parseParams(runParams)
		if err != nil {
			fatal("Invalid parameter", err)
		}
		for _, name := range args[1:] {
			if _, err := a.Execute(ctx, doc.ID, name, params); err != nil {
				fatal("Command failed", err)
			}
		}

		data, err := serial.MarshalJSON(a.Schema(), doc.Editor.Doc())
		if err != nil {
			fatal("Error encoding document", err)
		}
		if err := writeOutput(outPath, serial.Pretty(data)); err != nil {
			fatal("Error writing document", err)
		}
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands [query]",
	Short: "List slash menu commands",
	Long:  `Commands lists the slash menu, including commands registered by plugins. A query filters and ranks the items the way the menu does.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}
		defer a.Shutdown(ctx)

		var items []command.Item
		if len(args) == 1 {
			for _, m := range a.Catalog().Filter(args[0], listLimit) {
				items = append(items, m.Item)
			}
		} else {
			items = a.Catalog().Items()
			if listLimit > 0 && len(items) > listLimit {
				items = items[:listLimit]
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tTITLE\tCOMMAND")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\n", it.Group, it.Title, it.Command)
		}
		_ = w.Flush()
	},
}

// parseParams turns key=value pairs into command parameters.
func parseParams(pairs []string) (command.Params, error) {
	p := command.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key=value", pair)
		}
		if gjson.Valid(value) {
			p[key] = gjson.Parse(value).Value()
			continue
		}
		p[key] = value
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(runCmd, commandsCmd)

	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Command parameter as key=value (repeatable)")
	runCmd.Flags().IntVar(&runAt, "at", 0, "Cursor position, or selection anchor with --to")
	runCmd.Flags().IntVar(&runTo, "to", 0, "Selection head")
	runCmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
	commandsCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show at most this many items (0 for all)")
}
