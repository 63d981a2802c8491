package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/folio/internal/serial"
)

var (
	fmtCompact bool
	fmtWrite   bool
	outPath    string
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a JSON document against the schema",
	Long:  `Validate decodes a JSON document and checks every node and mark against the museum schema. Use "-" to read stdin.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg := museumSchema()
		data, err := readInput(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}
		doc, err := serial.UnmarshalJSON(reg, data)
		if err != nil {
			fatal("Invalid document", err)
		}
		fmt.Printf("ok: %d blocks, %d positions\n", doc.ChildCount(), doc.ContentSize())
	},
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [file]",
	Short: "Reformat a JSON document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg := museumSchema()
		data, err := readInput(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}
		if _, err := serial.UnmarshalJSON(reg, data); err != nil {
			fatal("Invalid document", err)
		}
		out := serial.Pretty(data)
		if fmtCompact {
			out = append(serial.Compact(data), '\n')
		}
		dest := outPath
		if fmtWrite && args[0] != "-" {
			dest = args[0]
		}
		if err := writeOutput(dest, out); err != nil {
			fatal("Error writing document", err)
		}
	},
}

var htmlCmd = &cobra.Command{
	Use:   "html [file]",
	Short: "Render a JSON document as HTML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg := museumSchema()
		data, err := readInput(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}
		doc, err := serial.UnmarshalJSON(reg, data)
		if err != nil {
			fatal("Invalid document", err)
		}
		html, err := serial.ToHTML(reg, doc)
		if err != nil {
			fatal("Error rendering HTML", err)
		}
		if err := writeOutput(outPath, []byte(html+"\n")); err != nil {
			fatal("Error writing HTML", err)
		}
	},
}

var importHTMLCmd = &cobra.Command{
	Use:   "import-html [file]",
	Short: "Convert HTML into a JSON document",
	Long:  `Import-html sanitizes HTML and maps the elements it recognizes onto schema nodes. Markup with no schema equivalent is dropped.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg := museumSchema()
		src, err := readInput(args[0])
		if err != nil {
			fatal("Error reading HTML", err)
		}
		doc, err := serial.FromHTML(reg, string(src))
		if err != nil {
			fatal("Error parsing HTML", err)
		}
		data, err := serial.MarshalJSON(reg, doc)
		if err != nil {
			fatal("Error encoding document", err)
		}
		if err := writeOutput(outPath, serial.Pretty(data)); err != nil {
			fatal("Error writing document", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, fmtCmd, htmlCmd, importHTMLCmd)

	fmtCmd.Flags().BoolVar(&fmtCompact, "compact", false, "Strip whitespace instead of indenting")
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "Write the result back to the file")
	for _, c := range []*cobra.Command{fmtCmd, htmlCmd, importHTMLCmd} {
		c.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
	}
}
