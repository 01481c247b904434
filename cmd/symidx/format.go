package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to cobra. In JSON mode the error is written to stdout as
// a CLIResult envelope; in text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{Command: command, Error: err.Error()}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText renders result.Results as a plain tab-separated table
// when it recognizes the concrete type, falling back to one value per line.
func outputResultText(result CLIResult) error {
	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Error)
		return fmt.Errorf("%s", result.Error)
	}
	w := os.Stdout
	switch v := result.Results.(type) {
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLIRef:
		formatRefsText(w, v)
	case []CLIRelation:
		formatRelationsText(w, v)
	case []CLICrossSymbol:
		formatCrossSymbolsText(w, v)
	case CLIStats:
		fmt.Fprintf(w, "backend\t%s\npackages\t%d\n", v.Backend, v.Packages)
	default:
		fmt.Fprintf(w, "%v\n", v)
	}
	return nil
}

func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tSCOPE\tREFS\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%d\n",
			s.ID, s.Name, s.Kind, s.Scope, s.RefCount, s.Location.File, s.Location.StartLine)
	}
	tw.Flush()
}

func formatRefsText(w io.Writer, refs []CLIRef) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tKIND\tFILE\tLINE\tCOL")
	for _, r := range refs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
			r.Symbol, r.Kind, r.Location.File, r.Location.StartLine, r.Location.StartCol)
	}
	tw.Flush()
}

func formatRelationsText(w io.Writer, rels []CLIRelation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tPREDICATE\tOBJECT")
	for _, r := range rels {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", r.Subject, r.Predicate, r.Object)
	}
	tw.Flush()
}

func formatCrossSymbolsText(w io.Writer, css []CLICrossSymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCONTAINER\tFILE\tLINE")
	for _, cs := range css {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n",
			cs.ID, cs.Name, cs.ContainerName, cs.Location.File, cs.Location.StartLine)
	}
	tw.Flush()
}
