package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/ingestion"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/observability"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/parsing"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the fields of a single document",
	Long:  "Reads one document and prints the typed record extracted from it together with any extraction findings.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runExtract(extractKind, extractInput, extractOutput, appConfig.Verbose, cmd.OutOrStdout())
	},
}

var (
	extractKind   string
	extractInput  string
	extractOutput string
)

// ExtractOutput is the JSON written by the extract command
type ExtractOutput struct {
	Metadata *ingestion.Metadata   `json:"metadata"`
	Record   types.ExtractedRecord `json:"record"`
	Findings []types.Finding       `json:"findings"`
}

func init() {
	extractCmd.Flags().StringVarP(&extractKind, "kind", "k", "", "Document kind, e.g. identity, bank_statement, credit_report (required)")
	extractCmd.Flags().StringVarP(&extractInput, "in", "i", "", "Path to the document (required)")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Path to write the record JSON (default: stdout)")

	for _, name := range []string{"kind", "in"} {
		if err := extractCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(extractCmd)
}

//nolint:errcheck // writing to the terminal
func runExtract(kindName, input, output string, verbose bool, out io.Writer) error {
	kind, err := types.ParseDocumentKind(kindName)
	if err != nil {
		return err
	}

	doc, meta, err := ingestion.LoadDocument(kind, input)
	if err != nil {
		return err
	}

	rec, findings := parsing.DefaultRegistry().Extract(doc)
	if findings == nil {
		findings = []types.Finding{}
	}

	if verbose {
		printer := observability.NewPrinter(os.Stderr)
		printer.PrintRecords(map[types.DocumentKind]types.ExtractedRecord{kind: rec})
		printer.PrintFindings(findings)
	}

	data, err := json.MarshalIndent(ExtractOutput{Metadata: meta, Record: rec, Findings: findings}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if output == "" {
		fmt.Fprintln(out, string(data))
		return nil
	}
	if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	fmt.Fprintf(out, "Extracted %s record written to %s (%d findings)\n", kind, output, len(findings))
	return nil
}
