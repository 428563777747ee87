package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/config"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/db"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/ingestion"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/logger"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/observability"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/schemas"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an application from local files",
	Long: `Reads the applicant declaration and the supporting documents, then runs the full pipeline:
extraction -> normalization -> cross-validation -> inference -> decision -> recommendation.

Documents may be PDF, XLSX, XLS, CSV or plain text. Missing documents are reported as findings.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := verifyOpts
		if !cmd.Flags().Changed("explain") {
			opts.Explain = appConfig.Explain
		}
		opts.Verbose = appConfig.Verbose
		return runVerify(cmd.Context(), appConfig, opts, cmd.OutOrStdout())
	},
}

// verifyOptions are the inputs of one verify invocation.
type verifyOptions struct {
	Declaration string
	Documents   map[types.DocumentKind]string // Kind -> file path
	Out         string
	Explain     bool
	Persist     bool // Record the run in the configured store
	Verbose     bool
}

var verifyOpts = verifyOptions{Documents: map[types.DocumentKind]string{}}

// documentFlags maps flag names to the document kind they load.
var documentFlags = []struct {
	name  string
	kind  types.DocumentKind
	usage string
}{
	{"identity", types.KindIdentity, "Path to the identity card"},
	{"bank-statement", types.KindBankStatement, "Path to the bank statement"},
	{"credit-report", types.KindCreditReport, "Path to the credit report"},
	{"medical-report", types.KindMedicalReport, "Path to the medical report (optional)"},
	{"resume", types.KindResume, "Path to the résumé (optional)"},
	{"assets", types.KindAssetSheet, "Path to the assets and liabilities sheet"},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyOpts.Declaration, "declaration", "d", "", "Path to the applicant declaration JSON (required)")
	for _, f := range documentFlags {
		kind := f.kind
		verifyCmd.Flags().Func(f.name, f.usage, func(path string) error {
			verifyOpts.Documents[kind] = path
			return nil
		})
	}
	verifyCmd.Flags().StringVarP(&verifyOpts.Out, "out", "o", "", "Path to write the verdict JSON (default: stdout)")
	verifyCmd.Flags().BoolVar(&verifyOpts.Explain, "explain", false, "Ask the language model to explain the verdict")
	verifyCmd.Flags().BoolVar(&verifyOpts.Persist, "persist", false, "Record the application, audit log and verdict in the database")

	if err := verifyCmd.MarkFlagRequired("declaration"); err != nil {
		panic(fmt.Sprintf("failed to mark declaration flag as required: %v", err))
	}

	rootCmd.AddCommand(verifyCmd)
}

// runVerify executes the pipeline for one application and writes the verdict.
// A decided verdict, including a rejection, is a successful run.
//
//nolint:errcheck // progress output to the terminal
func runVerify(ctx context.Context, cfg config.Config, opts verifyOptions, out io.Writer) error {
	const steps = 4
	status := out
	if opts.Out == "" {
		// stdout carries the verdict JSON
		status = os.Stderr
	}

	fmt.Fprintf(status, "Step 1/%d: Reading declaration...\n", steps)
	decl, err := loadDeclaration(opts.Declaration)
	if err != nil {
		return err
	}

	fmt.Fprintf(status, "Step 2/%d: Loading %d documents...\n", steps, len(opts.Documents))
	docs, err := loadDocuments(opts.Documents, status, opts.Verbose)
	if err != nil {
		return err
	}

	fmt.Fprintf(status, "Step 3/%d: Running verification...\n", steps)
	orchOpts := []pipeline.Option{
		pipeline.WithPolicy(policyFromConfig(cfg)),
		pipeline.WithLogger(logger.Log),
		pipeline.WithExplanations(opts.Explain),
	}
	if opts.Verbose {
		orchOpts = append(orchOpts, pipeline.WithProgress(func(e pipeline.ProgressEvent) {
			fmt.Fprintf(status, "  → %s: %s\n", e.Step, e.Message)
		}))
	}
	if opts.Explain {
		explainer, release, err := newExplainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()
		orchOpts = append(orchOpts, pipeline.WithExplainer(explainer))
	}

	orch := pipeline.NewOrchestrator(newClassifier(cfg), orchOpts...)
	run := orch.NewRun(decl, docs)

	if opts.Persist {
		store, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if _, err := store.CreateApplication(ctx, run.ID, decl); err != nil {
			return err
		}
		for _, doc := range docs {
			if err := store.SaveDocument(ctx, run.ID, doc); err != nil {
				return err
			}
		}
		orch = orch.With(pipeline.WithRecorder(store))
		fmt.Fprintf(status, "  Application ID: %s\n", run.ID)
	}

	run, err = orch.Run(ctx, run)
	if !run.IsTerminal() {
		return fmt.Errorf("verification did not reach a verdict: %w", err)
	}
	if err != nil {
		logger.Log.WithField("run_id", run.ID.String()).WithError(err).Debug("run ended without acceptance")
	}

	if opts.Verbose {
		printer := observability.NewPrinter(status)
		printer.PrintRecords(run.Records)
		printer.PrintFindings(run.Findings)
		printer.PrintFeatures(run.Features, run.Prediction)
		printer.PrintVerdict(run.Verdict)
	}

	fmt.Fprintf(status, "Step 4/%d: Writing verdict...\n", steps)
	data, err := json.MarshalIndent(run.Verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	if err := schemas.Validate(schemas.Verdict, data); err != nil {
		return fmt.Errorf("verdict failed schema validation: %w", err)
	}

	if opts.Out == "" {
		fmt.Fprintln(out, string(data))
	} else {
		if err := os.WriteFile(opts.Out, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write verdict: %w", err)
		}
		fmt.Fprintf(status, "Verdict written to %s\n", opts.Out)
	}
	fmt.Fprintf(status, "Result: %s\n", run.Stage)
	return nil
}

// loadDeclaration reads and validates the applicant declaration file.
func loadDeclaration(path string) (types.ApplicantDeclaration, error) {
	var decl types.ApplicantDeclaration
	if err := schemas.ValidateFile(schemas.Declaration, path); err != nil {
		return decl, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return decl, fmt.Errorf("failed to read declaration: %w", err)
	}
	if err := json.Unmarshal(data, &decl); err != nil {
		return decl, fmt.Errorf("failed to parse declaration: %w", err)
	}
	if err := decl.Validate(); err != nil {
		return decl, fmt.Errorf("invalid declaration: %w", err)
	}
	return decl, nil
}

// loadDocuments reads every given file in the canonical kind order.
//
//nolint:errcheck // progress output to the terminal
func loadDocuments(paths map[types.DocumentKind]string, status io.Writer, verbose bool) ([]types.RawDocument, error) {
	docs := make([]types.RawDocument, 0, len(paths))
	for _, kind := range types.AllDocumentKinds() {
		path, ok := paths[kind]
		if !ok {
			continue
		}
		doc, meta, err := ingestion.LoadDocument(kind, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s document: %w", kind, err)
		}
		if verbose {
			fmt.Fprintf(status, "  %s: %s (%s, %d bytes)\n", kind, meta.Name, meta.Format, meta.Size)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
