package parsing

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// ExtractionResult is the joined output of all extractors for one application.
type ExtractionResult struct {
	Records  map[types.DocumentKind]types.ExtractedRecord
	Findings types.Findings
}

type extractionSlot struct {
	record   types.ExtractedRecord
	findings []types.Finding
}

// ExtractAll runs one extractor per document concurrently and waits for all of
// them before returning. Findings are ordered by document kind so the result
// is deterministic. Only the first document of each kind is extracted; later
// duplicates are reported as warnings. The error is non-nil only when ctx is
// cancelled before every extraction finished.
func ExtractAll(ctx context.Context, registry *Registry, docs []types.RawDocument) (ExtractionResult, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}

	byKind := make(map[types.DocumentKind]types.RawDocument, len(docs))
	duplicates := make(map[types.DocumentKind][]types.Finding)
	for _, doc := range docs {
		if _, seen := byKind[doc.Kind]; seen {
			duplicates[doc.Kind] = append(duplicates[doc.Kind], types.Finding{
				Check:     types.CheckExtraction,
				Documents: []types.DocumentKind{doc.Kind},
				Severity:  types.SeverityWarning,
				Message:   fmt.Sprintf("duplicate %s document %q ignored", doc.Kind, doc.Name),
			})
			continue
		}
		byKind[doc.Kind] = doc
	}

	order := orderedKinds(byKind)
	slots := make([]extractionSlot, len(order))

	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range order {
		doc := byKind[kind]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rec, findings := registry.Extract(doc)
			slots[i] = extractionSlot{record: rec, findings: findings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExtractionResult{}, fmt.Errorf("extraction interrupted: %w", err)
	}

	result := ExtractionResult{Records: make(map[types.DocumentKind]types.ExtractedRecord, len(order))}
	for i, kind := range order {
		result.Records[kind] = slots[i].record
		result.Findings = append(result.Findings, slots[i].findings...)
		result.Findings = append(result.Findings, duplicates[kind]...)
	}
	return result, nil
}

// orderedKinds returns the kinds present in docs, known kinds first in
// canonical order followed by unknown kinds.
func orderedKinds(docs map[types.DocumentKind]types.RawDocument) []types.DocumentKind {
	kinds := make([]types.DocumentKind, 0, len(docs))
	for _, k := range types.AllDocumentKinds() {
		if _, ok := docs[k]; ok {
			kinds = append(kinds, k)
		}
	}
	var unknown []types.DocumentKind
	for k := range docs {
		if !k.IsValid() {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	return append(kinds, unknown...)
}
