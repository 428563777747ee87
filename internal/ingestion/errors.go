package ingestion

import "fmt"

// ReadError is returned when a document file cannot be read or decoded.
type ReadError struct {
	Name   string
	Format Format
	Cause  error
}

func (e *ReadError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("failed to read %s document %s: %v", e.Format, e.Name, e.Cause)
	}
	return fmt.Sprintf("failed to read document %s: %v", e.Name, e.Cause)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}
