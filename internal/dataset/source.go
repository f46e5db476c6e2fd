package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

// RawRow is one unparsed dataset record keyed by column name.
type RawRow map[string]string

// RowSource produces the raw rows of the sales table. The loader takes no
// dependency on where the rows came from.
type RowSource interface {
	// Rows reads the full table. Header problems and I/O failures are
	// returned as errors; per-field coercion happens later in Load.
	Rows(ctx context.Context) ([]RawRow, error)

	// Name describes the source for logging and error messages.
	Name() string
}

// FileSource reads the sales CSV from a local path.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Rows(ctx context.Context) ([]RawRow, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", s.Path, err)
	}
	defer f.Close()

	rows, err := decodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", s.Path, err)
	}
	return rows, nil
}

// GCSSource reads the sales CSV from a gs:// URI. It assumes Application
// Default Credentials are configured.
type GCSSource struct {
	URI string
}

func (s GCSSource) Name() string { return s.URI }

func (s GCSSource) Rows(ctx context.Context) ([]RawRow, error) {
	bucket, object, err := splitGCSURI(s.URI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	rows, err := decodeCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", s.URI, err)
	}
	return rows, nil
}

// splitGCSURI splits "gs://bucket/path/file.csv" into bucket and object path.
func splitGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// decodeCSV reads a header-first CSV stream into raw rows. All required
// columns must be present in the header; extra columns are carried through.
func decodeCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &FormatError{Column: col, Err: fmt.Errorf("missing required column")}
		}
	}

	var rows []RawRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		row := make(RawRow, len(index))
		for name, i := range index {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
