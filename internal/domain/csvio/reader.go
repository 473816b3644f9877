// Package csvio decodes uploaded lead tables from CSV.
//
// The identifier column header has drifted across client exports
// ("Customer ID", "CustomerID", "customer_id"); all spellings are accepted
// and normalized. Feature columns are matched case-insensitively after
// stripping spaces and underscores.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmatheygr/lead-scoring/internal/domain/model"
)

// Reader parses lead CSVs against a fixed feature schema.
type Reader struct {
	featureColumns []string
	maxRows        int
}

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithMaxRows caps the number of data rows accepted per upload.
func WithMaxRows(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRows = n
		}
	}
}

// NewReader creates a Reader expecting the given feature columns.
func NewReader(featureColumns []string, opts ...Option) *Reader {
	r := &Reader{
		featureColumns: featureColumns,
		maxRows:        50_000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// normalizeHeader folds a column header for matching: lower-cased, with
// spaces and underscores removed.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return strings.ToLower(h)
}

// isIDHeader reports whether a normalized header names the identifier column.
func isIDHeader(normalized string) bool {
	return normalized == "customerid" || normalized == "leadid" || normalized == "id"
}

// Read parses the CSV stream into leads. It validates the header against the
// expected feature schema, rejects duplicate or empty customer ids, and
// rejects non-numeric feature values.
func (r *Reader) Read(src io.Reader) ([]model.Lead, error) {
	cr := csv.NewReader(src)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}

	idCol := -1
	featureIdx := make(map[string]int, len(r.featureColumns))
	for i, h := range header {
		n := normalizeHeader(h)
		if isIDHeader(n) {
			if idCol != -1 {
				return nil, fmt.Errorf("%w: multiple identifier columns", ErrMalformedCSV)
			}
			idCol = i
			continue
		}
		featureIdx[n] = i
	}
	if idCol == -1 {
		return nil, fmt.Errorf("%w: no customer id column (accepted: Customer ID, CustomerID, customer_id)", ErrMissingColumn)
	}

	// Map the expected feature columns onto the header.
	colIdx := make([]int, len(r.featureColumns))
	for i, fc := range r.featureColumns {
		idx, ok := featureIdx[normalizeHeader(fc)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, fc)
		}
		colIdx[i] = idx
	}

	var leads []model.Lead
	seen := make(map[string]struct{})
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedCSV, row, err)
		}
		if len(leads) >= r.maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, r.maxRows)
		}

		id := strings.TrimSpace(record[idCol])
		if id == "" {
			return nil, fmt.Errorf("%w: row %d has an empty customer id", ErrInvalidLead, row)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate customer id %q at row %d", ErrInvalidLead, id, row)
		}
		seen[id] = struct{}{}

		features := make(map[string]float64, len(r.featureColumns))
		for i, fc := range r.featureColumns {
			raw := strings.TrimSpace(record[colIdx[i]])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %q is not numeric", ErrInvalidLead, row, fc, raw)
			}
			features[fc] = v
		}

		leads = append(leads, model.Lead{CustomerID: id, Features: features})
	}

	if len(leads) == 0 {
		return nil, ErrEmptyFile
	}
	return leads, nil
}

// FeatureColumns returns the expected feature schema in order.
func (r *Reader) FeatureColumns() []string {
	out := make([]string, len(r.featureColumns))
	copy(out, r.featureColumns)
	return out
}
