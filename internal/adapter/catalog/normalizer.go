package catalog

import (
	"strings"

	"catalograg/internal/domain"
)

// FieldMapping tells the normalizer which columns matter. It is plain
// configuration: adapting to a new catalog schema means changing the
// mapping, never the normalizer.
type FieldMapping struct {
	IDField        string
	TextFields     []string
	MetadataFields []string
}

// Normalizer turns raw rows into canonical documents. The embeddable text
// is built from the mapped fields with a fixed template, so identical
// input rows always produce identical text and therefore identical
// embeddings.
type Normalizer struct {
	mapping FieldMapping
}

func NewNormalizer(mapping FieldMapping) *Normalizer {
	return &Normalizer{mapping: mapping}
}

// Normalize maps one raw row to a Document. The row must carry a
// non-empty identifier and at least one non-empty text field; anything
// else is a MalformedRecordError.
func (n *Normalizer) Normalize(row Row) (domain.Document, error) {
	id := strings.TrimSpace(row.Values[n.mapping.IDField])
	if id == "" {
		return domain.Document{}, &domain.MalformedRecordError{
			Row:    row.Index,
			Field:  n.mapping.IDField,
			Reason: "missing identifier",
		}
	}

	var parts []string
	for _, field := range n.mapping.TextFields {
		value := strings.TrimSpace(row.Values[field])
		if value == "" {
			continue
		}
		parts = append(parts, field+": "+value)
	}
	if len(parts) == 0 {
		return domain.Document{}, &domain.MalformedRecordError{
			Row:    row.Index,
			Field:  strings.Join(n.mapping.TextFields, ","),
			Reason: "no text content",
		}
	}

	metadata := make(map[string]string, len(n.mapping.MetadataFields))
	for _, field := range n.mapping.MetadataFields {
		if value, ok := row.Values[field]; ok && value != "" {
			metadata[field] = value
		}
	}

	return domain.Document{
		ID:       id,
		Text:     strings.Join(parts, "\n"),
		Metadata: metadata,
	}, nil
}
