package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"catalograg/internal/domain"
)

var testMapping = FieldMapping{
	IDField:        "product_id",
	TextFields:     []string{"product_name", "category", "description"},
	MetadataFields: []string{"category", "price"},
}

func TestNormalize_Deterministic(t *testing.T) {
	n := NewNormalizer(testMapping)

	row := Row{Index: 0, Values: map[string]string{
		"product_id":   "P100",
		"product_name": "Trail Runner",
		"category":     "footwear",
		"description":  "Lightweight running shoe",
		"price":        "79.90",
	}}

	doc1, err := n.Normalize(row)
	if err != nil {
		t.Fatal(err)
	}
	doc2, err := n.Normalize(row)
	if err != nil {
		t.Fatal(err)
	}

	if doc1.Text != doc2.Text {
		t.Errorf("identical rows must yield identical text:\n%q\n%q", doc1.Text, doc2.Text)
	}
	if doc1.ID != "P100" {
		t.Errorf("expected ID from primary key, got %q", doc1.ID)
	}

	want := "product_name: Trail Runner\ncategory: footwear\ndescription: Lightweight running shoe"
	if doc1.Text != want {
		t.Errorf("unexpected text template:\ngot  %q\nwant %q", doc1.Text, want)
	}

	if doc1.Metadata["price"] != "79.90" || doc1.Metadata["category"] != "footwear" {
		t.Errorf("metadata not mapped: %+v", doc1.Metadata)
	}
}

func TestNormalize_MissingID(t *testing.T) {
	n := NewNormalizer(testMapping)

	_, err := n.Normalize(Row{Index: 7, Values: map[string]string{
		"product_name": "Nameless",
	}})

	var malformed *domain.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if malformed.Row != 7 {
		t.Errorf("expected row 7 in error, got %d", malformed.Row)
	}
}

func TestNormalize_NoTextContent(t *testing.T) {
	n := NewNormalizer(testMapping)

	_, err := n.Normalize(Row{Index: 1, Values: map[string]string{
		"product_id": "P2",
		"price":      "10",
	}})

	var malformed *domain.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestReader_Load(t *testing.T) {
	dir := t.TempDir()
	csvData := "product_id,product_name,price\nP1,Red Shoes,30\nP2,Blue Shoes,35\n"
	if err := os.WriteFile(filepath.Join(dir, "products.csv"), []byte(csvData), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-matching files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := NewReader(dir, []string{"**/*.csv"}, nil).Load()
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Values["product_name"] != "Red Shoes" {
		t.Errorf("header mapping broken: %+v", rows[0].Values)
	}
	if rows[1].Index != 1 {
		t.Errorf("expected running row index, got %d", rows[1].Index)
	}
}

func TestReader_Excludes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "products.csv"), []byte("product_id\nP1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "archive"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "archive", "old.csv"), []byte("product_id\nP9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := NewReader(dir, []string{"**/*.csv"}, []string{"archive/**"}).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after excluding archive/, got %d", len(rows))
	}
	if rows[0].Values["product_id"] != "P1" {
		t.Errorf("wrong row survived: %+v", rows[0].Values)
	}
}
