package core

import (
	"reflect"
	"testing"

	"github.com/procdata/rationalizer/internal/schema"
)

func TestReconcileTwoFiles(t *testing.T) {
	tables := []SourceTable{
		{
			SourceName: "a.csv",
			Headers:    []string{"Part Number", "Qty", "Desc"},
			Rows:       [][]string{{"100", "5", "Widget"}},
		},
		{
			SourceName: "b.csv",
			Headers:    []string{"P/N", "qty.", "description"},
			Rows:       [][]string{{"100", "5", "WIDGET"}},
		},
	}

	rec := Reconcile(tables, schema.NewRegistry())

	wantColumns := []string{"Part Number", "Quantity", "Description"}
	if !reflect.DeepEqual(rec.Columns, wantColumns) {
		t.Fatalf("columns = %v, want %v", rec.Columns, wantColumns)
	}

	wantSources := map[string][]string{
		"Part Number": {"Part Number", "P/N"},
		"Quantity":    {"Qty", "qty."},
		"Description": {"Desc", "description"},
	}
	for _, m := range rec.Mappings {
		if !reflect.DeepEqual(m.Sources, wantSources[m.Target]) {
			t.Errorf("mapping %q sources = %v, want %v", m.Target, m.Sources, wantSources[m.Target])
		}
		if m.Derived {
			t.Errorf("mapping %q marked derived", m.Target)
		}
	}

	// Both tables project onto the same canonical positions.
	for ti, want := range [][]int{{0, 1, 2}, {0, 1, 2}} {
		if !reflect.DeepEqual(rec.Positions[ti], want) {
			t.Errorf("positions[%d] = %v, want %v", ti, rec.Positions[ti], want)
		}
	}
}

func TestReconcileFirstSeenOrder(t *testing.T) {
	tables := []SourceTable{
		{Headers: []string{"color", "qty"}},
		{Headers: []string{"P/N", "color"}},
	}

	rec := Reconcile(tables, schema.NewRegistry())

	want := []string{"Color", "Quantity", "Part Number"}
	if !reflect.DeepEqual(rec.Columns, want) {
		t.Fatalf("columns = %v, want %v", rec.Columns, want)
	}
}

func TestReconcilePassthroughCoincidence(t *testing.T) {
	// Normalization happens before derivation, so headers that differ
	// only in casing or surrounding whitespace share one derived column.
	tables := []SourceTable{
		{Headers: []string{"Color"}},
		{Headers: []string{"color "}},
	}

	rec := Reconcile(tables, schema.NewRegistry())

	if len(rec.Columns) != 1 || rec.Columns[0] != "Color" {
		t.Fatalf("columns = %v, want [Color]", rec.Columns)
	}
	if !rec.Mappings[0].Derived {
		t.Error("passthrough column not marked derived")
	}
	if got := rec.Mappings[0].Sources; !reflect.DeepEqual(got, []string{"Color", "color "}) {
		t.Errorf("sources = %v, want original casings preserved", got)
	}
}

func TestReconcileColumnConservation(t *testing.T) {
	tables := []SourceTable{
		{Headers: []string{"Part Number", "P/N", "qty", "Qty", "color"}},
	}

	rec := Reconcile(tables, schema.NewRegistry())

	distinct := DistinctHeaderCount(tables)
	if len(rec.Columns) > distinct {
		t.Errorf("canonical count %d exceeds distinct raw header count %d", len(rec.Columns), distinct)
	}
	if len(rec.Columns) < 1 {
		t.Error("expected at least one canonical column")
	}
	if len(rec.Columns) != 3 {
		t.Errorf("columns = %v, want 3 canonical columns", rec.Columns)
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	rec := Reconcile(nil, schema.NewRegistry())

	if len(rec.Columns) != 0 || len(rec.Mappings) != 0 || len(rec.Positions) != 0 {
		t.Errorf("expected empty result, got %+v", rec)
	}
}

func TestColumnMappingTrivial(t *testing.T) {
	tests := []struct {
		name string
		m    ColumnMapping
		want bool
	}{
		{"derived single source", ColumnMapping{Target: "Color", Sources: []string{"Color"}, Derived: true}, true},
		{"derived merged sources", ColumnMapping{Target: "Color", Sources: []string{"Color", "color "}, Derived: true}, false},
		{"canonical single source", ColumnMapping{Target: "Quantity", Sources: []string{"qty"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Trivial(); got != tt.want {
				t.Errorf("Trivial() = %v, want %v", got, tt.want)
			}
		})
	}
}
