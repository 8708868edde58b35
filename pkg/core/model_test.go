package core

import (
	"testing"
)

func TestNewModelGraph_CountsAndOrder(t *testing.T) {
	g := NewModelGraph([]*ModelNode{
		{Name: "dim_customers", Refs: []string{"stg_customers"}},
		{Name: "stg_customers", Sources: []SourceRef{{Source: "raw", Table: "customers"}}},
	})

	if g.Len() != 2 {
		t.Fatalf("expected 2 models, got %d", g.Len())
	}
	if g.RefCount != 1 {
		t.Errorf("expected 1 ref, got %d", g.RefCount)
	}
	if g.SourceCount != 1 {
		t.Errorf("expected 1 source, got %d", g.SourceCount)
	}

	names := g.Names()
	if names[0] != "dim_customers" || names[1] != "stg_customers" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestModelGraph_Dependents(t *testing.T) {
	g := NewModelGraph([]*ModelNode{
		{Name: "stg_customers"},
		{Name: "dim_customers", Refs: []string{"stg_customers"}},
		{Name: "fct_orders", Refs: []string{"stg_customers", "stg_orders"}},
	})

	deps := g.Dependents("stg_customers")
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %v", deps)
	}
}

func TestProfileSummary_Record(t *testing.T) {
	var s ProfileSummary

	s.Record(ProfileResult{Model: "a", Success: true})
	s.Record(ProfileResult{Model: "b", Err: &ProfileError{Model: "b", FallbackUsed: true}})
	s.Record(ProfileResult{Model: "c", Err: &ProfileError{Model: "c"}})

	if s.Total != 3 || s.Succeeded != 1 || s.Fallbacks != 1 || s.Failed != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if len(s.Errors) != 2 {
		t.Errorf("expected 2 recorded errors, got %d", len(s.Errors))
	}
}
