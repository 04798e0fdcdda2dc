package repository

import "testing"

func TestListOptionsNormalize(t *testing.T) {
	tests := []struct {
		in   ListOptions
		want ListOptions
	}{
		{ListOptions{}, ListOptions{Limit: DefaultListLimit}},
		{ListOptions{Limit: 5, Offset: 10}, ListOptions{Limit: 5, Offset: 10}},
		{ListOptions{Limit: 1000}, ListOptions{Limit: MaxListLimit}},
		{ListOptions{Limit: -3, Offset: -1}, ListOptions{Limit: DefaultListLimit}},
		{ListOptions{Ordering: "-year"}, ListOptions{Limit: DefaultListLimit, Ordering: "-year"}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestResolveOrdering(t *testing.T) {
	if got, ok := ResolveOrdering(TitleOrderings, ""); !ok || got != "-id" {
		t.Errorf("ResolveOrdering(empty) = %q, %v; want -id, true", got, ok)
	}
	if got, ok := ResolveOrdering(TitleOrderings, "year"); !ok || got != "year" {
		t.Errorf("ResolveOrdering(year) = %q, %v", got, ok)
	}
	if _, ok := ResolveOrdering(ReviewOrderings, "name"); ok {
		t.Error("ResolveOrdering should reject an ordering outside the whitelist")
	}
	if _, ok := ResolveOrdering(TitleOrderings, "id; DROP TABLE titles"); ok {
		t.Error("ResolveOrdering should reject arbitrary SQL")
	}
}
