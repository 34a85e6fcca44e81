package models

import (
	"math"
	"testing"
)

func TestFeatureVector_AddTermAccumulates(t *testing.T) {
	fv := NewFeatureVector(nil)
	fv.AddTerm("a", 1)
	fv.AddTerm("b", 1)
	fv.AddTerm("a", 1)

	if got := fv.Weight("a"); got != 2 {
		t.Errorf("weight(a) = %v, want 2", got)
	}
	if got := fv.Weight("b"); got != 1 {
		t.Errorf("weight(b) = %v, want 1", got)
	}
	features := fv.Features()
	if len(features) != 2 || features[0] != "a" || features[1] != "b" {
		t.Errorf("features = %v, want insertion order [a b]", features)
	}
}

func TestFeatureVector_StopwordsNeverAdded(t *testing.T) {
	fv := NewFeatureVector(NewStopper("the", "of"))
	fv.AddTerm("the", 5)
	fv.AddTerm("raf", 1)
	fv.SetTerm("of", 2)

	if fv.Contains("the") || fv.Contains("of") {
		t.Error("stopwords should be rejected at construction")
	}
	if fv.Len() != 1 {
		t.Errorf("len = %d, want 1", fv.Len())
	}
}

func TestFeatureVector_Normalize(t *testing.T) {
	fv := NewFeatureVector(nil)
	fv.AddTerm("raf", 0.8)
	fv.AddTerm("cranwell", 0.5)
	fv.Normalize()

	if math.Abs(fv.Length()-1) > 1e-12 {
		t.Errorf("normalized length = %v, want 1", fv.Length())
	}
	want := 0.8 / 1.3
	if math.Abs(fv.Weight("raf")-want) > 1e-12 {
		t.Errorf("weight(raf) = %v, want %v", fv.Weight("raf"), want)
	}
}

func TestFeatureVector_NormalizeEmpty(t *testing.T) {
	fv := NewFeatureVector(nil)
	fv.Normalize()
	if fv.Len() != 0 || fv.Length() != 0 {
		t.Error("normalizing an empty vector should be a no-op")
	}
}

func TestFeatureVector_CloneIsIndependent(t *testing.T) {
	fv := NewFeatureVector(nil)
	fv.AddTerm("a", 2)
	c := fv.Clone()
	c.Normalize()
	if fv.Weight("a") != 2 {
		t.Errorf("original mutated through clone: %v", fv.Weight("a"))
	}
	if c.Weight("a") != 1 {
		t.Errorf("clone weight = %v, want 1", c.Weight("a"))
	}
}

func TestFeatureVector_Top(t *testing.T) {
	fv := NewFeatureVector(nil)
	fv.AddTerm("a", 1)
	fv.AddTerm("b", 3)
	fv.AddTerm("c", 2)
	fv.Top(2)

	if fv.Len() != 2 || fv.Contains("a") {
		t.Fatalf("Top(2) kept %v", fv.Features())
	}
	features := fv.Features()
	if features[0] != "b" || features[1] != "c" {
		t.Errorf("features = %v, want [b c]", features)
	}
}

func TestFeatureVector_SetTermRemoves(t *testing.T) {
	fv := NewFeatureVector(nil)
	fv.AddTerm("a", 1)
	fv.AddTerm("b", 1)
	fv.SetTerm("a", 0)
	if fv.Contains("a") {
		t.Error("SetTerm with zero weight should remove the term")
	}
	if got := fv.String(); got != "b:1" {
		t.Errorf("String() = %q, want %q", got, "b:1")
	}
}
