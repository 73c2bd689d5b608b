package specdoc

import (
	"reflect"
	"testing"
)

const sampleDocument = `
metadata:
  confidence_overall: 0.87
dimensions:
  primary:
    width:
      value: 215.9
      unit: mm
    height:
      value: 260.35
      unit: mm
    depth:
      value: 35.0
      unit: mm
colors:
  primary:
    hex: "#CFE7EE"
    name: pale icy blue
materials:
  primary_material:
    type: borosilicate glass
`

func TestExtractWellKnownPaths(t *testing.T) {
	fields := Extract(sampleDocument)

	if fields.Dimensions == nil {
		t.Fatal("Dimensions is nil")
	}
	if fields.Dimensions.Width == nil || *fields.Dimensions.Width != 215.9 {
		t.Fatalf("Width = %v", fields.Dimensions.Width)
	}
	if fields.Dimensions.Unit != "mm" {
		t.Fatalf("Unit = %q", fields.Dimensions.Unit)
	}
	if len(fields.Colors) != 1 || fields.Colors[0].Hex != "#CFE7EE" || fields.Colors[0].Name != "pale icy blue" {
		t.Fatalf("Colors = %#v", fields.Colors)
	}
	if fields.Material == nil || *fields.Material != "borosilicate glass" {
		t.Fatalf("Material = %v", fields.Material)
	}
	if fields.Confidence == nil || *fields.Confidence != 0.87 {
		t.Fatalf("Confidence = %v", fields.Confidence)
	}
}

func TestExtractDegradesOnMalformedDocument(t *testing.T) {
	fields := Extract("::: not yaml {{{")
	if fields.Dimensions != nil || fields.Colors != nil || fields.Material != nil || fields.Confidence != nil {
		t.Fatalf("expected zero fields, got %#v", fields)
	}
}

func TestExtractPartialDocument(t *testing.T) {
	fields := Extract("materials:\n  primary_material:\n    type: anodized aluminum\n")
	if fields.Material == nil || *fields.Material != "anodized aluminum" {
		t.Fatalf("Material = %v", fields.Material)
	}
	if fields.Dimensions != nil {
		t.Fatalf("Dimensions = %#v, want nil", fields.Dimensions)
	}
	if fields.Confidence != nil {
		t.Fatalf("Confidence = %v, want nil", fields.Confidence)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	first := Extract(sampleDocument)
	second := Extract(sampleDocument)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not stable: %#v vs %#v", first, second)
	}
}

func TestExtractDefaultUnit(t *testing.T) {
	fields := Extract("dimensions:\n  primary:\n    width:\n      value: 10\n")
	if fields.Dimensions == nil {
		t.Fatal("Dimensions is nil")
	}
	if fields.Dimensions.Unit != "mm" {
		t.Fatalf("Unit = %q, want mm", fields.Dimensions.Unit)
	}
	if fields.Dimensions.Width == nil || *fields.Dimensions.Width != 10 {
		t.Fatalf("Width = %v", fields.Dimensions.Width)
	}
}
