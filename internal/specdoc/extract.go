// Package specdoc extracts quick-access fields from specification documents.
//
// Documents are YAML produced by the vision analysis (or submitted manually)
// and are persisted verbatim; extraction is a best-effort convenience layer
// that walks a handful of well-known paths. A document that does not parse,
// or that lacks a path, degrades to nil fields rather than failing.
package specdoc

import (
	"strings"

	"gopkg.in/yaml.v3"

	"productstudio/internal/domain"
)

// Fields are the derived quick-access attributes of a specification version.
// They are computed once at creation time from the document text; the same
// document always yields the same fields.
type Fields struct {
	Dimensions *domain.Dimensions
	Colors     []domain.ColorRef
	Material   *string
	Confidence *float64
}

// Extract parses the document and pulls the well-known paths. It never fails;
// malformed documents yield zero-valued Fields.
func Extract(document string) Fields {
	var root map[string]any
	if err := yaml.Unmarshal([]byte(document), &root); err != nil || root == nil {
		return Fields{}
	}

	var fields Fields
	fields.Dimensions = extractDimensions(root)
	fields.Colors = extractColors(root)
	fields.Material = extractMaterial(root)
	fields.Confidence = floatAt(root, "metadata", "confidence_overall")
	return fields
}

func extractDimensions(root map[string]any) *domain.Dimensions {
	primary := mapAt(root, "dimensions", "primary")
	if primary == nil {
		return nil
	}
	dims := &domain.Dimensions{
		Width:  floatAt(primary, "width", "value"),
		Height: floatAt(primary, "height", "value"),
		Depth:  floatAt(primary, "depth", "value"),
		Unit:   stringAt(primary, "width", "unit"),
	}
	if dims.Unit == "" {
		dims.Unit = "mm"
	}
	if dims.Width == nil && dims.Height == nil && dims.Depth == nil {
		return nil
	}
	return dims
}

func extractColors(root map[string]any) []domain.ColorRef {
	primary := mapAt(root, "colors", "primary")
	if primary == nil {
		return nil
	}
	color := domain.ColorRef{
		Hex:  stringAt(primary, "hex"),
		Name: stringAt(primary, "name"),
	}
	if color.Hex == "" && color.Name == "" {
		return nil
	}
	return []domain.ColorRef{color}
}

func extractMaterial(root map[string]any) *string {
	material := stringAt(root, "materials", "primary_material", "type")
	material = strings.TrimSpace(material)
	if material == "" {
		return nil
	}
	return &material
}

// mapAt walks nested string-keyed maps and returns the map at the path.
func mapAt(root map[string]any, path ...string) map[string]any {
	current := root
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func stringAt(root map[string]any, path ...string) string {
	parent := root
	if len(path) > 1 {
		parent = mapAt(root, path[:len(path)-1]...)
		if parent == nil {
			return ""
		}
	}
	if s, ok := parent[path[len(path)-1]].(string); ok {
		return s
	}
	return ""
}

func floatAt(root map[string]any, path ...string) *float64 {
	parent := root
	if len(path) > 1 {
		parent = mapAt(root, path[:len(path)-1]...)
		if parent == nil {
			return nil
		}
	}
	switch v := parent[path[len(path)-1]].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}
