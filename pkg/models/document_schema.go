package models

import "sort"

// ============================================================================
// Type Tags
// ============================================================================

// TypeTag is the inferred type of an observed value.
type TypeTag string

const (
	TypeString  TypeTag = "string"
	TypeNumber  TypeTag = "number"
	TypeBoolean TypeTag = "boolean"
	TypeDate    TypeTag = "date"
	TypeObject  TypeTag = "object"
	TypeArray   TypeTag = "array"
	TypeNull    TypeTag = "null"
)

// ============================================================================
// Field Info
// ============================================================================

// FieldInfo aggregates every observation of one field path in a sample.
// Object fields carry their sub-fields in Children. Array fields describe
// the union of their sampled elements in Element. SharedElementRatio is the
// fraction of distinct array elements that appear under more than one
// document, the many-to-many signal.
type FieldInfo struct {
	Name                      string                `json:"name"`
	Path                      string                `json:"path"`
	DetectedTypes             []TypeTag             `json:"detected_types"`
	TypeCounts                map[TypeTag]int       `json:"type_counts"`
	RecommendedRelationalType string                `json:"recommended_relational_type"`
	IsRequired                bool                  `json:"is_required"`
	IsNested                  bool                  `json:"is_nested"`
	MaxLength                 int                   `json:"max_length"`
	Selectivity               float64               `json:"selectivity"`
	PresentCount              int                   `json:"present_count"`
	NullCount                 int                   `json:"null_count"`
	DistinctCount             int                   `json:"distinct_count"`
	AllIntegral               bool                  `json:"all_integral"`
	MaxAbsNumber              float64               `json:"max_abs_number"`
	Depth                     int                   `json:"depth"`
	Children                  map[string]*FieldInfo `json:"children,omitempty"`
	Element                   *FieldInfo            `json:"element,omitempty"`
	MaxArrayLength            int                   `json:"max_array_length,omitempty"`
	SharedElementRatio        float64               `json:"shared_element_ratio,omitempty"`
}

// DominantType returns the most frequent non-null type tag. Ties resolve to
// the lexically smallest tag. Returns TypeNull when only nulls were seen.
func (f *FieldInfo) DominantType() TypeTag {
	best := TypeNull
	bestCount := 0
	for _, tag := range f.DetectedTypes {
		if tag == TypeNull {
			continue
		}
		c := f.TypeCounts[tag]
		if c > bestCount || (c == bestCount && tag < best) {
			best, bestCount = tag, c
		}
	}
	return best
}

// HasType reports whether tag was observed for this field.
func (f *FieldInfo) HasType(tag TypeTag) bool {
	return f.TypeCounts[tag] > 0
}

// IsObject reports whether the field is predominantly a nested object.
func (f *FieldInfo) IsObject() bool { return f.DominantType() == TypeObject }

// IsArray reports whether the field is predominantly an array.
func (f *FieldInfo) IsArray() bool { return f.DominantType() == TypeArray }

// SortedChildren returns Children ordered by name.
func (f *FieldInfo) SortedChildren() []*FieldInfo {
	return sortFields(f.Children)
}

// ============================================================================
// Document Schema
// ============================================================================

// DocumentSchema is the inferred schema of one variant of a container.
// Prevalence is SampleCount divided by the number of processed documents.
type DocumentSchema struct {
	SchemaName  string                `json:"schema_name"`
	Fields      map[string]*FieldInfo `json:"fields"`
	SampleCount int                   `json:"sample_count"`
	Prevalence  float64               `json:"prevalence"`
}

// SortedFields returns top-level fields ordered by name.
func (s *DocumentSchema) SortedFields() []*FieldInfo {
	return sortFields(s.Fields)
}

// LeafPaths returns every scalar path reachable through nested objects,
// ordered. Array contents are not leaves of the root schema.
func (s *DocumentSchema) LeafPaths() []*FieldInfo {
	var out []*FieldInfo
	var walk func(fields map[string]*FieldInfo)
	walk = func(fields map[string]*FieldInfo) {
		for _, f := range sortFields(fields) {
			switch f.DominantType() {
			case TypeObject:
				walk(f.Children)
			case TypeArray:
			default:
				out = append(out, f)
			}
		}
	}
	walk(s.Fields)
	return out
}

// FieldByPath resolves a field path through nested object children.
func (s *DocumentSchema) FieldByPath(path string) (*FieldInfo, bool) {
	fields := s.Fields
	var cur *FieldInfo
	for _, part := range SplitPath(path) {
		f, ok := fields[part]
		if !ok {
			return nil, false
		}
		cur = f
		fields = f.Children
	}
	return cur, cur != nil
}

// MaxDepth returns the deepest nesting level of any field in the schema.
func (s *DocumentSchema) MaxDepth() int {
	depth := 0
	var walk func(f *FieldInfo)
	walk = func(f *FieldInfo) {
		if f.Depth > depth {
			depth = f.Depth
		}
		for _, c := range f.Children {
			walk(c)
		}
		if f.Element != nil {
			walk(f.Element)
		}
	}
	for _, f := range s.Fields {
		walk(f)
	}
	return depth
}

// ============================================================================
// Schema Profile
// ============================================================================

// SchemaProfile is the inferencer output for one container.
type SchemaProfile struct {
	Container     string           `json:"container"`
	TotalSampled  int              `json:"total_sampled"`
	Processed     int              `json:"processed"`
	Skipped       int              `json:"skipped"`
	SkipRate      float64          `json:"skip_rate"`
	Partial       bool             `json:"partial"`
	Discriminator string           `json:"discriminator,omitempty"`
	Union         DocumentSchema   `json:"union"`
	Schemas       []DocumentSchema `json:"schemas"`
}

func sortFields(fields map[string]*FieldInfo) []*FieldInfo {
	out := make([]*FieldInfo, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
