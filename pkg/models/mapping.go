package models

// ============================================================================
// Relational Mapping
// ============================================================================

// TransformationType names a change a loader must apply to source data.
type TransformationType string

const (
	TransformFlatten     TransformationType = "flatten"
	TransformSplit       TransformationType = "split"
	TransformTypeConvert TransformationType = "type_convert"
)

// Transformation is one required data change between source and target.
type Transformation struct {
	Type        TransformationType `json:"type"`
	SourcePath  string             `json:"source_path"`
	Target      string             `json:"target"`
	Description string             `json:"description"`
}

// Relationship is the cardinality between a child table and its parent.
type Relationship string

const (
	RelationshipOneToOne   Relationship = "one_to_one"
	RelationshipOneToMany  Relationship = "one_to_many"
	RelationshipManyToMany Relationship = "many_to_many"
)

// ColumnMapping maps one source path to a relational column. Synthetic
// columns (surrogate keys, parent keys, ordinals) have no source path.
type ColumnMapping struct {
	SourcePath   string `json:"source_path,omitempty"`
	Name         string `json:"name"`
	SQLType      string `json:"sql_type"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"is_primary_key,omitempty"`
	IsIdentity   bool   `json:"is_identity,omitempty"`
	IsSynthetic  bool   `json:"is_synthetic,omitempty"`
}

// ChildTableMapping decomposes a nested object (1:1) or array (1:N) into its
// own table. ParentKeyColumn is the first of ParentKeyColumns, which mirror
// the parent's primary key. Many-to-many children carry no parent key; a
// linking table joins them instead. When SharedSchemaID is set the data
// columns are defined by the referenced SharedSchema.
type ChildTableMapping struct {
	SourcePath       string              `json:"source_path"`
	TableName        string              `json:"table_name"`
	ParentTable      string              `json:"parent_table"`
	ParentKeyColumn  string              `json:"parent_key_column,omitempty"`
	ParentKeyColumns []string            `json:"parent_key_columns,omitempty"`
	PrimaryKey       []string            `json:"primary_key"`
	Relationship     Relationship        `json:"relationship"`
	IsArray          bool                `json:"is_array"`
	ScalarElements   bool                `json:"scalar_elements,omitempty"`
	Columns          []ColumnMapping     `json:"columns"`
	Children         []ChildTableMapping `json:"children,omitempty"`
	SharedSchemaID   string              `json:"shared_schema_id,omitempty"`
	Depth            int                 `json:"depth"`
}

// DataColumns returns columns that carry source data, excluding the
// synthetic parent key and ordinal.
func (c *ChildTableMapping) DataColumns() []ColumnMapping {
	out := make([]ColumnMapping, 0, len(c.Columns))
	for _, col := range c.Columns {
		if !col.IsSynthetic {
			out = append(out, col)
		}
	}
	return out
}

// Walk visits c and every nested child table depth-first.
func (c *ChildTableMapping) Walk(fn func(child *ChildTableMapping)) {
	fn(c)
	for i := range c.Children {
		c.Children[i].Walk(fn)
	}
}

// IndexKind says why an index is recommended.
type IndexKind string

const (
	IndexPartitionKey IndexKind = "partition_key"
	IndexUniqueKey    IndexKind = "unique_key"
	IndexQueryField   IndexKind = "query_field"
	IndexForeignKey   IndexKind = "foreign_key"
)

// IndexRecommendation is a suggested index on a mapped table.
type IndexRecommendation struct {
	Name    string    `json:"name"`
	Table   string    `json:"table"`
	Columns []string  `json:"columns"`
	Unique  bool      `json:"unique"`
	Kind    IndexKind `json:"kind"`
	Reason  string    `json:"reason"`
}

// ForeignKeyConstraint links a child table back to its parent.
type ForeignKeyConstraint struct {
	Name              string   `json:"name"`
	Table             string   `json:"table"`
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
	OnDelete          string   `json:"on_delete"`
}

// UniqueConstraint is a de-facto natural key found by duplicate analysis.
type UniqueConstraint struct {
	Name                string   `json:"name"`
	Table               string   `json:"table"`
	Columns             []string `json:"columns"`
	SourceKey           string   `json:"source_key"`
	DuplicatePercentage float64  `json:"duplicate_percentage"`
}

// LinkingTableRecommendation replaces a foreign key when array elements are
// shared between parents.
type LinkingTableRecommendation struct {
	Name            string  `json:"name"`
	SourcePath      string  `json:"source_path"`
	ParentTable     string  `json:"parent_table"`
	ChildTable      string  `json:"child_table"`
	ParentKeyColumn string  `json:"parent_key_column"`
	ChildKeyColumn  string  `json:"child_key_column"`
	SharedRatio     float64 `json:"shared_ratio"`
	Reason          string  `json:"reason"`
}

// ContainerMapping is the relational design for one container.
type ContainerMapping struct {
	Container         string                       `json:"container"`
	TableName         string                       `json:"table_name"`
	PrimaryKey        []string                     `json:"primary_key"`
	Columns           []ColumnMapping              `json:"columns"`
	ChildTables       []ChildTableMapping          `json:"child_tables,omitempty"`
	Transformations   []Transformation             `json:"transformations,omitempty"`
	Indexes           []IndexRecommendation        `json:"indexes,omitempty"`
	ForeignKeys       []ForeignKeyConstraint       `json:"foreign_keys,omitempty"`
	UniqueConstraints []UniqueConstraint           `json:"unique_constraints,omitempty"`
	LinkingTables     []LinkingTableRecommendation `json:"linking_tables,omitempty"`
	Warnings          []string                     `json:"warnings,omitempty"`
}

// AllChildTables returns every child table, nested ones included, depth-first.
func (m *ContainerMapping) AllChildTables() []*ChildTableMapping {
	var out []*ChildTableMapping
	for i := range m.ChildTables {
		m.ChildTables[i].Walk(func(c *ChildTableMapping) { out = append(out, c) })
	}
	return out
}

// TableCount returns the root table plus every child table.
func (m *ContainerMapping) TableCount() int {
	return 1 + len(m.AllChildTables())
}

// ============================================================================
// Shared Schemas
// ============================================================================

// SharedSchema is one child table structure reused across fields or
// containers. UsageCount equals the number of distinct (container, path)
// pairs referencing it.
type SharedSchema struct {
	SchemaID         string          `json:"schema_id"`
	SchemaName       string          `json:"schema_name"`
	Structure        string          `json:"structure"`
	Columns          []ColumnMapping `json:"columns"`
	UsageCount       int             `json:"usage_count"`
	SourceContainers []string        `json:"source_containers"`
	SourceFieldPaths []string        `json:"source_field_paths"`
}

// ResolvedColumns returns the full column list of c. A child that points at
// a shared schema keeps only its key columns; the data columns come from
// shared.
func (c *ChildTableMapping) ResolvedColumns(shared *SharedSchema) []ColumnMapping {
	if c.SharedSchemaID == "" || shared == nil {
		return c.Columns
	}
	out := append([]ColumnMapping(nil), c.Columns...)
	have := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		have[col.Name] = true
	}
	for _, col := range shared.Columns {
		if !have[col.Name] {
			out = append(out, col)
		}
	}
	return out
}
