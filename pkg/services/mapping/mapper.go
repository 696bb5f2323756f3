package mapping

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
)

const (
	surrogateKeyColumn = "row_id"
	ordinalColumn      = "ordinal"
	valueColumn        = "value"
	cascadeDelete      = "CASCADE"
)

// Input is the finished analysis of one container.
type Input struct {
	Container string
	Profile   *models.SchemaProfile
	// Quality may be nil; columns then fall back to inferred types and
	// nullability.
	Quality  *models.QualityReport
	Metadata models.ContainerMetadata
}

// Mapper turns an analyzed container into a relational design.
type Mapper interface {
	Map(ctx context.Context, in *Input) (*models.ContainerMapping, error)
}

type mapper struct {
	opts   config.AnalysisOptions
	logger *zap.Logger
}

// NewMapper creates a relational mapper.
func NewMapper(opts config.AnalysisOptions, logger *zap.Logger) Mapper {
	return &mapper{
		opts:   opts,
		logger: logger.Named("mapping"),
	}
}

var _ Mapper = (*mapper)(nil)

// Map builds the root table, child tables for nested objects and arrays, and
// the keys, constraints and indexes that connect them. Output order depends
// only on field names, so the same input always yields the same mapping.
func (s *mapper) Map(ctx context.Context, in *Input) (*models.ContainerMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("mapping of %s cancelled: %w", in.Container, err)
	}
	if in.Profile == nil || len(in.Profile.Union.Fields) == 0 {
		return nil, fmt.Errorf("mapping %s: %w", in.Container, apperrors.ErrEmptySample)
	}

	report := in.Quality
	if report == nil {
		report = &models.QualityReport{Container: in.Container}
	}
	b := &builder{
		opts:    s.opts,
		in:      in,
		quality: report,
		maxLen:  s.opts.Mapping.IdentifierMaxLength,
		tables:  newNamer(s.opts.Mapping.IdentifierMaxLength),
		names:   newNamer(s.opts.Mapping.IdentifierMaxLength),
		indexed: make(map[string]bool),
		logger:  s.logger,
	}
	m := b.build()

	s.logger.Debug("Mapped container",
		zap.String("container", in.Container),
		zap.String("table", m.TableName),
		zap.Int("tables", m.TableCount()),
		zap.Int("foreign_keys", len(m.ForeignKeys)),
		zap.Int("indexes", len(m.Indexes)))
	return m, nil
}

// builder holds the state of one Map call.
type builder struct {
	opts    config.AnalysisOptions
	in      *Input
	quality *models.QualityReport
	maxLen  int
	tables  *namer
	// names covers constraint and index names, which share one namespace
	// in most engines.
	names   *namer
	indexed map[string]bool
	m       *models.ContainerMapping
	logger  *zap.Logger
}

// ============================================================================
// Root table
// ============================================================================

func (b *builder) build() *models.ContainerMapping {
	union := &b.in.Profile.Union
	root := NormalizeIdentifier(b.in.Container, b.maxLen)
	b.tables.reserve(root)
	b.m = &models.ContainerMapping{Container: b.in.Container, TableName: root}

	cols := newNamer(b.maxLen)
	bySource := make(map[string]string)

	pkFields := b.primaryKeyFields(union)
	if len(pkFields) == 0 {
		cols.reserve(surrogateKeyColumn)
		b.m.Columns = append(b.m.Columns, models.ColumnMapping{
			Name:         surrogateKeyColumn,
			SQLType:      inference.SQLTypeBigInt,
			IsPrimaryKey: true,
			IsIdentity:   true,
			IsSynthetic:  true,
		})
		b.m.PrimaryKey = []string{surrogateKeyColumn}
	}
	// Key fields claim their names before anything else.
	for _, path := range pkFields {
		f, _ := union.FieldByPath(path)
		col := b.promotedColumn(cols, f)
		col.IsPrimaryKey = true
		col.Nullable = false
		b.m.Columns = append(b.m.Columns, col)
		b.m.PrimaryKey = append(b.m.PrimaryKey, col.Name)
		bySource[path] = col.Name
	}
	b.partitionKeyColumn(cols, union, bySource)

	var nested []*models.FieldInfo
	for _, f := range union.SortedFields() {
		if _, done := bySource[f.Path]; done {
			continue
		}
		switch {
		case f.IsObject() && b.flattenable(f):
			b.flatten(cols, f, bySource)
		case f.IsObject() || f.IsArray():
			nested = append(nested, f)
		default:
			col := b.rootColumn(cols, f, f.Name)
			b.m.Columns = append(b.m.Columns, col)
			bySource[f.Path] = col.Name
		}
	}

	b.rootIndexes(union, bySource)
	b.keyConstraints(bySource)

	parentKeys := primaryKeyColumns(b.m.Columns)
	for _, f := range nested {
		b.m.ChildTables = append(b.m.ChildTables, b.childTable(root, parentKeys, f))
	}
	return b.m
}

// primaryKeyFields returns the source paths of the root primary key, or nil
// when a surrogate key is needed.
func (b *builder) primaryKeyFields(union *models.DocumentSchema) []string {
	id := idField(union.Fields)
	if id == nil {
		return nil
	}
	if !b.hasDuplicates(models.KeyKindID) {
		return []string{id.Path}
	}
	pk := b.in.Metadata.PartitionKeyField()
	if f, ok := union.FieldByPath(pk); ok && pk != id.Path && isScalarField(f) {
		return []string{id.Path, pk}
	}
	b.logger.Warn("Duplicate ids and no usable partition key; using a surrogate key",
		zap.String("container", b.in.Container),
		zap.String("partition_key", pk))
	b.warnf("duplicate %s values and no usable partition key; %s uses surrogate key %s",
		id.Path, b.m.TableName, surrogateKeyColumn)
	return nil
}

// partitionKeyColumn gives a partition key nested in objects its own root
// column, so it can join the primary key and carry the partition index. A
// declared key that resolves to no scalar field is recorded as a warning.
func (b *builder) partitionKeyColumn(names *namer, union *models.DocumentSchema, bySource map[string]string) {
	pk := b.in.Metadata.PartitionKeyField()
	if pk == "" {
		return
	}
	if _, done := bySource[pk]; done {
		return
	}
	f, ok := union.FieldByPath(pk)
	switch {
	case !ok:
		b.warnf("partition key %s was not found in sampled documents", b.in.Metadata.PartitionKeyPath)
		return
	case !isScalarField(f):
		b.warnf("partition key %s is %s, not a scalar; no partition index", b.in.Metadata.PartitionKeyPath, f.DominantType())
		return
	case f.Depth <= 1:
		return
	}
	col := b.promotedColumn(names, f)
	b.m.Columns = append(b.m.Columns, col)
	bySource[pk] = col.Name
}

// promotedColumn maps f onto the root table. A nested field is named after
// its whole path and recorded as a flatten transformation.
func (b *builder) promotedColumn(names *namer, f *models.FieldInfo) models.ColumnMapping {
	keys := models.SplitPath(f.Path)
	col := b.rootColumn(names, f, strings.Join(keys, "_"))
	if len(keys) > 1 {
		b.m.Transformations = append(b.m.Transformations, models.Transformation{
			Type:        models.TransformFlatten,
			SourcePath:  f.Path,
			Target:      b.m.TableName + "." + col.Name,
			Description: fmt.Sprintf("promote %s to column %s of %s", f.Path, col.Name, b.m.TableName),
		})
	}
	return col
}

func (b *builder) warnf(format string, args ...any) {
	b.m.Warnings = append(b.m.Warnings, fmt.Sprintf(format, args...))
}

func (b *builder) hasDuplicates(kind models.KeyKind) bool {
	for _, d := range b.quality.Duplicates {
		if d.KeyKind == kind && d.DuplicateRecordCount > 0 {
			return true
		}
	}
	return false
}

// idField returns the scalar id or _id field, if any.
func idField(fields map[string]*models.FieldInfo) *models.FieldInfo {
	for _, name := range []string{"id", "_id"} {
		if f, ok := fields[name]; ok && isScalarField(f) {
			return f
		}
	}
	return nil
}

func isScalarField(f *models.FieldInfo) bool {
	switch f.DominantType() {
	case models.TypeObject, models.TypeArray, models.TypeNull:
		return false
	}
	return true
}

func primaryKeyColumns(cols []models.ColumnMapping) []models.ColumnMapping {
	var out []models.ColumnMapping
	for _, c := range cols {
		if c.IsPrimaryKey {
			out = append(out, c)
		}
	}
	return out
}

// rootColumn maps a field measured against every document, so nullability
// comes from null analysis when it is available.
func (b *builder) rootColumn(names *namer, f *models.FieldInfo, base string) models.ColumnMapping {
	nullable := !f.IsRequired
	if n, ok := b.quality.NullResult(f.Path); ok {
		nullable = !n.IsRecommendedRequired
	}
	return b.column(b.m.TableName, names, f, base, nullable)
}

func (b *builder) column(table string, names *namer, f *models.FieldInfo, base string, nullable bool) models.ColumnMapping {
	col := models.ColumnMapping{
		SourcePath: f.Path,
		Name:       names.unique(NormalizeIdentifier(base, b.maxLen)),
		SQLType:    b.columnType(f),
		Nullable:   nullable,
	}
	if tr, ok := b.quality.TypeResult(f.Path); ok && tr.MismatchCount > 0 {
		b.m.Transformations = append(b.m.Transformations, models.Transformation{
			Type:       models.TransformTypeConvert,
			SourcePath: f.Path,
			Target:     table + "." + col.Name,
			Description: fmt.Sprintf("convert %d values that are not %s to %s",
				tr.MismatchCount, tr.DominantType, col.SQLType),
		})
	}
	return col
}

// columnType starts from the inferred type and lets the type consistency
// and length profiles refine it.
func (b *builder) columnType(f *models.FieldInfo) string {
	sqlType := f.RecommendedRelationalType
	tr, hasType := b.quality.TypeResult(f.Path)
	if hasType && tr.RecommendedType != "" {
		sqlType = tr.RecommendedType
	}
	if f.DominantType() == models.TypeString && (!hasType || tr.IsConsistent) {
		if lr, ok := b.quality.LengthResult(f.Path); ok && lr.RecommendedType != "" {
			sqlType = lr.RecommendedType
		}
	}
	if sqlType == "" {
		sqlType = inference.RecommendType(f, b.opts)
	}
	return sqlType
}

func (b *builder) flattenable(f *models.FieldInfo) bool {
	mo := b.opts.Mapping
	if !mo.FlattenNestedObjects || len(f.Children) == 0 || len(f.Children) > mo.FlattenMaxFields {
		return false
	}
	for _, c := range f.Children {
		if c.IsObject() || c.IsArray() {
			return false
		}
	}
	return true
}

func (b *builder) flatten(names *namer, f *models.FieldInfo, bySource map[string]string) {
	var children []*models.FieldInfo
	for _, c := range f.SortedChildren() {
		// Already promoted as a key column.
		if _, done := bySource[c.Path]; done {
			continue
		}
		children = append(children, c)
	}
	if len(children) == 0 {
		return
	}
	for _, c := range children {
		col := b.rootColumn(names, c, f.Name+"_"+c.Name)
		b.m.Columns = append(b.m.Columns, col)
		bySource[c.Path] = col.Name
	}
	b.m.Transformations = append(b.m.Transformations, models.Transformation{
		Type:        models.TransformFlatten,
		SourcePath:  f.Path,
		Target:      b.m.TableName,
		Description: fmt.Sprintf("promote %d fields of %s to columns of %s", len(children), f.Path, b.m.TableName),
	})
}

// ============================================================================
// Child tables
// ============================================================================

func (b *builder) childTable(parent string, parentKeys []models.ColumnMapping, f *models.FieldInfo) models.ChildTableMapping {
	isArray := f.IsArray()
	child := models.ChildTableMapping{
		SourcePath:   f.Path,
		TableName:    b.tables.unique(ChildTableName(parent, f.Name, isArray, b.maxLen)),
		ParentTable:  parent,
		Relationship: models.RelationshipOneToOne,
		IsArray:      isArray,
		Depth:        f.Depth,
	}
	manyToMany := isArray && b.isManyToMany(f)
	switch {
	case manyToMany:
		child.Relationship = models.RelationshipManyToMany
	case isArray:
		child.Relationship = models.RelationshipOneToMany
	}

	names := newNamer(b.maxLen)
	if !manyToMany {
		for _, pk := range parentKeys {
			name := names.unique(truncateIdentifier(parent+"_"+pk.Name, b.maxLen))
			child.Columns = append(child.Columns, models.ColumnMapping{
				Name:         name,
				SQLType:      pk.SQLType,
				IsPrimaryKey: true,
				IsSynthetic:  true,
			})
			child.ParentKeyColumns = append(child.ParentKeyColumns, name)
			child.PrimaryKey = append(child.PrimaryKey, name)
		}
		child.ParentKeyColumn = child.ParentKeyColumns[0]
		if isArray {
			name := names.unique(ordinalColumn)
			child.Columns = append(child.Columns, models.ColumnMapping{
				Name:         name,
				SQLType:      inference.SQLTypeInt,
				IsPrimaryKey: true,
				IsSynthetic:  true,
			})
			child.PrimaryKey = append(child.PrimaryKey, name)
		}
	}

	var fields []*models.FieldInfo
	el := f.Element
	switch {
	case !isArray:
		fields = f.SortedChildren()
	case el == nil || el.DominantType() == models.TypeNull:
		child.ScalarElements = true
		child.Columns = append(child.Columns, models.ColumnMapping{
			SourcePath: f.Path + "[]",
			Name:       names.unique(valueColumn),
			SQLType:    inference.SQLTypeNullOnly,
			Nullable:   true,
		})
	case el.IsObject():
		fields = el.SortedChildren()
	case el.IsArray():
		name := names.unique(valueColumn)
		child.Columns = append(child.Columns, models.ColumnMapping{
			SourcePath: el.Path,
			Name:       name,
			SQLType:    inference.SQLTypeText,
			Nullable:   el.NullCount > 0,
		})
		b.m.Transformations = append(b.m.Transformations, models.Transformation{
			Type:        models.TransformTypeConvert,
			SourcePath:  el.Path,
			Target:      child.TableName + "." + name,
			Description: fmt.Sprintf("serialize nested arrays of %s as JSON text", f.Path),
		})
	default:
		child.ScalarElements = true
		child.Columns = append(child.Columns, b.column(child.TableName, names, el, valueColumn, el.NullCount > 0))
	}

	var nested []*models.FieldInfo
	for _, c := range fields {
		if c.IsObject() || c.IsArray() {
			nested = append(nested, c)
			continue
		}
		child.Columns = append(child.Columns, b.column(child.TableName, names, c, c.Name, !c.IsRequired))
	}

	if manyToMany {
		b.keyByElement(&child, el)
	}

	b.m.Transformations = append(b.m.Transformations, models.Transformation{
		Type:        models.TransformSplit,
		SourcePath:  f.Path,
		Target:      child.TableName,
		Description: splitDescription(f, child.TableName),
	})
	if manyToMany {
		b.m.LinkingTables = append(b.m.LinkingTables, b.linkingTable(parent, parentKeys, f, &child))
	} else {
		b.foreignKey(parent, parentKeys, &child)
	}

	childKeys := primaryKeyColumns(child.Columns)
	for _, g := range nested {
		child.Children = append(child.Children, b.childTable(child.TableName, childKeys, g))
	}
	return child
}

func splitDescription(f *models.FieldInfo, table string) string {
	if f.IsArray() {
		return fmt.Sprintf("extract elements of %s into %s", f.Path, table)
	}
	return fmt.Sprintf("move %s into %s", f.Path, table)
}

// isManyToMany reports whether array elements are shared between parents
// often enough to need a linking table. Only identifiable elements qualify:
// scalars, or objects carrying an id.
func (b *builder) isManyToMany(f *models.FieldInfo) bool {
	el := f.Element
	if el == nil || f.SharedElementRatio <= 0 || f.SharedElementRatio < b.opts.Mapping.ManyToManyShareRatio {
		return false
	}
	switch el.DominantType() {
	case models.TypeObject:
		return idField(el.Children) != nil
	case models.TypeArray, models.TypeNull:
		return false
	}
	return true
}

// keyByElement makes the element identity the primary key of a
// many-to-many child.
func (b *builder) keyByElement(child *models.ChildTableMapping, el *models.FieldInfo) {
	keyPath := el.Path
	if el.IsObject() {
		keyPath = idField(el.Children).Path
	}
	for i := range child.Columns {
		if child.Columns[i].SourcePath == keyPath {
			child.Columns[i].IsPrimaryKey = true
			child.Columns[i].Nullable = false
			child.PrimaryKey = []string{child.Columns[i].Name}
			return
		}
	}
}

func (b *builder) foreignKey(parent string, parentKeys []models.ColumnMapping, child *models.ChildTableMapping) {
	refs := make([]string, len(parentKeys))
	for i, pk := range parentKeys {
		refs[i] = pk.Name
	}
	b.m.ForeignKeys = append(b.m.ForeignKeys, models.ForeignKeyConstraint{
		Name:              b.names.unique(constraintName("fk", b.maxLen, child.TableName, parent)),
		Table:             child.TableName,
		Columns:           child.ParentKeyColumns,
		ReferencedTable:   parent,
		ReferencedColumns: refs,
		OnDelete:          cascadeDelete,
	})
	b.addIndex(models.IndexRecommendation{
		Table:   child.TableName,
		Columns: child.ParentKeyColumns,
		Kind:    models.IndexForeignKey,
		Reason:  fmt.Sprintf("supports joins and cascading deletes from %s", parent),
	})
}

func (b *builder) linkingTable(parent string, parentKeys []models.ColumnMapping, f *models.FieldInfo, child *models.ChildTableMapping) models.LinkingTableRecommendation {
	childKey := valueColumn
	if len(child.PrimaryKey) > 0 {
		childKey = child.PrimaryKey[0]
	}
	return models.LinkingTableRecommendation{
		Name:            b.tables.unique(truncateIdentifier(child.TableName+"_link", b.maxLen)),
		SourcePath:      f.Path,
		ParentTable:     parent,
		ChildTable:      child.TableName,
		ParentKeyColumn: truncateIdentifier(parent+"_"+parentKeys[0].Name, b.maxLen),
		ChildKeyColumn:  truncateIdentifier(child.TableName+"_"+childKey, b.maxLen),
		SharedRatio:     f.SharedElementRatio,
		Reason: fmt.Sprintf("%.0f%% of distinct elements of %s appear under more than one parent",
			f.SharedElementRatio*100, f.Path),
	}
}

// ============================================================================
// Keys and indexes
// ============================================================================

// keyConstraints turns duplicate analysis into unique constraints for keys
// that are already unique and advisory indexes for nearly unique ones.
// The id and partition keys are covered by the primary key.
func (b *builder) keyConstraints(bySource map[string]string) {
	table := b.m.TableName
	for _, d := range b.quality.Duplicates {
		if d.KeyKind == models.KeyKindID || d.KeyKind == models.KeyKindPartition || d.DocumentsWithKey == 0 {
			continue
		}
		cols, ok := columnsFor(d.KeyFields, bySource)
		if !ok {
			continue
		}
		switch {
		case d.DuplicatePercentage <= b.opts.UniqueConstraintMaxDuplicateRate:
			b.m.UniqueConstraints = append(b.m.UniqueConstraints, models.UniqueConstraint{
				Name:                b.names.unique(constraintName("uq", b.maxLen, append([]string{table}, cols...)...)),
				Table:               table,
				Columns:             cols,
				SourceKey:           d.KeyName,
				DuplicatePercentage: d.DuplicatePercentage,
			})
		case d.DuplicatePercentage < b.opts.DuplicateThresholdCritical:
			b.addIndex(models.IndexRecommendation{
				Table:   table,
				Columns: cols,
				Kind:    models.IndexUniqueKey,
				Reason: fmt.Sprintf("%s is nearly unique (%.2f%% duplicates); make the index unique after cleanup",
					d.KeyName, d.DuplicatePercentage*100),
			})
		}
	}
}

func columnsFor(paths []string, bySource map[string]string) ([]string, bool) {
	cols := make([]string, len(paths))
	for i, p := range paths {
		c, ok := bySource[p]
		if !ok {
			return nil, false
		}
		cols[i] = c
	}
	return cols, true
}

func (b *builder) rootIndexes(union *models.DocumentSchema, bySource map[string]string) {
	table := b.m.TableName
	if pk := b.in.Metadata.PartitionKeyField(); pk != "" {
		if col, ok := bySource[pk]; ok {
			b.addIndex(models.IndexRecommendation{
				Table:   table,
				Columns: []string{col},
				Kind:    models.IndexPartitionKey,
				Reason:  "partition key; keeps single-partition lookups cheap",
			})
		}
	}

	for _, q := range b.in.Metadata.QueryFields {
		path := models.SlashPathToField(q)
		col, ok := bySource[path]
		if !ok {
			b.logger.Debug("Query field has no root column",
				zap.String("container", b.in.Container),
				zap.String("field", q))
			continue
		}
		f, ok := union.FieldByPath(path)
		if !ok || f.Selectivity < b.opts.Mapping.QueryIndexMinSelectivity {
			continue
		}
		if len(b.m.PrimaryKey) > 0 && b.m.PrimaryKey[0] == col {
			continue
		}
		b.addIndex(models.IndexRecommendation{
			Table:   table,
			Columns: []string{col},
			Kind:    models.IndexQueryField,
			Reason:  fmt.Sprintf("used in query filters; selectivity %.2f", f.Selectivity),
		})
	}
}

// addIndex names idx and records it unless the same column list is already
// indexed on that table.
func (b *builder) addIndex(idx models.IndexRecommendation) {
	key := idx.Table + "(" + strings.Join(idx.Columns, ",") + ")"
	if b.indexed[key] {
		return
	}
	b.indexed[key] = true
	idx.Name = b.names.unique(constraintName("ix", b.maxLen, append([]string{idx.Table}, idx.Columns...)...))
	b.m.Indexes = append(b.m.Indexes, idx)
}
