package ddl

import (
	"fmt"
	"strings"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// StatementKind orders statements within a script.
type StatementKind string

const (
	KindTable      StatementKind = "table"
	KindUnique     StatementKind = "unique"
	KindForeignKey StatementKind = "foreign_key"
	KindIndex      StatementKind = "index"
)

// Statement is one executable DDL statement without a terminator.
type Statement struct {
	Kind    StatementKind `json:"kind"`
	Object  string        `json:"object"`
	Comment string        `json:"comment,omitempty"`
	SQL     string        `json:"sql"`
}

// Script is the ordered DDL for a whole assessment: tables with parents
// before children, then unique constraints, foreign keys and indexes.
type Script struct {
	Dialect    Dialect     `json:"dialect"`
	Statements []Statement `json:"statements"`
}

// String renders the script with terminators and comments.
func (s *Script) String() string {
	var b strings.Builder
	for i, st := range s.Statements {
		if i > 0 {
			b.WriteString("\n")
		}
		if st.Comment != "" {
			b.WriteString("-- " + st.Comment + "\n")
		}
		b.WriteString(st.SQL + ";\n")
	}
	return b.String()
}

// SQL returns the bare statements in execution order.
func (s *Script) SQL() []string {
	out := make([]string, len(s.Statements))
	for i, st := range s.Statements {
		out[i] = st.SQL
	}
	return out
}

// ============================================================================
// Generation
// ============================================================================

type tableDef struct {
	name    string
	columns []models.ColumnMapping
	pk      []string
	comment string
}

type generator struct {
	d      Dialect
	tables []*tableDef
	byName map[string]*tableDef
	// key columns per table, which SQL Server cannot declare as MAX
	keys  map[string]map[string]bool
	names map[string]bool
	out   []Statement
}

// Generate renders every mapped container of a into DDL for dialect.
// Children that reference a shared schema get their columns from it.
func Generate(a *models.Assessment, d Dialect) (*Script, error) {
	if _, err := ParseDialect(string(d)); err != nil {
		return nil, err
	}
	g := &generator{
		d:      d,
		byName: make(map[string]*tableDef),
		keys:   make(map[string]map[string]bool),
		names:  make(map[string]bool),
	}

	mappings := a.Mappings()
	for _, m := range mappings {
		if err := g.collectTables(a, m); err != nil {
			return nil, err
		}
	}
	for _, m := range mappings {
		g.collectKeys(m)
	}

	for _, t := range g.tables {
		if err := g.createTable(t); err != nil {
			return nil, err
		}
	}
	for _, m := range mappings {
		for _, u := range m.UniqueConstraints {
			if err := g.unique(u); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range mappings {
		for _, fk := range m.ForeignKeys {
			if err := g.foreignKey(fk); err != nil {
				return nil, err
			}
		}
		for _, l := range m.LinkingTables {
			if err := g.linkingKeys(l); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range mappings {
		for _, ix := range m.Indexes {
			if err := g.index(ix); err != nil {
				return nil, err
			}
		}
	}

	return &Script{Dialect: d, Statements: g.out}, nil
}

func (g *generator) addTable(t *tableDef) error {
	if _, dup := g.byName[t.name]; dup {
		return fmt.Errorf("%w: table %q is produced by more than one source", ErrUnsafeIdentifier, t.name)
	}
	g.tables = append(g.tables, t)
	g.byName[t.name] = t
	return nil
}

func (g *generator) collectTables(a *models.Assessment, m *models.ContainerMapping) error {
	err := g.addTable(&tableDef{
		name:    m.TableName,
		columns: m.Columns,
		pk:      m.PrimaryKey,
		comment: "container " + m.Container,
	})
	if err != nil {
		return err
	}

	for _, c := range m.AllChildTables() {
		comment := fmt.Sprintf("%s.%s (%s)", m.Container, c.SourcePath, c.Relationship)
		var shared *models.SharedSchema
		if c.SharedSchemaID != "" {
			if s, ok := a.SharedSchema(c.SharedSchemaID); ok {
				shared = s
				comment += fmt.Sprintf("; shared structure %s %s", s.SchemaName, s.SchemaID)
			}
		}
		err := g.addTable(&tableDef{
			name:    c.TableName,
			columns: c.ResolvedColumns(shared),
			pk:      c.PrimaryKey,
			comment: comment,
		})
		if err != nil {
			return err
		}
	}

	for _, l := range m.LinkingTables {
		parentKey, ok := g.keyColumn(l.ParentTable)
		if !ok {
			return fmt.Errorf("linking table %s: parent %s has no primary key", l.Name, l.ParentTable)
		}
		childKey, ok := g.keyColumn(l.ChildTable)
		if !ok {
			return fmt.Errorf("linking table %s: child %s has no primary key", l.Name, l.ChildTable)
		}
		err := g.addTable(&tableDef{
			name: l.Name,
			columns: []models.ColumnMapping{
				{Name: l.ParentKeyColumn, SQLType: parentKey.SQLType, IsPrimaryKey: true, IsSynthetic: true},
				{Name: l.ChildKeyColumn, SQLType: childKey.SQLType, IsPrimaryKey: true, IsSynthetic: true},
			},
			pk:      []string{l.ParentKeyColumn, l.ChildKeyColumn},
			comment: fmt.Sprintf("%s.%s (many_to_many link)", m.Container, l.SourcePath),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// keyColumn returns the leading primary key column of table.
func (g *generator) keyColumn(table string) (models.ColumnMapping, bool) {
	t, ok := g.byName[table]
	if !ok || len(t.pk) == 0 {
		return models.ColumnMapping{}, false
	}
	for _, c := range t.columns {
		if c.Name == t.pk[0] {
			return c, true
		}
	}
	return models.ColumnMapping{}, false
}

func (g *generator) collectKeys(m *models.ContainerMapping) {
	mark := func(table string, cols []string) {
		if g.keys[table] == nil {
			g.keys[table] = make(map[string]bool)
		}
		for _, c := range cols {
			g.keys[table][c] = true
		}
	}
	for _, t := range g.tables {
		mark(t.name, t.pk)
	}
	for _, u := range m.UniqueConstraints {
		mark(u.Table, u.Columns)
	}
	for _, fk := range m.ForeignKeys {
		mark(fk.Table, fk.Columns)
	}
	for _, ix := range m.Indexes {
		mark(ix.Table, ix.Columns)
	}
}

func (g *generator) createTable(t *tableDef) error {
	if err := ValidateIdentifier(t.name, g.d); err != nil {
		return err
	}

	lines := make([]string, 0, len(t.columns)+1)
	for _, c := range t.columns {
		if err := ValidateIdentifier(c.Name, g.d); err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
		line := g.d.Quote(c.Name) + " " + g.d.ColumnType(c.SQLType, g.keys[t.name][c.Name])
		if c.IsIdentity {
			line += " " + g.d.Identity()
		}
		if c.Nullable && !c.IsPrimaryKey {
			line += " NULL"
		} else {
			line += " NOT NULL"
		}
		lines = append(lines, "    "+line)
	}
	if len(t.pk) > 0 {
		name, err := g.constraintName("pk", t.name)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)", g.d.Quote(name), quoteList(g.d, t.pk)))
	}

	sql := fmt.Sprintf("CREATE TABLE %s (\n%s\n)", g.d.Quote(t.name), strings.Join(lines, ",\n"))
	return g.emit(KindTable, t.name, t.comment, sql)
}

func (g *generator) unique(u models.UniqueConstraint) error {
	if err := g.checkNames(append([]string{u.Name, u.Table}, u.Columns...)...); err != nil {
		return err
	}
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
		g.d.Quote(u.Table), g.d.Quote(u.Name), quoteList(g.d, u.Columns))
	return g.emit(KindUnique, u.Name, fmt.Sprintf("natural key %s (%.2f%% duplicates in sample)", u.SourceKey, u.DuplicatePercentage*100), sql)
}

func (g *generator) foreignKey(fk models.ForeignKeyConstraint) error {
	names := append([]string{fk.Name, fk.Table, fk.ReferencedTable}, fk.Columns...)
	if err := g.checkNames(append(names, fk.ReferencedColumns...)...); err != nil {
		return err
	}
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		g.d.Quote(fk.Table), g.d.Quote(fk.Name), quoteList(g.d, fk.Columns),
		g.d.Quote(fk.ReferencedTable), quoteList(g.d, fk.ReferencedColumns))
	if fk.OnDelete != "" {
		sql += " ON DELETE " + onDelete(fk.OnDelete)
	}
	return g.emit(KindForeignKey, fk.Name, "", sql)
}

// linkingKeys references both sides of a linking table when each side has a
// single-column primary key.
func (g *generator) linkingKeys(l models.LinkingTableRecommendation) error {
	sides := []struct {
		column string
		table  string
	}{
		{l.ParentKeyColumn, l.ParentTable},
		{l.ChildKeyColumn, l.ChildTable},
	}
	for _, side := range sides {
		ref := g.byName[side.table]
		if ref == nil || len(ref.pk) != 1 {
			continue
		}
		name, err := g.constraintName("fk", l.Name, side.table)
		if err != nil {
			return err
		}
		err = g.foreignKey(models.ForeignKeyConstraint{
			Name:              name,
			Table:             l.Name,
			Columns:           []string{side.column},
			ReferencedTable:   side.table,
			ReferencedColumns: ref.pk,
			OnDelete:          "CASCADE",
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) index(ix models.IndexRecommendation) error {
	if err := g.checkNames(append([]string{ix.Name, ix.Table}, ix.Columns...)...); err != nil {
		return err
	}
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	sql := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, g.d.Quote(ix.Name), g.d.Quote(ix.Table), quoteList(g.d, ix.Columns))
	return g.emit(KindIndex, ix.Name, ix.Reason, sql)
}

func (g *generator) emit(kind StatementKind, object, comment, sql string) error {
	if err := ValidateStatement(sql); err != nil {
		return fmt.Errorf("%s %s: %w", kind, object, err)
	}
	g.out = append(g.out, Statement{Kind: kind, Object: object, Comment: comment, SQL: sql})
	return nil
}

func (g *generator) checkNames(names ...string) error {
	for _, n := range names {
		if err := ValidateIdentifier(n, g.d); err != nil {
			return err
		}
	}
	return nil
}

// constraintName builds prefix_part1_part2 within the dialect limit, unique
// across the script.
func (g *generator) constraintName(prefix string, parts ...string) (string, error) {
	maxLen := g.d.MaxIdentifierLength()
	base := prefix + "_" + strings.Join(parts, "_")
	if len(base) > maxLen {
		base = strings.TrimRight(base[:maxLen], "_")
	}
	name := base
	for n := 2; g.names[name]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > maxLen {
			trimmed = strings.TrimRight(trimmed[:maxLen-len(suffix)], "_")
		}
		name = trimmed + suffix
	}
	g.names[name] = true
	return name, ValidateIdentifier(name, g.d)
}

func onDelete(action string) string {
	switch strings.ToUpper(action) {
	case "CASCADE":
		return "CASCADE"
	case "SET NULL":
		return "SET NULL"
	}
	return "NO ACTION"
}
