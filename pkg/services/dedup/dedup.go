package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/mapping"
)

const (
	schemaIDPrefix = "ss_"
	shortIDLength  = 16
)

// Deduplicator finds child table structures repeated across a run.
type Deduplicator interface {
	// Deduplicate registers every child table of mappings, in order, and
	// returns the structures used at least twice. Children that share a
	// structure get SharedSchemaID set and keep only their key columns.
	// Callers must hold the only reference to mappings.
	Deduplicate(ctx context.Context, mappings []*models.ContainerMapping) ([]models.SharedSchema, error)
}

type deduplicator struct {
	maxIdentifierLength int
	logger              *zap.Logger
}

// NewDeduplicator creates a schema deduplicator.
func NewDeduplicator(maxIdentifierLength int, logger *zap.Logger) Deduplicator {
	return &deduplicator{
		maxIdentifierLength: maxIdentifierLength,
		logger:              logger.Named("dedup"),
	}
}

var _ Deduplicator = (*deduplicator)(nil)

func (s *deduplicator) Deduplicate(ctx context.Context, mappings []*models.ContainerMapping) ([]models.SharedSchema, error) {
	reg := newRegistry()
	seen := 0
	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("schema deduplication cancelled: %w", err)
		}
		for _, c := range m.AllChildTables() {
			reg.add(m.Container, c)
			seen++
		}
	}

	shared := reg.resolve(s.maxIdentifierLength)
	s.logger.Info("Deduplicated child schemas",
		zap.Int("containers", len(mappings)),
		zap.Int("child_tables", seen),
		zap.Int("distinct_structures", len(reg.entries)),
		zap.Int("shared_schemas", len(shared)))
	return shared, nil
}

// ============================================================================
// Registry
// ============================================================================

// registry is owned by a single Deduplicate call. Entries are keyed by the
// full canonical encoding, so two different structures never merge even
// when their short ids collide.
type registry struct {
	byEncoding map[string]*entry
	// schema id -> encoding
	ids     map[string]string
	entries []*entry
}

type entry struct {
	id        string
	encoding  string
	columns   []models.ColumnMapping
	sightings []sighting
	seen      map[string]bool
}

type sighting struct {
	container string
	child     *models.ChildTableMapping
}

func newRegistry() *registry {
	return &registry{
		byEncoding: make(map[string]*entry),
		ids:        make(map[string]string),
	}
}

func (r *registry) add(container string, c *models.ChildTableMapping) {
	enc := Encode(c)
	e, ok := r.byEncoding[enc]
	if !ok {
		e = &entry{
			id:       r.idFor(enc),
			encoding: enc,
			columns:  append([]models.ColumnMapping(nil), c.DataColumns()...),
			seen:     make(map[string]bool),
		}
		r.byEncoding[enc] = e
		r.ids[e.id] = enc
		r.entries = append(r.entries, e)
	}

	key := container + ":" + c.SourcePath
	if e.seen[key] {
		return
	}
	if len(e.sightings) > 0 {
		e.widen(c.DataColumns())
	}
	e.seen[key] = true
	e.sightings = append(e.sightings, sighting{container: container, child: c})
}

// idFor returns ss_ plus a short digest prefix, or the whole digest when the
// prefix is already taken by a different structure.
func (r *registry) idFor(enc string) string {
	sum := sha256.Sum256([]byte(enc))
	full := hex.EncodeToString(sum[:])
	id := schemaIDPrefix + full[:shortIDLength]
	if other, taken := r.ids[id]; taken && other != enc {
		return schemaIDPrefix + full
	}
	return id
}

// widen grows column types so every sighting fits.
func (e *entry) widen(cols []models.ColumnMapping) {
	byName := make(map[string]models.ColumnMapping, len(cols))
	for _, c := range cols {
		byName[strings.ToLower(c.Name)] = c
	}
	for i := range e.columns {
		other, ok := byName[strings.ToLower(e.columns[i].Name)]
		if !ok {
			continue
		}
		e.columns[i].SQLType = WidenType(e.columns[i].SQLType, other.SQLType)
		e.columns[i].Nullable = e.columns[i].Nullable || other.Nullable
	}
}

// resolve builds shared schemas for every structure seen at least twice and
// points each sighting at it.
func (r *registry) resolve(maxLen int) []models.SharedSchema {
	var out []models.SharedSchema
	names := make(map[string]int)
	for _, e := range r.entries {
		if len(e.sightings) < 2 {
			continue
		}
		first := e.sightings[0].child
		name := mapping.NormalizeIdentifier(models.LastPathKey(first.SourcePath), maxLen)
		names[name]++
		if n := names[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}

		schema := models.SharedSchema{
			SchemaID:   e.id,
			SchemaName: name,
			Structure:  e.encoding,
			Columns:    e.columns,
			UsageCount: len(e.sightings),
		}
		containers := make(map[string]bool)
		for _, s := range e.sightings {
			if !containers[s.container] {
				containers[s.container] = true
				schema.SourceContainers = append(schema.SourceContainers, s.container)
			}
			schema.SourceFieldPaths = append(schema.SourceFieldPaths, s.container+":"+s.child.SourcePath)

			s.child.SharedSchemaID = e.id
			s.child.Columns = keyColumns(s.child.Columns)
		}
		sort.Strings(schema.SourceContainers)
		out = append(out, schema)
	}
	return out
}

func keyColumns(cols []models.ColumnMapping) []models.ColumnMapping {
	var out []models.ColumnMapping
	for _, c := range cols {
		if c.IsSynthetic || c.IsPrimaryKey {
			out = append(out, c)
		}
	}
	return out
}

// ============================================================================
// Canonical encoding
// ============================================================================

// Encode renders the structure of a child table as sorted name:type pairs.
// Synthetic key columns are excluded, so an object and an array element with
// the same fields encode alike. Nested tables encode recursively as
// name:object{...} or name:array<...>. Equal encodings mean equal
// structures, field for field.
func Encode(c *models.ChildTableMapping) string {
	return "{" + strings.Join(encodeFields(c), ",") + "}"
}

func encodeFields(c *models.ChildTableMapping) []string {
	var parts []string
	for _, col := range c.Columns {
		if col.IsSynthetic {
			continue
		}
		parts = append(parts, strings.ToLower(col.Name)+":"+typeFamily(col.SQLType))
	}
	for i := range c.Children {
		nested := &c.Children[i]
		inner := strings.Join(encodeFields(nested), ",")
		if nested.IsArray {
			inner = "array<" + inner + ">"
		} else {
			inner = "object{" + inner + "}"
		}
		parts = append(parts, strings.ToLower(models.LastPathKey(nested.SourcePath))+":"+inner)
	}
	sort.Strings(parts)
	return parts
}

// typeFamily groups types that differ only in size, so they widen instead
// of splitting the structure.
func typeFamily(sqlType string) string {
	upper := strings.ToUpper(sqlType)
	switch {
	case strings.HasPrefix(upper, "NVARCHAR"):
		return "string"
	case upper == inference.SQLTypeInt || upper == inference.SQLTypeBigInt:
		return "integer"
	}
	return strings.ToLower(upper)
}

// WidenType returns the wider of two types of the same family.
func WidenType(a, b string) string {
	switch typeFamily(a) {
	case "string":
		if varcharSize(b) > varcharSize(a) {
			return b
		}
	case "integer":
		if strings.EqualFold(b, inference.SQLTypeBigInt) {
			return inference.SQLTypeBigInt
		}
	}
	return a
}

func varcharSize(sqlType string) int {
	open := strings.IndexByte(sqlType, '(')
	if open < 0 || !strings.HasSuffix(sqlType, ")") {
		return 0
	}
	inner := sqlType[open+1 : len(sqlType)-1]
	if strings.EqualFold(inner, "MAX") {
		return math.MaxInt
	}
	n, err := strconv.Atoi(inner)
	if err != nil {
		return 0
	}
	return n
}
