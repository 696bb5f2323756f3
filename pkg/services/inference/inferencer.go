package inference

import (
	"context"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

const (
	// Distinct values tracked per field; selectivity saturates beyond this.
	distinctCapPerField = 10000

	// A discriminator must be present in this share of documents.
	discriminatorMinPresence = 0.9
	discriminatorMinVariants = 2
	discriminatorMaxVariants = 8

	// Documents are checked for cancellation every this many.
	cancelCheckInterval = 256
)

// Field names treated as type discriminators, in priority order.
var discriminatorFields = []string{"type", "_type", "kind", "docType", "discriminator", "entityType"}

// Inferencer builds schema profiles from sampled documents.
type Inferencer interface {
	Infer(ctx context.Context, container string, docs []models.SampledDocument) (*models.SchemaProfile, error)
}

type inferencer struct {
	opts   config.AnalysisOptions
	logger *zap.Logger
}

// NewInferencer creates a schema inferencer.
func NewInferencer(opts config.AnalysisOptions, logger *zap.Logger) Inferencer {
	return &inferencer{
		opts:   opts,
		logger: logger.Named("inference"),
	}
}

var _ Inferencer = (*inferencer)(nil)

// Infer merges every document's field observations into a profile. Documents
// whose root is not an object, or that nest deeper than MaxNestingDepth, are
// skipped and counted. A skip rate above SkipRateThreshold marks the profile
// partial instead of failing.
func (s *inferencer) Infer(ctx context.Context, container string, docs []models.SampledDocument) (*models.SchemaProfile, error) {
	if len(docs) == 0 {
		return nil, &apperrors.InputError{Container: container, Err: apperrors.ErrEmptySample}
	}

	valid := make([]int, 0, len(docs))
	for i, doc := range docs {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("inference cancelled: %w", err)
			}
		}
		if Traversable(doc.Root, s.opts.MaxNestingDepth) {
			valid = append(valid, i)
		}
	}

	profile := &models.SchemaProfile{
		Container:    container,
		TotalSampled: len(docs),
		Processed:    len(valid),
		Skipped:      len(docs) - len(valid),
	}
	profile.SkipRate = float64(profile.Skipped) / float64(len(docs))

	if len(valid) == 0 {
		return nil, &apperrors.InputError{
			Container: container,
			Err:       fmt.Errorf("all %d sampled documents are non-traversable: %w", len(docs), apperrors.ErrInvalidDocument),
		}
	}

	if profile.SkipRate > s.opts.SkipRateThreshold {
		profile.Partial = true
		s.logger.Warn("Skip rate above threshold",
			zap.String("container", container),
			zap.Int("skipped", profile.Skipped),
			zap.Int("total", len(docs)),
			zap.Float64("threshold", s.opts.SkipRateThreshold))
	}

	profile.Union = s.buildSchema(container, docs, valid, len(valid))

	discriminator, buckets := s.detectDiscriminator(docs, valid)
	if discriminator == "" {
		union := profile.Union
		profile.Schemas = []models.DocumentSchema{union}
	} else {
		profile.Discriminator = discriminator
		for _, b := range buckets {
			profile.Schemas = append(profile.Schemas, s.buildSchema(container+":"+b.value, docs, b.indexes, len(valid)))
		}
	}

	s.logger.Debug("Inferred schema",
		zap.String("container", container),
		zap.Int("processed", profile.Processed),
		zap.Int("fields", len(profile.Union.Fields)),
		zap.Int("variants", len(profile.Schemas)))

	return profile, nil
}

// Traversable reports whether a document root is an object no deeper than maxDepth.
func Traversable(root models.Value, maxDepth int) bool {
	if root.Kind != models.KindObject {
		return false
	}
	return depthOf(root) <= maxDepth
}

func depthOf(v models.Value) int {
	switch v.Kind {
	case models.KindObject:
		d := 0
		for _, f := range v.Fields {
			d = max(d, depthOf(f.Value))
		}
		return d + 1
	case models.KindArray:
		d := 0
		for _, item := range v.Items {
			d = max(d, depthOf(item))
		}
		return d + 1
	default:
		return 0
	}
}

// ============================================================================
// Discriminator split
// ============================================================================

type bucket struct {
	value   string
	indexes []int
}

func (s *inferencer) detectDiscriminator(docs []models.SampledDocument, valid []int) (string, []bucket) {
	for _, name := range discriminatorFields {
		groups := make(map[string][]int)
		var missing []int
		present := 0
		for _, i := range valid {
			v, ok := docs[i].Root.Get(name)
			if !ok || v.Kind != models.KindString || v.Str == "" {
				missing = append(missing, i)
				continue
			}
			present++
			groups[v.Str] = append(groups[v.Str], i)
		}
		if float64(present)/float64(len(valid)) < discriminatorMinPresence {
			continue
		}
		if len(groups) < discriminatorMinVariants || len(groups) > discriminatorMaxVariants {
			continue
		}

		buckets := make([]bucket, 0, len(groups)+1)
		for value, idx := range groups {
			buckets = append(buckets, bucket{value: value, indexes: idx})
		}
		sort.Slice(buckets, func(a, b int) bool { return buckets[a].value < buckets[b].value })
		if len(missing) > 0 {
			buckets = append(buckets, bucket{value: "other", indexes: missing})
		}
		return name, buckets
	}
	return "", nil
}

// ============================================================================
// Accumulation
// ============================================================================

type fieldAcc struct {
	name        string
	path        string
	depth       int
	typeCounts  map[models.TypeTag]int
	present     int
	nulls       int
	distinct    map[string]struct{}
	maxLen      int
	sawNumber   bool
	allIntegral bool
	maxAbs      float64
	children    map[string]*fieldAcc
	element     *fieldAcc
	maxArrayLen int

	// element identity -> first document index, and identities seen in
	// more than one document
	elementOwner  map[string]int
	elementShared map[string]struct{}
}

func newFieldAcc(name, path string, depth int) *fieldAcc {
	return &fieldAcc{
		name:        name,
		path:        path,
		depth:       depth,
		typeCounts:  make(map[models.TypeTag]int),
		distinct:    make(map[string]struct{}),
		allIntegral: true,
	}
}

func (s *inferencer) buildSchema(name string, docs []models.SampledDocument, indexes []int, processed int) models.DocumentSchema {
	root := make(map[string]*fieldAcc)
	for _, i := range indexes {
		for _, f := range docs[i].Root.Fields {
			acc, ok := root[f.Key]
			if !ok {
				acc = newFieldAcc(f.Key, models.JoinPath("", f.Key), 1)
				root[f.Key] = acc
			}
			s.observe(acc, f.Value, i)
		}
	}

	sampleCount := len(indexes)
	fields := make(map[string]*models.FieldInfo, len(root))
	for key, acc := range root {
		fields[key] = s.finalize(acc, sampleCount)
	}

	return models.DocumentSchema{
		SchemaName:  name,
		Fields:      fields,
		SampleCount: sampleCount,
		Prevalence:  float64(sampleCount) / float64(processed),
	}
}

func (s *inferencer) observe(acc *fieldAcc, v models.Value, docIdx int) {
	acc.present++
	tag := TagOf(v)
	acc.typeCounts[tag]++

	if v.IsScalar() && len(acc.distinct) < distinctCapPerField {
		acc.distinct[v.Key()] = struct{}{}
	}

	switch v.Kind {
	case models.KindNull:
		acc.nulls++
	case models.KindString:
		acc.maxLen = max(acc.maxLen, utf8.RuneCountInString(v.Str))
	case models.KindNumber:
		acc.sawNumber = true
		if !v.Integral {
			acc.allIntegral = false
		}
		acc.maxAbs = math.Max(acc.maxAbs, math.Abs(v.Number))
	case models.KindObject:
		if acc.children == nil {
			acc.children = make(map[string]*fieldAcc)
		}
		for _, f := range v.Fields {
			child, ok := acc.children[f.Key]
			if !ok {
				child = newFieldAcc(f.Key, models.JoinPath(acc.path, f.Key), acc.depth+1)
				acc.children[f.Key] = child
			}
			s.observe(child, f.Value, docIdx)
		}
	case models.KindArray:
		acc.maxArrayLen = max(acc.maxArrayLen, len(v.Items))
		if acc.element == nil {
			acc.element = newFieldAcc(acc.name, acc.path+"[]", acc.depth)
		}
		limit := min(len(v.Items), s.opts.MaxArrayElements)
		for _, item := range v.Items[:limit] {
			s.observe(acc.element, item, docIdx)
			acc.trackElementOwner(item, docIdx)
		}
	}
}

// trackElementOwner records which documents carry an element identity.
// Scalars identify themselves; objects are identified by id or _id.
func (acc *fieldAcc) trackElementOwner(item models.Value, docIdx int) {
	var key string
	switch {
	case item.IsScalar() && item.Kind != models.KindNull:
		key = item.Key()
	case item.Kind == models.KindObject:
		id, ok := item.Get("id")
		if !ok {
			id, ok = item.Get("_id")
		}
		if !ok || !id.IsScalar() || id.Kind == models.KindNull {
			return
		}
		key = id.Key()
	default:
		return
	}

	if acc.elementOwner == nil {
		acc.elementOwner = make(map[string]int)
		acc.elementShared = make(map[string]struct{})
	}
	owner, seen := acc.elementOwner[key]
	if !seen {
		if len(acc.elementOwner) < distinctCapPerField {
			acc.elementOwner[key] = docIdx
		}
		return
	}
	if owner != docIdx {
		acc.elementShared[key] = struct{}{}
	}
}

func (s *inferencer) finalize(acc *fieldAcc, denominator int) *models.FieldInfo {
	info := &models.FieldInfo{
		Name:           acc.name,
		Path:           acc.path,
		TypeCounts:     acc.typeCounts,
		PresentCount:   acc.present,
		NullCount:      acc.nulls,
		DistinctCount:  len(acc.distinct),
		MaxLength:      acc.maxLen,
		AllIntegral:    acc.sawNumber && acc.allIntegral,
		MaxAbsNumber:   acc.maxAbs,
		Depth:          acc.depth,
		MaxArrayLength: acc.maxArrayLen,
	}
	for tag := range acc.typeCounts {
		info.DetectedTypes = append(info.DetectedTypes, tag)
	}
	sort.Slice(info.DetectedTypes, func(i, j int) bool { return info.DetectedTypes[i] < info.DetectedTypes[j] })

	if denominator > 0 {
		info.Selectivity = float64(len(acc.distinct)) / float64(denominator)
	}
	absentOrNull := (denominator - acc.present) + acc.nulls
	info.IsRequired = s.opts.IsRequiredRate(absentOrNull, denominator)

	if len(acc.children) > 0 {
		// Children are measured against the number of objects observed here.
		objects := acc.typeCounts[models.TypeObject]
		info.Children = make(map[string]*models.FieldInfo, len(acc.children))
		for key, child := range acc.children {
			info.Children[key] = s.finalize(child, objects)
		}
	}
	if acc.element != nil {
		info.Element = s.finalize(acc.element, acc.element.present)
		if len(acc.elementOwner) > 0 {
			info.SharedElementRatio = float64(len(acc.elementShared)) / float64(len(acc.elementOwner))
		}
	}

	dominant := info.DominantType()
	info.IsNested = dominant == models.TypeObject || dominant == models.TypeArray
	info.RecommendedRelationalType = RecommendType(info, s.opts)
	return info
}
