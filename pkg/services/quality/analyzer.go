package quality

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/workerpool"
)

// Checker names, used in failures and logs.
const (
	CheckerNull      = "null"
	CheckerDuplicate = "duplicate"
	CheckerType      = "type"
	CheckerOutlier   = "outlier"
	CheckerLength    = "length"
	CheckerEncoding  = "encoding"
	CheckerDate      = "date"
)

// Input is everything a checker reads. Checkers never mutate it.
type Input struct {
	Container string
	Documents []models.SampledDocument
	Profile   *models.SchemaProfile
	Metadata  models.ContainerMetadata
	// Now anchors the future-date bound so reruns are identical.
	Now time.Time
}

// Analyzer runs every quality checker over one container sample.
type Analyzer interface {
	Analyze(ctx context.Context, in *Input) (*models.QualityReport, error)
}

type analyzer struct {
	opts   config.AnalysisOptions
	pool   *workerpool.Pool
	logger *zap.Logger
}

// NewAnalyzer creates a quality analyzer. Checkers for one container run in
// parallel on their own pool sized to the checker count.
func NewAnalyzer(opts config.AnalysisOptions, logger *zap.Logger) Analyzer {
	return &analyzer{
		opts:   opts,
		pool:   workerpool.New(workerpool.Config{MaxConcurrent: len(checkers)}, logger),
		logger: logger.Named("quality"),
	}
}

var _ Analyzer = (*analyzer)(nil)

// checkOutput carries one checker's results back to the join point, where
// apply writes them into the report single-threaded.
type checkOutput struct {
	apply    func(r *models.QualityReport)
	failures []models.AnalysisFailure
}

type checker struct {
	name string
	run  func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error)
}

var checkers = []checker{
	{CheckerNull, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckNulls(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Nulls = res }, failures: failures}, err
	}},
	{CheckerDuplicate, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckDuplicates(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Duplicates = res }, failures: failures}, err
	}},
	{CheckerType, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckTypes(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Types = res }, failures: failures}, err
	}},
	{CheckerOutlier, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckOutliers(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Outliers = res }, failures: failures}, err
	}},
	{CheckerLength, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckLengths(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Lengths = res }, failures: failures}, err
	}},
	{CheckerEncoding, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckEncoding(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Encodings = res }, failures: failures}, err
	}},
	{CheckerDate, func(ctx context.Context, in *Input, opts config.AnalysisOptions) (checkOutput, error) {
		res, failures, err := CheckDates(ctx, in, opts)
		return checkOutput{apply: func(r *models.QualityReport) { r.Dates = res }, failures: failures}, err
	}},
}

// Analyze runs all checkers concurrently and joins their results. A checker
// that fails outright is recorded as an analysis failure; only cancellation
// aborts the whole report.
func (s *analyzer) Analyze(ctx context.Context, in *Input) (*models.QualityReport, error) {
	in = in.traversable(s.opts.MaxNestingDepth)

	items := make([]workerpool.WorkItem[checkOutput], len(checkers))
	for i, c := range checkers {
		items[i] = workerpool.WorkItem[checkOutput]{
			ID: in.Container + "/" + c.name,
			Execute: func(ctx context.Context) (checkOutput, error) {
				return c.run(ctx, in, s.opts)
			},
		}
	}

	results := workerpool.ProcessOrdered(ctx, s.pool, items, nil)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("quality analysis of %s cancelled: %w", in.Container, err)
	}

	report := &models.QualityReport{
		Container:      in.Container,
		TotalDocuments: len(in.Documents),
	}
	for i, res := range results {
		if res.Err != nil {
			s.logger.Warn("Quality checker failed",
				zap.String("container", in.Container),
				zap.String("checker", checkers[i].name),
				zap.Error(res.Err))
			report.Failures = append(report.Failures, models.AnalysisFailure{
				Checker: checkers[i].name,
				Message: res.Err.Error(),
			})
			continue
		}
		if res.Result.apply != nil {
			res.Result.apply(report)
		}
		report.Failures = append(report.Failures, res.Result.failures...)
	}

	s.logger.Debug("Quality analysis complete",
		zap.String("container", in.Container),
		zap.Int("documents", report.TotalDocuments),
		zap.Int("failures", len(report.Failures)))

	return report, nil
}

// ============================================================================
// Input helpers
// ============================================================================

// traversable returns a copy of the input holding only documents the
// inferencer processed.
func (in *Input) traversable(maxDepth int) *Input {
	docs := make([]models.SampledDocument, 0, len(in.Documents))
	for _, d := range in.Documents {
		if inference.Traversable(d.Root, maxDepth) {
			docs = append(docs, d)
		}
	}
	out := *in
	out.Documents = docs
	return &out
}

// fields returns every field reachable through nested objects, including
// the objects and arrays themselves, ordered by path.
func (in *Input) fields() []*models.FieldInfo {
	if in.Profile == nil {
		return nil
	}
	var out []*models.FieldInfo
	var walk func(fields map[string]*models.FieldInfo)
	walk = func(fields map[string]*models.FieldInfo) {
		for _, f := range sortedFields(fields) {
			out = append(out, f)
			if f.IsObject() {
				walk(f.Children)
			}
		}
	}
	walk(in.Profile.Union.Fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// leaves returns scalar fields reachable through nested objects.
func (in *Input) leaves() []*models.FieldInfo {
	if in.Profile == nil {
		return nil
	}
	return in.Profile.Union.LeafPaths()
}

// observation is one present value of a field in one document.
type observation struct {
	docID string
	value models.Value
}

// observe collects the present values of path in document order. Nulls are
// included; missing keys are not.
func (in *Input) observe(path string) []observation {
	out := make([]observation, 0, len(in.Documents))
	for _, d := range in.Documents {
		if v, ok := d.Root.Lookup(path); ok {
			out = append(out, observation{docID: d.ID, value: v})
		}
	}
	return out
}

func sortedFields(fields map[string]*models.FieldInfo) []*models.FieldInfo {
	out := make([]*models.FieldInfo, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// forEachField applies fn to every field, isolating panics so one bad field
// cannot sink the rest of the checker. fn returns false to emit nothing.
func forEachField[T any](
	ctx context.Context,
	checkerName string,
	fields []*models.FieldInfo,
	fn func(f *models.FieldInfo) (T, bool),
) ([]T, []models.AnalysisFailure, error) {
	var out []T
	var failures []models.AnalysisFailure
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		res, ok, err := safeCall(f, fn)
		if err != nil {
			failures = append(failures, models.AnalysisFailure{
				Checker: checkerName,
				Field:   f.Path,
				Message: err.Error(),
			})
			continue
		}
		if ok {
			out = append(out, res...)
		}
	}
	return out, failures, nil
}

func safeCall[T any](f *models.FieldInfo, fn func(f *models.FieldInfo) (T, bool)) (out []T, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(f.Path, r)
		}
	}()
	res, ok := fn(f)
	if !ok {
		return nil, false, nil
	}
	return []T{res}, true, nil
}

func panicError(field string, r any) error {
	return fmt.Errorf("field %s: %v", field, r)
}

// limitIDs appends id to ids while fewer than limit are held.
func limitIDs(ids []string, id string, limit int) []string {
	if len(ids) >= limit {
		return ids
	}
	return append(ids, id)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
