package quality

import (
	"context"
	"sort"
	"strings"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

const keySeparator = "\x1f"

// keyDef is one set of fields whose combined value should be unique.
type keyDef struct {
	name   string
	fields []string
	kind   models.KeyKind
}

// CheckDuplicates groups documents by every key definition that applies to
// the container and reports redundant copies. A result is emitted for every
// key seen, duplicates or not, so clean keys can become unique constraints.
func CheckDuplicates(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.DuplicateAnalysisResult, []models.AnalysisFailure, error) {
	var results []models.DuplicateAnalysisResult
	var failures []models.AnalysisFailure

	for _, key := range duplicateKeys(in, opts) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		res, ok, err := safeKeyCheck(in, key, opts)
		if err != nil {
			failures = append(failures, models.AnalysisFailure{
				Checker: CheckerDuplicate,
				Field:   key.name,
				Message: err.Error(),
			})
			continue
		}
		if ok {
			results = append(results, res)
		}
	}
	return results, failures, nil
}

// duplicateKeys lists key definitions in a stable order: document id, id
// within partition, declared business keys, then inferred candidates.
func duplicateKeys(in *Input, opts config.AnalysisOptions) []keyDef {
	if in.Profile == nil {
		return nil
	}
	fields := in.Profile.Union.Fields
	var keys []keyDef
	used := make(map[string]bool)

	idField := ""
	for _, name := range []string{"id", "_id"} {
		if _, ok := fields[name]; ok {
			idField = name
			break
		}
	}
	if idField != "" {
		keys = append(keys, keyDef{name: idField, fields: []string{idField}, kind: models.KeyKindID})
		used[idField] = true
	}

	if pk := in.Metadata.PartitionKeyField(); pk != "" {
		used[pk] = true
		if idField != "" && pk != idField {
			keys = append(keys, keyDef{
				name:   idField + "+" + pk,
				fields: []string{idField, pk},
				kind:   models.KeyKindPartition,
			})
		}
	}

	for _, bk := range in.Metadata.BusinessKeys {
		if len(bk) == 0 {
			continue
		}
		keys = append(keys, keyDef{name: strings.Join(bk, "+"), fields: bk, kind: models.KeyKindBusiness})
		if len(bk) == 1 {
			used[bk[0]] = true
		}
	}

	sampleCount := in.Profile.Union.SampleCount
	for _, f := range sortedFields(fields) {
		if used[f.Path] || !isCandidateKey(f, sampleCount, opts) {
			continue
		}
		keys = append(keys, keyDef{name: f.Name, fields: []string{f.Path}, kind: models.KeyKindCandidate})
	}
	return keys
}

// isCandidateKey accepts always-present scalar fields that are almost unique.
func isCandidateKey(f *models.FieldInfo, sampleCount int, opts config.AnalysisOptions) bool {
	if f.PresentCount != sampleCount || f.NullCount > 0 || f.DistinctCount < 2 {
		return false
	}
	switch f.DominantType() {
	case models.TypeString, models.TypeNumber:
	default:
		return false
	}
	return f.Selectivity >= opts.CandidateKeySelectivity
}

func safeKeyCheck(in *Input, key keyDef, opts config.AnalysisOptions) (res models.DuplicateAnalysisResult, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(key.name, r)
		}
	}()
	res, ok = checkKey(in, key, opts)
	return res, ok, nil
}

type keyGroup struct {
	display string
	ids     []string
	count   int
}

func checkKey(in *Input, key keyDef, opts config.AnalysisOptions) (models.DuplicateAnalysisResult, bool) {
	groups := make(map[string]*keyGroup)
	withKey := 0

	for _, d := range in.Documents {
		canonical, display, ok := keyValue(d.Root, key.fields)
		if !ok {
			continue
		}
		withKey++
		g, seen := groups[canonical]
		if !seen {
			g = &keyGroup{display: display}
			groups[canonical] = g
		}
		g.count++
		g.ids = limitIDs(g.ids, d.ID, opts.MaxSampleRecords)
	}
	if withKey == 0 {
		return models.DuplicateAnalysisResult{}, false
	}

	res := models.DuplicateAnalysisResult{
		KeyName:          key.name,
		KeyFields:        key.fields,
		KeyKind:          key.kind,
		DocumentsWithKey: withKey,
	}

	var dups []*keyGroup
	for _, g := range groups {
		if g.count > 1 {
			dups = append(dups, g)
			res.DuplicateGroupCount++
			res.DuplicateRecordCount += g.count - 1
			res.AffectedRecordCount += g.count
		}
	}
	res.DuplicatePercentage = ratio(res.DuplicateRecordCount, withKey)

	switch {
	case res.DuplicateRecordCount == 0:
		res.Severity = models.SeverityInfo
	case res.DuplicatePercentage >= opts.DuplicateThresholdCritical:
		res.Severity = models.SeverityCritical
	default:
		res.Severity = models.SeverityWarning
	}

	sort.Slice(dups, func(i, j int) bool {
		if dups[i].count != dups[j].count {
			return dups[i].count > dups[j].count
		}
		return dups[i].display < dups[j].display
	})
	for i, g := range dups {
		if i >= opts.TopDuplicateGroups {
			break
		}
		res.TopGroups = append(res.TopGroups, models.DuplicateGroup{
			KeyValue:    g.display,
			Occurrences: g.count,
			DocumentIDs: g.ids,
		})
	}
	return res, true
}

// keyValue builds the grouping key of a document. Documents missing any key
// field, or holding a null or composite value there, have no key.
func keyValue(root models.Value, fields []string) (canonical, display string, ok bool) {
	canon := make([]string, len(fields))
	disp := make([]string, len(fields))
	for i, path := range fields {
		v, present := root.Lookup(path)
		if !present || v.Kind == models.KindNull || !v.IsScalar() {
			return "", "", false
		}
		canon[i] = v.Key()
		disp[i] = v.Display()
	}
	return strings.Join(canon, keySeparator), strings.Join(disp, ", "), true
}
