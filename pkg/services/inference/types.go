package inference

import (
	"fmt"
	"math"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// Relational type names in SQL Server vocabulary. The DDL generator
// translates them for other dialects.
const (
	SQLTypeBit        = "BIT"
	SQLTypeInt        = "INT"
	SQLTypeBigInt     = "BIGINT"
	SQLTypeFloat      = "FLOAT"
	SQLTypeDateTime   = "DATETIME2"
	SQLTypeText       = "NVARCHAR(MAX)"
	SQLTypeNullOnly   = "NVARCHAR(255)"
	minWideningLength = 50
)

// Convenient NVARCHAR sizes.
var varcharBoundaries = []int{10, 25, 50, 100, 255, 500, 1000, 2000, 4000}

// TagOf returns the type tag of a value. Strings shaped like timestamps are
// tagged as dates.
func TagOf(v models.Value) models.TypeTag {
	switch v.Kind {
	case models.KindNull:
		return models.TypeNull
	case models.KindBool:
		return models.TypeBoolean
	case models.KindNumber:
		return models.TypeNumber
	case models.KindDate:
		return models.TypeDate
	case models.KindArray:
		return models.TypeArray
	case models.KindObject:
		return models.TypeObject
	case models.KindString:
		if LooksLikeTimestamp(v.Str) {
			return models.TypeDate
		}
		return models.TypeString
	default:
		return models.TypeString
	}
}

// VarcharType sizes an NVARCHAR column to the smallest boundary holding
// maxLen characters, or NVARCHAR(MAX) when that exceeds limit.
func VarcharType(maxLen, limit int) string {
	for _, b := range varcharBoundaries {
		if b >= maxLen {
			if b > limit {
				break
			}
			return fmt.Sprintf("NVARCHAR(%d)", b)
		}
	}
	if maxLen <= limit {
		return fmt.Sprintf("NVARCHAR(%d)", limit)
	}
	return SQLTypeText
}

// IntegerType picks INT or BIGINT for an integral range.
func IntegerType(maxAbs float64) string {
	if maxAbs <= math.MaxInt32 {
		return SQLTypeInt
	}
	return SQLTypeBigInt
}

// WideningType returns a relational type able to hold every observed tag.
func WideningType(tags []models.TypeTag, maxLen int, allIntegral bool, maxAbs float64, opts config.AnalysisOptions) string {
	set := make(map[models.TypeTag]bool)
	for _, t := range tags {
		if t != models.TypeNull {
			set[t] = true
		}
	}

	switch {
	case len(set) == 0:
		return SQLTypeNullOnly
	case set[models.TypeObject] || set[models.TypeArray]:
		return SQLTypeText
	case len(set) == 1:
		for t := range set {
			return scalarType(t, maxLen, allIntegral, maxAbs, opts)
		}
	case len(set) == 2 && set[models.TypeNumber] && set[models.TypeBoolean]:
		// Booleans widen to 0/1.
		if allIntegral {
			return IntegerType(maxAbs)
		}
		return SQLTypeFloat
	}
	return VarcharType(max(maxLen, minWideningLength), opts.MaxStringLengthForVarchar)
}

func scalarType(tag models.TypeTag, maxLen int, allIntegral bool, maxAbs float64, opts config.AnalysisOptions) string {
	switch tag {
	case models.TypeString:
		return VarcharType(maxLen, opts.MaxStringLengthForVarchar)
	case models.TypeNumber:
		if allIntegral {
			return IntegerType(maxAbs)
		}
		return SQLTypeFloat
	case models.TypeBoolean:
		return SQLTypeBit
	case models.TypeDate:
		return SQLTypeDateTime
	case models.TypeObject, models.TypeArray:
		return SQLTypeText
	default:
		return SQLTypeNullOnly
	}
}

// RecommendType chooses the relational type for a field. A dominant type
// covering at least the dominance threshold of non-null observations wins;
// otherwise the field widens.
func RecommendType(f *models.FieldInfo, opts config.AnalysisOptions) string {
	dominant := f.DominantType()
	if dominant == models.TypeNull {
		return SQLTypeNullOnly
	}
	nonNull := 0
	for tag, c := range f.TypeCounts {
		if tag != models.TypeNull {
			nonNull += c
		}
	}
	if nonNull > 0 && float64(f.TypeCounts[dominant])/float64(nonNull) >= opts.TypeDominanceThreshold {
		return scalarType(dominant, f.MaxLength, f.AllIntegral, f.MaxAbsNumber, opts)
	}
	return WideningType(f.DetectedTypes, f.MaxLength, f.AllIntegral, f.MaxAbsNumber, opts)
}
