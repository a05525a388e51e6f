package profiler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// Profile computes the statistical summary for one column. It is a pure
// function of the column's values. Required counts and the quality level
// are always produced; the optional numeric/string stat blocks are
// omitted when they cannot be computed (all-null column).
func Profile(col connector.Column, position int, tableName, schemaName string) models.ColumnProfile {
	totalCount := len(col.Values)
	nullCount := 0
	distinct := make(map[any]struct{})
	for _, v := range col.Values {
		if v == nil {
			nullCount++
			continue
		}
		distinct[v] = struct{}{}
	}
	uniqueCount := len(distinct)

	var nullPct, uniquePct float64
	if totalCount > 0 {
		nullPct = round2(float64(nullCount) / float64(totalCount) * 100)
		uniquePct = round2(float64(uniqueCount) / float64(totalCount) * 100)
	}

	isNullable := "NO"
	if nullCount > 0 {
		isNullable = "YES"
	}

	profile := models.ColumnProfile{
		TableName:        tableName,
		SchemaName:       schemaName,
		ColumnName:       col.Name,
		OrdinalPosition:  position,
		InferredType:     InferredType(col.Kind),
		IsNullable:       isNullable,
		TotalCount:       totalCount,
		NullCount:        nullCount,
		NullPercentage:   nullPct,
		UniqueCount:      uniqueCount,
		UniquePercentage: uniquePct,
		QualityLevel:     qualityLevel(nullPct),
	}

	// Bool columns are numeric for profiling purposes, with true as 1
	// and false as 0.
	switch col.Kind {
	case connector.KindInt64, connector.KindFloat64, connector.KindBool:
		profile.NumericStats = numericStats(col.Values)
	case connector.KindObject:
		profile.StringStats = stringStats(col.Values)
	}

	return profile
}

// InferredType maps a storage kind to the catalog type classification.
// Unknown kinds default to VARCHAR.
func InferredType(kind connector.StorageKind) models.InferredType {
	switch kind {
	case connector.KindInt64:
		return models.TypeInteger
	case connector.KindFloat64:
		return models.TypeDecimal
	case connector.KindBool:
		return models.TypeBoolean
	case connector.KindDatetime:
		return models.TypeDatetime
	case connector.KindObject:
		return models.TypeVarchar
	default:
		return models.TypeVarchar
	}
}

// qualityLevel classifies completeness from the null percentage.
// Boundary values belong to the lower-severity bucket: exactly 10.00 is
// HIGH, exactly 30.00 is MEDIUM.
func qualityLevel(nullPct float64) models.QualityLevel {
	switch {
	case nullPct <= 10:
		return models.QualityHigh
	case nullPct <= 30:
		return models.QualityMedium
	default:
		return models.QualityLow
	}
}

// numericStats computes min/max/mean over the non-null values. The mean
// is left at full precision. Returns nil when every value is null.
func numericStats(values []any) *models.NumericStats {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case int64:
			nums = append(nums, float64(n))
		case float64:
			nums = append(nums, n)
		case bool:
			if n {
				nums = append(nums, 1)
			} else {
				nums = append(nums, 0)
			}
		}
	}
	if len(nums) == 0 {
		return nil
	}
	return &models.NumericStats{
		Min:  floats.Min(nums),
		Max:  floats.Max(nums),
		Mean: stat.Mean(nums, nil),
	}
}

// stringStats computes length statistics over the non-null values,
// coercing non-string scalars through their textual form.
// Returns nil when every value is null.
func stringStats(values []any) *models.StringStats {
	lengths := make([]int, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		lengths = append(lengths, len([]rune(s)))
	}
	if len(lengths) == 0 {
		return nil
	}

	minLen, maxLen, sum := lengths[0], lengths[0], 0
	for _, l := range lengths {
		if l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
		sum += l
	}
	return &models.StringStats{
		AvgLength: round2(float64(sum) / float64(len(lengths))),
		MaxLength: maxLen,
		MinLength: minLen,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
