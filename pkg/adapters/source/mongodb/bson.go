package mongodb

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// ToValue converts a decoded BSON value into the document value model.
// Documents keep their field order.
func ToValue(in any) models.Value {
	switch x := in.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return models.Null()
	case bool:
		return models.Bool(x)
	case string:
		return models.String(x)
	case int32:
		return models.Int(int64(x))
	case int64:
		return models.Int(x)
	case int:
		return models.Int(int64(x))
	case float64:
		return models.Number(x)
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return models.String(x.String())
		}
		return models.Number(f)
	case primitive.ObjectID:
		return models.String(x.Hex())
	case primitive.DateTime:
		return models.Date(x.Time().UTC())
	case time.Time:
		return models.Date(x.UTC())
	case primitive.Timestamp:
		return models.Date(time.Unix(int64(x.T), 0).UTC())
	case primitive.Binary:
		return models.String(base64.StdEncoding.EncodeToString(x.Data))
	case primitive.Regex:
		return models.String(x.String())
	case primitive.Symbol:
		return models.String(string(x))
	case primitive.JavaScript:
		return models.String(string(x))
	case primitive.D:
		fields := make([]models.Field, len(x))
		for i, e := range x {
			fields[i] = models.F(e.Key, ToValue(e.Value))
		}
		return models.Object(fields...)
	case primitive.M:
		return models.FromInterface(plainMap(x))
	case primitive.A:
		items := make([]models.Value, len(x))
		for i, item := range x {
			items[i] = ToValue(item)
		}
		return models.Array(items...)
	case []any:
		return ToValue(primitive.A(x))
	default:
		return models.String(fmt.Sprint(x))
	}
}

// plainMap converts unordered BSON maps for FromInterface, which sorts keys.
func plainMap(m primitive.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = ToValue(v)
	}
	return out
}

// DocumentFromRaw decodes one raw BSON document.
func DocumentFromRaw(raw bson.Raw) (models.Value, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return models.Value{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return ToValue(doc), nil
}
