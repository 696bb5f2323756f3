package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

func TestToValue_Scalars(t *testing.T) {
	oid := primitive.NewObjectIDFromTimestamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	when := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	dec, err := primitive.ParseDecimal128("12.75")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want models.Value
	}{
		{"nil", nil, models.Null()},
		{"null", primitive.Null{}, models.Null()},
		{"bool", true, models.Bool(true)},
		{"string", "hi", models.String("hi")},
		{"int32", int32(7), models.Int(7)},
		{"int64", int64(1 << 40), models.Int(1 << 40)},
		{"double", 2.5, models.Number(2.5)},
		{"decimal128", dec, models.Number(12.75)},
		{"object id", oid, models.String(oid.Hex())},
		{"datetime", primitive.NewDateTimeFromTime(when), models.Date(when)},
		{"timestamp", primitive.Timestamp{T: uint32(when.Unix())}, models.Date(when)},
		{"binary", primitive.Binary{Data: []byte("abc")}, models.String("YWJj")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToValue(tt.in))
		})
	}
}

func TestToValue_NaNDecimalStaysString(t *testing.T) {
	nan, err := primitive.ParseDecimal128("NaN")
	require.NoError(t, err)
	assert.Equal(t, models.KindString, ToValue(nan).Kind)
}

func TestDocumentFromRaw_KeepsOrderAndNesting(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "o1"},
		{Key: "total", Value: 19.99},
		{Key: "customer", Value: bson.D{{Key: "name", Value: "Ann"}, {Key: "age", Value: int32(40)}}},
		{Key: "items", Value: bson.A{bson.D{{Key: "sku", Value: "A-1"}}, "loose"}},
	})
	require.NoError(t, err)

	v, err := DocumentFromRaw(raw)
	require.NoError(t, err)
	require.Equal(t, models.KindObject, v.Kind)

	keys := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"_id", "total", "customer", "items"}, keys)

	age, ok := v.Lookup("customer.age")
	require.True(t, ok)
	assert.Equal(t, models.Int(40), age)

	items, _ := v.Get("items")
	require.Len(t, items.Items, 2)
	assert.Equal(t, models.KindObject, items.Items[0].Kind)
	assert.Equal(t, models.String("loose"), items.Items[1])
}

func TestShardKeyPath(t *testing.T) {
	assert.Equal(t, "/customerId", shardKeyPath(map[string]any{"customerId": "hashed"}))
	assert.Equal(t, "", shardKeyPath(nil))
	assert.Equal(t, "", shardKeyPath(map[string]any{"a": 1, "b": 1}))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	err := classify(errors.New("request rate is large"))
	var se *storeError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.IsRetryable())

	err = classify(errors.New("unauthorized"))
	require.ErrorAs(t, err, &se)
	assert.False(t, se.IsRetryable())
}
