package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

var errNotValue = errors.New("unexpected delimiter")

// decodeValue reads one JSON value from dec, keeping object key order.
func decodeValue(dec *json.Decoder) (models.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return models.Value{}, err
	}
	return valueFrom(dec, tok)
}

func valueFrom(dec *json.Decoder, tok json.Token) (models.Value, error) {
	switch t := tok.(type) {
	case nil:
		return models.Null(), nil
	case bool:
		return models.Bool(t), nil
	case string:
		return models.String(t), nil
	case json.Number:
		return models.FromInterface(t), nil
	case float64:
		return models.Number(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
	}
	return models.Value{}, fmt.Errorf("%w %v", errNotValue, tok)
}

func decodeObject(dec *json.Decoder) (models.Value, error) {
	var fields []models.Field
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return models.Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return models.Value{}, fmt.Errorf("object key is %T, not a string", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return models.Value{}, err
		}
		// last duplicate key wins, at its first position
		if i, dup := index[key]; dup {
			fields[i].Value = v
			continue
		}
		index[key] = len(fields)
		fields = append(fields, models.F(key, v))
	}
	if _, err := dec.Token(); err != nil {
		return models.Value{}, err
	}
	return models.Object(fields...), nil
}

func decodeArray(dec *json.Decoder) (models.Value, error) {
	var items []models.Value
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return models.Value{}, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return models.Value{}, err
	}
	return models.Array(items...), nil
}

// isEOF reports a clean end of input.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
