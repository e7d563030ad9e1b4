package model

import (
	"encoding/json"
	"fmt"

	"github.com/cantina-labs/possync/localstore"
)

// Row codec helpers shared by every entity. Rows carry nested values as
// JSON-encoded text and booleans as 0/1 integers; these helpers keep the
// coercions in one place so all codecs behave identically.

func rowString(row localstore.Row, col string) string {
	v, _ := row[col].(string)
	return v
}

func rowFloat(row localstore.Row, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func rowInt(row localstore.Row, col string) int64 {
	switch v := row[col].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func rowBool(row localstore.Row, col string) bool {
	return rowInt(row, col) != 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// jsonText marshals a nested value for storage in a text column. The entity
// types are plain data, so marshalling cannot fail.
func jsonText(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// jsonInto decodes a JSON-encoded column into dst. A NULL or empty column
// leaves dst at its defaults (rows written by older schema versions simply
// lack the field); malformed JSON fails the read with ErrMalformedRow rather
// than silently substituting defaults.
func jsonInto(row localstore.Row, col string, dst any) error {
	raw := rowString(row, col)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("column %q: %w: %v", col, localstore.ErrMalformedRow, err)
	}
	return nil
}
