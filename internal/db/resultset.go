package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the storage class of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBinary
)

func (k Kind) String() string {
	return []string{"null", "integer", "real", "text", "binary"}[k]
}

// Value is a single cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	Int   int64   // KindInteger
	Real  float64 // KindReal
	Text  string  // KindText
	Bytes []byte  // KindBinary
}

func Null() Value { return Value{} }

func Integer(v int64) Value { return Value{Kind: KindInteger, Int: v} }

func Real(v float64) Value { return Value{Kind: KindReal, Real: v} }

func Text(v string) Value { return Value{Kind: KindText, Text: v} }

func Binary(v []byte) Value { return Value{Kind: KindBinary, Bytes: v} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// valueOf converts what the driver scanned into a Value.
func valueOf(src any) Value {
	switch v := src.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(v)
	case int:
		return Integer(int64(v))
	case bool:
		if v {
			return Integer(1)
		}
		return Integer(0)
	case float64:
		return Real(v)
	case string:
		return Text(v)
	case []byte:
		return Binary(v)
	case time.Time:
		return Text(v.Format(time.RFC3339))
	default:
		return Text(fmt.Sprint(v))
	}
}

// Interface returns the Go value held by v, nil for null.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindReal:
		return v.Real
	case KindText:
		return v.Text
	case KindBinary:
		return v.Bytes
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.Kind == KindNull {
		return ""
	}
	if v.Kind == KindBinary {
		return fmt.Sprintf("%x", v.Bytes)
	}
	return fmt.Sprint(v.Interface())
}

// MarshalJSON encodes binary values as base64 and non-finite reals as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInteger:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case KindReal:
		if math.IsNaN(v.Real) || math.IsInf(v.Real, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Real)
	case KindText:
		return json.Marshal(v.Text)
	case KindBinary:
		return json.Marshal(v.Bytes)
	default:
		return []byte("null"), nil
	}
}

type Column struct {
	Ordinal  int
	Name     string
	Type     string
	Nullable bool
}

type Field struct {
	Name  string
	Value Value
}

// Row holds one Field per result column, in column order.
type Row []Field

// MarshalJSON writes the row as an object in column order. Repeated column
// names get a "#n" suffix so no value is lost.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	seen := make(map[string]int, len(r))

	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}

		name := f.Name
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s#%d", name, n)
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

type ResultSet struct {
	Query    string
	Columns  []Column
	Rows     []Row
	RowCount int
	Duration time.Duration
}

// ColumnNames returns the projection in order, duplicates included.
func (rs *ResultSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	rows := rs.Rows
	if rows == nil {
		rows = []Row{}
	}

	return json.Marshal(struct {
		Query   string   `json:"query"`
		Columns []string `json:"columns"`
		Rows    []Row    `json:"rows"`
		Count   int      `json:"count"`
	}{
		Query:   rs.Query,
		Columns: rs.ColumnNames(),
		Rows:    rows,
		Count:   rs.RowCount,
	})
}
