package literal

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	jsoniter "github.com/json-iterator/go"
	mssql "github.com/microsoft/go-mssqldb"

	"proddump/internal/db"
)

// Codec is the local Literalizer. It renders values the way Postgres prints
// value::text and then applies QuoteLiteral.
type Codec struct {
	Rules Rules
}

var _ Literalizer = Codec{}

// Literal renders v for col. NULL yields NullKeyword, or ErrNullRaw for a
// raw column.
func (c Codec) Literal(col db.Column, v any) (string, error) {
	v, err := unwrap(v)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", col.Name, err)
	}
	if v == nil {
		if c.Rules.IsRaw(col.Name) {
			return "", ErrNullRaw
		}
		return NullKeyword, nil
	}
	s, err := Text(col.Type, v)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", col.Name, err)
	}
	return QuoteLiteral(s), nil
}

// Statement renders one INSERT statement for a row of table.
func (c Codec) Statement(table string, columns []db.Column, values []any) (string, error) {
	if len(values) != len(columns) {
		return "", fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	var b strings.Builder
	b.WriteString(InsertPrefix(table))
	for i, col := range columns {
		lit, err := c.Literal(col, values[i])
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(lit)
	}
	b.WriteString(InsertSuffix)
	return b.String(), nil
}

// unwrap resolves driver.Valuer values (pgtype.Numeric, pgtype.Interval, ...)
// into plain Go values. Values the codec formats itself are left alone.
func unwrap(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return v, nil
	case pgtype.Time:
		if !x.Valid {
			return nil, nil
		}
		return v, nil
	}
	if vr, ok := v.(driver.Valuer); ok {
		return vr.Value()
	}
	return v, nil
}

var binaryTypes = map[string]bool{
	"bytea": true, "blob": true, "tinyblob": true, "mediumblob": true,
	"longblob": true, "binary": true, "varbinary": true, "image": true,
}

// Text returns the Postgres text output of v for a column declared as typ.
//
// json and jsonb values are expected as their JSON text (string or []byte),
// which is written as is. Any other Go value in such a column is taken to be
// decoded JSON and marshalled, so a scalar keeps its JSON form.
func Text(typ string, v any) (string, error) {
	if isJSON(typ) {
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		default:
			return jsonText(typ, v)
		}
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return bytesText(typ, x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return floatText(float64(x), 32), nil
	case float64:
		return floatText(x, 64), nil
	case time.Time:
		return timeText(typ, x), nil
	case pgtype.Time:
		return clockText(time.Duration(x.Microseconds) * time.Microsecond), nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	case netip.Prefix:
		if typ == "inet" && x.IsSingleIP() {
			return x.Addr().String(), nil
		}
		return x.String(), nil
	case map[string]any:
		return jsonText("json", x)
	case []any:
		return arrayText(x)
	case fmt.Stringer:
		return x.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func bytesText(typ string, b []byte) string {
	if typ == "uniqueidentifier" && len(b) == 16 {
		var u mssql.UniqueIdentifier
		if err := u.Scan(b); err == nil {
			return strings.ToLower(u.String())
		}
	}
	if binaryTypes[typ] {
		return `\x` + hex.EncodeToString(b)
	}
	return string(b)
}

// floatText follows Postgres float output: shortest round-trip digits,
// exponent form outside [1e-4, 1e15) (1e6 for float4).
func floatText(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	maxExp := 15
	if bits == 32 {
		maxExp = 6
	}
	e := strconv.FormatFloat(f, 'e', -1, bits)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if f != 0 && (exp < -4 || exp >= maxExp) {
		return e
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func timeText(typ string, t time.Time) string {
	switch typ {
	case "date":
		return t.Format("2006-01-02")
	case "time", "time without time zone":
		h, m, sec := t.Clock()
		return clockText(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
			time.Duration(sec)*time.Second + time.Duration(t.Nanosecond()))
	case "timestamp with time zone", "timestamptz", "datetimeoffset":
		t = t.UTC()
		return t.Format("2006-01-02 15:04:05.999999") + offsetText(t)
	default:
		return t.Format("2006-01-02 15:04:05.999999")
	}
}

// offsetText prints a UTC offset as Postgres does: +HH, or +HH:MM.
func offsetText(t time.Time) string {
	_, off := t.Zone()
	sign := "+"
	if off < 0 {
		sign, off = "-", -off
	}
	s := fmt.Sprintf("%s%02d", sign, off/3600)
	if m := off % 3600 / 60; m != 0 {
		s += fmt.Sprintf(":%02d", m)
	}
	return s
}

// clockText prints a time of day as HH:MM:SS[.ffffff].
func clockText(d time.Duration) string {
	us := d.Microseconds()
	h, us := us/3_600_000_000, us%3_600_000_000
	m, us := us/60_000_000, us%60_000_000
	s, us := us/1_000_000, us%1_000_000
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if us != 0 {
		out += strings.TrimRight(fmt.Sprintf(".%06d", us), "0")
	}
	return out
}

func isJSON(typ string) bool { return typ == "json" || typ == "jsonb" }

var jsonAPI = jsoniter.Config{EscapeHTML: false, SortMapKeys: true}.Froze()

// jsonText renders decoded JSON. jsonb follows the server's canonical form:
// keys ordered by length then bytes, ", " and ": " separators. json has no
// canonical form once decoded and is written compact.
func jsonText(typ string, v any) (string, error) {
	if typ != "jsonb" {
		return jsonAPI.MarshalToString(v)
	}
	var b bytes.Buffer
	if err := writeJSONB(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSONB(b *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) < len(keys[j])
			}
			return keys[i] < keys[j]
		})
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeJSONB(b, k); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := writeJSONB(b, x[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeJSONB(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		raw, err := jsonAPI.Marshal(x)
		if err != nil {
			return err
		}
		b.Write(raw)
	}
	return nil
}

// arrayText renders a decoded array in Postgres array syntax: {a,"b c",NULL}.
func arrayText(elems []any) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		e, err := unwrap(e)
		if err != nil {
			return "", err
		}
		switch x := e.(type) {
		case nil:
			b.WriteString(NullKeyword)
		case []any:
			s, err := arrayText(x)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			s, err := Text("", x)
			if err != nil {
				return "", err
			}
			b.WriteString(arrayElem(s))
		}
	}
	b.WriteByte('}')
	return b.String(), nil
}

func arrayElem(s string) string {
	if s != "" && !strings.EqualFold(s, NullKeyword) && !strings.ContainsAny(s, "{}\",\\ \t\n\r\v\f") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
