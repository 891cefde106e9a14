package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// DateKind tags which representation a DateLike carries.
type DateKind uint8

const (
	DateNone DateKind = iota
	DateEpoch
	DateISO
	DateNative
	DateTimestamp
)

// Timestamp is the seconds/nanoseconds wrapper document stores emit for date fields.
type Timestamp struct {
	Seconds     int64 `json:"seconds" bson:"seconds"`
	Nanoseconds int32 `json:"nanoseconds" bson:"nanoseconds"`
}

// ToDate converts the wrapper to a UTC time.
func (t Timestamp) ToDate() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds)).UTC()
}

type dateConverter interface {
	ToDate() time.Time
}

// DateLike is a date field as found in stored records: epoch milliseconds, a
// date string, a native time or a timestamp wrapper. It encodes back in the
// shape it was decoded from so whole-array writes do not rewrite untouched dates.
type DateLike struct {
	Kind        DateKind
	EpochMillis float64
	Text        string
	Native      time.Time
	Stamp       Timestamp

	underscored bool
}

// EpochDate builds a DateLike from epoch milliseconds.
func EpochDate(ms float64) DateLike { return DateLike{Kind: DateEpoch, EpochMillis: ms} }

// ISODate builds a DateLike from a date string.
func ISODate(s string) DateLike { return DateLike{Kind: DateISO, Text: s} }

// NativeDate builds a DateLike from a time value.
func NativeDate(t time.Time) DateLike { return DateLike{Kind: DateNative, Native: t} }

// TimestampDate builds a DateLike from a timestamp wrapper.
func TimestampDate(ts Timestamp) DateLike { return DateLike{Kind: DateTimestamp, Stamp: ts} }

// DateFromValue classifies a loosely typed value. Unknown shapes yield an empty DateLike.
func DateFromValue(v interface{}) DateLike {
	switch val := v.(type) {
	case nil:
		return DateLike{}
	case DateLike:
		return val
	case *DateLike:
		if val == nil {
			return DateLike{}
		}
		return *val
	case string:
		return ISODate(val)
	case time.Time:
		return NativeDate(val)
	case *time.Time:
		if val == nil {
			return DateLike{}
		}
		return NativeDate(*val)
	case Timestamp:
		return TimestampDate(val)
	case dateConverter:
		return NativeDate(val.ToDate())
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return DateLike{}
		}
		return EpochDate(f)
	case float64:
		return EpochDate(val)
	case float32:
		return EpochDate(float64(val))
	case int:
		return EpochDate(float64(val))
	case int64:
		return EpochDate(float64(val))
	case int32:
		return EpochDate(float64(val))
	case map[string]interface{}:
		return dateFromWrapperMap(val)
	default:
		return DateLike{}
	}
}

func dateFromWrapperMap(m map[string]interface{}) DateLike {
	secKey, nanoKey, underscored := "seconds", "nanoseconds", false
	if _, ok := m[secKey]; !ok {
		secKey, nanoKey, underscored = "_seconds", "_nanoseconds", true
	}
	rawSeconds, ok := m[secKey]
	if !ok {
		return DateLike{}
	}
	seconds, err := wrapperInt(rawSeconds)
	if err != nil {
		return DateLike{}
	}
	nanos, _ := wrapperInt(m[nanoKey])
	d := TimestampDate(Timestamp{Seconds: seconds, Nanoseconds: int32(nanos)})
	d.underscored = underscored
	return d
}

func wrapperInt(v interface{}) (int64, error) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		return int64(f), err
	}
	return cast.ToInt64E(v)
}

// IsZero reports whether no date was supplied at all.
func (d DateLike) IsZero() bool {
	return d.Kind == DateNone
}

// Time resolves the value to a UTC time. Unparsable or empty input returns false.
func (d DateLike) Time() (time.Time, bool) {
	switch d.Kind {
	case DateEpoch:
		if math.IsNaN(d.EpochMillis) || math.IsInf(d.EpochMillis, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(d.EpochMillis)).UTC(), true
	case DateISO:
		text := strings.TrimSpace(d.Text)
		if text == "" {
			return time.Time{}, false
		}
		t, err := cast.StringToDate(text)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case DateNative:
		if d.Native.IsZero() {
			return time.Time{}, false
		}
		return d.Native.UTC(), true
	case DateTimestamp:
		return d.Stamp.ToDate(), true
	default:
		return time.Time{}, false
	}
}

// TimePtr is Time returning nil for unparsable input.
func (d DateLike) TimePtr() *time.Time {
	t, ok := d.Time()
	if !ok {
		return nil
	}
	return &t
}

// String renders the calendar day when parsable and the trimmed source text otherwise.
func (d DateLike) String() string {
	if t, ok := d.Time(); ok {
		return t.Format("2006-01-02")
	}
	if d.Kind == DateISO {
		return strings.TrimSpace(d.Text)
	}
	return ""
}

// MarshalJSON writes the value back in its original representation.
func (d DateLike) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DateEpoch:
		return json.Marshal(d.EpochMillis)
	case DateISO:
		return json.Marshal(d.Text)
	case DateNative:
		return json.Marshal(d.Native.UTC().Format(time.RFC3339Nano))
	case DateTimestamp:
		if d.underscored {
			return json.Marshal(map[string]int64{"_seconds": d.Stamp.Seconds, "_nanoseconds": int64(d.Stamp.Nanoseconds)})
		}
		return json.Marshal(d.Stamp)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts strings, numbers and seconds/nanoseconds wrapper objects.
func (d *DateLike) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = DateLike{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*d = DateLike{}
			return nil
		}
		*d = ISODate(s)
	case '{':
		var m map[string]interface{}
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.UseNumber()
		if err := decoder.Decode(&m); err != nil {
			*d = DateLike{}
			return nil
		}
		*d = dateFromWrapperMap(m)
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			*d = DateLike{}
			return nil
		}
		*d = EpochDate(f)
	}
	return nil
}

// MarshalBSONValue writes the value back in its original representation.
func (d DateLike) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch d.Kind {
	case DateEpoch:
		return bson.MarshalValue(d.EpochMillis)
	case DateISO:
		return bson.MarshalValue(d.Text)
	case DateNative:
		return bson.MarshalValue(d.Native.UTC())
	case DateTimestamp:
		if d.underscored {
			return bson.MarshalValue(bson.D{{Key: "_seconds", Value: d.Stamp.Seconds}, {Key: "_nanoseconds", Value: d.Stamp.Nanoseconds}})
		}
		return bson.MarshalValue(bson.D{{Key: "seconds", Value: d.Stamp.Seconds}, {Key: "nanoseconds", Value: d.Stamp.Nanoseconds}})
	default:
		return bsontype.Null, nil, nil
	}
}

// UnmarshalBSONValue accepts strings, numbers, datetimes, timestamps and wrapper documents.
func (d *DateLike) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*d = ISODate(raw.StringValue())
	case bsontype.Double:
		*d = EpochDate(raw.Double())
	case bsontype.Int32:
		*d = EpochDate(float64(raw.Int32()))
	case bsontype.Int64:
		*d = EpochDate(float64(raw.Int64()))
	case bsontype.DateTime:
		*d = NativeDate(time.UnixMilli(raw.DateTime()).UTC())
	case bsontype.Timestamp:
		seconds, _ := raw.Timestamp()
		*d = TimestampDate(Timestamp{Seconds: int64(seconds)})
	case bsontype.EmbeddedDocument:
		var m map[string]interface{}
		if err := raw.Unmarshal(&m); err != nil {
			*d = DateLike{}
			return nil
		}
		*d = dateFromWrapperMap(m)
	default:
		*d = DateLike{}
	}
	return nil
}

// GoString keeps test failure output readable.
func (d DateLike) GoString() string {
	return fmt.Sprintf("DateLike{%d %q}", d.Kind, d.String())
}
