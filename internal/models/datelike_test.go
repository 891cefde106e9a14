package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type dateHolder struct {
	Date DateLike `json:"date" bson:"date"`
}

func TestDateLikeJSONKeepsShape(t *testing.T) {
	inputs := []string{
		`{"date":"2024-01-31"}`,
		`{"date":1706659200000}`,
		`{"date":{"seconds":1706659200,"nanoseconds":0}}`,
		`{"date":{"_nanoseconds":0,"_seconds":1706659200}}`,
		`{"date":null}`,
	}
	for _, input := range inputs {
		var holder dateHolder
		require.NoError(t, json.Unmarshal([]byte(input), &holder), input)

		out, err := json.Marshal(holder)
		require.NoError(t, err)
		assert.JSONEq(t, input, string(out))
	}
}

func TestDateLikeJSONResolvesSameInstant(t *testing.T) {
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{
		`{"date":"2024-01-31"}`,
		`{"date":"2024-01-31T00:00:00Z"}`,
		`{"date":1706659200000}`,
		`{"date":{"seconds":1706659200,"nanoseconds":0}}`,
		`{"date":{"_seconds":1706659200,"_nanoseconds":0}}`,
	} {
		var holder dateHolder
		require.NoError(t, json.Unmarshal([]byte(input), &holder))
		got, ok := holder.Date.Time()
		require.True(t, ok, input)
		assert.True(t, want.Equal(got), input)
		assert.Equal(t, "2024-01-31", holder.Date.String())
	}
}

func TestDateLikeJSONToleratesGarbage(t *testing.T) {
	for _, input := range []string{`{"date":true}`, `{"date":[1]}`, `{"date":{"foo":1}}`, `{"date":"soon"}`, `{"date":""}`} {
		var holder dateHolder
		require.NoError(t, json.Unmarshal([]byte(input), &holder), input)
		_, ok := holder.Date.Time()
		assert.False(t, ok, input)
		assert.Nil(t, holder.Date.TimePtr())
	}
}

func TestDateFromValue(t *testing.T) {
	ts := Timestamp{Seconds: 1706659200}
	assert.Equal(t, DateTimestamp, DateFromValue(ts).Kind)
	assert.Equal(t, DateEpoch, DateFromValue(int64(1706659200000)).Kind)
	assert.Equal(t, DateISO, DateFromValue("2024-01-31").Kind)
	assert.Equal(t, DateNative, DateFromValue(time.Now()).Kind)
	assert.Equal(t, DateTimestamp, DateFromValue(map[string]interface{}{"_seconds": 1706659200}).Kind)
	assert.True(t, DateFromValue(struct{}{}).IsZero())
	assert.True(t, DateFromValue(nil).IsZero())
}

func TestDateLikeBSONRoundTrip(t *testing.T) {
	values := []DateLike{
		ISODate("2024-01-31"),
		EpochDate(1706659200000),
		NativeDate(time.Date(2024, 1, 31, 8, 30, 0, 0, time.UTC)),
		TimestampDate(Timestamp{Seconds: 1706659200, Nanoseconds: 5}),
		DateFromValue(map[string]interface{}{"_seconds": int64(1706659200), "_nanoseconds": int64(0)}),
		{},
	}
	for _, value := range values {
		data, err := bson.Marshal(dateHolder{Date: value})
		require.NoError(t, err)

		var decoded dateHolder
		require.NoError(t, bson.Unmarshal(data, &decoded))
		assert.Equal(t, value, decoded.Date)
	}
}

func TestComplianceDocumentListScanValue(t *testing.T) {
	list := ComplianceDocumentList{
		{ID: "d1", Type: "Tax Clearance", ExpiryDate: EpochDate(1706659200000)},
		{Type: "BBBEE", ExpiryDate: ISODate("2024-02-01")},
	}
	value, err := list.Value()
	require.NoError(t, err)

	var scanned ComplianceDocumentList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))

	empty, err := ComplianceDocumentList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), empty)
}

func TestComplianceDocumentListBSONWithMissingDates(t *testing.T) {
	list := ComplianceDocumentList{
		{Type: "Tax Clearance", Status: "valid", URL: "u", ExpiryDate: ISODate("2025-01-01")},
		{Type: "BBBEE"},
	}
	data, err := bson.Marshal(bson.M{"complianceDocuments": list})
	require.NoError(t, err)

	raw := bson.Raw(data)
	issue := raw.Lookup("complianceDocuments", "0", "issueDate")
	assert.Equal(t, bsontype.Null, issue.Type)

	var decoded struct {
		ComplianceDocuments ComplianceDocumentList `bson:"complianceDocuments"`
	}
	require.NoError(t, bson.Unmarshal(data, &decoded))
	require.Len(t, decoded.ComplianceDocuments, 2)
	assert.True(t, decoded.ComplianceDocuments[0].IssueDate.IsZero())
	assert.Equal(t, "2025-01-01", decoded.ComplianceDocuments[0].ExpiryDate.String())
	assert.True(t, decoded.ComplianceDocuments[1].ExpiryDate.IsZero())
}
