package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "plain", in: "2024-01-05", want: NewDate(2024, time.January, 5)},
		{name: "rfc3339 truncated", in: "2024-02-29T10:11:12Z", want: NewDate(2024, time.February, 29)},
		{name: "padded", in: "  2024-03-01 ", want: NewDate(2024, time.March, 1)},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "05/01/2024", wantErr: true},
		{name: "impossible day", in: "2023-02-29", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ParseDateOrZero(tt.in).IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2024-01-31", NewDate(2024, time.March, 0).AddDays(-29).String())
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, -3, d.DaysUntil(d.AddDays(-3)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.Equal(t, 0, d.Compare(NewDate(2024, time.February, 28)))
	assert.Equal(t, time.Wednesday, d.Weekday())
}

func TestDaysUntilAcrossCenturies(t *testing.T) {
	from := NewDate(1700, time.January, 1)
	to := NewDate(2024, time.January, 5)
	assert.Equal(t, 118342, from.DaysUntil(to))
	assert.Equal(t, -118342, to.DaysUntil(from))
	assert.Equal(t, to, from.AddDays(from.DaysUntil(to)))
	assert.Equal(t, 45294, MinDate.DaysUntil(to))
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Join Date `json:"join"`
	}

	b, err := json.Marshal(payload{Join: NewDate(2024, time.January, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"join":"2024-01-01"}`, string(b))

	b, err = json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"join":null}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"join":""}`), &p))
	assert.True(t, p.Join.IsZero())
	require.Error(t, json.Unmarshal([]byte(`{"join":"yesterday"}`), &p))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2024, time.May, 6), d)

	require.NoError(t, d.Scan([]byte("not a date")))
	assert.True(t, d.IsZero())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(2024, time.May, 6).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", v)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:31:05")
	require.NoError(t, err)
	assert.Equal(t, "09:31:05", got.String())
	assert.True(t, got.After(NewTimeOfDay(9, 30, 0)))

	got, err = ParseTimeOfDay("18:00")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(18, 0, 0), got)

	_, err = ParseTimeOfDay("25:00:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("noon")
	assert.Error(t, err)
}
