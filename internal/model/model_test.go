package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestStore_IsOpenAt(t *testing.T) {
	tests := []struct {
		name             string
		opening, closing TimeOfDay
		now              time.Time
		want             bool
	}{
		{"same day inside", NewTimeOfDay(9, 0, 0), NewTimeOfDay(17, 0, 0), at(12, 0), true},
		{"same day at opening", NewTimeOfDay(9, 0, 0), NewTimeOfDay(17, 0, 0), at(9, 0), true},
		{"same day at closing", NewTimeOfDay(9, 0, 0), NewTimeOfDay(17, 0, 0), at(17, 0), false},
		{"same day before", NewTimeOfDay(9, 0, 0), NewTimeOfDay(17, 0, 0), at(8, 59), false},
		{"overnight late evening", NewTimeOfDay(22, 0, 0), NewTimeOfDay(6, 0, 0), at(23, 0), true},
		{"overnight early morning", NewTimeOfDay(22, 0, 0), NewTimeOfDay(6, 0, 0), at(3, 30), true},
		{"overnight midday", NewTimeOfDay(22, 0, 0), NewTimeOfDay(6, 0, 0), at(12, 0), false},
		{"overnight at closing", NewTimeOfDay(22, 0, 0), NewTimeOfDay(6, 0, 0), at(6, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{OpeningTime: tt.opening, ClosingTime: tt.closing}
			assert.Equal(t, tt.want, s.IsOpenAt(tt.now))
		})
	}
}

func TestTimeOfDay_ParseAndFormat(t *testing.T) {
	v, err := ParseTimeOfDay("22:30")
	require.NoError(t, err)
	assert.Equal(t, "22:30:00", v.String())

	v, err = ParseTimeOfDay("06:05:09")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(6, 5, 9), v)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDay_JSON(t *testing.T) {
	var payload struct {
		Opening TimeOfDay `json:"opening"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"opening":"08:15"}`), &payload))
	assert.Equal(t, NewTimeOfDay(8, 15, 0), payload.Opening)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"opening":"08:15:00"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"opening":"noon"}`), &payload))
}

func TestUser_Age(t *testing.T) {
	u := &User{BirthDate: time.Date(2010, 6, 15, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 15, u.Age(time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 16, u.Age(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, OrderStatusPreparing.Valid())
	assert.False(t, OrderStatus("Shipped").Valid())

	assert.True(t, OrderStatusAccepted.Notifies())
	assert.True(t, OrderStatusRejected.Notifies())
	assert.False(t, OrderStatusNew.Notifies())
	assert.False(t, OrderStatusPreparing.Notifies())
}

func TestStore_DisplayName(t *testing.T) {
	s := &Store{Name: "Kusina", Address: Address{City: "Cebu"}}
	assert.Equal(t, "Kusina - Cebu", s.DisplayName())
	assert.Equal(t, s.DisplayName(), OrderStore{Name: "Kusina", City: "Cebu"}.DisplayName())
	assert.Equal(t, "Kusina", OrderStore{Name: "Kusina"}.DisplayName())
}
