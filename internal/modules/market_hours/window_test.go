package market_hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestService_Status(t *testing.T) {
	loc := newYork(t)
	svc := NewService()
	w := DefaultWindow()

	tests := []struct {
		name   string
		at     time.Time
		open   bool
		reason string
	}{
		{"tuesday mid session", time.Date(2024, 3, 12, 11, 0, 0, 0, loc), true, ""},
		{"exactly at open", time.Date(2024, 3, 12, 9, 30, 0, 0, loc), true, ""},
		{"before open", time.Date(2024, 3, 12, 9, 0, 0, 0, loc), false, "before market open"},
		{"at close", time.Date(2024, 3, 12, 16, 0, 0, 0, loc), false, "after market close"},
		{"saturday", time.Date(2024, 3, 16, 11, 0, 0, 0, loc), false, "not a trading day"},
		{"independence day", time.Date(2024, 7, 4, 11, 0, 0, 0, loc), false, "market holiday"},
		{"good friday", time.Date(2024, 3, 29, 11, 0, 0, 0, loc), false, "market holiday"},
		{"utc input converted", time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := svc.Status(w, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.open, st.Open)
			assert.Equal(t, tt.reason, st.Reason)
		})
	}
}

func TestService_CustomDaysWithoutHolidays(t *testing.T) {
	svc := NewService()
	w := Window{Timezone: "UTC", Days: []string{"sat", "sun"}, Open: "00:00", Close: "23:59"}

	open, err := svc.IsOpen(w, time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = svc.IsOpen(w, time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)

	holidays, err := svc.Holidays(w, 2024)
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

func TestWindow_Validate(t *testing.T) {
	assert.NoError(t, DefaultWindow().Validate())

	bad := []Window{
		{Timezone: "Mars/Olympus", Days: []string{"mon"}, Open: "09:00", Close: "10:00"},
		{Timezone: "UTC", Days: nil, Open: "09:00", Close: "10:00"},
		{Timezone: "UTC", Days: []string{"funday"}, Open: "09:00", Close: "10:00"},
		{Timezone: "UTC", Days: []string{"mon"}, Open: "9am", Close: "10:00"},
		{Timezone: "UTC", Days: []string{"mon"}, Open: "10:00", Close: "09:00"},
		{Timezone: "UTC", Days: []string{"mon"}, Open: "09:00", Close: "10:00", Holidays: "lse"},
	}
	for _, w := range bad {
		assert.Error(t, w.Validate(), "%+v", w)
	}
}

func TestUSHolidays(t *testing.T) {
	holidays := USHolidays(2024)
	require.Len(t, holidays, 10)

	expected := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, expected, holidays)
}

func TestCalculateEaster(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), CalculateEaster(2024))
	assert.Equal(t, time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC), CalculateEaster(2025))
}
