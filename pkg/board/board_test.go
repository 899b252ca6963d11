package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardCapacities(t *testing.T) {
	assert := assert.New(t)

	b := New()
	for i := 0; i < MaxDepartures+3; i++ {
		b.Departures.Append(Departure{Destination: "London Victoria"})
	}
	assert.Equal(MaxDepartures, b.Departures.Len())

	b.SetLocation("A station name that goes on and on well past the limit of the line")
	assert.Len(b.Location, LocationCapacity-1)

	assert.False(b.AddMessage("   "))
	for i := 0; i < MaxMessages; i++ {
		assert.True(b.AddMessage("Engineering works"))
	}
	assert.False(b.AddMessage("One too many"))
}

func TestBoardCloneDoesNotAlias(t *testing.T) {
	b := New()
	b.Departures.Append(Departure{Destination: "Brighton"})

	clone := b.Clone()
	clone.Departures.Items[0].Destination = "Hastings"

	assert.Equal(t, "Brighton", b.Departures.Items[0].Destination)

	b.Reset()
	assert.True(t, b.Empty())
	assert.Equal(t, "Hastings", clone.Departures.Items[0].Destination)
}

func TestDepartureStatus(t *testing.T) {
	tests := []struct {
		name      string
		departure Departure
		status    DepartureStatus
		expected  string
	}{
		{"OnTime", Departure{ScheduledTime: "10:00", ExpectedTime: "On time"}, DepartureStatusOnTime, "On time"},
		{"SameTime", Departure{ScheduledTime: "10:00", ExpectedTime: "10:00"}, DepartureStatusOnTime, "On time"},
		{"Late", Departure{ScheduledTime: "10:00", ExpectedTime: "10:07"}, DepartureStatusExpected, "10:07"},
		{"Delayed", Departure{ScheduledTime: "10:00", ExpectedTime: "Delayed"}, DepartureStatusDelayed, "Delayed"},
		{"Cancelled", Departure{ScheduledTime: "10:00", ExpectedTime: "Cancelled"}, DepartureStatusCancelled, "Cancelled"},
		{"CancelledFlag", Departure{ScheduledTime: "10:00", Cancelled: true}, DepartureStatusCancelled, "Cancelled"},
		{"Scheduled", Departure{ScheduledTime: "10:00"}, DepartureStatusScheduled, "On time"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			departure := test.departure
			departure.UpdateStatus()

			assert.Equal(t, test.status, departure.Status)
			assert.Equal(t, test.expected, departure.Expected())
		})
	}
}

func TestFilter(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"1", "2A", "X5"}, ParseList(" 1, 2a,,x5 ,1"))

	var none *Filter
	assert.True(none.Match("7", Departure{}))
	assert.True(none.Empty())

	platforms, err := NewFilter("1,2", "")
	assert.Nil(err)
	assert.True(platforms.Match("2", Departure{}))
	assert.False(platforms.Match("3", Departure{}))
	assert.Equal("1,2", platforms.Values())

	expression, err := NewFilter("", `Operator != "Southern" && !Cancelled`)
	assert.Nil(err)
	assert.True(expression.Match("", Departure{Operator: "Thameslink"}))
	assert.False(expression.Match("", Departure{Operator: "Southern"}))
	assert.False(expression.Match("", Departure{Operator: "Thameslink", Cancelled: true}))

	_, err = NewFilter("", `Operator ==`)
	assert.NotNil(err)
}
