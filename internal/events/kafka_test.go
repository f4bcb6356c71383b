package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaSinkForwardsEvents(t *testing.T) {
	writer := new(mockWriter)
	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = append(sent, args.Get(1).([]kafka.Message)...) }).
		Return(nil)

	bus := NewEventBus()
	sink := NewKafkaSinkWithWriter(writer, nil)
	sink.Attach(bus, AllTypes...)

	require.NoError(t, bus.PublishJSON(context.Background(), "carwash", EventBookingCreated, BookingPayload{BookingID: "b1"}))

	require.Len(t, sent, 1)
	assert.Equal(t, []byte("carwash"), sent[0].Key)
	assert.Contains(t, string(sent[0].Value), `"booking_id":"b1"`)

	headers := map[string]string{}
	for _, h := range sent[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventBookingCreated, headers["event_type"])
	assert.NotEmpty(t, headers["event_id"])
	writer.AssertExpectations(t)
}

func TestKafkaSinkReportsFailures(t *testing.T) {
	writer := new(mockWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	writer.On("Close").Return(nil)

	bus := NewEventBus()
	var failures int
	bus.OnError(func(_ *Event, _ error) { failures++ })

	sink := NewKafkaSinkWithWriter(writer, nil)
	sink.Attach(bus, EventQuoteIssued)

	require.NoError(t, bus.PublishJSON(context.Background(), "carwash", EventQuoteIssued, QuotePayload{}))
	assert.Equal(t, 1, failures)
	assert.NoError(t, sink.Close())
}
