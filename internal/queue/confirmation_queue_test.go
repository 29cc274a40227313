package queue

import (
	"context"
	"testing"
	"time"

	"mockexam-registration/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfirmation() *Confirmation {
	subject := model.SubjectBiology
	return &Confirmation{
		ReservationID: "0b4f0c1e-1111-2222-3333-444455556666",
		ExamCode:      "FREE-K9QD-BIOLOGY",
		SessionTime:   model.SessionMorning,
		ExamDate:      "2026-03-14",
		PackageTier:   model.TierFree,
		Subject:       &subject,
	}
}

func receiveDelivery(t *testing.T, deliveries <-chan Delivery) Delivery {
	t.Helper()
	select {
	case d := <-deliveries:
		return d
	case <-time.After(time.Second):
		t.Fatal("no delivery arrived")
		return Delivery{}
	}
}

func TestConfirmationQueue_PublishSubscribeRoundTrip(t *testing.T) {
	q := NewConfirmationQueue(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := q.SubscribeConfirmations(ctx)
	require.NoError(t, err)

	require.NoError(t, q.PublishConfirmation(ctx, sampleConfirmation()))

	d := receiveDelivery(t, deliveries)
	require.NotNil(t, d.Data)
	assert.Equal(t, "FREE-K9QD-BIOLOGY", d.Data.ExamCode)
	assert.Equal(t, model.TierFree, d.Data.PackageTier)
	d.Ack()
}

func TestConfirmationQueue_NackRequeues(t *testing.T) {
	q := NewConfirmationQueue(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := q.SubscribeConfirmations(ctx)
	require.NoError(t, err)

	require.NoError(t, q.PublishConfirmation(ctx, sampleConfirmation()))

	first := receiveDelivery(t, deliveries)
	first.Nack(true)

	second := receiveDelivery(t, deliveries)
	require.NotNil(t, second.Data)
	assert.Equal(t, first.Data.ReservationID, second.Data.ReservationID, "a requeued confirmation comes back around")
	second.Ack()
}

func TestConfirmationQueue_SubscribeStopsOnCancel(t *testing.T) {
	q := NewConfirmationQueue(16)
	ctx, cancel := context.WithCancel(context.Background())

	deliveries, err := q.SubscribeConfirmations(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-deliveries:
		assert.False(t, open, "the delivery channel closes after cancellation")
	case <-time.After(time.Second):
		t.Fatal("delivery channel did not close")
	}
}
