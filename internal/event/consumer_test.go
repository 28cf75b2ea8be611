package event

import (
	"context"
	"errors"
	"testing"

	"learning-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

type fakeRecorder struct {
	err   error
	calls int
}

func (r *fakeRecorder) RecordActivity(ctx context.Context, childID string) (*models.Streak, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &models.Streak{ChildID: childID, Current: 1}, nil
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	validBody := []byte(`{"type":"activity.recorded.lesson","payload":{"child_id":"child-1"}}`)

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		recorderErr error
		wantAck     bool
		wantRequeue bool
	}{
		{
			name:    "valid event is acked",
			body:    validBody,
			wantAck: true,
		},
		{
			name: "malformed body is dropped",
			body: []byte(`{not json`),
		},
		{
			name: "missing child id is dropped",
			body: []byte(`{"type":"activity.recorded.lesson","payload":{}}`),
		},
		{
			name:        "first failure requeues",
			body:        validBody,
			recorderErr: errors.New("store down"),
			wantRequeue: true,
		},
		{
			name:        "second failure is dropped",
			body:        validBody,
			redelivered: true,
			recorderErr: errors.New("store down"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &fakeRecorder{err: tt.recorderErr}
			consumer := &EventConsumer{recorder: recorder}
			ack := &fakeAcknowledger{}

			consumer.handleDelivery(amqp091.Delivery{
				Acknowledger: ack,
				Body:         tt.body,
				Redelivered:  tt.redelivered,
			})

			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Error("delivery neither acked nor nacked")
			}
			if ack.nacked && ack.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", ack.requeue, tt.wantRequeue)
			}
		})
	}
}
