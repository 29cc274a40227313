package queue

import (
	"context"

	"mockexam-registration/internal/model"
)

// Confirmation 預約成功後要發給報名者的通知內容
type Confirmation struct {
	ReservationID string            `json:"reservation_id"`
	ExamCode      string            `json:"exam_code"`
	SessionTime   model.SessionTime `json:"session_time"`
	ExamDate      string            `json:"exam_date"`
	PackageTier   model.PackageTier `json:"package_tier"`
	Subject       *model.Subject    `json:"subject,omitempty"`
}

type Delivery struct {
	Data *Confirmation
	Ack  func()
	Nack func(requeue bool)
}

type ConfirmationQueue interface {
	// 發送確認通知到隊列；發送失敗不影響已成立的預約
	PublishConfirmation(ctx context.Context, confirmation *Confirmation) error
	// 訂閱確認通知隊列
	SubscribeConfirmations(ctx context.Context) (<-chan Delivery, error)
}

type ConfirmationQueueImpl struct {
	// channel-backed in-process queue; the Redis Stream implementation replaces it in prod
	ch chan *Confirmation
}

func NewConfirmationQueue(bufferSize int) ConfirmationQueue {
	return &ConfirmationQueueImpl{
		ch: make(chan *Confirmation, bufferSize),
	}
}

func (q *ConfirmationQueueImpl) PublishConfirmation(ctx context.Context, confirmation *Confirmation) error {
	q.ch <- confirmation
	return nil
}

func (q *ConfirmationQueueImpl) SubscribeConfirmations(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case confirmation, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: confirmation,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- confirmation
						}
					},
				}
			}
		}
	}()

	return out, nil
}
