package worker

import (
	"context"

	"mockexam-registration/internal/queue"
	"mockexam-registration/pkg/logger"

	"go.uber.org/zap"
)

// Notifier delivers a reservation confirmation to the registrant. The mail/SMS
// integration lives behind this interface; LogNotifier is the in-repo implementation.
type Notifier interface {
	NotifyReservationConfirmed(ctx context.Context, confirmation *queue.Confirmation) error
}

type LogNotifier struct{}

func NewLogNotifier() Notifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyReservationConfirmed(ctx context.Context, confirmation *queue.Confirmation) error {
	logger.WithComponent("notifier").Info("reservation confirmed",
		zap.String("reservation_id", confirmation.ReservationID),
		zap.String("exam_code", confirmation.ExamCode),
		zap.String("session_time", string(confirmation.SessionTime)),
		zap.String("exam_date", confirmation.ExamDate),
		zap.String("package_tier", string(confirmation.PackageTier)),
	)
	return nil
}

type ConfirmationWorker interface {
	// 訂閱確認通知隊列
	Start(ctx context.Context) error
}

type ConfirmationWorkerImpl struct {
	notifier Notifier
	queue    queue.ConfirmationQueue
}

func NewConfirmationWorker(notifier Notifier, queue queue.ConfirmationQueue) ConfirmationWorker {
	return &ConfirmationWorkerImpl{
		notifier: notifier,
		queue:    queue,
	}
}

func (w *ConfirmationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeConfirmations(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			err := w.notifier.NotifyReservationConfirmed(ctx, msg.Data)

			if err != nil {
				// 通知暫時失敗就重回隊列延遲重試
				msg.Nack(true)
			} else {
				msg.Ack()
			}
		}
	}()
	return nil
}
