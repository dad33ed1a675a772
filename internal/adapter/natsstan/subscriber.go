package natsstan

import (
	"context"
	"errors"
	"fmt"
	"time"

	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"

	"github.com/example/orders-service/internal/domain"
)

// Subscriber — приём payload'ов заказов из NATS Streaming.
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
	Log       *zap.Logger
}

func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("orders-svc-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()
	_, err = sc.QueueSubscribe(s.Subject, "orders-workers", func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handler(hCtx, m.Data); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				// Отравленное сообщение: переотправка его не починит,
				// подтверждаем и выбрасываем.
				s.Log.Warn("dropping invalid order payload", zap.Error(err))
			} else {
				// Не подтверждаем, даём сообщению переотправиться.
				s.Log.Error("handler error", zap.Error(err))
				return
			}
		}
		if err := m.Ack(); err != nil {
			s.Log.Error("ack failed", zap.Error(err))
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(10*time.Second), stan.DeliverAllAvailable())
	return err
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
