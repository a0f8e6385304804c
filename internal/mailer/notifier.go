package mailer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jobdesk/apiserver/internal/mq"
)

// ChannelOTPMail is the broker channel carrying pending OTP mails.
const ChannelOTPMail = "otp-mail"

type otpMailEvent struct {
	To   string `json:"to"`
	Name string `json:"name"`
	OTP  string `json:"otp"`
}

// Notifier hands OTP mail off to the broker when one is configured and
// falls back to sending directly otherwise.
type Notifier struct {
	queue  *mq.MQ
	sender Sender
}

func NewNotifier(queue *mq.MQ, sender Sender) *Notifier {
	return &Notifier{queue: queue, sender: sender}
}

func (n *Notifier) NotifyOTP(ctx context.Context, to, name, otp string) error {
	if n.queue == nil {
		return n.sender.SendOTP(to, name, otp)
	}

	data, err := json.Marshal(otpMailEvent{To: to, Name: name, OTP: otp})
	if err != nil {
		return err
	}
	_, err = n.queue.Publish(ctx, ChannelOTPMail, data, nil)
	return err
}

// Worker drains the OTP mail channel and delivers each event through the
// sender. Run blocks until the context is cancelled.
type Worker struct {
	queue  *mq.MQ
	sender Sender
}

func NewWorker(queue *mq.MQ, sender Sender) *Worker {
	return &Worker{queue: queue, sender: sender}
}

func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Subscribe(ctx, ChannelOTPMail, func(ctx context.Context, msg mq.Message) error {
		var event otpMailEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Malformed payloads are dropped, not requeued.
			slog.Error("dropping malformed otp mail event", "message_id", msg.ID, "error", err)
			return nil
		}
		return w.sender.SendOTP(event.To, event.Name, event.OTP)
	})
}
