package mailer

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LogProvider writes messages to the logger instead of sending them. Used
// when no Resend key is configured.
type LogProvider struct {
	Logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{Logger: logger}
}

func (l *LogProvider) Name() string {
	return "log"
}

func (l *LogProvider) Send(msg Message) (SendResult, error) {
	id := "log-" + uuid.NewString()
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	l.Logger.Info("mailer: message logged, not sent",
		"from", msg.From,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"attachments", strings.Join(names, ", "),
		"message_id", id,
	)
	if msg.Text != "" {
		l.Logger.Info("mailer: text body", "message_id", id, "text", msg.Text)
	}
	return SendResult{ProviderMessageID: id}, nil
}
