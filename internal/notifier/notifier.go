// Package notifier sends templated transactional emails and records the
// matching in-app notification.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/agregador/internal/model"
)

var (
	// ErrUnknownTemplate is returned for a tipo outside Types().
	ErrUnknownTemplate = errors.New("unknown notification type")
	// ErrInvalidRequest marks a request missing required fields.
	ErrInvalidRequest = errors.New("invalid notification request")
)

// Email is one outgoing message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// Request asks for one notification to one user.
type Request struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"nome"`
	Type    string `json:"tipo"`
	Details string `json:"detalhes,omitempty"`
}

func (r Request) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user_id is required: %w", ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("email %q: %w", r.Email, ErrInvalidRequest)
	}
	if _, ok := templates[r.Type]; !ok {
		return fmt.Errorf("%q: %w", r.Type, ErrUnknownTemplate)
	}
	return nil
}

// Dispatcher renders, persists and delivers notifications.
type Dispatcher struct {
	mailer Mailer
	store  model.NotificationStore
	logger *slog.Logger
	now    func() time.Time
}

func NewDispatcher(mailer Mailer, store model.NotificationStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, store: store, logger: logger, now: time.Now}
}

// Send persists the in-app notification, then emails the user. The returned
// notification is stored even when delivery fails.
func (d *Dispatcher) Send(ctx context.Context, req Request) (model.Notification, error) {
	if err := req.validate(); err != nil {
		return model.Notification{}, err
	}
	tmpl := templates[req.Type]
	data := templateData{Name: strings.TrimSpace(req.Name), Details: strings.TrimSpace(req.Details)}
	if data.Name == "" {
		data.Name = "utilizador"
	}

	message, err := render(tmpl.inApp, data)
	if err != nil {
		return model.Notification{}, err
	}
	body, err := render(tmpl.email, data)
	if err != nil {
		return model.Notification{}, err
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     tmpl.title,
		Message:   message,
		CreatedAt: d.now(),
	}
	if err := d.store.InsertNotification(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("storing notification: %w", err)
	}

	if err := d.mailer.Send(ctx, Email{To: req.Email, Subject: tmpl.title, Body: body}); err != nil {
		d.logger.Error("email delivery failed", "user_id", req.UserID, "tipo", req.Type, "error", err)
		return n, fmt.Errorf("sending email: %w", err)
	}

	d.logger.Info("notification sent", "user_id", req.UserID, "tipo", req.Type)
	return n, nil
}

// SendTestEmail sends a fixed message to verify the mailer configuration.
func SendTestEmail(ctx context.Context, m Mailer, to string) error {
	return m.Send(ctx, Email{
		To:      to,
		Subject: "Agregador: email de teste",
		Body:    "Se recebeu esta mensagem, o envio de emails está configurado correctamente.",
	})
}
