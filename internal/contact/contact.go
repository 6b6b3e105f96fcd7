// Package contact отправляет подписку на рассылку и сообщения формы обратной связи.
package contact

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/validation"
)

const phoneNotProvided = "Not provided"

// Backend описывает вызовы, которыми пользуется сервис.
type Backend interface {
	SubscribeNewsletter(ctx context.Context, email string) (string, error)
	SubmitForm(ctx context.Context, webhookURL string, values url.Values) error
}

// Message описывает сообщение формы обратной связи.
type Message struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type subscription struct {
	Email string `json:"email" validate:"required,email"`
}

// Service отправляет формы без учёта сессии.
type Service struct {
	backend    Backend
	webhookURL string
	notifier   notify.Notifier
	validator  *validation.Validator
	logger     *zap.Logger

	submitting atomic.Bool
}

// NewService создаёт сервис. webhookURL задаёт адрес внешнего приёмника формы.
func NewService(backend Backend, webhookURL string, notifier notify.Notifier, v *validation.Validator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:    backend,
		webhookURL: webhookURL,
		notifier:   notifier,
		validator:  v,
		logger:     logger,
	}
}

// Submitting сообщает, отправляется ли форма обратной связи.
func (s *Service) Submitting() bool {
	return s.submitting.Load()
}

// Subscribe подписывает адрес на рассылку.
func (s *Service) Subscribe(ctx context.Context, email string) error {
	if err := s.validator.Struct(subscription{Email: email}); err != nil {
		s.notifier.Error(validation.FirstMessage(err))
		return err
	}

	msg, err := s.backend.SubscribeNewsletter(ctx, email)
	if err != nil {
		s.logger.Warn("newsletter subscribe failed", zap.Error(err))
		s.notifier.Error(api.UserMessage(err, "Something went wrong. Please try again."))
		return fmt.Errorf("subscribe: %w", err)
	}

	if msg == "" {
		msg = "Successfully subscribed to newsletter!"
	}
	s.notifier.Success(msg)
	return nil
}

// SubmitContactForm отправляет сообщение во внешний приёмник. Ответ приёмника не читается:
// успехом считается любое завершение запроса без ошибки транспорта.
func (s *Service) SubmitContactForm(ctx context.Context, m Message) error {
	if err := s.validator.Struct(m); err != nil {
		s.notifier.Error(validation.FirstMessage(err))
		return err
	}

	s.submitting.Store(true)
	defer s.submitting.Store(false)

	phone := m.Phone
	if phone == "" {
		phone = phoneNotProvided
	}
	values := url.Values{
		"name":    {m.Name},
		"email":   {m.Email},
		"phone":   {phone},
		"subject": {m.Subject},
		"message": {m.Message},
	}

	if err := s.backend.SubmitForm(ctx, s.webhookURL, values); err != nil {
		s.logger.Warn("contact form submit failed", zap.Error(err))
		s.notifier.Error("Failed to send message. Please try again or contact us directly.")
		return fmt.Errorf("submit contact form: %w", err)
	}

	s.notifier.Success("Message sent successfully! We'll get back to you soon.")
	return nil
}
