package api

import (
	"errors"
	"fmt"
)

// ExpiredMessage содержит текст, которым сервер сообщает об истёкшей сессии.
const ExpiredMessage = "Session expired. Please log in again."

// Kind классифицирует ошибки обращения к бэкенду.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindAuthExpired
	KindBusiness
	KindUnknown
)

var (
	// ErrNetwork означает, что ответ не получен.
	ErrNetwork = errors.New("network error")
	// ErrAuthExpired означает, что сервер отверг токен сессии.
	ErrAuthExpired = errors.New("session expired")
	// ErrBusiness означает, что сервер вернул success=false.
	ErrBusiness = errors.New("business error")
	// ErrUnknown означает любой другой сбой.
	ErrUnknown = errors.New("unknown error")
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthExpired:
		return "auth_expired"
	case KindBusiness:
		return "business"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindAuthExpired:
		return ErrAuthExpired
	case KindBusiness:
		return ErrBusiness
	default:
		return ErrUnknown
	}
}

// Error описывает неуспешный вызов бэкенда.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Is сопоставляет ошибку с сигнальным значением её вида.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuthExpired сообщает, что ошибка означает истёкшую сессию.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// UserMessage возвращает текст уведомления для пользователя.
// Бизнес-ошибки показываются дословно, сетевые заменяются общим текстом.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return fallback
	}

	switch apiErr.Kind {
	case KindNetwork:
		return "Network error. Please try again."
	case KindAuthExpired:
		return "Your session has expired. Please log in again."
	default:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
}
