// errors стандартизирует ответы об ошибках HTTP-слоя web-gateway.
// На вход он принимает ошибку (статус REST-бэкенда, ошибку транспорта,
// завершение сессии, локальную ошибку валидации), а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей;
//   - redirect, если сессия роли была завершена.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"

	"github.com/pribylovaa/event-booking/internal/clients"
	"github.com/pribylovaa/event-booking/internal/clients/interceptors"
	"github.com/pribylovaa/event-booking/internal/locale"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrInvalidArgument — некорректный ввод клиента (битый JSON, пустые поля).
var ErrInvalidArgument = stderrors.New("invalid argument")

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
// Redirect — куда перейти после принудительного выхода.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{Code: "internal", Message: "internal error"},
	}
}

// ToHTTP конвертирует входную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - *interceptors.RefreshError - 401/session_expired с redirect;
//   - локальная валидация - 400, слишком большое тело - 413;
//   - *clients.StatusError - маппинг статуса бэкенда через baseFromStatus();
//   - отмена/дедлайн контекста - 499/504;
//   - сетевые ошибки - 503;
//   - прочее - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var (
		re  *interceptors.RefreshError
		se  *clients.StatusError
		mbe *http.MaxBytesError
		ne  net.Error
	)

	switch {
	case stderrors.As(err, &re):
		return http.StatusUnauthorized, ErrorResponse{
			Error: APIError{Code: "session_expired", Message: "session expired", Redirect: re.Redirect},
		}
	case stderrors.Is(err, ErrInvalidArgument), stderrors.Is(err, locale.ErrInvalidLocale):
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{Code: "invalid_argument", Message: "invalid argument"},
		}
	case stderrors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: APIError{Code: "payload_too_large", Message: "payload too large"},
		}
	case stderrors.As(err, &se):
		httpStatus, code, msg := baseFromStatus(se.StatusCode)
		return httpStatus, ErrorResponse{Error: APIError{Code: code, Message: msg}}
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{
			Error: APIError{Code: "canceled", Message: "canceled"},
		}
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: APIError{Code: "deadline_exceeded", Message: "deadline exceeded"},
		}
	case stderrors.As(err, &ne):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: APIError{Code: "unavailable", Message: "service unavailable"},
		}
	default:
		return internal()
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromStatus — базовый маппинг статуса бэкенда -> HTTP/FE-код/сообщение.
// 4xx отдаются как есть, 5xx бэкенда становятся 502:
//   - 400/422 -> invalid_argument / unprocessable
//   - 401 -> unauthenticated (неверные учётные данные)
//   - 403 -> permission_denied
//   - 404 -> not_found
//   - 409 -> already_exists
//   - 412 -> failed_precondition
//   - 429 -> resource_exhausted
//   - 5xx -> 502/bad_gateway
//   - прочее -> 500/internal
func baseFromStatus(code int) (int, string, string) {
	switch {
	case code == http.StatusBadRequest:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case code == http.StatusUnauthorized:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case code == http.StatusForbidden:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case code == http.StatusNotFound:
		return http.StatusNotFound, "not_found", "not found"
	case code == http.StatusConflict:
		return http.StatusConflict, "already_exists", "already exists"
	case code == http.StatusPreconditionFailed:
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case code == http.StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity, "unprocessable", "unprocessable entity"
	case code == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case code >= 500 && code <= 599:
		return http.StatusBadGateway, "bad_gateway", "upstream error"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
