package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apimodel"
	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
)

// RedirectReason tells the login page why the user was sent there.
type RedirectReason string

const (
	ReasonNoToken        RedirectReason = "no_token"
	ReasonUnauthorized   RedirectReason = "unauthorized"
	ReasonSessionExpired RedirectReason = "session_expired"
)

func (r RedirectReason) sentinel() error {
	switch r {
	case ReasonNoToken:
		return viaticoserrors.ErrNoToken
	case ReasonUnauthorized:
		return viaticoserrors.ErrUnauthorized
	default:
		return viaticoserrors.ErrSessionExpired
	}
}

// RedirectError is returned when the session cannot continue and the user must log in again.
// The redirector has already been invoked by the time the caller sees it.
type RedirectError struct {
	Reason RedirectReason
	Err    error
}

func (e *RedirectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redirect to login (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("redirect to login (%s)", e.Reason)
}

func (e *RedirectError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason.sentinel(), e.Err}
	}
	return []error{e.Reason.sentinel()}
}

// APIError is a non-2xx backend response other than the 401 handled by the refresh flow.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []apimodel.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, apimodel.FormatFieldErrors(e.Fields))
	}
	return e.Message
}

// IsValidation reports a 400/422 response carrying field errors.
func (e *APIError) IsValidation() bool {
	return (e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity) && len(e.Fields) > 0
}

func (e *APIError) IsServer() bool {
	return e.Status >= http.StatusInternalServerError
}

var codeMessages = map[string]string{
	"EMAIL_NOT_VERIFIED":    "Por favor verifica tu email antes de iniciar sesión",
	"ACCOUNT_DEACTIVATED":   "Tu cuenta ha sido desactivada. Contacta al soporte",
	"INVALID_CREDENTIALS":   "Email o contraseña incorrectos",
	"TOKEN_EXPIRED":         "Tu sesión ha expirado. Por favor inicia sesión nuevamente",
	"TENANT_NOT_FOUND":      "Empresa no encontrada",
	"TENANT_ALREADY_EXISTS": "Ya existe una empresa registrada con este RUT",
	"RUT_ALREADY_EXISTS":    "Ya existe una empresa registrada con este RUT",
	"DUPLICATE_RUT":         "Ya existe una empresa registrada con este RUT",
	"UNAUTHORIZED":          "No tienes autorización para realizar esta acción",
}

// UserMessage is the message shown to the user for this error.
func (e *APIError) UserMessage() string {
	if len(e.Fields) > 0 {
		return apimodel.FormatFieldErrors(e.Fields)
	}
	if e.Status == http.StatusConflict || strings.Contains(strings.ToLower(e.Message), "rut") {
		return codeMessages["DUPLICATE_RUT"]
	}
	if msg, ok := codeMessages[e.Code]; ok {
		return msg
	}
	return e.Message
}

// TransportError is a failure to reach the backend: DNS, refused connection, timeout or an
// open circuit breaker. It never clears the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, viaticoserrors.ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{viaticoserrors.ErrTransport, e.Err}
}

// UserMessage is the generic connectivity message shown to the user.
func (e *TransportError) UserMessage() string {
	return "Error de conexión. Por favor verifica tu conexión a internet."
}

// IsRedirect reports whether err ended the session and carries a redirect reason.
func IsRedirect(err error) (RedirectReason, bool) {
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		return redirect.Reason, true
	}
	return "", false
}

// IsAborted reports whether err comes from a fetch superseded by a newer one for the same key.
func IsAborted(err error) bool {
	return errors.Is(err, viaticoserrors.ErrAborted)
}
