package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	"github.com/jrsteele09/go-viaticos-session/auth"
	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
	"github.com/jrsteele09/go-viaticos-session/tenants"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Messages for requests rejected before they reach the backend.
var validationMessages = map[error]string{
	auth.EmailRequiredErr:           "El email es obligatorio",
	auth.InvalidEmailErr:            "El formato del email no es válido",
	auth.PasswordRequiredErr:        "La contraseña es obligatoria",
	auth.UserPasswordsDontMatchErr:  "Las contraseñas no coinciden",
	auth.TokenRequiredErr:           "El enlace no es válido",
	tenants.TenantIDRequiredErr:     "Selecciona una empresa",
	tenants.RUTRequiredErr:          "El RUT es obligatorio",
	tenants.BusinessNameRequiredErr: "La razón social es obligatoria",
	errMalformedBody:                "Solicitud inválida",
}

var errMalformedBody = errors.New("malformed request body")

type redirectData struct {
	Redirect string `json:"redirect"`
}

// wantsJSON reports whether the caller is client code rather than a browser navigation.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeOK[T any](w http.ResponseWriter, message string, data T) {
	writeJSON(w, http.StatusOK, apimodel.Response[T]{Success: true, Message: message, Data: data})
}

// respond redirects browser navigations to location and answers client code with JSON.
func respond[T any](w http.ResponseWriter, r *http.Request, location, message string, data T) {
	if wantsJSON(r) {
		writeOK(w, message, data)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// writeError maps a failed flow to a response. An ended session sends the user to the login
// page, backend errors keep their status and connectivity failures become 502.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if reason, ok := apiclient.IsRedirect(err); ok {
		location := loginLocation(string(reason), r)
		log.Info().Str("path", r.URL.Path).Str("reason", string(reason)).Msg("session ended")
		if wantsJSON(r) {
			writeJSON(w, http.StatusUnauthorized, apimodel.Response[redirectData]{
				Message: loginMessage(string(reason)),
				Error:   string(reason),
				Data:    redirectData{Redirect: location},
			})
			return
		}
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}

	for target, message := range validationMessages {
		if errors.Is(err, target) {
			writeJSON(w, http.StatusBadRequest, apimodel.ErrorResponse{Message: message, Error: "VALIDATION_ERROR"})
			return
		}
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsServer() {
			log.Error().Err(err).Str("path", r.URL.Path).Int("status", apiErr.Status).Msg("backend error")
		}
		writeJSON(w, apiErr.Status, apimodel.ErrorResponse{
			Message: apiErr.UserMessage(),
			Error:   apiErr.Code,
			Data:    apiErr.Fields,
		})
		return
	}

	var transportErr *apiclient.TransportError
	if errors.As(err, &transportErr) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("backend unreachable")
		writeJSON(w, http.StatusBadGateway, apimodel.ErrorResponse{Message: transportErr.UserMessage(), Error: "CONNECTION_ERROR"})
		return
	}

	if apiclient.IsAborted(err) {
		writeJSON(w, http.StatusConflict, apimodel.ErrorResponse{Message: "Solicitud reemplazada por una más reciente", Error: "ABORTED"})
		return
	}

	if errors.Is(err, viaticoserrors.ErrEmptyResponse) || errors.Is(err, viaticoserrors.ErrMalformedResponse) ||
		errors.Is(err, viaticoserrors.ErrInvalidToken) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected backend response")
		writeJSON(w, http.StatusBadGateway, apimodel.ErrorResponse{Message: "Respuesta inesperada del servidor", Error: "BAD_RESPONSE"})
		return
	}

	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, apimodel.ErrorResponse{Message: "Error interno del servidor", Error: "INTERNAL_ERROR"})
}

// loginLocation is the login page URL for reason. Page navigations come back to where they were.
func loginLocation(reason string, r *http.Request) string {
	query := url.Values{}
	if r.Method == http.MethodGet && r.URL.Path != RouteAuthLogin {
		query.Set("from", r.URL.Path)
	}
	if reason != "" {
		query.Set("reason", reason)
	}
	if len(query) == 0 {
		return RouteAuthLogin
	}
	return RouteAuthLogin + "?" + query.Encode()
}

// loginMessage is the banner the login page shows for a redirect reason.
func loginMessage(reason string) string {
	switch apiclient.RedirectReason(reason) {
	case apiclient.ReasonSessionExpired:
		return "Tu sesión ha expirado. Por favor inicia sesión nuevamente"
	case apiclient.ReasonUnauthorized:
		return "No tienes autorización para realizar esta acción"
	case apiclient.ReasonNoToken:
		return "Inicia sesión para continuar"
	default:
		return ""
	}
}

// decodeBody reads a JSON body, or an HTML form into the fields named by form.
func decodeBody(w http.ResponseWriter, r *http.Request, out any, form func(url.Values)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(out); err != nil {
			return errors.Join(errMalformedBody, err)
		}
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return errors.Join(errMalformedBody, err)
	}
	if form != nil {
		form(r.PostForm)
	}
	return nil
}
