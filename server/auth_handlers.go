package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apimodel"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/jrsteele09/go-viaticos-session/tenants"
	"github.com/rs/zerolog/log"
)

type loginPage struct {
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
	From          string `json:"from,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type loginResult struct {
	Next string               `json:"next"`
	User sessions.UserProfile `json:"user"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// LoginPageHandler returns the login page model. The reason banner comes from the redirect
// that brought the user here.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		reason := r.URL.Query().Get("reason")
		writeOK(w, "", loginPage{
			Reason:        reason,
			Message:       loginMessage(reason),
			From:          safeReturnPath(r.URL.Query().Get("from")),
			Authenticated: sess.auth.IsAuthenticated(),
		})
	})
}

// LoginHandler logs in and sends the user on: back where they came from when the session
// already has a tenant, otherwise to tenant creation or selection.
func (s *Server) LoginHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req loginRequest
		err := decodeBody(w, r, &req, func(form url.Values) {
			req.Email = form.Get("email")
			req.Password = form.Get("password")
			req.From = form.Get("from")
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		data, err := sess.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		next, err := sess.tenants.NextRoute(r.Context())
		if err != nil {
			log.Warn().Err(err).Str("user_id", data.User.ID).Msg("tenant status unavailable after login")
			next = tenants.PageTenantSelect
		}
		if from := safeReturnPath(req.From); from != "" && next == tenants.PageDashboard {
			next = from
		}
		respond(w, r, next, "Inicio de sesión exitoso", loginResult{Next: next, User: data.User})
	})
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		sess.auth.Logout()
		respond(w, r, RouteAuthLogin, "Sesión cerrada", redirectData{Redirect: RouteAuthLogin})
	})
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req apimodel.RegisterRequest
		err := decodeBody(w, r, &req, func(form url.Values) {
			req.FullName = form.Get("full_name")
			req.Email = form.Get("email")
			req.Phone = form.Get("phone")
			req.Password = form.Get("password")
			req.PasswordConfirm = form.Get("password_confirm")
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		data, err := sess.auth.Register(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data.EmailToken = ""
		respond(w, r, RouteAuthVerifyEmail+"?email="+url.QueryEscape(data.Email), "Cuenta creada. Revisa tu email para verificarla", data)
	})
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req apimodel.VerifyEmailRequest
		if err := decodeBody(w, r, &req, func(form url.Values) { req.Token = form.Get("token") }); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := sess.auth.VerifyEmail(r.Context(), req.Token); err != nil {
			s.writeError(w, r, err)
			return
		}
		respond(w, r, RouteAuthLogin, "Email verificado", redirectData{Redirect: RouteAuthLogin})
	})
}

func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req apimodel.ForgotPasswordRequest
		if err := decodeBody(w, r, &req, func(form url.Values) { req.Email = form.Get("email") }); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := sess.auth.ForgotPassword(r.Context(), req.Email); err != nil {
			s.writeError(w, r, err)
			return
		}
		respond(w, r, RouteAuthForgotPassword+"?sent=1", "Si la cuenta existe, enviamos un email con instrucciones", redirectData{Redirect: RouteAuthLogin})
	})
}

func (s *Server) ResendResetEmailHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req apimodel.ForgotPasswordRequest
		if err := decodeBody(w, r, &req, func(form url.Values) { req.Email = form.Get("email") }); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := sess.auth.ResendResetEmail(r.Context(), req.Email); err != nil {
			s.writeError(w, r, err)
			return
		}
		respond(w, r, RouteAuthForgotPassword+"?sent=1", "Email reenviado", redirectData{Redirect: RouteAuthLogin})
	})
}

// ValidateResetTokenHandler always answers with JSON: the reset page calls it before showing
// the form.
func (s *Server) ValidateResetTokenHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req apimodel.ValidateResetTokenRequest
		if err := decodeBody(w, r, &req, func(form url.Values) { req.Token = form.Get("token") }); err != nil {
			s.writeError(w, r, err)
			return
		}
		status, err := sess.auth.ValidateResetToken(r.Context(), req.Token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeOK(w, "", status)
	})
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req resetPasswordRequest
		err := decodeBody(w, r, &req, func(form url.Values) {
			req.Token = form.Get("token")
			req.NewPassword = form.Get("new_password")
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := sess.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			s.writeError(w, r, err)
			return
		}
		respond(w, r, RouteAuthLogin, "Contraseña actualizada", redirectData{Redirect: RouteAuthLogin})
	})
}

// safeReturnPath keeps only same-site absolute paths, so "from" cannot send the user off site.
func safeReturnPath(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return ""
	}
	if strings.HasPrefix(from, RouteAuthLogin) {
		return ""
	}
	return from
}
