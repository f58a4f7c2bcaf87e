package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-viaticos-session/apimodel"
)

type tenantSelection struct {
	Tenant apimodel.SelectedTenant `json:"tenant"`
	User   apimodel.UserData       `json:"user"`
	Next   string                  `json:"next"`
}

func (s *Server) TenantStatusHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		status, err := sess.tenants.Status(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeOK(w, "", status)
	})
}

// TenantSelectPageHandler lists the companies to pick from. Users without one are sent to
// tenant creation.
func (s *Server) TenantSelectPageHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		status, err := sess.tenants.Status(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if status.RequiresTenantCreation && !wantsJSON(r) {
			http.Redirect(w, r, RouteTenantCreate, http.StatusSeeOther)
			return
		}
		writeOK(w, "", status)
	})
}

func (s *Server) TenantCreatePageHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		user, _ := sess.auth.CurrentUser()
		writeOK(w, "", user)
	})
}

// TenantCreateHandler creates a company and selects it straight away.
func (s *Server) TenantCreateHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var req apimodel.CreateTenantRequest
		err := decodeBody(w, r, &req, func(form url.Values) {
			req.RUT = form.Get("rut")
			req.BusinessName = form.Get("business_name")
			req.Email = form.Get("email")
			req.Phone = form.Get("phone")
			req.Address = form.Get("address")
			req.Website = form.Get("website")
			req.RegionID = form.Get("region_id")
			req.CommuneID = form.Get("commune_id")
			req.CountryID = form.Get("country_id")
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		data, err := sess.tenants.CreateAndSelect(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		respond(w, r, RouteDashboard, "Empresa creada", tenantSelection{Tenant: data.Tenant, User: data.User, Next: RouteDashboard})
	})
}

// TenantSelectHandler switches the session to the tenant in the path. The new token pair is
// written to the cookies before the response.
func (s *Server) TenantSelectHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		data, err := sess.tenants.Select(r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		respond(w, r, RouteDashboard, "Empresa seleccionada", tenantSelection{Tenant: data.Tenant, User: data.User, Next: RouteDashboard})
	})
}
