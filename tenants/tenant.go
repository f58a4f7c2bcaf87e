// Package tenants runs the company (tenant) flows: listing the user's companies, creating one
// and selecting the one the session works in.
//
// Selecting a tenant replaces the whole token pair: the backend re-issues tokens whose access
// token carries the tenant_id claim that tenant-scoped pages require.
package tenants

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Pages the tenant flow sends the user to.
const (
	PageDashboard    = "/dashboard"
	PageTenantCreate = "/tenant/create"
	PageTenantSelect = "/tenant/select"
)

const statusFetchKey = "tenant-status"

var (
	TenantIDRequiredErr     = errors.New("tenant id is required")
	RUTRequiredErr          = errors.New("rut is required")
	BusinessNameRequiredErr = errors.New("business name is required")
)

type Service struct {
	client *apiclient.Client
	store  *sessions.Store
}

func NewService(client *apiclient.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[NewService] client is required")
	}
	if client.Store() == nil {
		return nil, errors.New("[NewService] client has no session store")
	}
	return &Service{client: client, store: client.Store()}, nil
}

// Status lists the user's tenants. Only the latest concurrent call completes; older ones
// return an error for which apiclient.IsAborted is true.
func (s *Service) Status(ctx context.Context) (*apimodel.TenantStatus, error) {
	var resp apimodel.Response[*apimodel.TenantStatus]
	if err := s.client.Fetch(ctx, statusFetchKey, apimodel.RouteTenantStatus, &resp); err != nil {
		return nil, errors.Wrap(err, "[Status] request failed")
	}
	if resp.Data == nil {
		return nil, errors.Wrap(viaticoserrors.ErrEmptyResponse, "[Status]")
	}
	return resp.Data, nil
}

// Create registers a company owned by the current user. It does not select it.
func (s *Service) Create(ctx context.Context, req apimodel.CreateTenantRequest) (*apimodel.Tenant, error) {
	req.RUT = strings.ToUpper(strings.TrimSpace(req.RUT))
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Website = strings.TrimSpace(req.Website)
	if req.RUT == "" {
		return nil, errors.Wrap(RUTRequiredErr, "[Create]")
	}
	if req.BusinessName == "" {
		return nil, errors.Wrap(BusinessNameRequiredErr, "[Create]")
	}

	var resp apimodel.Response[*apimodel.Tenant]
	if err := s.client.Post(ctx, apimodel.RouteTenantCreate, req, &resp); err != nil {
		return nil, errors.Wrap(err, "[Create] request failed")
	}
	if resp.Data == nil {
		return nil, errors.Wrap(viaticoserrors.ErrEmptyResponse, "[Create]")
	}
	return resp.Data, nil
}

// Select makes tenantID the session's tenant. The re-issued token pair and user profile
// replace what the store held.
func (s *Service) Select(ctx context.Context, tenantID string) (*apimodel.SelectTenantData, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.Wrap(TenantIDRequiredErr, "[Select]")
	}

	var resp apimodel.Response[*apimodel.SelectTenantData]
	if err := s.client.Post(ctx, apimodel.RouteTenantSelect(tenantID), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Select] request failed")
	}
	if resp.Data == nil {
		return nil, errors.Wrap(viaticoserrors.ErrEmptyResponse, "[Select]")
	}
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		return nil, errors.Wrap(viaticoserrors.ErrInvalidToken, "[Select] response carries no token pair")
	}

	s.store.SetTokens(resp.Data.AccessToken, resp.Data.RefreshToken)
	s.store.SetUserProfile(resp.Data.User)
	log.Info().Str("tenant_id", resp.Data.Tenant.ID).Msg("tenant selected")
	return resp.Data, nil
}

// CreateAndSelect creates a company and immediately works in it.
func (s *Service) CreateAndSelect(ctx context.Context, req apimodel.CreateTenantRequest) (*apimodel.SelectTenantData, error) {
	tenant, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Select(ctx, tenant.ID)
}

// HasTenant reports whether the current access token carries a tenant claim.
func (s *Service) HasTenant() bool {
	return s.store.HasTenantClaim()
}

func (s *Service) CurrentTenantID() (string, bool) {
	return s.store.TenantClaim()
}

// NextRoute is where a logged-in user goes next: the dashboard once a tenant is selected,
// otherwise tenant creation or tenant selection depending on the status.
func (s *Service) NextRoute(ctx context.Context) (string, error) {
	if s.HasTenant() {
		return PageDashboard, nil
	}
	status, err := s.Status(ctx)
	if err != nil {
		return "", err
	}
	return RouteForStatus(status), nil
}

// RouteForStatus picks the tenant page for a user whose token has no tenant yet.
func RouteForStatus(status *apimodel.TenantStatus) string {
	if status == nil || !status.HasTenants || status.RequiresTenantCreation {
		return PageTenantCreate
	}
	return PageTenantSelect
}
