package apimodel

// Tenant is a company the user belongs to.
type Tenant struct {
	ID           string `json:"id"`
	RUT          string `json:"rut"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	RegionID     string `json:"region_id,omitempty"`
	CommuneID    string `json:"commune_id,omitempty"`
	CountryID    string `json:"country_id,omitempty"`
	Status       string `json:"status"`
	NodeNumber   int    `json:"node_number,omitempty"`
	TenantName   string `json:"tenant_name,omitempty"`
	CreatedBy    string `json:"created_by,omitempty"`
	Created      string `json:"created,omitempty"`
}

// TenantStatus is returned by GET /tenant/status.
type TenantStatus struct {
	HasTenants             bool     `json:"has_tenants"`
	Tenants                []Tenant `json:"tenants"`
	RequiresTenantCreation bool     `json:"requires_tenant_creation"`
	TenantCount            int      `json:"tenant_count"`
}

// CreateTenantRequest is the body of POST /tenant/create.
type CreateTenantRequest struct {
	RUT          string `json:"rut"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Website      string `json:"website"`
	RegionID     string `json:"region_id"`
	CommuneID    string `json:"commune_id"`
	CountryID    string `json:"country_id"`
	Logo         string `json:"logo,omitempty"`
}

// SelectTenantData is returned by POST /tenant/select/{id}. It carries a NEW token pair whose
// access token embeds the selected tenant_id.
type SelectTenantData struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"`
	User         UserData       `json:"user"`
	Tenant       SelectedTenant `json:"tenant"`
}

// SelectedTenant is the summary embedded in SelectTenantData.
type SelectedTenant struct {
	ID           string `json:"id"`
	RUT          string `json:"rut"`
	BusinessName string `json:"business_name"`
	Status       string `json:"status"`
}
