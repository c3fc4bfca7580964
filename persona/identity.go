package persona

import (
	"context"
	"fmt"

	"github.com/cortexa-labs/ragserve/types"
)

// Slider bounds for the tone and style dials.
const (
	SliderMin = 0
	SliderMax = 100
)

// Identity is a tenant's voice configuration.
type Identity struct {
	TenantID          string   `json:"tenant_id" bson:"tenant_id"`
	DisplayName       string   `json:"display_name" bson:"display_name"`
	ForbiddenTerms    []string `json:"forbidden_terms,omitempty" bson:"forbidden_terms,omitempty"`
	Friendliness      int      `json:"friendliness" bson:"friendliness"`
	Formality         int      `json:"formality" bson:"formality"`
	Verbosity         int      `json:"verbosity" bson:"verbosity"`
	Humor             int      `json:"humor" bson:"humor"`
	TechnicalLevel    int      `json:"technical_level" bson:"technical_level"`
	PreferredGreeting string   `json:"preferred_greeting,omitempty" bson:"preferred_greeting,omitempty"`
	SignatureClosing  string   `json:"signature_closing,omitempty" bson:"signature_closing,omitempty"`
	Instructions      string   `json:"instructions,omitempty" bson:"instructions,omitempty"`
}

// Service resolves a tenant's identity.
type Service interface {
	GetIdentity(ctx context.Context, tenantID string) (*Identity, error)
}

// Validate checks the identity's slider ranges. Out-of-range values are
// rejected, never clamped.
func (id *Identity) Validate() error {
	sliders := []struct {
		name  string
		value int
	}{
		{"friendliness", id.Friendliness},
		{"formality", id.Formality},
		{"verbosity", id.Verbosity},
		{"humor", id.Humor},
		{"technical_level", id.TechnicalLevel},
	}
	for _, s := range sliders {
		if s.value < SliderMin || s.value > SliderMax {
			return types.NewError(types.ErrInvalidTenantData,
				fmt.Sprintf("identity slider %s=%d outside [%d,%d]", s.name, s.value, SliderMin, SliderMax)).
				WithTenant(id.TenantID)
		}
	}
	if id.DisplayName == "" {
		return types.NewError(types.ErrInvalidTenantData, "identity missing display name").
			WithTenant(id.TenantID)
	}
	return nil
}
