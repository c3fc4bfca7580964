package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexa-labs/ragserve/types"
)

func validIdentity() *Identity {
	return &Identity{
		TenantID:       "acme",
		DisplayName:    "Acme Assistant",
		Friendliness:   80,
		Formality:      40,
		Verbosity:      50,
		Humor:          20,
		TechnicalLevel: 60,
	}
}

func TestIdentityValidateAccepts(t *testing.T) {
	require.NoError(t, validIdentity().Validate())

	boundary := validIdentity()
	boundary.Friendliness = 0
	boundary.Formality = 100
	require.NoError(t, boundary.Validate())
}

func TestIdentityValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Identity)
	}{
		{"friendliness too high", func(id *Identity) { id.Friendliness = 101 }},
		{"formality negative", func(id *Identity) { id.Formality = -1 }},
		{"verbosity too high", func(id *Identity) { id.Verbosity = 500 }},
		{"humor negative", func(id *Identity) { id.Humor = -20 }},
		{"technical level too high", func(id *Identity) { id.TechnicalLevel = 1000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := validIdentity()
			tt.mutate(id)
			err := id.Validate()
			require.Error(t, err)
			assert.Equal(t, types.ErrInvalidTenantData, types.GetErrorCode(err))
		})
	}
}

func TestIdentityValidateRequiresDisplayName(t *testing.T) {
	id := validIdentity()
	id.DisplayName = ""
	err := id.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidTenantData, types.GetErrorCode(err))
}
