package mcc

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	list []domain.MCCDescriptor
	err  error
}

func (s *stubSource) ListMCCDescriptors(ctx context.Context) ([]domain.MCCDescriptor, error) {
	return s.list, s.err
}

func TestClassifierFallback(t *testing.T) {
	c := New(nil)

	tests := []struct {
		code        string
		category    string
		description string
	}{
		{"5411", "GROCERY", "Grocery Stores, Supermarkets"},
		{"5813", "ALCOHOL", "Drinking Places (Alcoholic Beverages)"},
		{"7995", "GAMBLING", "Betting/Casino Gambling"},
		{"6011", "ATM", "ATMs"},
		{"4411", "CRUISE_LINES", "Cruise Lines"},
		{"5732", "ELECTRONICS", "MCC 5732"},
		{"0000", "OTHER", "MCC 0000"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.category, c.Category(tt.code))
			assert.Equal(t, tt.description, c.Description(tt.code))
		})
	}
}

func TestClassifierRefresh(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{list: []domain.MCCDescriptor{
		{Code: "5411", Description: "Supermarkets", Category: "GROCERY"},
		{Code: "9999", Description: "Pilot Merchant"},
	}}
	c := New(src)
	assert.True(t, c.LoadedAt().IsZero())

	require.NoError(t, c.Refresh(ctx))
	assert.False(t, c.LoadedAt().IsZero())

	assert.Equal(t, "Supermarkets", c.Description("5411"))
	assert.Equal(t, "Pilot Merchant", c.Description("9999"))
	assert.Equal(t, "OTHER", c.Category("9999"), "missing category falls back")

	t.Run("FailureKeepsPreviousTable", func(t *testing.T) {
		src.err = errors.New("db down")
		assert.Error(t, c.Refresh(ctx))
		assert.Equal(t, "Supermarkets", c.Description("5411"))
	})
}

func TestFallbackTable(t *testing.T) {
	list := Fallback()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code)
	}
	for _, d := range list {
		assert.NotEmpty(t, d.Category)
		assert.NotEmpty(t, d.Description)
	}
}
