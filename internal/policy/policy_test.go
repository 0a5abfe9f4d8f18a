package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRefs struct {
	mock.Mock
}

func (m *mockRefs) FetchMCCApprovedItems(ctx context.Context, upcCodes []string, state string) (int, error) {
	args := m.Called(ctx, upcCodes, state)
	return args.Int(0), args.Error(1)
}

func (m *mockRefs) FetchLandlordStatus(ctx context.Context, payeeID string) (bool, error) {
	args := m.Called(ctx, payeeID)
	return args.Bool(0), args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) CompletedTotals(ctx context.Context, walletID string, since, until time.Time) (int64, float64, error) {
	args := m.Called(ctx, walletID, since, until)
	return args.Get(0).(int64), args.Get(1).(float64), args.Error(2)
}

func (m *mockHistory) CashWithdrawnSince(ctx context.Context, walletID string, mccs []string, since, until time.Time) (float64, error) {
	args := m.Called(ctx, walletID, mccs, since, until)
	return args.Get(0).(float64), args.Error(1)
}

type categories map[string]string

func (c categories) Category(code string) string {
	if v, ok := c[code]; ok {
		return v
	}
	return "OTHER"
}

// noon on a Tuesday
var noon = time.Date(2026, 4, 14, 12, 0, 0, 0, time.UTC)

func txAt(program, mcc string, at time.Time) *domain.TransactionContext {
	return &domain.TransactionContext{
		ID:                   "tx-1",
		Program:              program,
		MerchantCategoryCode: mcc,
		WalletID:             "wallet-1",
		Amount:               20,
		Timestamp:            at,
	}
}

func TestSNAP(t *testing.T) {
	ctx := context.Background()
	p := NewSNAP(DefaultConfig().SNAP)
	assert.Equal(t, ProgramSNAP, p.Program())

	t.Run("GroceryAllowed", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.Items = []domain.LineItem{{Description: "Whole milk", Category: "dairy"}}
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("UnauthorizedRetailer", func(t *testing.T) {
		res, _ := p.Check(ctx, txAt("SNAP", "5812", noon))
		assert.False(t, res.Allowed)
		assert.Equal(t, "SNAP benefits can only be used at authorized food retailers", res.Reason)
		assert.Equal(t, 80, res.RiskScore)
	})

	t.Run("ConvenienceStoreHours", func(t *testing.T) {
		res, _ := p.Check(ctx, txAt("SNAP", "5499", time.Date(2026, 4, 14, 4, 0, 0, 0, time.UTC)))
		assert.False(t, res.Allowed)
		assert.Contains(t, res.Reason, "convenience stores")

		res, _ = p.Check(ctx, txAt("SNAP", "5499", noon))
		assert.True(t, res.Allowed)
	})

	t.Run("HotFood", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.Items = []domain.LineItem{{Description: "Rotisserie chicken", IsHot: true}}
		res, _ := p.Check(ctx, tx)
		assert.False(t, res.Allowed)
		assert.Equal(t, "SNAP cannot be used for hot/prepared foods", res.Reason)
		assert.Equal(t, 90, res.RiskScore)
	})

	t.Run("ProhibitedKeyword", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.Items = []domain.LineItem{
			{Description: "Bread"},
			{Description: "Dog chow", Category: "PET_FOOD"},
		}
		res, _ := p.Check(ctx, tx)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Prohibited item: Dog chow", res.Reason)
	})

	t.Run("KeywordCaseInsensitive", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.Items = []domain.LineItem{{Description: "Premium TOBACCO pouch"}}
		res, _ := p.Check(ctx, tx)
		assert.False(t, res.Allowed)
	})

	t.Run("ProhibitedMerchantType", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.MerchantType = "casino"
		res, _ := p.Check(ctx, tx)
		assert.False(t, res.Allowed)
		assert.Equal(t, "SNAP cannot be used at CASINO", res.Reason)
		assert.Equal(t, 80, res.RiskScore)
	})

	t.Run("OrdinaryMerchantType", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.MerchantType = "GROCERY"
		res, _ := p.Check(ctx, tx)
		assert.True(t, res.Allowed)
	})

	t.Run("HotFoodBar", func(t *testing.T) {
		tx := txAt("SNAP", "5411", noon)
		tx.HasHotFoodBar = true
		res, _ := p.Check(ctx, tx)
		assert.False(t, res.Allowed)
		assert.Equal(t, "SNAP cannot be used for hot/prepared foods", res.Reason)
		assert.Equal(t, 80, res.RiskScore)
	})
}

func TestTANF(t *testing.T) {
	ctx := context.Background()
	cls := categories{"4411": "CRUISE_LINES", "6011": "ATM", "5411": "GROCERY"}

	t.Run("ProhibitedVenue", func(t *testing.T) {
		p := NewTANF(DefaultConfig().TANF, nil, cls)
		res, err := p.Check(ctx, txAt("TANF", "7995", noon))
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, "TANF cannot be used at this type of establishment", res.Reason)
	})

	t.Run("ProhibitedCategory", func(t *testing.T) {
		p := NewTANF(DefaultConfig().TANF, nil, cls)
		res, _ := p.Check(ctx, txAt("TANF", "4411", noon))
		assert.False(t, res.Allowed)
		assert.Equal(t, "TANF cannot be used for cruise_lines", res.Reason)
	})

	t.Run("ProhibitedItem", func(t *testing.T) {
		p := NewTANF(DefaultConfig().TANF, nil, cls)
		tx := txAt("TANF", "5411", noon)
		tx.Items = []domain.LineItem{{Description: "Scratch lottery ticket"}}
		res, _ := p.Check(ctx, tx)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Scratch lottery ticket is not eligible under TANF", res.Reason)
	})

	t.Run("SingleWithdrawalOverDailyCap", func(t *testing.T) {
		hist := &mockHistory{}
		p := NewTANF(DefaultConfig().TANF, hist, cls)

		tx := txAt("TANF", "6011", noon)
		tx.Amount = 600
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Contains(t, res.Reason, "Exceeds daily cash limit: $500")
		assert.Equal(t, 70, res.RiskScore)
		hist.AssertNotCalled(t, "CashWithdrawnSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SameDayWithdrawalsCount", func(t *testing.T) {
		hist := &mockHistory{}
		startOfToday := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
		hist.On("CashWithdrawnSince", mock.Anything, "wallet-1", []string{"6010", "6011"}, startOfToday, noon).
			Return(450.0, nil)
		p := NewTANF(DefaultConfig().TANF, hist, cls)

		tx := txAt("TANF", "6011", noon)
		tx.Amount = 100
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Exceeds daily cash limit: $500", res.Reason)
		hist.AssertExpectations(t)
	})

	t.Run("MonthlyCap", func(t *testing.T) {
		hist := &mockHistory{}
		hist.On("CashWithdrawnSince", mock.Anything, "wallet-1", mock.Anything, time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC), noon).
			Return(0.0, nil)
		hist.On("CashWithdrawnSince", mock.Anything, "wallet-1", mock.Anything, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), noon).
			Return(1900.0, nil)
		p := NewTANF(DefaultConfig().TANF, hist, cls)

		tx := txAt("TANF", "6010", noon)
		tx.Amount = 200
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Exceeds monthly cash limit: $2000", res.Reason)
	})

	t.Run("ATMNightHours", func(t *testing.T) {
		p := NewTANF(DefaultConfig().TANF, nil, cls)
		res, _ := p.Check(ctx, txAt("TANF", "6011", time.Date(2026, 4, 14, 3, 30, 0, 0, time.UTC)))
		assert.False(t, res.Allowed)
		assert.Equal(t, "TANF ATM withdrawals not allowed between 2 AM and 6 AM", res.Reason)

		res, _ = p.Check(ctx, txAt("TANF", "6011", time.Date(2026, 4, 14, 6, 0, 0, 0, time.UTC)))
		assert.True(t, res.Allowed)
	})

	t.Run("HistoryFailure", func(t *testing.T) {
		hist := &mockHistory{}
		hist.On("CashWithdrawnSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(0.0, errors.New("timeout"))
		p := NewTANF(DefaultConfig().TANF, hist, cls)

		_, err := p.Check(ctx, txAt("TANF", "6011", noon))
		assert.Error(t, err)
	})
}

func TestWIC(t *testing.T) {
	ctx := context.Background()

	wicTx := func(upcs ...string) *domain.TransactionContext {
		tx := txAt("WIC", "5411", noon)
		tx.MerchantState = "CA"
		for _, u := range upcs {
			tx.Items = append(tx.Items, domain.LineItem{Description: "item " + u, UPCCode: u})
		}
		return tx
	}

	t.Run("AllApproved", func(t *testing.T) {
		refs := &mockRefs{}
		refs.On("FetchMCCApprovedItems", mock.Anything, []string{"111", "222"}, "CA").Return(2, nil)
		p := NewWIC(DefaultConfig().WIC, refs)

		res, err := p.Check(ctx, wicTx("111", "222", "111"))
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		refs.AssertExpectations(t)
	})

	t.Run("UnapprovedUPC", func(t *testing.T) {
		refs := &mockRefs{}
		refs.On("FetchMCCApprovedItems", mock.Anything, []string{"111", "999"}, "CA").Return(1, nil)
		p := NewWIC(DefaultConfig().WIC, refs)

		res, err := p.Check(ctx, wicTx("111", "999"))
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Contains non-WIC approved items", res.Reason)
		assert.Equal(t, 85, res.RiskScore)
	})

	t.Run("MissingUPC", func(t *testing.T) {
		p := NewWIC(DefaultConfig().WIC, &mockRefs{})
		tx := wicTx("111")
		tx.Items = append(tx.Items, domain.LineItem{Description: "loose produce"})
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})

	t.Run("NoItems", func(t *testing.T) {
		p := NewWIC(DefaultConfig().WIC, &mockRefs{})
		res, _ := p.Check(ctx, wicTx())
		assert.False(t, res.Allowed)
	})

	t.Run("UnauthorizedVendor", func(t *testing.T) {
		p := NewWIC(DefaultConfig().WIC, &mockRefs{})
		tx := wicTx("111")
		tx.MerchantCategoryCode = "5812"
		res, _ := p.Check(ctx, tx)
		assert.Equal(t, "WIC can only be used at authorized WIC vendors", res.Reason)
	})

	t.Run("MerchantNotAuthorized", func(t *testing.T) {
		refs := &mockRefs{}
		p := NewWIC(DefaultConfig().WIC, refs)
		tx := wicTx("111")
		tx.MerchantID = "merchant-42"
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Merchant is not WIC authorized", res.Reason)
		refs.AssertNotCalled(t, "FetchMCCApprovedItems", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MerchantAuthorized", func(t *testing.T) {
		refs := &mockRefs{}
		refs.On("FetchMCCApprovedItems", mock.Anything, []string{"111"}, "CA").Return(1, nil)
		p := NewWIC(DefaultConfig().WIC, refs)
		tx := wicTx("111")
		tx.MerchantID = "merchant-42"
		tx.WICAuthorized = true
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("OutOfState", func(t *testing.T) {
		p := NewWIC(DefaultConfig().WIC, &mockRefs{})
		tx := wicTx("111")
		tx.State = "NV"
		res, _ := p.Check(ctx, tx)
		assert.Equal(t, "WIC benefits cannot be used outside of issuing state", res.Reason)
	})

	t.Run("IssuingStateScopesLookup", func(t *testing.T) {
		refs := &mockRefs{}
		refs.On("FetchMCCApprovedItems", mock.Anything, []string{"111"}, "NV").Return(1, nil)
		p := NewWIC(DefaultConfig().WIC, refs)

		tx := wicTx("111")
		tx.MerchantState = ""
		tx.State = "NV"
		res, err := p.Check(ctx, tx)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

type mockAreas struct {
	mock.Mock
}

func (m *mockAreas) FetchRestrictedAreas(ctx context.Context, program, mcc string) ([]domain.RestrictedArea, error) {
	args := m.Called(ctx, program, mcc)
	areas, _ := args.Get(0).([]domain.RestrictedArea)
	return areas, args.Error(1)
}

func TestInArea(t *testing.T) {
	// Las Vegas Strip
	strip := domain.RestrictedArea{Type: domain.AreaRadius, CenterLat: 36.1147, CenterLng: -115.1728, RadiusMiles: 2}

	tests := []struct {
		name string
		tx   domain.TransactionContext
		area domain.RestrictedArea
		want bool
	}{
		{"RadiusInside", domain.TransactionContext{Latitude: 36.1200, Longitude: -115.1700}, strip, true},
		{"RadiusOutside", domain.TransactionContext{Latitude: 36.1699, Longitude: -115.1398}, strip, false},
		{"RadiusWithoutCoordinates", domain.TransactionContext{MerchantZip: "89109"}, strip, false},
		{"ZipMatch", domain.TransactionContext{MerchantZip: "89109"}, domain.RestrictedArea{Type: domain.AreaZipCode, ZipCode: "89109"}, true},
		{"ZipMismatch", domain.TransactionContext{MerchantZip: "89101"}, domain.RestrictedArea{Type: domain.AreaZipCode, ZipCode: "89109"}, false},
		{"CityIgnoresCase", domain.TransactionContext{MerchantCity: "las vegas"}, domain.RestrictedArea{Type: domain.AreaCity, City: "Las Vegas"}, true},
		{"CityMissing", domain.TransactionContext{MerchantZip: "89109"}, domain.RestrictedArea{Type: domain.AreaCity, City: "Las Vegas"}, false},
		{"UnknownType", domain.TransactionContext{MerchantZip: "89109"}, domain.RestrictedArea{Type: "COUNTY", ZipCode: "89109"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InArea(&tt.tx, tt.area))
		})
	}
}

func TestAreas(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig().Areas

	located := func() *domain.TransactionContext {
		tx := txAt("TANF", "5411", noon)
		tx.MerchantZip = "89109"
		return tx
	}

	t.Run("FirstMatchDenies", func(t *testing.T) {
		store := &mockAreas{}
		store.On("FetchRestrictedAreas", mock.Anything, "TANF", "5411").Return([]domain.RestrictedArea{
			{Type: domain.AreaZipCode, ZipCode: "10001", Reason: "not here"},
			{Type: domain.AreaZipCode, ZipCode: "89109", Reason: "Casino corridor"},
			{Type: domain.AreaCity, City: "Las Vegas", Reason: "never reached"},
		}, nil)

		res, err := NewAreas(cfg, store).Check(ctx, located())
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, "Casino corridor", res.Reason)
		assert.Equal(t, 85, res.RiskScore)
		store.AssertExpectations(t)
	})

	t.Run("DefaultReason", func(t *testing.T) {
		store := &mockAreas{}
		store.On("FetchRestrictedAreas", mock.Anything, "TANF", "5411").Return([]domain.RestrictedArea{
			{Type: domain.AreaZipCode, ZipCode: "89109"},
		}, nil)

		res, err := NewAreas(cfg, store).Check(ctx, located())
		require.NoError(t, err)
		assert.Equal(t, AreaRestrictedReason, res.Reason)
	})

	t.Run("NoMatch", func(t *testing.T) {
		store := &mockAreas{}
		store.On("FetchRestrictedAreas", mock.Anything, "TANF", "5411").Return(nil, nil)

		res, err := NewAreas(cfg, store).Check(ctx, located())
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("UnlocatedSkipsLookup", func(t *testing.T) {
		store := &mockAreas{}
		res, err := NewAreas(cfg, store).Check(ctx, txAt("TANF", "5411", noon))
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		store.AssertNotCalled(t, "FetchRestrictedAreas", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		store := &mockAreas{}
		store.On("FetchRestrictedAreas", mock.Anything, "TANF", "5411").Return(nil, errors.New("connection reset"))

		_, err := NewAreas(cfg, store).Check(ctx, located())
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestSection8(t *testing.T) {
	ctx := context.Background()
	refs := &mockRefs{}
	refs.On("FetchLandlordStatus", mock.Anything, "landlord-1").Return(true, nil)
	refs.On("FetchLandlordStatus", mock.Anything, "stranger").Return(false, nil)
	refs.On("FetchLandlordStatus", mock.Anything, "broken").Return(false, errors.New("db down"))
	p := NewSection8(DefaultConfig().Section8, refs)

	tx := txAt("SECTION_8", "6513", noon)

	tx.PayeeID = "landlord-1"
	res, err := p.Check(ctx, tx)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	tx.PayeeID = "stranger"
	res, err = p.Check(ctx, tx)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, "Payment must be to approved landlord", res.Reason)
	assert.Equal(t, 95, res.RiskScore)

	tx.PayeeID = ""
	res, _ = p.Check(ctx, tx)
	assert.False(t, res.Allowed)

	tx.PayeeID = "broken"
	_, err = p.Check(ctx, tx)
	assert.Error(t, err)
}

func TestESAAndEmergency(t *testing.T) {
	ctx := context.Background()

	esa := NewESA(DefaultConfig().ESA)
	res, _ := esa.Check(ctx, txAt(ProgramESA, "8211", noon))
	assert.True(t, res.Allowed)
	res, _ = esa.Check(ctx, txAt(ProgramESA, "5732", noon))
	assert.Equal(t, "School Choice funds can only be used for educational expenses", res.Reason)

	em := NewEmergency(ProgramDisasterRelief)
	res, err := em.Check(ctx, txAt(ProgramDisasterRelief, "7995", noon))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, []string{RequiredActionGeniusSLA}, res.RequiredActions)
}

func TestBuildRegistry(t *testing.T) {
	r := Build(DefaultConfig(), &mockRefs{}, &mockHistory{}, categories{})

	assert.Equal(t, []string{
		"DISASTER_RELIEF", "EMERGENCY_CASH", "SCHOOL_CHOICE_ESA", "SECTION_8", "SNAP", "TANF", "WIC",
	}, r.Programs())

	_, ok := r.Lookup("VETERANS_BENEFITS")
	assert.False(t, ok)

	p, ok := r.Lookup("WIC")
	require.True(t, ok)
	assert.IsType(t, &WIC{}, p)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.TANF.MaxCashPerDay)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tanf:
  max_cash_per_day: 300
emergency:
  programs: [DISASTER_RELIEF, HURRICANE_AID]
`), 0o600))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.TANF.MaxCashPerDay)
	assert.Equal(t, 2000.0, cfg.TANF.MaxCashPerMonth, "unset fields keep defaults")
	assert.Equal(t, []string{"DISASTER_RELIEF", "HURRICANE_AID"}, cfg.Emergency.Programs)
	assert.NotEmpty(t, cfg.SNAP.AllowedMCCs)

	require.NoError(t, os.WriteFile(path, []byte("tanf: [not, a, map]"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
