package policy

import (
	"fmt"
	"os"

	"github.com/opensource-finance/warden/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds the tunable parameters of every built-in policy.
type Config struct {
	SNAP      SNAPConfig      `yaml:"snap"`
	TANF      TANFConfig      `yaml:"tanf"`
	WIC       WICConfig       `yaml:"wic"`
	Section8  Section8Config  `yaml:"section_8"`
	ESA       ESAConfig       `yaml:"school_choice_esa"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Areas     AreaConfig      `yaml:"restricted_areas"`
}

// SNAPConfig parameterizes the SNAP policy.
type SNAPConfig struct {
	AllowedMCCs           []string `yaml:"allowed_mccs"`
	ProhibitedMerchants   []string `yaml:"prohibited_merchant_types"`
	ProhibitedItems       []string `yaml:"prohibited_items"`
	ConvenienceStoreMCC   string   `yaml:"convenience_store_mcc"`
	ConvenienceStoreHours []int    `yaml:"convenience_store_hours"`
	MerchantRisk          int      `yaml:"merchant_risk"`
	ItemRisk              int      `yaml:"item_risk"`
}

// TANFConfig parameterizes the TANF policy.
type TANFConfig struct {
	ProhibitedMCCs       []string `yaml:"prohibited_mccs"`
	ProhibitedCategories []string `yaml:"prohibited_categories"`
	ProhibitedItems      []string `yaml:"prohibited_items"`
	CashMCCs             []string `yaml:"cash_mccs"`
	ATMMCC               string   `yaml:"atm_mcc"`
	ATMBlockedHours      []int    `yaml:"atm_blocked_hours"`
	MaxCashPerDay        float64  `yaml:"max_cash_per_day"`
	MaxCashPerMonth      float64  `yaml:"max_cash_per_month"`
	VenueRisk            int      `yaml:"venue_risk"`
	ItemRisk             int      `yaml:"item_risk"`
	CashRisk             int      `yaml:"cash_risk"`
}

// WICConfig parameterizes the WIC policy.
type WICConfig struct {
	VendorMCCs []string `yaml:"vendor_mccs"`
	VendorRisk int      `yaml:"vendor_risk"`
	ItemRisk   int      `yaml:"item_risk"`
}

// Section8Config parameterizes the Section 8 policy.
type Section8Config struct {
	PayeeRisk int `yaml:"payee_risk"`
}

// ESAConfig parameterizes the education savings account policy.
type ESAConfig struct {
	AllowedMCCs  []string `yaml:"allowed_mccs"`
	MerchantRisk int      `yaml:"merchant_risk"`
}

// AreaConfig parameterizes the restricted-area check shared by every program.
type AreaConfig struct {
	Risk int `yaml:"risk"`
}

// EmergencyConfig lists the programs that get the emergency policy.
type EmergencyConfig struct {
	Programs []string `yaml:"programs"`
}

// DefaultConfig returns the built-in program parameters.
func DefaultConfig() Config {
	return Config{
		SNAP: SNAPConfig{
			AllowedMCCs: []string{"5411", "5422", "5441", "5451", "5462", "5499", "5921"},
			ProhibitedMerchants: []string{
				"RESTAURANT", "BAR", "CASINO", "LIQUOR_STORE", "TOBACCO_SHOP",
			},
			ProhibitedItems: []string{
				"alcohol", "tobacco", "cigarettes", "vaping", "e-cigarettes",
				"hot_food", "prepared_food", "restaurant_meal", "pet_food",
				"vitamins", "medicines", "supplements",
				"household_supplies", "paper_products", "cosmetics",
			},
			ConvenienceStoreMCC:   "5499",
			ConvenienceStoreHours: []int{6, 23},
			MerchantRisk:          80,
			ItemRisk:              90,
		},
		TANF: TANFConfig{
			ProhibitedMCCs: []string{
				"5813", "5921", "7273", "7297", "7299", "7800", "7801", "7802", "7995", "8999",
				"5993", "5122", "7841", "5735", "7994", "7911", "7922", "7929", "7932", "7933",
				"7941", "7991", "7992", "7993", "7996", "7997", "7998", "7999",
			},
			ProhibitedCategories: []string{
				"ADULT_ENTERTAINMENT", "GAMBLING", "ALCOHOL", "TOBACCO", "FIREARMS", "CRUISE_LINES",
			},
			ProhibitedItems: []string{
				"alcohol", "tobacco", "lottery", "gambling", "adult_entertainment", "firearms", "ammunition",
			},
			CashMCCs:        []string{"6010", "6011"},
			ATMMCC:          "6011",
			ATMBlockedHours: []int{2, 6},
			MaxCashPerDay:   500,
			MaxCashPerMonth: 2000,
			VenueRisk:       80,
			ItemRisk:        90,
			CashRisk:        70,
		},
		WIC: WICConfig{
			VendorMCCs: []string{"5411", "5422", "5451", "5462", "5499", "5912"},
			VendorRisk: 80,
			ItemRisk:   85,
		},
		Section8: Section8Config{
			PayeeRisk: 95,
		},
		ESA: ESAConfig{
			AllowedMCCs: []string{
				"8211", "8220", "8241", "8244", "8249", "8299",
				"5942", "5943", "5945", "5947", "5111", "5734", "7372", "8351",
			},
			MerchantRisk: 80,
		},
		Emergency: EmergencyConfig{
			Programs: []string{ProgramDisasterRelief, ProgramEmergencyCash},
		},
		Areas: AreaConfig{
			Risk: 85,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. Fields absent from the file
// keep their default values. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return cfg, nil
}

// Build creates a registry holding every built-in policy.
func Build(cfg Config, refs domain.ReferenceStore, history domain.TransactionHistory, classifier Classifier) *Registry {
	r := NewRegistry(
		NewSNAP(cfg.SNAP),
		NewTANF(cfg.TANF, history, classifier),
		NewWIC(cfg.WIC, refs),
		NewSection8(cfg.Section8, refs),
		NewESA(cfg.ESA),
	)
	for _, program := range cfg.Emergency.Programs {
		r.Register(NewEmergency(program))
	}
	return r
}
