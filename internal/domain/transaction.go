package domain

import (
	"time"
)

// Transaction status values stored in history.
const (
	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
	TxStatusDeclined  = "declined"
)

// TransactionContext is the input to one authorization decision.
// The engine never mutates it.
type TransactionContext struct {
	ID                   string    `json:"id"`
	Program              string    `json:"program"`
	Amount               float64   `json:"amount"`
	MerchantCategoryCode string    `json:"merchantCategoryCode"`
	MerchantState        string    `json:"merchantState,omitempty"`
	MerchantCountry      string    `json:"merchantCountry,omitempty"`
	WalletID             string    `json:"walletId"`
	Timestamp            time.Time `json:"timestamp"`

	// Location of the transaction and of the beneficiary's home.
	// Zero values mean unknown.
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
	HomeLatitude  float64 `json:"homeLatitude,omitempty"`
	HomeLongitude float64 `json:"homeLongitude,omitempty"`

	// Merchant attributes reported by the acquirer. Zero values mean unknown.
	MerchantID    string `json:"merchantId,omitempty"`
	MerchantType  string `json:"merchantType,omitempty"`
	MerchantZip   string `json:"merchantZip,omitempty"`
	MerchantCity  string `json:"merchantCity,omitempty"`
	HasHotFoodBar bool   `json:"hasHotFoodBar,omitempty"`
	WICAuthorized bool   `json:"wicAuthorized,omitempty"`

	Items   []LineItem `json:"items,omitempty"`
	PayeeID string     `json:"payeeId,omitempty"`

	// State is the beneficiary's issuing state. Empty means MerchantState.
	State string `json:"state,omitempty"`
}

// IssuingState returns the beneficiary's state, falling back to the merchant's.
func (t *TransactionContext) IssuingState() string {
	if t.State != "" {
		return t.State
	}
	return t.MerchantState
}

// HasLocation reports whether both the transaction and home coordinates are known.
func (t *TransactionContext) HasLocation() bool {
	return (t.Latitude != 0 || t.Longitude != 0) && (t.HomeLatitude != 0 || t.HomeLongitude != 0)
}

// LineItem is one purchased item.
type LineItem struct {
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	UPCCode     string  `json:"upcCode,omitempty"`
	Price       float64 `json:"price,omitempty"`
	IsHot       bool    `json:"isHot,omitempty"`
	IsPrepared  bool    `json:"isPrepared,omitempty"`
}

// CompletedTransaction is a row of authoritative transaction history.
type CompletedTransaction struct {
	ID        string    `json:"id"`
	WalletID  string    `json:"walletId"`
	Program   string    `json:"program"`
	MCC       string    `json:"mcc"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
