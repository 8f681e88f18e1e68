package models

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DealStatus mirrors the on-chain escrow state as observed by the backend.
type DealStatus string

const (
	DealStatusCreated   DealStatus = "CREATED"
	DealStatusFunded    DealStatus = "FUNDED"
	DealStatusCompleted DealStatus = "COMPLETED"
	DealStatusReleased  DealStatus = "RELEASED"
	DealStatusRefunded  DealStatus = "REFUNDED"
	DealStatusDisputed  DealStatus = "DISPUTED"
)

// Valid reports whether s is one of the known statuses.
func (s DealStatus) Valid() bool {
	switch s {
	case DealStatusCreated, DealStatusFunded, DealStatusCompleted,
		DealStatusReleased, DealStatusRefunded, DealStatusDisputed:
		return true
	}
	return false
}

// IsTerminal reports whether funds have left the escrow.
func (s DealStatus) IsTerminal() bool {
	return s == DealStatusReleased || s == DealStatusRefunded
}

// Deal is one escrow agreement as stored by the backend.
type Deal struct {
	ID            string     `json:"id"`
	DealIDOnChain int64      `json:"dealIdOnChain"`
	ClientWallet  string     `json:"clientWallet"`
	SellerWallet  string     `json:"sellerWallet"`
	Token         string     `json:"token"`
	Amount        string     `json:"amount"`
	Status        DealStatus `json:"status"`

	TxCreate   *string `json:"txCreate"`
	TxFund     *string `json:"txFund"`
	TxComplete *string `json:"txComplete"`
	TxRelease  *string `json:"txRelease"`
	TxRefund   *string `json:"txRefund"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AmountWei parses Amount as an unsigned integer in the token's smallest unit.
func (d *Deal) AmountWei() (*big.Int, error) {
	return ParseAmount(d.Amount)
}

// TxSlot is one entry of a deal's transaction trail.
type TxSlot struct {
	Label string  `json:"label"`
	Hash  *string `json:"hash"`
}

// TxTrail returns the five transaction slots in lifecycle order.
func (d *Deal) TxTrail() []TxSlot {
	return []TxSlot{
		{Label: "txCreate", Hash: d.TxCreate},
		{Label: "txFund", Hash: d.TxFund},
		{Label: "txComplete", Hash: d.TxComplete},
		{Label: "txRelease", Hash: d.TxRelease},
		{Label: "txRefund", Hash: d.TxRefund},
	}
}

// SortByUpdatedDesc orders deals latest first. Ties keep their input order.
func SortByUpdatedDesc(deals []Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].UpdatedAt.After(deals[j].UpdatedAt)
	})
}

// ParseAmount parses a base-10 unsigned integer string.
func ParseAmount(raw string) (*big.Int, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return nil, &InvalidAmountError{Amount: raw}
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &InvalidAmountError{Amount: raw}
	}
	return amount, nil
}

// ValidateDealID is the gate applied before any request that takes a deal id.
func ValidateDealID(id int64) error {
	if id <= 0 {
		return ErrInvalidDealID
	}
	return nil
}

// Ids written in float form must stay below this bound; beyond it a
// float64 no longer holds every integer.
const maxExactFloatID = 1 << 53

// ValidateDealIDFloat applies the same gate to ids coming from free-form
// numeric input, rejecting NaN, infinities and fractional values.
func ValidateDealIDFloat(id float64) (int64, error) {
	if math.IsNaN(id) || math.IsInf(id, 0) || id <= 0 || id != math.Trunc(id) || id >= math.MaxInt64 {
		return 0, ErrInvalidDealID
	}
	return int64(id), nil
}

// ParseDealID parses a deal id from a path segment or CLI argument.
// Plain integers are parsed exactly; other numeric forms such as "1e3"
// are accepted only while a float64 represents them without rounding.
func ParseDealID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if err := ValidateDealID(id); err != nil {
			return 0, err
		}
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f >= maxExactFloatID {
		return 0, ErrInvalidDealID
	}
	return ValidateDealIDFloat(f)
}
