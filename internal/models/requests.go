package models

import (
	"fmt"
	"strings"
)

// CreateDealRequest is the body of POST /deals.
type CreateDealRequest struct {
	DealIDOnChain int64   `json:"dealIdOnChain"`
	ClientWallet  string  `json:"clientWallet"`
	SellerWallet  string  `json:"sellerWallet"`
	Token         string  `json:"token"`
	Amount        string  `json:"amount"`
	TxCreate      *string `json:"txCreate,omitempty"`
}

// Validate checks field presence only; addresses are not validated here.
func (r *CreateDealRequest) Validate() error {
	if err := ValidateDealID(r.DealIDOnChain); err != nil {
		return err
	}
	required := map[string]string{
		"clientWallet": r.ClientWallet,
		"sellerWallet": r.SellerWallet,
		"token":        r.Token,
		"amount":       r.Amount,
	}
	for _, field := range []string{"clientWallet", "sellerWallet", "token", "amount"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("%s is required", field)
		}
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		return err
	}
	if r.TxCreate != nil && strings.TrimSpace(*r.TxCreate) == "" {
		r.TxCreate = nil
	}
	return nil
}

// DealIDRequest is the body of the admin release/refund endpoints.
type DealIDRequest struct {
	DealIDOnChain int64 `json:"dealIdOnChain"`
}

// AdminActionResult is returned by the admin release/refund endpoints.
type AdminActionResult struct {
	OK     bool    `json:"ok"`
	TxHash *string `json:"txHash,omitempty"`
}
