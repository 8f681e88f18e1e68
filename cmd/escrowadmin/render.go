package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/smartdevs17/escrow-admin/internal/format"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/internal/orchestrator"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
)

func renderBoard(w io.Writer, state orchestrator.BoardState, decimals uint8) {
	if state.Error != nil {
		fmt.Fprintf(w, "Error: %s\n", *state.Error)
	}
	if len(state.Deals) == 0 {
		fmt.Fprintln(w, "No deals.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tAMOUNT\tCLIENT\tSELLER\tUPDATED")
	for _, d := range state.Deals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			d.DealIDOnChain,
			d.Status,
			format.Amount(d.Amount, decimals),
			format.ShortAddress(d.ClientWallet),
			format.ShortAddress(d.SellerWallet),
			format.Time(d.UpdatedAt),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nNext deal id: %d\n", state.NextDealID)
}

func renderView(w io.Writer, state orchestrator.ViewState, decimals uint8, reasons int) {
	if state.Error != nil {
		fmt.Fprintf(w, "Error: %s\n", *state.Error)
	}
	if state.Deal == nil {
		fmt.Fprintf(w, "Deal %d is not loaded.\n", state.DealIDOnChain)
		return
	}
	d := state.Deal

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Deal\t%d\n", d.DealIDOnChain)
	fmt.Fprintf(tw, "Status\t%s\n", d.Status)
	fmt.Fprintf(tw, "Amount\t%s (%s)\n", format.Amount(d.Amount, decimals), d.Amount)
	fmt.Fprintf(tw, "Client\t%s\n", d.ClientWallet)
	fmt.Fprintf(tw, "Seller\t%s\n", d.SellerWallet)
	fmt.Fprintf(tw, "Token\t%s\n", d.Token)
	fmt.Fprintf(tw, "Created\t%s\n", format.Time(d.CreatedAt))
	fmt.Fprintf(tw, "Updated\t%s\n", format.Time(d.UpdatedAt))
	for _, slot := range d.TxTrail() {
		fmt.Fprintf(tw, "%s\t%s\n", slot.Label, format.OptionalHash(slot.Hash))
	}
	tw.Flush()

	renderRisk(w, state.Risk, reasons)
}

func renderRisk(w io.Writer, risk orchestrator.RiskState, reasons int) {
	fmt.Fprintln(w)
	switch {
	case risk.Status == orchestrator.RiskLoading:
		fmt.Fprintln(w, "Risk: loading")
		return
	case risk.Status != orchestrator.RiskAvailable || risk.Risk == nil:
		fmt.Fprintln(w, "Risk: unavailable")
		return
	}

	level := "-"
	if risk.Risk.RiskLevel != nil {
		level = string(*risk.Risk.RiskLevel)
	}
	fmt.Fprintf(w, "Risk: %s (score %s)\n", level, format.Score(risk.Risk.RiskScore))
	for _, reason := range risk.Risk.TopReasons(reasons) {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	if risk.Risk.RiskUpdatedAt != nil {
		fmt.Fprintf(w, "Scored at %s\n", format.Time(*risk.Risk.RiskUpdatedAt))
	}
}

func renderActions(w io.Writer, records []*models.ActionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No recorded actions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tACTION\tSTATUS\tDURATION\tTX\tERROR")
	for _, r := range records {
		errText := ""
		if r.Error != nil {
			errText = *r.Error
		}
		tx := "-"
		if len(r.TxHashes) > 0 {
			tx = format.ShortAddress(r.TxHashes[len(r.TxHashes)-1])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			format.Time(r.StartedAt), r.Action, r.Status, r.Duration().Round(time.Millisecond), tx, errText)
	}
	tw.Flush()
}

func renderWallet(w io.Writer, state wallet.State, target int64) {
	if !state.Present {
		fmt.Fprintln(w, wallet.ErrNoWalletFound.Error())
		return
	}
	if !state.Connected {
		fmt.Fprintln(w, "Wallet not connected.")
		return
	}
	fmt.Fprintf(w, "Connected: %s\n", format.ShortAddress(*state.Address))
	fmt.Fprintf(w, "Chain id: %d\n", *state.ChainID)
	if *state.ChainID != target {
		fmt.Fprintf(w, "Wrong network: expected chain id %d\n", target)
	}
}
