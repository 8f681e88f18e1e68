package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/internal/orchestrator"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

type dealAction struct {
	use   string
	short string
	run   func(*orchestrator.DealView, context.Context) error
	// needsDeal loads the view before running the action.
	needsDeal bool
}

var dealActions = []dealAction{
	{use: "fund", short: "Approve the escrow for the deal amount and fund the deal", run: (*orchestrator.DealView).Fund, needsDeal: true},
	{use: "complete", short: "Mark the deal completed on chain", run: (*orchestrator.DealView).MarkCompleted},
	{use: "dispute", short: "Open a dispute on chain", run: (*orchestrator.DealView).Dispute},
	{use: "release", short: "Ask the backend to release the escrowed funds", run: (*orchestrator.DealView).AdminRelease},
	{use: "refund", short: "Ask the backend to refund the escrowed funds", run: (*orchestrator.DealView).AdminRefund},
	{use: "rescore", short: "Ask the backend to recompute the deal risk", run: (*orchestrator.DealView).Rescore},
}

func newDealsCmd() *cobra.Command {
	var decimals uint8

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Browse and operate escrow deals",
	}
	cmd.PersistentFlags().Uint8Var(&decimals, "decimals", 18, "token decimals used to display amounts")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all deals, latest update first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Stop()

			err = app.board.Refresh(cmd.Context())
			renderBoard(cmd.OutOrStdout(), app.board.Snapshot(), decimals)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a deal with its transaction trail and risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, view, err := openView(cmd, args[0])
			if err != nil {
				return err
			}
			defer app.Stop()

			err = view.Refresh(cmd.Context())
			renderView(cmd.OutOrStdout(), view.Snapshot(), decimals, app.config.Actions.RiskReasonsLimit)
			return err
		},
	})

	cmd.AddCommand(newCreateCmd(&decimals))
	cmd.AddCommand(newWatchCmd(&decimals))
	cmd.AddCommand(newActionsCmd())

	for _, action := range dealActions {
		cmd.AddCommand(newActionCmd(action, &decimals))
	}
	return cmd
}

func openView(cmd *cobra.Command, rawID string) (*Application, *orchestrator.DealView, error) {
	dealID, err := models.ParseDealID(rawID)
	if err != nil {
		return nil, nil, err
	}
	app, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	view, err := app.registry.View(dealID)
	if err != nil {
		app.Stop()
		return nil, nil, err
	}
	return app, view, nil
}

func newActionCmd(action dealAction, decimals *uint8) *cobra.Command {
	return &cobra.Command{
		Use:   action.use + " <id>",
		Short: action.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, view, err := openView(cmd, args[0])
			if err != nil {
				return err
			}
			defer app.Stop()

			if action.needsDeal {
				if err := view.EnsureLoaded(cmd.Context()); err != nil {
					return err
				}
			}

			err = action.run(view, cmd.Context())
			renderView(cmd.OutOrStdout(), view.Snapshot(), *decimals, app.config.Actions.RiskReasonsLimit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s: done\n", action.use)
			return nil
		},
	}
}

func newCreateCmd(decimals *uint8) *cobra.Command {
	var (
		req      models.CreateDealRequest
		txCreate string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a deal record in the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Stop()

			if req.Token == "" {
				req.Token = app.config.Chain.TokenAddress
			}
			if txCreate != "" {
				req.TxCreate = &txCreate
			}
			warnMalformed(app, req)

			deal, err := app.board.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created deal %d (%s)\n", deal.DealIDOnChain, deal.Status)
			renderBoard(cmd.OutOrStdout(), app.board.Snapshot(), *decimals)
			return nil
		},
	}

	cmd.Flags().Int64Var(&req.DealIDOnChain, "id", 0, "on-chain deal id")
	cmd.Flags().StringVar(&req.ClientWallet, "client", "", "client wallet address")
	cmd.Flags().StringVar(&req.SellerWallet, "seller", "", "seller wallet address")
	cmd.Flags().StringVar(&req.Token, "token", "", "token address (defaults to chain.token_address)")
	cmd.Flags().StringVar(&req.Amount, "amount", "", "amount in the token's smallest unit")
	cmd.Flags().StringVar(&txCreate, "tx-create", "", "hash of the on-chain create transaction")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("client")
	cmd.MarkFlagRequired("seller")
	cmd.MarkFlagRequired("amount")
	return cmd
}

// warnMalformed logs fields that do not look like chain values. The
// backend decides whether to accept them.
func warnMalformed(app *Application, req models.CreateDealRequest) {
	for field, addr := range map[string]string{
		"client": req.ClientWallet,
		"seller": req.SellerWallet,
		"token":  req.Token,
	} {
		if addr != "" && !utils.IsValidAddress(addr) {
			app.logger.WithField(field, addr).Warn("Value is not a hex address")
		}
	}
	if req.TxCreate != nil && !utils.IsTxHash(*req.TxCreate) {
		app.logger.WithField("tx_create", *req.TxCreate).Warn("Value is not a transaction hash")
	}
}

// newWatchCmd polls a deal until its status changes, or until it reaches
// --status when given.
func newWatchCmd(decimals *uint8) *cobra.Command {
	var (
		target   string
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Poll a deal until its status changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			want := models.DealStatus(target)
			if target != "" && !want.Valid() {
				return fmt.Errorf("unknown status %q", target)
			}

			app, view, err := openView(cmd, args[0])
			if err != nil {
				return err
			}
			defer app.Stop()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			status, err := watchDeal(ctx, view, want, interval, func(s models.DealStatus) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", time.Now().Format(time.TimeOnly), s)
			})
			renderView(cmd.OutOrStdout(), view.Snapshot(), *decimals, app.config.Actions.RiskReasonsLimit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nDeal reached %s\n", status)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "status", "", "wait for this status instead of any change")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long (0 waits forever)")
	return cmd
}

// watchDeal refreshes view every interval. It returns once the status
// equals want, or, with an empty want, once it differs from the first
// status observed. Failed refreshes are reported and retried.
func watchDeal(ctx context.Context, view *orchestrator.DealView, want models.DealStatus, interval time.Duration, observe func(models.DealStatus)) (models.DealStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var initial models.DealStatus
	check := func() (models.DealStatus, bool, error) {
		err := view.Refresh(ctx)
		if errors.Is(err, models.ErrInvalidDealID) {
			return "", false, err
		}
		state := view.Snapshot()
		if state.Deal == nil {
			return "", false, nil
		}
		status := state.Deal.Status
		if initial == "" {
			initial = status
			observe(status)
			return status, status == want, nil
		}
		if status != initial {
			observe(status)
		}
		if want != "" {
			return status, status == want, nil
		}
		return status, status != initial, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, done, err := check()
		if err != nil || done {
			return status, err
		}
		select {
		case <-ctx.Done():
			return status, fmt.Errorf("stopped waiting for deal %d: %w", view.DealID(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func newActionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "actions <id>",
		Short: "Show the journaled actions of a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dealID, err := models.ParseDealID(args[0])
			if err != nil {
				return err
			}
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Stop()

			records, err := app.journal.List(cmd.Context(), models.ActionFilter{DealIDOnChain: &dealID, Limit: limit})
			if err != nil {
				return err
			}
			renderActions(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}
