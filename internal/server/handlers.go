package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/internal/orchestrator"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
)

// actionResponse is the body of every deal action and reload.
type actionResponse struct {
	OK    bool                   `json:"ok"`
	Error string                 `json:"error,omitempty"`
	State orchestrator.ViewState `json:"state"`
}

// statusFor maps orchestrator errors onto HTTP statuses.
func statusFor(err error) int {
	var actionErr *orchestrator.ActionError
	switch {
	case errors.Is(err, models.ErrInvalidDealID):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrBusy), errors.Is(err, orchestrator.ErrDealNotLoaded):
		return http.StatusConflict
	case errors.As(err, &actionErr):
		if actionErr.Action == "load" || actionErr.Action == "list" {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) view(w http.ResponseWriter, r *http.Request) (*orchestrator.DealView, bool) {
	dealID, err := models.ParseDealID(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return nil, false
	}
	v, err := s.registry.View(dealID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return nil, false
	}
	return v, true
}

// Deals board

// listDealsHandler reloads the board and returns it. A reload already in
// flight is not an error; the current list is returned.
func (s *HTTPServer) listDealsHandler(w http.ResponseWriter, r *http.Request) {
	err := s.board.Refresh(r.Context())
	if err != nil && !errors.Is(err, orchestrator.ErrBusy) {
		s.writeJSON(w, statusFor(err), s.board.Snapshot())
		return
	}
	s.writeJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *HTTPServer) createDealHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deal, err := s.board.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error(), nil)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"deal":  deal,
		"board": s.board.Snapshot(),
	})
}

// Deal view

// getDealHandler returns the view state, loading it on first access.
func (s *HTTPServer) getDealHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	if err := v.EnsureLoaded(r.Context()); err != nil && !errors.Is(err, orchestrator.ErrBusy) {
		s.writeJSON(w, statusFor(err), v.Snapshot())
		return
	}
	s.writeJSON(w, http.StatusOK, v.Snapshot())
}

func (s *HTTPServer) refreshDealHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	s.respondAction(w, v, v.Refresh(r.Context()))
}

// actionHandler runs one deal action. Fund needs a loaded deal, so the
// view is loaded first when it has never been.
func (s *HTTPServer) actionHandler(name string, action func(*orchestrator.DealView, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := s.view(w, r)
		if !ok {
			return
		}
		if name == "fund" {
			if err := v.EnsureLoaded(r.Context()); err != nil && !errors.Is(err, orchestrator.ErrBusy) {
				s.respondAction(w, v, err)
				return
			}
		}
		s.respondAction(w, v, action(v, r.Context()))
	}
}

func (s *HTTPServer) respondAction(w http.ResponseWriter, v *orchestrator.DealView, err error) {
	resp := actionResponse{OK: err == nil, State: v.Snapshot()}
	if err != nil {
		resp.Error = err.Error()
		s.writeJSON(w, statusFor(err), resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) listActionsHandler(w http.ResponseWriter, r *http.Request) {
	dealID, err := models.ParseDealID(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := models.ActionFilter{DealIDOnChain: &dealID, Limit: 50}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		filter.Limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		filter.Offset = o
	}
	if action := r.URL.Query().Get("action"); action != "" {
		filter.Action = &action
	}

	records, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve actions", err)
		return
	}
	if records == nil {
		records = []*models.ActionRecord{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": records,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
		"total":   len(records),
	})
}

// Wallet

type walletResponse struct {
	wallet.State
	TargetChainID int64 `json:"targetChainId"`
	WrongNetwork  bool  `json:"wrongNetwork"`
}

func (s *HTTPServer) walletState() walletResponse {
	return walletResponse{
		State:         s.session.Snapshot(),
		TargetChainID: s.targetChainID,
		WrongNetwork:  s.session.WrongNetwork(s.targetChainID),
	}
}

func (s *HTTPServer) walletHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.walletState())
}

func (s *HTTPServer) connectWalletHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Connect(r.Context()); err != nil {
		switch {
		case errors.Is(err, wallet.ErrNoWalletFound):
			s.writeError(w, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, wallet.ErrUserRejected):
			s.writeError(w, http.StatusForbidden, err.Error(), nil)
		default:
			s.writeError(w, http.StatusBadGateway, "Failed to connect wallet", err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, s.walletState())
}
