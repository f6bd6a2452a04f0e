package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/logger"
)

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			logger.L().WithError(err).Warn("health: database ping failed")
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status, "database": status})
}

type entryView struct {
	Actor    string          `json:"actor"`
	ActorID  string          `json:"actor_id,omitempty"`
	Quantity decimal.Decimal `json:"quantity_m"`
	Rate     decimal.Decimal `json:"rate"`
	Value    decimal.Decimal `json:"value"`
}

type ledgerView struct {
	Buys      []entryView     `json:"buys"`
	Sells     []entryView     `json:"sells"`
	BuyTotal  decimal.Decimal `json:"buy_total"`
	SellTotal decimal.Decimal `json:"sell_total"`
	Net       decimal.Decimal `json:"net"`
	Outcome   string          `json:"outcome"`
}

func newLedgerView(r ledger.Report) ledgerView {
	v := ledgerView{
		Buys:      entryViews(r.Buys),
		Sells:     entryViews(r.Sells),
		BuyTotal:  r.BuyTotal,
		SellTotal: r.SellTotal,
		Net:       r.Net,
	}
	switch r.Outcome() {
	case ledger.Surplus:
		v.Outcome = "surplus"
	case ledger.Deficit:
		v.Outcome = "deficit"
	default:
		v.Outcome = "balanced"
	}
	return v
}

func entryViews(entries []ledger.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			Actor:    e.ActorName,
			ActorID:  e.ActorID,
			Quantity: e.Quantity,
			Rate:     e.Rate,
			Value:    e.Value(),
		})
	}
	return out
}

// Protected handlers
func (a *API) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	guildID := r.Context().Value(guildKey).(int64)
	report, err := a.ledger.Snapshot(r.Context(), guildID)
	if err != nil {
		a.serviceError(w, guildID, "read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, newLedgerView(report))
}

func (a *API) handleRebuildLedger(w http.ResponseWriter, r *http.Request) {
	guildID := r.Context().Value(guildKey).(int64)
	report, err := a.ledger.Rebuild(r.Context(), guildID)
	if err != nil {
		a.serviceError(w, guildID, "rebuild ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, newLedgerView(report))
}

func (a *API) handleResetLedger(w http.ResponseWriter, r *http.Request) {
	guildID := r.Context().Value(guildKey).(int64)
	if err := a.ledger.ResetToZero(r.Context(), guildID); err != nil {
		a.serviceError(w, guildID, "reset ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ledger report reset"})
}

type balanceView struct {
	AdminID   int64     `json:"admin_id,string"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *API) handleGetStock(w http.ResponseWriter, r *http.Request) {
	guildID := r.Context().Value(guildKey).(int64)
	balances, total, err := a.stock.Balances(r.Context(), guildID)
	if err != nil {
		a.serviceError(w, guildID, "list stock", err)
		return
	}
	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView(b))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"global": total,
		"admins": views,
	})
}

func (a *API) serviceError(w http.ResponseWriter, guildID int64, op string, err error) {
	logger.Guild(guildID).WithError(err).Errorf("api: %s", op)
	http.Error(w, "failed to "+op, http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
