package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/ledger"
	"github.com/theleanbow/meroshare-automation/internal/logging"
)

// Handler serves the account and history routes.
type Handler struct {
	accounts *accounts.Service
	ledger   ledger.Repository
	log      logging.Logger
}

func NewHandler(svc *accounts.Service, repo ledger.Repository, log logging.Logger) *Handler {
	return &Handler{accounts: svc, ledger: repo, log: log}
}

// accountView is the listing shape. Secrets are decrypted for display on
// the trusted admin surface; a record the vault cannot open is still
// listed, flagged unreadable, so the operator can find and re-enroll it.
type accountView struct {
	ID         string `json:"id"`
	FullName   string `json:"fullname"`
	BOID       string `json:"boid"`
	DPID       string `json:"dpId"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	CRNNumber  string `json:"crnNumber,omitempty"`
	PIN        string `json:"pin,omitempty"`
	Unreadable bool   `json:"unreadable,omitempty"`
}

type enrollRequest struct {
	FullName  string `json:"fullname"`
	BOID      string `json:"boid"`
	DPID      string `json:"dpId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CRNNumber string `json:"crnNumber"`
	PIN       string `json:"pin"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	creds, failures, err := h.accounts.DecryptAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]accountView, 0, len(creds)+len(failures))
	for _, c := range creds {
		views = append(views, accountView{
			ID: c.ID, FullName: c.FullName, BOID: c.BOID, DPID: c.DPID,
			Username: c.Username, Password: c.Password,
			CRNNumber: c.CRNNumber, PIN: c.PIN,
		})
	}
	for _, f := range failures {
		h.log.Warn(r.Context(), "unreadable account in listing",
			"username", f.Account.Username, "error", f.Err)
		views = append(views, accountView{
			ID: f.Account.ID, FullName: f.Account.FullName, BOID: f.Account.BOID,
			DPID: f.Account.DPID, Username: f.Account.Username, Unreadable: true,
		})
	}

	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleEnrollAccount(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	acc, err := h.accounts.Enroll(r.Context(), accounts.Credentials{
		FullName:  req.FullName,
		BOID:      req.BOID,
		DPID:      req.DPID,
		Username:  req.Username,
		Password:  req.Password,
		CRNNumber: req.CRNNumber,
		PIN:       req.PIN,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info(r.Context(), "account enrolled", "id", acc.ID, "username", acc.Username)

	// The response is the at-rest form: secrets already ciphertext.
	h.writeJSON(w, http.StatusCreated, acc)
}

func (h *Handler) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.accounts.Remove(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info(r.Context(), "account removed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Load(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrConfiguration):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
