package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veilpay/payroll-node/audit"
	"github.com/veilpay/payroll-node/storage"
	"github.com/veilpay/payroll-node/types"
)

// issueViewKey handles POST /viewkeys.
func (a *API) issueViewKey(w http.ResponseWriter, r *http.Request) {
	req := &IssueViewKeyRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	scope, err := req.Scope.ToScope()
	if err != nil {
		ErrInvalidScope.WithErr(err).Write(w)
		return
	}
	vk, err := a.viewKeys.Issue(req.Company, req.Grantor, req.Auditor, scope, req.DurationDays)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidScope) {
			ErrInvalidScope.WithErr(err).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, viewKeyResponse(vk))
}

// getViewKey handles GET /viewkeys/{viewKeyId}.
func (a *API) getViewKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, ViewKeyURLParam))
	if err != nil {
		ErrMalformedViewKey.WithErr(err).Write(w)
		return
	}
	vk, err := a.viewKeys.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrViewKeyNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, viewKeyResponse(vk))
}

// revokeViewKey handles DELETE /viewkeys/{viewKeyId}. Revocation is
// idempotent, so the endpoint always succeeds for a well-formed ID.
func (a *API) revokeViewKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, ViewKeyURLParam))
	if err != nil {
		ErrMalformedViewKey.WithErr(err).Write(w)
		return
	}
	if err := a.viewKeys.Revoke(id); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// generateReport handles GET /viewkeys/{viewKeyId}/report?from=&to=.
func (a *API) generateReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, ViewKeyURLParam))
	if err != nil {
		ErrMalformedViewKey.WithErr(err).Write(w)
		return
	}
	from, err := periodQueryParam(r, "from")
	if err != nil {
		ErrMalformedParam.WithErr(err).Write(w)
		return
	}
	to, err := periodQueryParam(r, "to")
	if err != nil {
		ErrMalformedParam.WithErr(err).Write(w)
		return
	}

	vk, err := a.viewKeys.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrViewKeyNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	records, err := a.storage.PaymentRecords(vk.Company)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	report, err := a.aggregator.GenerateReport(vk, records, from, to)
	if err != nil {
		if errors.Is(err, audit.ErrExpiredViewKey) {
			ErrViewKeyExpired.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, report)
}

// verifierMaterial handles GET /verifier.
func (a *API) verifierMaterial(w http.ResponseWriter, _ *http.Request) {
	material, err := a.prover.ExportVerificationKey()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, material)
}

// periodQueryParam parses an optional YYYYMM query parameter; absent means
// unbounded.
func periodQueryParam(r *http.Request, name string) (types.Period, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return types.Period(v), nil
}
