package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/amishk599/agregador/internal/model"
	"github.com/amishk599/agregador/internal/notifier"
	"github.com/amishk599/agregador/internal/pipeline"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: "agregador", Version: s.version})
}

type aggregateRequest struct {
	SourceID string `json:"fonte_id"`
}

type sourceResultJSON struct {
	SourceID   string   `json:"fonte_id"`
	SourceName string   `json:"fonte_nome"`
	Status     string   `json:"status"`
	New        int      `json:"vagas_novas"`
	Duplicate  int      `json:"vagas_duplicadas"`
	Updated    int      `json:"vagas_atualizadas"`
	ElapsedMS  int64    `json:"tempo_ms"`
	Errors     []string `json:"erros"`
}

type aggregateResponse struct {
	Success   bool               `json:"sucesso"`
	ElapsedMS int64              `json:"tempo_total_ms"`
	Sources   int                `json:"fontes_processadas"`
	New       int                `json:"total_vagas_novas"`
	Duplicate int                `json:"total_vagas_duplicadas"`
	Results   []sourceResultJSON `json:"resultados"`
}

type failureResponse struct {
	Success bool   `json:"sucesso"`
	Error   string `json:"erro"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeOptional(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, failureResponse{Error: fmt.Sprintf("corpo inválido: %v", err)})
		return
	}

	report, err := s.aggregator.Run(r.Context(), req.SourceID)
	if errors.Is(err, model.ErrSourceNotFound) {
		respondJSON(w, http.StatusNotFound, failureResponse{Error: fmt.Sprintf("fonte %q não encontrada", req.SourceID)})
		return
	}
	if err != nil {
		s.logger.Error("aggregation failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, failureResponse{Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, toAggregateResponse(report))
}

func toAggregateResponse(report pipeline.Report) aggregateResponse {
	resp := aggregateResponse{
		Success:   true,
		ElapsedMS: report.Elapsed.Milliseconds(),
		Sources:   report.Sources,
		New:       report.New,
		Duplicate: report.Duplicate,
		Results:   make([]sourceResultJSON, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		errs := res.Errors
		if errs == nil {
			errs = []string{}
		}
		resp.Results = append(resp.Results, sourceResultJSON{
			SourceID:   res.SourceID,
			SourceName: res.SourceName,
			Status:     string(res.Status),
			New:        res.New,
			Duplicate:  res.Duplicate,
			Updated:    res.Updated,
			ElapsedMS:  res.Elapsed.Milliseconds(),
			Errors:     errs,
		})
	}
	return resp
}

type expiredListingJSON struct {
	ID        string `json:"id"`
	Title     string `json:"titulo"`
	Company   string `json:"empresa"`
	ExpiresAt string `json:"data_expiracao,omitempty"`
}

type sweepResponse struct {
	Success     bool                 `json:"success"`
	Deactivated int                  `json:"vagas_desativadas"`
	Listings    []expiredListingJSON `json:"vagas"`
	Message     string               `json:"mensagem"`
}

type sweepFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := s.sweeper.Sweep(r.Context(), s.now())
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, sweepFailure{Error: err.Error()})
		return
	}

	resp := sweepResponse{
		Success:     true,
		Deactivated: len(expired),
		Listings:    make([]expiredListingJSON, 0, len(expired)),
		Message:     fmt.Sprintf("%d vagas desativadas", len(expired)),
	}
	for _, l := range expired {
		item := expiredListingJSON{ID: l.ID, Title: l.Title, Company: l.Company}
		if l.ExpiresAt != nil {
			item.ExpiresAt = l.ExpiresAt.Format("2006-01-02")
		}
		resp.Listings = append(resp.Listings, item)
	}
	respondJSON(w, http.StatusOK, resp)
}

type notifyResponse struct {
	Success        bool   `json:"sucesso"`
	NotificationID string `json:"notificacao_id,omitempty"`
	EmailSent      bool   `json:"email_enviado"`
	Error          string `json:"erro,omitempty"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifier.Request
	if err := decodeOptional(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, failureResponse{Error: fmt.Sprintf("corpo inválido: %v", err)})
		return
	}

	n, err := s.notifier.Send(r.Context(), req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, notifyResponse{Success: true, NotificationID: n.ID, EmailSent: true})
	case errors.Is(err, notifier.ErrInvalidRequest), errors.Is(err, notifier.ErrUnknownTemplate):
		respondJSON(w, http.StatusBadRequest, failureResponse{Error: err.Error()})
	case n.ID != "":
		// stored in-app, email not delivered
		respondJSON(w, http.StatusOK, notifyResponse{Success: true, NotificationID: n.ID, Error: err.Error()})
	default:
		s.logger.Error("notification failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, failureResponse{Error: err.Error()})
	}
}
