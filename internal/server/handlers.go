package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claude/healthsync/internal/metrics"
	"github.com/claude/healthsync/internal/provider"
)

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snap, err := s.svc.LoadDailyData(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	end, err := parseDate(r, "end")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	data, err := s.svc.LoadWeeklyData(r.Context(), end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req metrics.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fields to write"})
		return
	}

	written, err := s.svc.WriteHealthData(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"written": written})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	report, err := s.archive.Report(r.Context())
	if err != nil {
		s.log.Error("archive report failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleWidgetSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.StepsProjection(r.Context()))
}

func (s *Server) handleWidgetHydration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.HydrationProjection(r.Context()))
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.CheckPermissions(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      s.svc.Status(),
		"permissions": state,
	})
}

func (s *Server) handlePermissionsRequest(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.RequestPermissions(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      s.svc.Status(),
		"permissions": state,
	})
}

func (s *Server) handleSettingsOpen(w http.ResponseWriter, r *http.Request) {
	s.svc.OpenHealthSettings(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps provider errors onto HTTP statuses. Every
// error payload names the next step the consumer should take.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var perr *provider.PermissionError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":       "health permissions not granted",
			"remediation": perr.Remediation,
		})
		return
	}
	if errors.Is(err, provider.ErrPermissionDenied) {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":       "health permissions not granted",
			"remediation": provider.RemediationOpenSettings,
		})
		return
	}
	if errors.Is(err, provider.ErrPlatformUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":     "platform health service unavailable",
			"next_step": "install or enable the platform health service",
		})
		return
	}
	s.log.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseDate reads an optional YYYY-MM-DD query parameter; absent means
// the zero time, which downstream treats as today.
func parseDate(r *http.Request, param string) (time.Time, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(metrics.DateLayout, raw)
}
