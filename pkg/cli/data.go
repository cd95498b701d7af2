package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/strshort/pkg/batch"
	"github.com/mchmarny/strshort/pkg/data"
	"github.com/mchmarny/strshort/pkg/shorten"
)

const (
	maxRequestBytes = 1 << 20
	maxBatchInputs  = 10000
)

type shortenRequest struct {
	Input string `json:"input"`
	Trace bool   `json:"trace"`
}

type batchRequest struct {
	Inputs []string `json:"inputs"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func shortenAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "error decoding request")
			return
		}

		res, err := cfg.Reducer.Trace(req.Input)
		if err != nil {
			saveRun(cfg, &data.Run{Input: req.Input, Error: err.Error(), Source: data.SourceServer})
			if errors.Is(err, shorten.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to shorten", "input", req.Input, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to shorten")
			return
		}

		saveRun(cfg, &data.Run{
			Input:  req.Input,
			Output: res.Output,
			Steps:  len(res.Steps),
			Valid:  true,
			Source: data.SourceServer,
		})

		if !req.Trace {
			res.Steps = nil
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func batchAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "error decoding request")
			return
		}
		if len(req.Inputs) > maxBatchInputs {
			writeError(w, http.StatusRequestEntityTooLarge, "too many inputs")
			return
		}

		items, err := batch.Run(r.Context(), cfg.Reducer, req.Inputs, cfg.Config.Concurrency)
		if err != nil {
			slog.Error("failed to run batch", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to run batch")
			return
		}

		recordRuns(cfg, toRuns(items, data.SourceServer))

		writeJSON(w, http.StatusOK, items)
	}
}

func tableAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, cfg.Reducer.Table().Map())
	}
}

func historyAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryParamInt(r, "limit", data.RunListLimitDefault)
		list, err := data.ListRuns(cfg.DB, limit)
		if err != nil {
			slog.Error("failed to list runs", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func historyStatsAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state, err := data.GetDataState(cfg.DB)
		if err != nil {
			slog.Error("failed to get history state", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get history state")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func versionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": date,
		})
	}
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
