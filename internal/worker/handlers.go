package worker

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/issuecluster/internal/dataset"
	"github.com/thebtf/issuecluster/internal/pipeline"
	"github.com/thebtf/issuecluster/internal/report"
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// handleHealth handles health check requests.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "ready",
		"version": s.version,
	})
}

// handleVersion returns the worker version for version checking.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": s.version})
}

// FileInfo describes the currently held dataset.
type FileInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// handleFiles returns the currently uploaded dataset, if any.
func (s *Service) handleFiles(w http.ResponseWriter, r *http.Request) {
	up := s.getUpload()
	if up == nil {
		writeJSON(w, map[string]interface{}{"files": []FileInfo{}})
		return
	}
	writeJSON(w, map[string]interface{}{
		"files": []FileInfo{{Name: up.name, Columns: up.ds.Header(), Rows: up.ds.Len()}},
	})
}

// handleUpload stores an uploaded CSV as the current dataset, replacing
// the previous one. The embedding cache keys on content, so re-uploading
// identical data keeps its cached embeddings.
func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, ds, err := s.readDatasetUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ds == nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}

	s.setUpload(name, ds)
	log.Info().Str("file", name).Int("rows", ds.Len()).Msg("Dataset uploaded")
	writeJSON(w, FileInfo{Name: name, Columns: ds.Header(), Rows: ds.Len()})
}

// ClusteringSummary is returned in the X-Clustering-Summary header and as
// the body when format=json.
type ClusteringSummary struct {
	TotalClusters       int     `json:"total_clusters"`
	SubstantialClusters int     `json:"substantial_clusters"`
	Threshold           float64 `json:"threshold"`
	Sorting             string  `json:"sorting"`
}

// handleClustering runs one clustering pass over the current dataset (or
// a dataset uploaded inline with the request) and returns the rendered
// artifact as the response body. Persistence failures cannot happen here:
// the worker never touches disk for reports.
func (s *Service) handleClustering(w http.ResponseWriter, r *http.Request) {
	name, ds, err := s.readDatasetUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ds != nil {
		s.setUpload(name, ds)
	} else {
		up := s.getUpload()
		if up == nil {
			http.Error(w, "no dataset uploaded", http.StatusBadRequest)
			return
		}
		ds = up.ds
	}

	opts := pipeline.Options{
		PrimaryColumn: s.config.PrimaryColumn,
		Threshold:     s.config.DefaultThreshold,
		SortKey:       s.config.DefaultSortKey,
	}
	if v := r.FormValue("columns"); v != "" {
		opts.Columns = strings.Split(v, ";")
	}
	if v := r.FormValue("distance_threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid distance_threshold %q", v), http.StatusBadRequest)
			return
		}
		opts.Threshold = t
	}
	if v := r.FormValue("sorting"); v != "" {
		opts.SortKey = v
	}
	format := r.FormValue("format")
	if format == "" {
		format = "html"
	}

	ctx, cancel := context.WithTimeout(r.Context(), ClusteringTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, ds, opts)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, pipeline.ErrConfig):
			status = http.StatusBadRequest
		case errors.Is(err, pipeline.ErrEmbedding):
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	summary := ClusteringSummary{
		TotalClusters:       res.TotalClusters,
		SubstantialClusters: res.SubstantialClusters,
		Threshold:           opts.Threshold,
		Sorting:             opts.SortKey,
	}
	w.Header().Set("X-Total-Clusters", strconv.Itoa(summary.TotalClusters))
	w.Header().Set("X-Substantial-Clusters", strconv.Itoa(summary.SubstantialClusters))

	switch format {
	case "json":
		writeJSON(w, summary)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := report.WriteTabular(w, res); err != nil {
			log.Error().Err(err).Msg("Failed to stream tabular report")
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		opts := report.HypertextOptions{TrackerBaseURL: s.config.TrackerBaseURL}
		if err := report.WriteHypertext(w, res, opts); err != nil {
			log.Error().Err(err).Msg("Failed to stream hypertext report")
		}
	default:
		http.Error(w, fmt.Sprintf("format must be csv, html or json, got %q", format), http.StatusBadRequest)
	}
}

// readDatasetUpload decodes a multipart "file" (or "csv_file") part into
// a dataset. Returns (name, nil, nil) when the request carries no file.
func (s *Service) readDatasetUpload(r *http.Request) (string, *dataset.Dataset, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		return "", nil, nil
	}
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("parse upload: %w", err)
	}

	var file multipart.File
	var header *multipart.FileHeader
	var err error
	for _, field := range []string{"file", "csv_file"} {
		file, header, err = r.FormFile(field)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", nil, nil
	}
	defer file.Close()

	ds, err := dataset.Decode(file, s.config.Delimiter())
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", header.Filename, err)
	}
	return header.Filename, ds, nil
}
