package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/sprite-ai/prlens/internal/changeset"
	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/jobs"
	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/pipeline"
	"github.com/sprite-ai/prlens/internal/report"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Analyze ---

// analyzeRequest carries either a complete change set or a raw diff plus
// pull request metadata.
type analyzeRequest struct {
	ChangeSet *model.ChangeSet `json:"change_set,omitempty"`

	Diff            string            `json:"diff,omitempty"`
	RevisionID      string            `json:"revision_id,omitempty"`
	Repository      string            `json:"repository,omitempty"`
	PRNumber        int               `json:"pr_number,omitempty"`
	HeadSHA         string            `json:"head_sha,omitempty"`
	BaseSHA         string            `json:"base_sha,omitempty"`
	Title           string            `json:"title,omitempty"`
	Body            string            `json:"body,omitempty"`
	Author          string            `json:"author,omitempty"`
	Labels          []string          `json:"labels,omitempty"`
	DependencyFiles map[string]string `json:"dependency_files,omitempty"`
}

func (req *analyzeRequest) changeSet(maxPatchBytes int) (*model.ChangeSet, error) {
	if req.ChangeSet != nil {
		return changeset.Prepare(req.ChangeSet, maxPatchBytes)
	}
	if req.Diff == "" {
		return nil, errors.New("change_set or diff is required")
	}
	cs := changeset.FromDiff(req.Diff, changeset.Meta{
		RevisionID: req.RevisionID,
		Repository: req.Repository,
		PRNumber:   req.PRNumber,
		HeadSHA:    req.HeadSHA,
		BaseSHA:    req.BaseSHA,
		Title:      req.Title,
		Body:       req.Body,
		Author:     req.Author,
		Labels:     req.Labels,
	}, maxPatchBytes)
	cs.Dependencies = req.DependencyFiles
	return cs, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if name := r.URL.Query().Get("format"); name != "" {
		f, err := report.ParseFormat(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	var req analyzeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	cs, err := req.changeSet(s.cfg.Pipeline.MaxPatchBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.orch.Run(r.Context(), pipeline.Static(cs))
	if err != nil && rep == nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("run", rep.RunID).Msg("report computed but not published")
	}
	writeReport(w, format, rep, s.cfg.Pipeline.Marker)
}

var contentTypes = map[report.Format]string{
	report.FormatText:     "text/plain; charset=utf-8",
	report.FormatMarkdown: "text/markdown; charset=utf-8",
	report.FormatHTML:     "text/html; charset=utf-8",
	report.FormatJSON:     "application/json",
	report.FormatYAML:     "application/yaml",
}

func writeReport(w http.ResponseWriter, format report.Format, rep *model.Report, marker string) {
	var buf bytes.Buffer
	if err := report.Render(&buf, format, rep, marker); err != nil {
		writeError(w, http.StatusInternalServerError, "rendering report: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// --- Parse ---

type parseRequest struct {
	Diff string `json:"diff"`
}

type parseResponse struct {
	Files    []fileJSON      `json:"files"`
	Stats    diffStatsJSON   `json:"stats"`
	Hotspots []model.Hotspot `json:"hotspots,omitempty"`
}

type fileJSON struct {
	Name      string         `json:"name"`
	OldName   string         `json:"old_name,omitempty"`
	IsNew     bool           `json:"is_new,omitempty"`
	IsDeleted bool           `json:"is_deleted,omitempty"`
	IsBinary  bool           `json:"is_binary,omitempty"`
	Additions int            `json:"additions"`
	Deletions int            `json:"deletions"`
	Large     bool           `json:"large,omitempty"`
	Language  string         `json:"language,omitempty"`
	Functions []functionJSON `json:"functions,omitempty"`
}

type functionJSON struct {
	Name   string `json:"name"`
	Change string `json:"change"`
}

type diffStatsJSON struct {
	Files   int `json:"files"`
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if req.Diff == "" {
		writeError(w, http.StatusBadRequest, "diff is required")
		return
	}

	m := diff.Parse(req.Diff)
	nFiles, added, deleted := m.Stats()
	resp := parseResponse{
		Files: make([]fileJSON, 0, nFiles),
		Stats: diffStatsJSON{
			Files:   nFiles,
			Added:   added,
			Deleted: deleted,
		},
		Hotspots: diff.Hotspots(m),
	}

	for _, f := range m.Files {
		fj := fileJSON{
			Name:      f.Filename,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDeleted,
			IsBinary:  f.IsBinary,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Large:     f.Large,
			Language:  diff.Language(f.Filename),
		}
		if f.OldName != f.Filename {
			fj.OldName = f.OldName
		}
		for _, fn := range f.Functions {
			fj.Functions = append(fj.Functions, functionJSON{Name: fn.Name, Change: string(fn.Change)})
		}
		resp.Files = append(resp.Files, fj)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Jobs ---

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	cs, err := req.changeSet(s.cfg.Pipeline.MaxPatchBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.queue.Submit(pipeline.Static(cs))
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		s.metrics.jobsRejected.Inc()
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.Header().Set("Location", "/api/jobs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(jobs.StatusQueued)})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Status(r.PathValue("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}
