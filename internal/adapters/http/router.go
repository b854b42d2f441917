package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/observability/metrics"
)

type Router struct {
	ingestor ports.DocumentIngestor
	answerer ports.QuestionAnswerer
	reader   ports.DocumentReader
	history  ports.AnswerHistory
	metrics  *metrics.HTTPServerMetrics
	service  string
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	answerer ports.QuestionAnswerer,
	reader ports.DocumentReader,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestor: ingestor,
		answerer: answerer,
		reader:   reader,
		metrics:  serverMetrics,
		service:  "api",
	}
}

// WithAnswerHistory enables GET /v1/answers over the audit log.
func (rt *Router) WithAnswerHistory(history ports.AnswerHistory) *Router {
	rt.history = history
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/ask", rt.ask)
	if rt.history != nil {
		mux.HandleFunc("/v1/answers", rt.recentAnswers)
	}
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return withRequestID(withAccessLog(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	SessionID     string           `json:"session_id"`
	Question      string           `json:"question"`
	Answer        string           `json:"answer,omitempty"`
	Provenance    string           `json:"provenance"`
	Verdicts      []domain.Verdict `json:"verdicts,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Explanation   string           `json:"explanation,omitempty"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	start := time.Now()
	record, err := rt.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSession(
			rt.service,
			string(record.Provenance),
			string(record.FailureReason),
			len(record.Verdicts),
			time.Since(start),
		)
	}

	// Failed sessions still return 200: the workflow completed, the outcome
	// is in failure_reason. Only transport/configuration errors map to 5xx.
	writeJSON(w, http.StatusOK, askResponse{
		SessionID:     record.SessionID,
		Question:      record.Question,
		Answer:        record.Answer,
		Provenance:    string(record.Provenance),
		Verdicts:      record.Verdicts,
		FailureReason: string(record.FailureReason),
		Explanation:   record.Explanation,
	})
}

func (rt *Router) recentAnswers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = parsed
	}

	records, err := rt.history.RecentAnswers(r.Context(), limit)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if records == nil {
		records = []domain.AnswerRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"answers": records})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
