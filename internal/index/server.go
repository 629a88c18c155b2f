package index

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ctph/internal/fuzzy"
	"ctph/internal/identity"
)

// DefaultMaxUploadBytes bounds request bodies of the hash endpoint.
const DefaultMaxUploadBytes = 256 << 20

// ServerOptions configure an index server.
type ServerOptions struct {
	DefaultThreshold int
	MaxUploadBytes   int64
	Logger           logrus.FieldLogger
	Registry         *prometheus.Registry // a fresh registry is used when nil
}

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// CompareResponse is the reply to POST /compare.
type CompareResponse struct {
	Score int `json:"score"`
}

// Stats is the reply to GET /stats.
type Stats struct {
	ID         string `json:"id"`
	Signatures int    `json:"signatures"`
}

// Server exposes an Index and the fuzzy hashing operations over HTTP.
type Server struct {
	id       string
	index    Index
	opts     ServerOptions
	logger   logrus.FieldLogger
	registry *prometheus.Registry
	metrics  *Metrics
}

// NewServer creates a server for idx. Its ID comes from idx when it is an
// identity.Provider and is random otherwise.
func NewServer(idx Index, opts ServerOptions) *Server {
	var id string
	if p, ok := idx.(identity.Provider); ok {
		id = p.ID()
	} else {
		idBytes := make([]byte, 32)
		rand.Read(idBytes)
		id = hex.EncodeToString(idBytes)
	}

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Server{
		id:       id,
		index:    idx,
		opts:     opts,
		logger:   logger.WithField("index", id[:8]),
		registry: registry,
		metrics:  NewMetrics(registry, idx),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /id", s.handleGetID)
	mux.HandleFunc("GET /stats", s.instrument("stats", s.handleStats))

	mux.HandleFunc("POST /hash", s.instrument("hash", s.handleHash))
	mux.HandleFunc("POST /compare", s.instrument("compare", s.handleCompare))

	mux.HandleFunc("GET /signatures", s.instrument("export", s.handleExport))
	mux.HandleFunc("POST /signatures", s.instrument("add", s.handleAdd))
	mux.HandleFunc("GET /signatures/{id}", s.instrument("get", s.handleGet))
	mux.HandleFunc("DELETE /signatures/{id}", s.instrument("remove", s.handleRemove))
	mux.HandleFunc("POST /match", s.instrument("match", s.handleMatch))

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(operation string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		h(rec, r)
		s.metrics.requests.WithLabelValues(operation, strconv.Itoa(rec.code)).Inc()
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"status":    rec.code,
			"duration":  time.Since(start),
		}).Debug("handled request")
	}
}

// writeError maps err onto an HTTP status code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, fuzzy.ErrMalformedSignature):
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.As(err, &maxBytes), errors.Is(err, fuzzy.ErrInvalidInput):
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
	default:
		s.logger.WithError(err).Error("request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, code int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	w.Write([]byte(text))
}

// maxSignatureBytes bounds request bodies carrying a signature, label
// included.
const maxSignatureBytes = 4096

// readSignature parses a signature sent as the request body.
func readSignature(w http.ResponseWriter, r *http.Request) (fuzzy.Signature, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignatureBytes))
	if err != nil {
		return fuzzy.Signature{}, err
	}
	return fuzzy.Parse(strings.TrimSpace(string(data)))
}

func (s *Server) handleGetID(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, s.id)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Stats{ID: s.id, Signatures: s.index.Len()})
}

func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.hashedBytes.Add(float64(len(data)))

	sig, err := fuzzy.Generate(data, r.URL.Query().Get("label"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if add, _ := strconv.ParseBool(r.URL.Query().Get("add")); add {
		id, err := s.index.Add(sig)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Location", "/signatures/"+id)
	}
	writeText(w, http.StatusOK, sig.String())
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	score, err := fuzzy.Compare(req.A, req.B)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, CompareResponse{Score: score})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	all, ok := s.index.(interface{ All() []fuzzy.Signature })
	if !ok {
		http.Error(w, "Not Implemented", http.StatusNotImplemented)
		return
	}
	var buf bytes.Buffer
	if err := fuzzy.WriteKnown(&buf, all.All()); err != nil {
		s.logger.WithError(err).Error("export failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sig, err := readSignature(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.index.Add(sig)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/signatures/"+id)
	writeText(w, http.StatusOK, id)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sig, ok := s.index.Get(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "immutable")
	w.Header().Set("ETag", id)
	writeText(w, http.StatusOK, sig.String())
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Remove(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	threshold := s.opts.DefaultThreshold
	if t := r.URL.Query().Get("threshold"); t != "" {
		v, err := strconv.Atoi(t)
		if err != nil || v < 0 || v > 100 {
			http.Error(w, fmt.Sprintf("Bad Request: invalid threshold %q", t), http.StatusBadRequest)
			return
		}
		threshold = v
	}

	sig, err := readSignature(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	matches, err := s.index.Match(sig, threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.matches.Observe(float64(len(matches)))
	if matches == nil {
		matches = []Match{}
	}
	writeJSON(w, matches)
}
