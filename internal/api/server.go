package api

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/intersection.report/internal/counting"
	"github.com/banshee-data/intersection.report/internal/db"
	"github.com/banshee-data/intersection.report/internal/serialmux"
	"github.com/banshee-data/intersection.report/internal/signal"
	"github.com/banshee-data/intersection.report/internal/vehicle"
	"github.com/banshee-data/intersection.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxPayloadBytes bounds POSTed intersection payloads.
const maxPayloadBytes = 1 << 20

type Server struct {
	m            serialmux.SerialMuxInterface
	db           *db.DB
	pipeline     *counting.Pipeline
	signal       signal.Config
	detection    counting.Config
	weights      vehicle.WeightTable
	intersection string
}

// Options configures a Server. Any of Mux, DB and Pipeline may be nil; the
// endpoints that need a missing one answer 503. A zero Weights means the
// default vehicle weights.
type Options struct {
	Mux          serialmux.SerialMuxInterface
	DB           *db.DB
	Pipeline     *counting.Pipeline
	Signal       signal.Config
	Detection    counting.Config
	Weights      vehicle.WeightTable
	Intersection string
}

func NewServer(o Options) *Server {
	intersection := o.Intersection
	if intersection == "" && o.Pipeline != nil {
		intersection = o.Pipeline.Intersection()
	}
	weights := o.Weights
	if weights == (vehicle.WeightTable{}) {
		weights = vehicle.DefaultWeights()
	}
	return &Server{
		m:            o.Mux,
		db:           o.DB,
		pipeline:     o.Pipeline,
		signal:       o.Signal,
		detection:    o.Detection,
		weights:      weights,
		intersection: intersection,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/roads", s.listRoads)
	mux.HandleFunc("/api/roads/{road}/counts", s.showRoadCounts)
	mux.HandleFunc("/api/plan", s.handlePlan)
	mux.HandleFunc("/api/plan/chart", s.showPlanChart)
	mux.HandleFunc("/api/plans", s.listPlans)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	return mux
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.m == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no detector attached")
		return
	}
	command := r.FormValue("command")
	if command == "" {
		writeJSONError(w, http.StatusBadRequest, "missing command")
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to send command")
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	cfg := map[string]interface{}{
		"intersection":         s.intersection,
		"base_green_time":      s.signal.BaseGreen,
		"max_green_time":       s.signal.MaxGreen,
		"yellow_time":          s.signal.Yellow,
		"total_cycle_time":     s.signal.TotalCycle,
		"confirmation_frame":   s.detection.Confirm.ConfirmationFrames,
		"confidence_threshold": s.detection.ConfidenceThreshold,
		"retention_frames":     s.detection.Confirm.RetentionFrames,
	}
	if s.pipeline != nil {
		cfg["roads"] = s.pipeline.Roads()
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
