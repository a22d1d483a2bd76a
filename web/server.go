// Package web serves the landing page, the dashboard and their JSON and
// websocket endpoints.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"TurbineMonitor/dashboard"
	"TurbineMonitor/location"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultTileURL is the public OpenStreetMap tile server.
const DefaultTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"

// Feature is a card on the landing page.
type Feature struct {
	Icon        string
	Title       string
	Description string
}

var features = []Feature{
	{"⏱", "Real-time Monitoring", "Track performance metrics and sensor data in real-time with advanced visualization"},
	{"📊", "Advanced Analytics", "Comprehensive data analysis tools for performance optimization"},
	{"📡", "Smart Sensors", "Integration with MPU-6050, SW-420, DHT11, LM35, and PZEM-004T sensors"},
	{"🔋", "Power Management", "Monitor power generation and consumption with detailed metrics"},
}

// Options configures a Server.
type Options struct {
	TurbineName string
	TileURL     string
	// Fallback is the location shown when none is stored.
	Fallback location.Location
}

// Server holds the handlers' dependencies.
type Server struct {
	ctrl     *dashboard.Controller
	store    location.Store
	logger   *log.Logger
	opts     Options
	pages    map[string]*template.Template
	upgrader websocket.Upgrader
}

type pageData struct {
	Title   string
	Nav     []NavItem
	Turbine string

	Features []Feature
	Location location.Location
	LatText  string
	LngText  string
	Error    string
	TileURL  string

	State dashboard.State
}

// New parses the page templates and returns a server.
func New(ctrl *dashboard.Controller, store location.Store, logger *log.Logger, opts Options) (*Server, error) {
	if opts.TileURL == "" {
		opts.TileURL = DefaultTileURL
	}
	if opts.TurbineName == "" {
		opts.TurbineName = "Wind turbine"
	}
	if logger == nil {
		logger = log.Default()
	}

	pages := map[string]*template.Template{}
	for _, name := range []string{"landing", "dashboard"} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Server{
		ctrl:   ctrl,
		store:  store,
		logger: logger,
		opts:   opts,
		pages:  pages,
	}, nil
}

// Router returns the HTTP handler for every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc(PathHome, s.handleLanding).Methods(http.MethodGet)
	r.HandleFunc("/location", s.handleSetLocation).Methods(http.MethodPost)
	r.HandleFunc(PathDashboard, s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/location", s.handleGetLocation).Methods(http.MethodGet)
	api.HandleFunc("/location", s.handlePutLocation).Methods(http.MethodPut)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s *Server) currentLocation(ctx context.Context) location.Location {
	loc, err := location.Resolve(ctx, s.store, s.opts.Fallback)
	if err != nil {
		s.logger.Warn("failed to read stored location", "err", err)
	}
	return loc
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	loc := s.currentLocation(r.Context())
	s.renderLanding(w, http.StatusOK, loc, formatCoord(loc.Lat), formatCoord(loc.Lng), "")
}

func (s *Server) renderLanding(w http.ResponseWriter, status int, loc location.Location, latText, lngText, msg string) {
	s.render(w, status, "landing", pageData{
		Title:    "Home",
		Nav:      Navigation(PathHome),
		Turbine:  s.opts.TurbineName,
		Features: features,
		Location: loc,
		LatText:  latText,
		LngText:  lngText,
		Error:    msg,
		TileURL:  s.opts.TileURL,
	})
}

// handleSetLocation confirms the picked location and moves on to the
// dashboard.
func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	latText, lngText := r.PostForm.Get("lat"), r.PostForm.Get("lng")

	loc, err := location.Parse(latText, lngText)
	var verr *location.ValidationError
	if errors.As(err, &verr) {
		s.renderLanding(w, http.StatusUnprocessableEntity, s.currentLocation(r.Context()), latText, lngText, verr.Error())
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.Set(r.Context(), loc); err != nil {
		s.logger.Error("failed to store location", "err", err)
		http.Error(w, "failed to store location", http.StatusInternalServerError)
		return
	}
	s.logger.Info("location set", "lat", loc.Lat, "lng", loc.Lng)
	http.Redirect(w, r, PathDashboard, http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	if !st.Active {
		st.Location = s.currentLocation(r.Context())
	}
	s.render(w, http.StatusOK, "dashboard", pageData{
		Title:   "Dashboard",
		Nav:     Navigation(PathDashboard),
		Turbine: s.opts.TurbineName,
		State:   st,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentLocation(r.Context()))
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handlePutLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Lat == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lat is required", Field: location.FieldLat})
		return
	}
	if req.Lng == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lng is required", Field: location.FieldLng})
		return
	}

	loc, err := location.New(*req.Lat, *req.Lng)
	var verr *location.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
		return
	}
	if err := s.store.Set(r.Context(), loc); err != nil {
		s.logger.Error("failed to store location", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store location"})
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("failed to render page", "page", page, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
