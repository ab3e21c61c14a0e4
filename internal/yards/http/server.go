package yardshttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/auth"
	"github.com/itsloashh/yards-app/internal/yards/filter"
	"github.com/itsloashh/yards-app/internal/yards/geo"
	"github.com/itsloashh/yards-app/internal/yards/location"
	"github.com/itsloashh/yards-app/internal/yards/mapview"
	"github.com/itsloashh/yards-app/internal/yards/metrics"
	"github.com/itsloashh/yards-app/internal/yards/repo"
	"github.com/itsloashh/yards-app/internal/yards/session"
	"github.com/itsloashh/yards-app/internal/yards/ws"
	"github.com/itsloashh/yards-app/utils"
)

const geocodeTimeout = 10 * time.Second

// Logger provides minimal logging required by the server.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Geocoder resolves a coordinate into an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (geo.Place, error)
}

// Server handles HTTP endpoints for the yards module.
type Server struct {
	logger   Logger
	baseCtx  context.Context
	sessions *session.Registry
	auth     *auth.Service
	tokens   *utils.Manager
	tokenTTL time.Duration
	geocoder Geocoder
	hub      *ws.Hub
	metrics  *metrics.Manager
}

// NewServer constructs Server. Sessions created through it live under ctx.
func NewServer(ctx context.Context, logger Logger, sessions *session.Registry, authSvc *auth.Service, tokens *utils.Manager, tokenTTL time.Duration, geocoder Geocoder, hub *ws.Hub, m *metrics.Manager) *Server {
	return &Server{
		logger:   logger,
		baseCtx:  ctx,
		sessions: sessions,
		auth:     authSvc,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		geocoder: geocoder,
		hub:      hub,
		metrics:  m,
	}
}

// RegisterRoutes registers HTTP routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/sessions", s.instrument("/api/v1/sessions", s.handleSessions))
	mux.HandleFunc("/api/v1/state", s.instrument("/api/v1/state", s.handleState))
	mux.HandleFunc("/api/v1/location", s.instrument("/api/v1/location", s.handleLocation))
	mux.HandleFunc("/api/v1/location/resolve", s.instrument("/api/v1/location/resolve", s.handleResolve))
	mux.HandleFunc("/api/v1/location/report", s.instrument("/api/v1/location/report", s.handleReport))
	mux.HandleFunc("/api/v1/listings", s.instrument("/api/v1/listings", s.handleListings))
	mux.HandleFunc("/api/v1/listings/", s.instrument("/api/v1/listings/:id", s.handleListingSubroutes))
	mux.HandleFunc("/api/v1/map", s.instrument("/api/v1/map", s.handleMap))
	mux.HandleFunc("/api/v1/geocode/reverse", s.instrument("/api/v1/geocode/reverse", s.handleReverseGeocode))
	mux.HandleFunc("/api/v1/auth/signup", s.instrument("/api/v1/auth/signup", s.handleSignUp))
	mux.HandleFunc("/api/v1/auth/login", s.instrument("/api/v1/auth/login", s.handleLogin))
	mux.HandleFunc("/api/v1/auth/logout", s.instrument("/api/v1/auth/logout", s.handleLogout))
	mux.HandleFunc("/api/v1/profile", s.instrument("/api/v1/profile", s.handleProfile))
	mux.HandleFunc("/ws/location", s.handleLocationWS)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.ObserveRequest(r.Method, route, rec.status, time.Since(start))
	}
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return nil, false
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session expired")
		return nil, false
	}
	return sess, true
}

type sessionResponse struct {
	Token     string          `json:"token"`
	SessionID string          `json:"session_id"`
	State     session.State   `json:"state"`
	Location  location.Status `json:"location"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessions.Create(s.baseCtx)
	token, err := s.tokens.NewJWT(sess.ID, s.tokenTTL)
	if err != nil {
		s.sessions.Remove(sess.ID)
		s.logger.Errorf("yards: sign session token: %v", err)
		writeError(w, http.StatusInternalServerError, "session create failed")
		return
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
	sess.Resolve()

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		SessionID: sess.ID,
		State:     sess.State(),
		Location:  sess.LocationStatus(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{"state": sess.State()})
	case http.MethodPatch:
		var patch session.Patch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		st, err := sess.UpdateState(patch)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"state": st})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"location": sess.LocationStatus()})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	gen := sess.Resolve()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"generation": gen,
		"location":   sess.LocationStatus(),
	})
}

type reportPayload struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

var reportErrors = map[string]error{
	"unsupported": location.ErrUnsupported,
	"denied":      location.ErrPermissionDenied,
	"timeout":     location.ErrTimeout,
	"unavailable": location.ErrUnavailable,
}

func (p *reportPayload) normalize() {
	p.Error = strings.ToLower(strings.TrimSpace(p.Error))
}

func (p reportPayload) validate() string {
	if p.Error != "" {
		if _, ok := reportErrors[p.Error]; !ok {
			return "unknown location error"
		}
		return ""
	}
	if p.Lat == nil || p.Lng == nil {
		return "lat and lng are required"
	}
	if *p.Lat < -90 || *p.Lat > 90 || *p.Lng < -180 || *p.Lng > 180 {
		return "coordinate out of range"
	}
	return ""
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	var payload reportPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	payload.normalize()
	if msg := payload.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if payload.Error != "" {
		sess.ReportError(reportErrors[payload.Error])
	} else {
		sess.ReportFix(models.Coordinate{Lat: *payload.Lat, Lng: *payload.Lng})
	}
	w.WriteHeader(http.StatusNoContent)
}

type browseResponse struct {
	Listings    []filter.View   `json:"listings"`
	Count       int             `json:"count"`
	RadiusLabel string          `json:"radius_label"`
	Location    location.Status `json:"location"`
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listListings(w, r)
	case http.MethodPost:
		s.createListing(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listListings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	views := sess.Browse()
	st := sess.State()
	s.metrics.ObserveListings(len(views))
	writeJSON(w, http.StatusOK, browseResponse{
		Listings:    views,
		Count:       len(views),
		RadiusLabel: geo.RadiusLabel(st.Radius, st.Unit),
		Location:    sess.LocationStatus(),
	})
}

type createListingPayload models.CreateListingRequest

func (p *createListingPayload) normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Address = strings.TrimSpace(p.Address)
	p.Date = strings.TrimSpace(p.Date)
	p.StartTime = strings.TrimSpace(p.StartTime)
	p.EndTime = strings.TrimSpace(p.EndTime)
	cats := p.Categories[:0]
	for _, c := range p.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	p.Categories = cats
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	accountID := sess.AccountID()
	if accountID == "" {
		modal := string(session.ModalAuth)
		_, _ = sess.UpdateState(session.Patch{Modal: &modal})
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	acc, err := s.auth.Get(accountID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	var payload createListingPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	payload.normalize()

	date, err := repo.FormatSchedule(payload.Date, payload.StartTime, payload.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	listing, created := sess.CreateListing(repo.Draft{
		Title:       payload.Title,
		Description: payload.Description,
		Address:     payload.Address,
		Date:        date,
		Tags:        payload.Categories,
		SellerName:  acc.Name,
	})
	if !created {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if _, err := s.auth.RecordSale(accountID); err != nil {
		s.logger.Errorf("yards: record sale for %s: %v", accountID, err)
	}

	view, err := sess.Listing(listing.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"listing": view})
}

func (s *Server) handleListingSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/listings/")
	path = strings.Trim(path, "/")
	if path == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if path == "saved" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.listSaved(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if len(parts) == 1 {
		if r.Method == http.MethodGet {
			s.getListing(w, r, id)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "saved":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.toggleSaved(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) listSaved(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	views := sess.Saved()
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": views, "count": len(views)})
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request, id int64) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	view, err := sess.Listing(id)
	if err != nil {
		if errors.Is(err, models.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listing":        view,
		"directions_url": geo.DirectionsURL(sess.Location(), view.Coords),
	})
}

func (s *Server) toggleSaved(w http.ResponseWriter, r *http.Request, id int64) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	listing, err := sess.ToggleSaved(id)
	if err != nil {
		if errors.Is(err, models.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": listing.ID, "saved": listing.Saved})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	scene := mapview.NewLeafletScene()
	if err := sess.RenderMap(scene); err != nil {
		s.logger.Errorf("yards: render map for %s: %v", sess.ID, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"map_error": true, "error": "Map failed to load"})
		return
	}
	doc, err := scene.Scene()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"map_error": true, "error": "Map failed to load"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"map_error": false, "scene": doc})
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.currentSession(w, r); !ok {
		return
	}
	lat, err := parseCoordParam(r, "lat", 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lng, err := parseCoordParam(r, "lng", 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := contextWithTimeout(r, geocodeTimeout)
	defer cancel()

	place, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		s.metrics.ObserveGeocode("error")
		s.logger.Errorf("yards: reverse geocode %.5f,%.5f: %v", lat, lng, err)
		writeError(w, http.StatusBadGateway, "reverse geocode failed")
		return
	}
	s.metrics.ObserveGeocode("ok")
	writeJSON(w, http.StatusOK, map[string]interface{}{"place": place})
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	var fieldErrs auth.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": fieldErrs})
	case errors.Is(err, models.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, auth.MsgInvalidCredentials)
	case errors.Is(err, models.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	default:
		s.logger.Errorf("yards: auth: %v", err)
		writeError(w, http.StatusInternalServerError, "auth failed")
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	var req models.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	acc, err := s.auth.SignUp(req)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}
	sess.SignIn(acc.ID)
	s.logger.Infof("yards: account %s signed up", acc.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"account": acc, "state": sess.State()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	acc, err := s.auth.Login(req)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}
	sess.SignIn(acc.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"account": acc, "state": sess.State()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	sess.SignOut()
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": sess.State()})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	accountID := sess.AccountID()
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		acc, err := s.auth.Get(accountID)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"account": acc})
	case http.MethodPut:
		var upd models.ProfileUpdate
		if err := decodeJSON(w, r, &upd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		acc, err := s.auth.UpdateProfile(accountID, upd)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		if st := sess.State(); st.Modal == session.ModalEditProfile {
			none := string(session.ModalNone)
			_, _ = sess.UpdateState(session.Patch{Modal: &none})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"account": acc})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLocationWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	st := sess.LocationStatus()
	s.hub.ServeWS(w, r, sess.ID, &st)
}
