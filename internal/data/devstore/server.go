package devstore

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// APIPrefix is where the REST boundary is mounted
const APIPrefix = "/api/v1"

const maxBodyBytes = 1 << 20

type userKey struct{}

// Server exposes a Store over HTTP
type Server struct {
	store  *Store
	router *mux.Router
}

// NewServer creates a new Server instance
func NewServer(store *Store) *Server {
	s := &Server{store: store}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	api := r.PathPrefix(APIPrefix).Subrouter()

	api.Methods(http.MethodPost).Path("/users/signup/").HandlerFunc(s.signup)
	api.Methods(http.MethodPost).Path("/users/login/").HandlerFunc(s.login)
	api.Methods(http.MethodGet).Path("/images/search/").HandlerFunc(s.searchPhotos)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.Methods(http.MethodPost).Path("/users/logout/").HandlerFunc(s.logout)
	authed.Methods(http.MethodGet).Path("/users/info/").HandlerFunc(s.info)

	authed.Methods(http.MethodGet).Path("/foods/nutrition/").HandlerFunc(s.nutrition)
	authed.Methods(http.MethodGet).Path("/foods/").HandlerFunc(s.listEntries)
	authed.Methods(http.MethodPost).Path("/foods/").HandlerFunc(s.createEntry)
	authed.Methods(http.MethodGet).Path("/foods/{id:[0-9]+}/").HandlerFunc(s.getEntry)
	authed.Methods(http.MethodPut, http.MethodPatch).Path("/foods/{id:[0-9]+}/").HandlerFunc(s.updateEntry)
	authed.Methods(http.MethodDelete).Path("/foods/{id:[0-9]+}/").HandlerFunc(s.deleteEntry)

	authed.Methods(http.MethodGet).Path("/dates/days/").HandlerFunc(s.listDays)
	authed.Methods(http.MethodGet).Path("/dates/days/{date}/").HandlerFunc(s.getDay)
	authed.Methods(http.MethodGet).Path("/dates/weeks/").HandlerFunc(s.listWeeks)
	authed.Methods(http.MethodGet).Path("/dates/weeks/{start}/").HandlerFunc(s.getWeek)

	authed.Methods(http.MethodPatch).Path("/images/foodlogs/{id:[0-9]+}/set/").HandlerFunc(s.setImage)

	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		util.LogInfo("handled",
			util.F("method", r.Method),
			util.F("url", r.URL.String()),
			util.F("status", m.Code),
			util.F("duration", m.Duration.String()),
			util.F("request_id", r.Header.Get("X-Request-ID")))
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Token ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		user, err := s.store.UserForToken(r.Context(), token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid token.")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) model.User {
	user, _ := r.Context().Value(userKey{}).(model.User)
	return user
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		util.LogError("Failed to encode response", util.F("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps store errors to responses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, model.ErrInvalidEntry):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		util.LogError("Request failed", util.F("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Unexpected error.")
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return sonic.Unmarshal(data, v)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func validDate(s string) bool {
	_, err := model.ParseDate(s)
	return err == nil
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	fieldErrors := map[string][]string{}
	if !strings.Contains(creds.Email, "@") {
		fieldErrors["email"] = []string{"Enter a valid email address."}
	}
	if creds.Password == "" {
		fieldErrors["password"] = []string{"This field is required."}
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrors)
		return
	}

	user, token, err := s.store.CreateUser(r.Context(), creds)
	if errors.Is(err, ErrEmailTaken) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"client with this email already exists."}})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.AuthResponse{User: user, Token: token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	user, token, err := s.store.Authenticate(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, ErrBadCredentials) {
		writeJSON(w, http.StatusNotFound, "No user matching credentials")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{User: user, Token: token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")
	if err := s.store.RevokeToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]model.User{"user": currentUser(r)})
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !validDate(day) {
		day = s.store.Today()
	}
	entries, err := s.store.ListEntries(r.Context(), currentUser(r).ID, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var entry model.LogEntry
	if err := decodeBody(r, &entry); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	created, err := s.store.CreateEntry(r.Context(), currentUser(r).ID, entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetEntry(r.Context(), currentUser(r).ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	var patch model.LogEntryPatch
	if err := decodeBody(r, &patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	updated, err := s.store.UpdateEntry(r.Context(), currentUser(r).ID, pathID(r), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.DeleteEntry(r.Context(), currentUser(r).ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.DeleteResult{Detail: "Deleted.", DailyTotal: total})
}

func (s *Server) nutrition(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query parameter 'query' is required."})
		return
	}
	item, ok := LookupNutrition(query)
	if !ok {
		writeJSON(w, http.StatusOK, map[string][]model.NutritionItem{"items": {}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.NutritionItem{"item": item})
}

func (s *Server) listDays(w http.ResponseWriter, r *http.Request) {
	weekStart := r.URL.Query().Get("week_start")
	if weekStart != "" && !validDate(weekStart) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid week_start format. Use YYYY-MM-DD."})
		return
	}
	days, err := s.store.Days(r.Context(), currentUser(r).ID, weekStart)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if !validDate(date) {
		writeDetail(w, http.StatusNotFound, "Invalid date format. Use YYYY-MM-DD.")
		return
	}
	day, err := s.store.Day(r.Context(), currentUser(r).ID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) listWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.store.Weeks(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

func (s *Server) getWeek(w http.ResponseWriter, r *http.Request) {
	start := mux.Vars(r)["start"]
	if !validDate(start) {
		writeDetail(w, http.StatusNotFound, "Invalid date format. Use YYYY-MM-DD.")
		return
	}
	week, err := s.store.Week(r.Context(), currentUser(r).ID, start)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) searchPhotos(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeDetail(w, http.StatusBadRequest, "Missing query param 'q'.")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.PhotoResult{"images": SearchPhotos(query, photosPerSearch)})
}

func (s *Server) setImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Q string `json:"q"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	query := strings.TrimSpace(body.Q)
	if query == "" {
		query = strings.TrimSpace(r.URL.Query().Get("q"))
	}
	if query == "" {
		writeDetail(w, http.StatusBadRequest, "Missing query 'q'.")
		return
	}

	photos := SearchPhotos(query, 1)
	if len(photos) == 0 {
		writeDetail(w, http.StatusNotFound, "No images found for that query.")
		return
	}
	photo := photos[0]

	entry, err := s.store.SetEntryImage(r.Context(), currentUser(r).ID, pathID(r), photo.Full, photo.Credit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SetImageResult{Entry: entry, Credit: photo.Credit})
}

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		util.LogInfo("Development store listening", util.F("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
