package fakeapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"
)

// BasePath is where the grocery routes are mounted.
const BasePath = "/api/v1"

// FailFunc decides whether a request should fail. A non-zero status is
// written instead of running the handler.
type FailFunc func(r *http.Request) int

// Server is an in-memory grocery backend. It is safe for concurrent use.
type Server struct {
	token string
	log   zerolog.Logger
	now   func() time.Time

	mu     sync.Mutex
	lists  map[string]*backend.GroceryList
	order  []string
	pantry []string
	fail   FailFunc
	down   bool
	calls  map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on grocery routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = strings.TrimSpace(token) }
}

// WithLogger logs each request.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		log:   zerolog.Nop(),
		now:   time.Now,
		lists: make(map[string]*backend.GroceryList),
		calls: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed adds or replaces lists. Items inherit the list ID.
func (s *Server) Seed(lists ...backend.GroceryList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lists {
		l.Items = append([]backend.GroceryItem(nil), l.Items...)
		for i := range l.Items {
			l.Items[i].ListID = l.ID
		}
		if _, ok := s.lists[l.ID]; !ok {
			s.order = append(s.order, l.ID)
		}
		s.lists[l.ID] = &l
	}
}

// SetFailure installs fn; nil clears it.
func (s *Server) SetFailure(fn FailFunc) {
	s.mu.Lock()
	s.fail = fn
	s.mu.Unlock()
}

// SetDown makes every route, including /health, answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

// Item returns a copy of the server-side item.
func (s *Server) Item(listID, itemID string) (backend.GroceryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[listID]
	if !ok {
		return backend.GroceryItem{}, false
	}
	for _, it := range l.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return backend.GroceryItem{}, false
}

// Pantry returns the names added to the pantry, in order.
func (s *Server) Pantry() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pantry...)
}

// Calls returns how many requests reached the named route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Route names accepted by Calls.
const (
	RouteHealth = "health"
	RouteLists  = "lists"
	RouteList   = "list"
	RoutePatch  = "patch"
	RoutePantry = "pantry"
)

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.injectFailures)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name(RouteHealth)

	api := r.PathPrefix(BasePath).Subrouter()
	api.Use(s.requireToken)
	api.HandleFunc("/grocery", s.handleLists).Methods(http.MethodGet).Name(RouteLists)
	api.HandleFunc("/grocery/", s.handleLists).Methods(http.MethodGet)
	api.HandleFunc("/grocery/{list_id}", s.handleList).Methods(http.MethodGet).Name(RouteList)
	api.HandleFunc("/grocery/{list_id}/items/{item_id}", s.handlePatch).Methods(http.MethodPatch).Name(RoutePatch)
	api.HandleFunc("/grocery/{list_id}/items/{item_id}/to-pantry", s.handlePantry).Methods(http.MethodPost).Name(RoutePantry)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			s.mu.Lock()
			s.calls[route.GetName()]++
			s.mu.Unlock()
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request")
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down, fail := s.down, s.fail
		s.mu.Unlock()
		if down {
			writeDetail(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
		if fail != nil {
			if status := fail(r); status != 0 {
				writeDetail(w, status, http.StatusText(status))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLists(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]backend.ListSummary, 0, len(s.order))
	for _, id := range s.order {
		l := s.lists[id]
		out = append(out, backend.ListSummary{
			ID:            l.ID,
			Name:          l.Name,
			Status:        l.Status,
			Store:         l.Store,
			EstimatedCost: l.EstimatedCost,
			Notes:         l.Notes,
			ItemCount:     len(l.Items),
			CreatedAt:     l.CreatedAt,
			UpdatedAt:     l.UpdatedAt,
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	l, ok := s.lists[mux.Vars(r)["list_id"]]
	var out backend.GroceryList
	if ok {
		out = *l
		out.Items = append([]backend.GroceryItem(nil), l.Items...)
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Grocery list not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Checked *bool `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid body: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, status, detail := s.findItem(r)
	if item == nil {
		writeDetail(w, status, detail)
		return
	}
	if body.Checked != nil {
		item.Checked = *body.Checked
		if item.Checked {
			item.CheckedAt = s.now().UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, *item)
}

func (s *Server) handlePantry(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, status, detail := s.findItem(r)
	if item == nil {
		writeDetail(w, status, detail)
		return
	}
	item.Checked = true
	item.CheckedAt = s.now().UTC().Format(time.RFC3339)
	item.AddedToPantry = true
	s.pantry = append(s.pantry, item.ItemName)
	writeJSON(w, http.StatusOK, backend.PantryResult{
		Message:      "Item added to pantry",
		PantryItemID: uuid.NewString(),
	})
}

// findItem must be called with s.mu held.
func (s *Server) findItem(r *http.Request) (*backend.GroceryItem, int, string) {
	vars := mux.Vars(r)
	l, ok := s.lists[vars["list_id"]]
	if !ok {
		return nil, http.StatusNotFound, "Grocery list not found"
	}
	for i := range l.Items {
		if l.Items[i].ID == vars["item_id"] {
			return &l.Items[i], 0, ""
		}
	}
	return nil, http.StatusNotFound, "Item not found"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
