// Package transport exposes the integration service over HTTP. Routes are
// mounted under /api and mirror what the dashboard frontend calls: OAuth
// handshake endpoints, calendar event CRUD, and signed upload grants.
package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/closepilot/integrations/core"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

type Handler struct {
	service *core.Service
	logger  glog.Logger
}

func NewHandler(service *core.Service, logger glog.Logger) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("transport: service is required")
	}
	return &Handler{
		service: service,
		logger:  glog.Ensure(logger),
	}, nil
}

// Router builds the chi router with all routes mounted under /api.
func (h *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(allowCORS)

	router.Route("/api", func(api chi.Router) {
		api.Get("/health", h.handleHealth)

		api.Route("/auth/google", func(auth chi.Router) {
			auth.Get("/login", h.handleLogin)
			auth.Get("/callback", h.handleCallback)
			auth.Get("/status", h.handleStatus)
			auth.Post("/disconnect", h.handleDisconnect)
		})

		api.Route("/calendar/events", func(events chi.Router) {
			events.Get("/", h.handleListEvents)
			events.Post("/", h.handleCreateEvent)
			events.Put("/{event_id}", h.handleUpdateEvent)
			events.Delete("/{event_id}", h.handleDeleteEvent)
		})

		api.Get("/cloudinary/signature", h.handleSignature)
		api.Delete("/cloudinary/*", h.handleDestroyAsset)
	})

	return router
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service.Config().ServiceName,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

	authorizationURL, err := h.service.BeginHandshake(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"authorization_url": authorizationURL,
	})
}

// handleCallback lands the browser redirect from the provider. It never
// renders JSON: success and failure both answer with a redirect so the user
// ends up back in the frontend.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerError := strings.TrimSpace(query.Get("error")); providerError != "" {
		h.redirectWithError(w, r, providerError)
		return
	}

	result, err := h.service.CompleteHandshake(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		h.logger.Error("oauth callback failed", "error", err)
		h.redirectWithError(w, r, err.Error())
		return
	}

	target := h.service.Config().DashboardPath +
		"?google_connected=true&email=" + url.QueryEscape(result.Email)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(message), http.StatusFound)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Disconnect(r.Context(), r.URL.Query().Get("user_id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	listQuery := core.ListEventsQuery{
		TimeMin: strings.TrimSpace(query.Get("time_min")),
	}
	if rawMax := strings.TrimSpace(query.Get("max_results")); rawMax != "" {
		maxResults, err := strconv.Atoi(rawMax)
		if err != nil || maxResults < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
				Code:    core.ServiceErrorBadInput,
				Message: "max_results must be a non-negative integer",
			}})
			return
		}
		listQuery.MaxResults = maxResults
	}

	events, err := h.service.ListEvents(r.Context(), query.Get("user_id"), listQuery)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, events)
}

// createEventRequest is the wire shape the frontend sends: the attendee is
// flattened into the top-level body.
type createEventRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Start         string `json:"start"`
	End           string `json:"end"`
	AttendeeEmail string `json:"attendee_email"`
	AttendeeName  string `json:"attendee_name"`
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var request createEventRequest
	if !decodeBody(w, r, &request) {
		return
	}

	event := core.CalendarEvent{
		Title:       request.Title,
		Description: request.Description,
		Start:       request.Start,
		End:         request.End,
	}
	if strings.TrimSpace(request.AttendeeEmail) != "" {
		event.Attendee = &core.EventAttendee{
			Email: request.AttendeeEmail,
			Name:  request.AttendeeName,
		}
	}

	created, err := h.service.CreateEvent(r.Context(), r.URL.Query().Get("user_id"), event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var patch core.UpdateEvent
	if !decodeBody(w, r, &patch) {
		return
	}

	updated, err := h.service.UpdateEvent(
		r.Context(),
		r.URL.Query().Get("user_id"),
		chi.URLParam(r, "event_id"),
		patch,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteEvent(
		r.Context(),
		r.URL.Query().Get("user_id"),
		chi.URLParam(r, "event_id"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleSignature(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	grant, err := h.service.SignUpload(r.Context(), query.Get("folder"), query.Get("resource_type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (h *Handler) handleDestroyAsset(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "*")

	result, err := h.service.DestroyAsset(r.Context(), publicID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    core.ServiceErrorBadInput,
			Message: "request body is not valid JSON",
		}})
		return false
	}
	return true
}

// allowCORS answers preflight requests and opens the API to the browser
// frontend, which is served from a different origin during development.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
