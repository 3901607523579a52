package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cameroncuttingedge/tictacfour/docstore"
	"github.com/cameroncuttingedge/tictacfour/utils"
	"github.com/cameroncuttingedge/tictacfour/websocket"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type server struct {
	store     docstore.Store
	hub       *websocket.Hub
	publicURL string
}

type createSessionResponse struct {
	Code     string `json:"code"`
	JoinLink string `json:"joinLink"`
}

// NewRouter serves the session documents of store. Document changes are
// streamed through hub.
func NewRouter(store docstore.Store, hub *websocket.Hub, publicURL string) http.Handler {
	s := &server{store: store, hub: hub, publicURL: publicURL}

	r := mux.NewRouter()
	r.HandleFunc("/sessions", s.createSessionHandler).Methods("POST")
	r.HandleFunc("/sessions/{code}", s.getSessionHandler).Methods("GET")
	r.HandleFunc("/sessions/{code}", s.setSessionHandler).Methods("PUT")
	r.HandleFunc("/ws/sessions/{code}", hub.SessionWebSocketHandler)
	r.HandleFunc("/health", healthHandler).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(panicLogger{}), handlers.PrintRecoveryStack(false))
	return recovery(cors(r))
}

// StartAPI serves handler on addr until the server fails.
func StartAPI(addr string, handler http.Handler) error {
	log.Info().Str("addr", addr).Msg("Server started")
	return http.ListenAndServe(addr, handler)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	log.Info().Msg("Attempting to create new session")

	code := utils.GenerateSessionCode()
	link, err := utils.JoinLink(s.publicURL, code)
	if err != nil {
		log.Error().Err(err).Str("publicURL", s.publicURL).Msg("Failed to build join link")
		http.Error(w, "Failed to build join link", http.StatusInternalServerError)
		return
	}

	var doc docstore.Document
	if name := r.URL.Query().Get("name"); name != "" {
		doc.Primary = docstore.Name(name)
	}
	if err := s.store.Set(r.Context(), code, doc); err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to create session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createSessionResponse{Code: code, JoinLink: link})
}

func (s *server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code, ok := vars["code"]
	if !ok {
		http.Error(w, "Session code is required", http.StatusBadRequest)
		return
	}

	doc, err := s.store.Get(r.Context(), code)
	if errors.Is(err, docstore.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to read session")
		http.Error(w, "Failed to read session", http.StatusInternalServerError)
		return
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, "Failed to marshal session to JSON", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonData)
}

func (s *server) setSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code, ok := vars["code"]
	if !ok {
		http.Error(w, "Session code is required", http.StatusBadRequest)
		return
	}

	doc, err := validateAndExtractDocument(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.Set(r.Context(), code, doc); err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to write session")
		http.Error(w, "Failed to write session", http.StatusInternalServerError)
		return
	}
	log.Debug().Str("code", code).Int("playerID", doc.PlayerID).Msg("Session document written")
	w.WriteHeader(http.StatusNoContent)
}

func validateAndExtractDocument(r *http.Request) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		return doc, fmt.Errorf("error decoding JSON: %v", err)
	}

	if doc.PlayerID != 0 && doc.PlayerID != 1 {
		return doc, fmt.Errorf("invalid player id: %d", doc.PlayerID)
	}
	if doc.GameEvent != nil {
		if _, err := doc.GameEvent.Event(); err != nil {
			return doc, fmt.Errorf("invalid game event: %v", err)
		}
	}
	return doc, nil
}

// panicLogger routes recovered handler panics to the global logger.
type panicLogger struct{}

func (panicLogger) Println(v ...interface{}) {
	log.Error().Str("panic", fmt.Sprint(v...)).Msg("Recovered from handler panic")
}
