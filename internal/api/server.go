package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haandol/open-perplexity/internal/agents"
	"github.com/haandol/open-perplexity/internal/evidence"
	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/session"
	"github.com/haandol/open-perplexity/internal/workflow"
)

// apologyMessage is shown for turn-fatal backend errors; the real cause
// goes to the logs, not the user.
const apologyMessage = "I'm sorry, something went wrong while processing your request. Please try again."

const turnTimeout = 5 * time.Minute

// Responder streams an answer for a finished turn.
type Responder interface {
	Respond(ctx context.Context, state *models.State, onFragment func(chunk string) error) error
}

// Server exposes the chat surface: create a session, post a message,
// and watch the turn unfold over SSE.
type Server struct {
	Sessions     *session.Manager
	Hub          *Hub
	Quick        Responder
	Summarizer   Responder
	Consolidator *evidence.Consolidator

	// NewMachine builds the per-session state machine, bound to a step
	// observer that publishes to that session's event stream.
	NewMachine func(onStep func(workflow.StepEvent)) *workflow.Machine

	machinesMu sync.Mutex
	machines   map[string]*workflow.Machine
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handlePostMessage)
	mux.HandleFunc("GET /sessions/{id}/events", s.handleEvents)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Create()

	machine := s.NewMachine(func(ev workflow.StepEvent) {
		s.Hub.Publish(sess.ID, EventBeginStep, map[string]any{"label": ev.Name})
		s.Hub.Publish(sess.ID, EventStepOutput, map[string]any{"label": ev.Name, "text": ev.Output})
	})
	s.machinesMu.Lock()
	if s.machines == nil {
		s.machines = map[string]*workflow.Machine{}
	}
	s.machines[sess.ID] = machine
	s.machinesMu.Unlock()

	log.Info().Str("session_id", sess.ID).Msg("session created")
	respondJSON(w, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.Sessions.Delete(id)
	s.machinesMu.Lock()
	delete(s.machines, id)
	s.machinesMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.Sessions.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		http.Error(w, "missing message content", http.StatusBadRequest)
		return
	}
	s.machinesMu.Lock()
	machine := s.machines[id]
	s.machinesMu.Unlock()
	if machine == nil {
		http.NotFound(w, r)
		return
	}

	go s.runTurn(sess, machine, req.Content)
	w.WriteHeader(http.StatusAccepted)
}

// runTurn drives one user message through the machine and the chosen
// responder, streaming progress to the session's subscribers.
func (s *Server) runTurn(sess *session.Session, machine *workflow.Machine, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	err := sess.Turn(content, func(state *models.State) (string, error) {
		if err := machine.Run(ctx, state); err != nil {
			return "", err
		}

		var reply strings.Builder
		onFragment := func(chunk string) error {
			reply.WriteString(chunk)
			s.Hub.Publish(sess.ID, EventStreamFragment, map[string]string{"text": chunk})
			return nil
		}

		// The machine stops at done; the final state shape picks the
		// responder.
		switch {
		case state.Plan == nil:
			// terminal without a plan means the guardrail fired
			_ = onFragment(agents.RefusalMessage)
		case len(state.Plan.Tasks) == 0:
			if err := s.Quick.Respond(ctx, state, onFragment); err != nil {
				return "", fmt.Errorf("%w: quick responder: %v", workflow.ErrBackendUnavailable, err)
			}
		default:
			consolidated, err := s.Consolidator.Consolidate(ctx, state.UserInput, state.Sources)
			if err != nil {
				return "", fmt.Errorf("%w: consolidate: %v", workflow.ErrBackendUnavailable, err)
			}
			state.Sources = consolidated
			if len(consolidated) > 0 {
				s.Hub.Publish(sess.ID, EventStepOutput, map[string]any{
					"label": "Web Search Results",
					"text":  sourceList(consolidated),
				})
			}
			if err := s.Summarizer.Respond(ctx, state, onFragment); err != nil {
				return "", fmt.Errorf("%w: task summarizer: %v", workflow.ErrBackendUnavailable, err)
			}
		}
		return reply.String(), nil
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("turn failed")
		s.Hub.Publish(sess.ID, EventError, map[string]string{"message": err.Error()})
		s.Hub.Publish(sess.ID, EventStreamFragment, map[string]string{"text": apologyMessage})
	}
	s.Hub.Publish(sess.ID, EventEndMessage, nil)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Sessions.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.Hub.Subscribe(id)
	defer unsubscribe()
	for {
		select {
		case <-r.Context().Done():
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func sourceList(sources []models.Source) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, src.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
