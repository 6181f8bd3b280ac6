// Package resultserver serves the run-control HTTP/WS surface: a GUI
// or other out-of-process consumer polls sweep status and the mover
// list, and listens on a websocket feed for live events. Combines a
// gorilla/mux route table with a gorilla/websocket hub into one
// package, since both exist to front the same run rather than two
// independent subsystems.
package resultserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"huntmover/internal/coordinator"
	"huntmover/internal/runpipeline"
	"huntmover/internal/scheduler"
)

// Server wraps the HTTP/WS surface for one sweep run.
type Server struct {
	addr     string
	coord    *coordinator.Coordinator
	sched    *scheduler.Scheduler
	pipeline *runpipeline.Pipeline
	log      *slog.Logger

	upgrader websocket.Upgrader
	hub      *hub
	server   *http.Server
}

// NewServer builds a Server fronting one sweep run. coord and sched may
// be nil before a run starts; handlers degrade to 503 until SetRun is
// called.
func NewServer(addr string, pipe *runpipeline.Pipeline, log *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		pipeline: pipe,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		hub:      newHub(),
	}
}

// SetRun attaches the live coordinator/scheduler for the run currently
// executing, so /status, /movers and /control/* have something to act
// on. sched.SetEvents is wired, before Run, to the same channel passed
// to Start.
func (s *Server) SetRun(coord *coordinator.Coordinator, sched *scheduler.Scheduler) {
	s.coord = coord
	s.sched = sched
}

// Start begins serving and the event-forwarding/hub goroutines, blocking
// until ctx is cancelled.
func (s *Server) Start(ctx context.Context, events <-chan scheduler.Event) error {
	go s.hub.run()
	if events != nil {
		go s.forwardEvents(ctx, events)
	}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/movers", s.handleMovers).Methods("GET")
	r.HandleFunc("/control/{action}", s.handleControl).Methods("POST")
	r.HandleFunc("/stream", s.handleStream).Methods("GET")
	r.HandleFunc("/ws", s.handleWS).Methods("GET")

	s.server = &http.Server{Addr: s.addr, Handler: r}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctxShutdown)
	}()

	if s.log != nil {
		s.log.Info("result server starting", "addr", s.addr)
	}
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) forwardEvents(ctx context.Context, events <-chan scheduler.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			s.hub.broadcast <- payload
		}
	}
}

type statusResponse struct {
	Motion     float64 `json:"motion"`
	PADeg      float64 `json:"pa_deg"`
	Finished   bool    `json:"finished"`
	Paused     bool    `json:"paused"`
	Iterations int     `json:"iterations"`
	MoverCount int     `json:"mover_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.coord == nil || s.coord.Sweep == nil {
		http.Error(w, "no run in progress", http.StatusServiceUnavailable)
		return
	}
	resp := statusResponse{
		Motion:     s.coord.Sweep.Motion,
		PADeg:      s.coord.Sweep.PA * 180 / math.Pi,
		Finished:   s.coord.Sweep.Finished,
		Iterations: s.coord.Sweep.Iterations,
		MoverCount: len(s.coord.Movers.Movers),
	}
	if s.sched != nil {
		resp.Paused = s.sched.Paused()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// moverResponse mirrors mover.Mover but formats PA in degrees at this
// JSON boundary, per the radians-internally/degrees-at-the-edge split.
type moverResponse struct {
	Motion float64 `json:"motion"`
	PADeg  float64 `json:"pa_deg"`
	ErrMid float64 `json:"err_mid"`
	Score  float64 `json:"score"`
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	if s.coord == nil {
		http.Error(w, "no run in progress", http.StatusServiceUnavailable)
		return
	}
	resp := make([]moverResponse, 0, len(s.coord.Movers.Movers))
	for _, m := range s.coord.Movers.Movers {
		resp = append(resp, moverResponse{
			Motion: m.Motion,
			PADeg:  m.PA * 180 / math.Pi,
			ErrMid: m.ErrMid,
			Score:  m.Score,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if s.sched == nil {
		http.Error(w, "no run in progress", http.StatusServiceUnavailable)
		return
	}
	switch mux.Vars(r)["action"] {
	case "pause":
		s.sched.Pause()
	case "resume":
		s.sched.Resume()
	case "terminate":
		s.sched.Terminate()
	default:
		http.Error(w, "unknown control action", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		http.Error(w, "no pipeline configured", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	resCh, unsubscribe := s.pipeline.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-r.Context().Done():
			return
		case res, ok := <-resCh:
			if !ok {
				return
			}
			payload, _ := json.Marshal(res)
			_, _ = w.Write([]byte("data: " + string(payload) + "\n\n"))
			flusher.Flush()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.log != nil {
			s.log.Warn("websocket upgrade failed", "error", err)
		}
		return
	}
	s.hub.register <- conn

	go func() {
		defer func() {
			s.hub.unregister <- conn
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
