package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/financeai/backend/internal/models"
)

// WebSocket message types for the job watching protocol
const (
	// Client -> Server messages
	MsgTypeWatch   = "watch"
	MsgTypeUnwatch = "unwatch"
	MsgTypePing    = "ping"

	// Server -> Client messages
	MsgTypeAck      = "ack"
	MsgTypeProgress = "progress"
	MsgTypeComplete = "complete"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

// wsWatchInterval paces job polling behind a watched connection.
const wsWatchInterval = 100 * time.Millisecond

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Watch payload: which job to follow
type WatchPayload struct {
	JobID string `json:"jobId"`
}

// WebSocket progress response
type WSProgressResponse struct {
	Type     string  `json:"type"`
	JobID    string  `json:"jobId"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Phase    string  `json:"phase,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams job progress over a WebSocket connection. A
// client may watch several jobs at once; each watch runs its own poll
// loop and stops when the job is terminal or unwatched.
type WebSocketHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket job watcher.
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// wsConn serializes writes to a single connection. gorilla/websocket
// forbids concurrent writers, and each watched job has its own goroutine.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// watchSet tracks the active watches of one connection. Watch goroutines
// remove their own entry when the job finishes, so a client may watch the
// same job id again later.
type watchSet struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func newWatchSet() *watchSet {
	return &watchSet{m: make(map[string]chan struct{})}
}

// add registers a watch. Returns false if the job is already watched.
func (s *watchSet) add(jobID string) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[jobID]; exists {
		return nil, false
	}
	done := make(chan struct{})
	s.m[jobID] = done
	return done, true
}

// remove drops the entry, but only while it still belongs to the given
// channel; an unwatch or disconnect may already have replaced or taken it.
func (s *watchSet) remove(jobID string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, exists := s.m[jobID]; exists && current == done {
		delete(s.m, jobID)
	}
}

// take removes and returns the entry for an explicit unwatch.
func (s *watchSet) take(jobID string) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	done, exists := s.m[jobID]
	if exists {
		delete(s.m, jobID)
	}
	return done, exists
}

// drain removes and returns all entries when the connection closes.
func (s *watchSet) drain() []chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chan struct{}, 0, len(s.m))
	for id, done := range s.m {
		out = append(out, done)
		delete(s.m, id)
	}
	return out
}

// HandleWebSocket upgrades the connection and runs the watch protocol.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Println("[WebSocket] Client connected for job watching")

	conn := &wsConn{ws: ws}
	watches := newWatchSet()
	defer func() {
		for _, done := range watches.drain() {
			close(done)
		}
	}()

	// Send welcome message
	wsh.sendMessage(conn, WSMessage{
		Type:      "connected",
		Timestamp: time.Now().UnixMilli(),
	})

	// Main message loop
	for {
		var msg WSMessage
		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			// Respond with pong to keep connection alive
			wsh.sendMessage(conn, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeWatch:
			wsh.handleWatch(conn, msg, watches)
		case MsgTypeUnwatch:
			wsh.handleUnwatch(conn, msg, watches)
		default:
			wsh.sendError(conn, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	fmt.Println("[WebSocket] Client disconnected")
	return nil
}

// handleWatch starts a poll loop for the requested job.
func (wsh *WebSocketHandler) handleWatch(conn *wsConn, msg WSMessage, watches *watchSet) {
	var payload WatchPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(conn, "Invalid watch payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	job, err := wsh.handler.jobs.Job(payload.JobID)
	if err != nil {
		wsh.sendError(conn, "Job not found: "+payload.JobID, "JOB_NOT_FOUND")
		return
	}

	done, ok := watches.add(payload.JobID)
	if !ok {
		wsh.sendError(conn, "Job already watched: "+payload.JobID, "ALREADY_WATCHED")
		return
	}

	wsh.sendMessage(conn, WSMessage{
		Type:      MsgTypeAck,
		ID:        payload.JobID,
		Timestamp: time.Now().UnixMilli(),
	})

	go wsh.watchJob(conn, payload.JobID, job, done, watches)

	fmt.Printf("[WebSocket] Watching job %s\n", payload.JobID)
}

// handleUnwatch stops the poll loop for a job.
func (wsh *WebSocketHandler) handleUnwatch(conn *wsConn, msg WSMessage, watches *watchSet) {
	var payload WatchPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(conn, "Invalid unwatch payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	done, exists := watches.take(payload.JobID)
	if !exists {
		wsh.sendError(conn, "Job not watched: "+payload.JobID, "NOT_WATCHED")
		return
	}
	close(done)
}

// watchJob polls the job and pushes updates until it is terminal. Its watch
// entry is released on exit so the job id can be watched again.
func (wsh *WebSocketHandler) watchJob(conn *wsConn, jobID string, initial models.Job, done chan struct{}, watches *watchSet) {
	defer watches.remove(jobID, done)

	wsh.sendProgress(conn, initial)
	if initial.State.Terminal() {
		return
	}

	ticker := time.NewTicker(wsWatchInterval)
	defer ticker.Stop()

	lastProgress := initial.Progress
	lastPhase := initial.Phase
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			job, err := wsh.handler.jobs.Job(jobID)
			if err != nil {
				wsh.sendError(conn, "Job disappeared: "+jobID, "JOB_NOT_FOUND")
				return
			}

			if job.Progress != lastProgress || job.Phase != lastPhase || job.State.Terminal() {
				lastProgress = job.Progress
				lastPhase = job.Phase
				wsh.sendProgress(conn, job)
			}

			if job.State.Terminal() {
				return
			}
		}
	}
}

// Helper methods

func (wsh *WebSocketHandler) sendProgress(conn *wsConn, job models.Job) {
	msgType := MsgTypeProgress
	if job.State.Terminal() {
		msgType = MsgTypeComplete
	}
	wsh.sendMessage(conn, WSMessage{
		Type:      msgType,
		ID:        job.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSProgressResponse{
			Type:     msgType,
			JobID:    job.ID,
			State:    string(job.State),
			Progress: job.Progress,
			Phase:    job.Phase,
			Error:    job.Error,
		}),
	})
}

func (wsh *WebSocketHandler) sendMessage(conn *wsConn, msg WSMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (wsh *WebSocketHandler) sendError(conn *wsConn, message, code string) {
	wsh.sendMessage(conn, WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
