// Package dashboard — HTTP API и websocket-консоль для управления ботами.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/store"
)

type Server struct {
	m       *Manager
	store   *store.Store
	hub     *Hub
	log     *zap.Logger
	started time.Time
}

func NewServer(m *Manager, st *store.Store, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{m: m, store: st, hub: hub, log: log, started: time.Now()}
	hub.OnCommand = s.consoleCommand
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})

	mux.HandleFunc("GET /api/bots", s.listBots)
	mux.HandleFunc("POST /api/bots", s.createBot)
	mux.HandleFunc("GET /api/bots/{id}", s.getBot)
	mux.HandleFunc("DELETE /api/bots/{id}", s.deleteBot)
	mux.HandleFunc("POST /api/bots/{id}/start", s.startBot)
	mux.HandleFunc("POST /api/bots/{id}/stop", s.stopBot)
	mux.HandleFunc("GET /api/bots/{id}/config", s.getConfig)
	mux.HandleFunc("PUT /api/bots/{id}/config", s.putConfig)
	mux.HandleFunc("GET /api/bots/{id}/status", s.botStatus)
	mux.HandleFunc("POST /api/bots/{id}/sync-status", s.syncStatus)
	mux.HandleFunc("POST /api/bots/{id}/command", s.command)
	mux.HandleFunc("POST /api/console/log", s.consoleLog)

	mux.Handle("GET /ws", s.hub)
	return mux
}

// ========================= ответы =========================

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// writeError переводит ошибку в HTTP-код.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid bot data", Details: verr.Problems})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "bot not found"})
	case errors.Is(err, store.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrAlreadyRunning), errors.Is(err, ErrNotRunning):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON", Details: []string{err.Error()}})
		return false
	}
	return true
}

// ========================= обработчики =========================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Seconds(),
		"message":   "botlolicute is running! 💕",
	})
}

func (s *Server) listBots(w http.ResponseWriter, r *http.Request) {
	bots, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

type createRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Version  string `json:"version"`
	Config   string `json:"config"`
}

func (s *Server) createBot(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Port == 0 {
		req.Port = 25565
	}
	rec := &store.Bot{
		Name:     req.Name,
		Username: req.Username,
		Server:   req.Server,
		Port:     req.Port,
		Version:  req.Version,
		Config:   req.Config,
	}
	if _, err := bot.ParseConfig([]byte(rec.Config)); err != nil {
		s.writeError(w, &store.ValidationError{Problems: []string{"config: " + err.Error()}})
		return
	}
	if err := s.store.Create(r.Context(), rec); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("bot created", zap.String("botId", rec.ID), zap.String("name", rec.Name))
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getBot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteBot(w http.ResponseWriter, r *http.Request) {
	if err := s.m.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Bot deleted successfully"})
}

func (s *Server) startBot(w http.ResponseWriter, r *http.Request) {
	if err := s.m.Start(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Bot started successfully"})
}

func (s *Server) stopBot(w http.ResponseWriter, r *http.Request) {
	if err := s.m.Stop(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Bot stopped successfully"})
}

type configResponse struct {
	ID     string `json:"id"`
	Config string `json:"config"`
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{ID: rec.ID, Config: rec.Config})
}

// configRequest — заданные поля перезаписывают запись.
type configRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Server   *string `json:"server"`
	Port     *int    `json:"port"`
	Version  *string `json:"version"`
	Config   *string `json:"config"`
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	set(&rec.Name, req.Name)
	set(&rec.Username, req.Username)
	set(&rec.Server, req.Server)
	set(&rec.Port, req.Port)
	set(&rec.Version, req.Version)
	set(&rec.Config, req.Config)
	if err := s.m.UpdateConfig(r.Context(), rec); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

type statusResponse struct {
	ID      string       `json:"id"`
	State   store.Status `json:"state"`
	Running bool         `json:"running"`
	Bot     *bot.Status  `json:"bot,omitempty"`
}

func (s *Server) botStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	resp := statusResponse{ID: id, State: store.StatusOffline, Running: s.m.IsRunning(id)}
	if st, ok := s.m.Status(id); ok {
		resp.Bot = &st
		if st.Connected {
			resp.State = store.StatusOnline
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type syncRequest struct {
	Status   store.Status `json:"status"`
	Username string       `json:"username"`
	Server   string       `json:"server"`
}

// syncStatus — внешний процесс бота сообщает своё состояние.
func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	rec, err := s.store.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Username != "" {
		rec.Username = req.Username
	}
	if req.Server != "" {
		rec.Server = req.Server
	}
	if req.Status != "" {
		rec.Status = req.Status
	}
	if err := s.store.Update(ctx, rec); err != nil {
		s.writeError(w, err)
		return
	}
	if rec.Status == store.StatusOnline {
		// проставит last_seen
		if err := s.store.UpdateStatus(ctx, rec.ID, store.StatusOnline); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Bot status synced successfully"})
}

type commandRequest struct {
	Command string `json:"command"`
	Sender  string `json:"sender"`
}

func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if strings.TrimSpace(req.Command) == "" {
		s.writeError(w, &store.ValidationError{Problems: []string{"command is required"}})
		return
	}
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Sender == "" {
		req.Sender = s.m.Owner(r.Context(), id)
	}
	if err := s.m.Command(id, req.Sender, req.Command); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true})
}

type consoleLogRequest struct {
	Message string `json:"message"`
	Level   string `json:"level"`
	Source  string `json:"source"`
	BotID   string `json:"botId"`
}

// consoleLog — запись в консоль от внешнего процесса.
func (s *Server) consoleLog(w http.ResponseWriter, r *http.Request) {
	req := consoleLogRequest{Level: "info", Source: "bot", BotID: "external-bot"}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) != "" {
		s.hub.Console(req.BotID, req.Level, req.Source, req.Message)
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true})
}

// ========================= консоль =========================

const consoleHelp = "Lệnh không hợp lệ. Sử dụng: /start, /stop, /status, /players, /say <message> hoặc lệnh của bot"

// consoleCommand выполняет команду, пришедшую по websocket.
func (s *Server) consoleCommand(msg Message) {
	ctx, cancel := context.WithTimeout(s.m.ctx, time.Minute)
	defer cancel()

	id, cmd := msg.BotID, strings.TrimSpace(msg.Command)
	if cmd == "" {
		return
	}
	s.hub.Console(id, "info", "user", "> "+cmd)

	var err error
	switch {
	case cmd == "/start":
		err = s.m.Start(ctx, id)
	case cmd == "/stop":
		err = s.m.Stop(ctx, id)
	case cmd == "/status":
		state := store.StatusOffline
		if st, ok := s.m.Status(id); ok && st.Connected {
			state = store.StatusOnline
		}
		s.hub.Console(id, "info", "system", "Trạng thái bot: "+string(state))
	case cmd == "/players":
		var list string
		if list, err = s.m.Players(id); err == nil {
			s.hub.Console(id, "info", "system", list)
		}
	case strings.HasPrefix(cmd, "/say "):
		text := strings.TrimSpace(strings.TrimPrefix(cmd, "/say "))
		if err := s.m.Say(id, text); err != nil {
			s.hub.Console(id, "error", "system", "Không thể gửi tin nhắn. Bot có thể chưa kết nối.")
			return
		}
		s.hub.Console(id, "success", "chat", "Bot nói: "+text)
	case strings.HasPrefix(cmd, "/"):
		s.hub.Console(id, "warning", "system", consoleHelp)
	default:
		err = s.m.Command(id, s.m.Owner(ctx, id), cmd)
	}
	if err != nil {
		s.hub.Console(id, "error", "system", "Lỗi thực thi lệnh: "+err.Error())
	}
}
