package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"CineBot/core/session"
	"CineBot/logger"
	"CineBot/model"

	"github.com/gorilla/mux"
)

// sessionView 对外展示的会话，不包含 token
type sessionView struct {
	ID               string             `json:"id"`
	State            model.SessionState `json:"state"`
	ContentID        string             `json:"contentId"`
	Title            string             `json:"title"`
	Qualities        []model.Quality    `json:"qualities"`
	AudioTracks      []model.AudioTrack `json:"audioTracks"`
	SelectedQuality  *model.Quality     `json:"selectedQuality,omitempty"`
	SelectedAudioIDs []string           `json:"selectedAudioIds"`
	Downloading      bool               `json:"downloading"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("写入响应失败", logger.ErrorField(err))
	}
}

// HealthHandler 健康检查
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SessionHandler 查询用户当前会话
func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	sess, err := s.store.Get(r.Context(), userID)
	if errors.Is(err, session.ErrNoSession) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	if err != nil {
		logger.Error("查询会话失败", logger.Int64("userId", userID), logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, sessionView{
		ID:               sess.ID,
		State:            sess.State,
		ContentID:        sess.ContentID,
		Title:            sess.Content.Title,
		Qualities:        sess.Qualities,
		AudioTracks:      sess.AudioTracks,
		SelectedQuality:  sess.SelectedQuality,
		SelectedAudioIDs: sess.SelectedAudioIDs,
		Downloading:      s.store.Downloading(userID),
		UpdatedAt:        sess.UpdatedAt,
	})
}

// StatsHandler 下载结果统计
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history disabled"})
		return
	}
	counts, err := s.history.CountByOutcome(r.Context())
	if err != nil {
		logger.Error("统计下载记录失败", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
