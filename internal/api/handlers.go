package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/mastery"
	"github.com/themycoder/guitarchord-sub001/internal/reco"
)

const maxBodyBytes = 1 << 20

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// recoRequest is the body of POST /v1/reco/next. Fields left out are filled
// from the learner's stored state when UserID is set.
type recoRequest struct {
	UserID   string             `json:"userId"`
	Goals    []string           `json:"goals"`
	Known    []string           `json:"known"`
	Seen     []string           `json:"seen"`
	Mastered map[string]float64 `json:"mastered"`
	K        int                `json:"k"`
	MaxLevel *int               `json:"maxLevel"`
}

type recoResponse struct {
	Items []reco.Recommendation `json:"items"`
}

func (s *Server) handleRecommendQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := recoRequest{UserID: q.Get("userId")}

	var err error
	if req.K, err = intParam(q.Get("k")); err != nil {
		writeError(w, fmt.Errorf("k: %w", err))
		return
	}
	if v := q.Get("maxLevel"); v != "" {
		level, err := intParam(v)
		if err != nil {
			writeError(w, fmt.Errorf("maxLevel: %w", err))
			return
		}
		req.MaxLevel = &level
	}
	if v := q.Get("goals"); v != "" {
		req.Goals = splitList(v)
	}
	s.recommend(w, r, req, true)
}

func (s *Server) handleRecommendBody(w http.ResponseWriter, r *http.Request) {
	var req recoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.recommend(w, r, req, false)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, req recoRequest, clampLevel bool) {
	params, err := s.buildParams(r.Context(), req, clampLevel)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := s.engine.RecommendNext(params)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []reco.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recoResponse{Items: recs})
}

// buildParams resolves goals, learner state and the level ceiling. Explicit
// request fields win over stored ones. The query route clamps an explicit
// maxLevel to the lesson scale; the JSON route passes it through as given.
func (s *Server) buildParams(ctx context.Context, req recoRequest, clampLevel bool) (reco.Params, error) {
	if req.K < 0 {
		return reco.Params{}, fmt.Errorf("k must not be negative: %w", errBadRequest)
	}
	p := reco.Params{
		UserID:   req.UserID,
		Goals:    req.Goals,
		Known:    req.Known,
		Seen:     req.Seen,
		Mastered: req.Mastered,
		K:        req.K,
	}

	if req.UserID != "" {
		snap, err := s.tracker.Snapshot(ctx, req.UserID)
		if err != nil {
			return reco.Params{}, err
		}
		if p.Known == nil {
			p.Known = snap.Known
		}
		if p.Seen == nil {
			p.Seen = snap.Seen
		}
		if p.Mastered == nil {
			p.Mastered = snap.Mastered
		}
		if p.Goals == nil {
			if p.Goals, err = s.tracker.GoalsForReco(ctx, req.UserID); err != nil {
				return reco.Params{}, err
			}
		}
	}

	if req.MaxLevel != nil && !clampLevel {
		p.MaxLevel = req.MaxLevel
		return p, nil
	}
	level, err := s.tracker.MaxLevelFor(ctx, req.UserID, req.MaxLevel)
	if err != nil {
		return reco.Params{}, err
	}
	p.MaxLevel = &level
	return p, nil
}

type quizRequest struct {
	Items   []string                `json:"items"`
	History map[string]reco.Attempt `json:"history"`
}

type quizResponse struct {
	Items []catalog.QuizItem `json:"items"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := s.engine.SuggestQuizFor(req.Items, req.History)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{Items: items})
}

type lessonResponse struct {
	ID string `json:"id"`
	catalog.Lesson
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lesson, err := s.lookupLesson(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessonResponse{ID: id, Lesson: lesson})
}

func (s *Server) lookupLesson(id string) (catalog.Lesson, error) {
	lesson, ok, err := s.engine.MetaFor(id)
	if err != nil {
		return catalog.Lesson{}, err
	}
	if !ok {
		return catalog.Lesson{}, fmt.Errorf("lesson %q: %w", id, errNotFound)
	}
	return lesson, nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.GetOrCreateLearningState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type masteryRequest struct {
	LessonID string   `json:"lessonId"`
	Value    *float64 `json:"value"`
}

func (s *Server) handleMastery(w http.ResponseWriter, r *http.Request) {
	var req masteryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Value == nil {
		writeError(w, fmt.Errorf("value is required: %w", errBadRequest))
		return
	}
	if _, err := s.lookupLesson(req.LessonID); err != nil {
		writeError(w, err)
		return
	}

	st, err := s.tracker.UpdateMastery(r.Context(), r.PathValue("id"), req.LessonID, *req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

type seenRequest struct {
	LessonID string `json:"lessonId"`
}

func (s *Server) handleSeen(w http.ResponseWriter, r *http.Request) {
	var req seenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.lookupLesson(req.LessonID); err != nil {
		writeError(w, err)
		return
	}

	userID := r.PathValue("id")
	if err := s.tracker.AppendSeen(r.Context(), userID, req.LessonID); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.tracker.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type rankRequest struct {
	Rank string `json:"rank"`
}

type levelResponse struct {
	Level    mastery.Rank `json:"level"`
	MaxLevel int          `json:"maxLevel"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	rank, err := s.tracker.SetLearningRank(r.Context(), r.PathValue("id"), req.Rank)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levelResponse{Level: rank, MaxLevel: rank.Level()})
}

type goalsRequest struct {
	Goals []string `json:"goals"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	var req goalsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID := r.PathValue("id")
	if err := s.tracker.SetGoals(r.Context(), userID, req.Goals); err != nil {
		writeError(w, err)
		return
	}
	goals, err := s.tracker.GoalsForReco(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []string{}
	}
	writeJSON(w, http.StatusOK, goalsRequest{Goals: goals})
}

func (s *Server) handleEvaluateLevel(w http.ResponseWriter, r *http.Request) {
	var in mastery.LevelInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	rank := mastery.EvaluateLevel(in)
	writeJSON(w, http.StatusOK, levelResponse{Level: rank, MaxLevel: rank.Level()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, errBadRequest)
	}
	return nil
}

// splitList splits a comma-separated query value, trimming entries and
// dropping empty ones.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer: %w", v, errBadRequest)
	}
	return n, nil
}
