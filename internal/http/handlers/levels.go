package handlers

import (
	"net/http"
	"strconv"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ListLevels serves the active catalog. Anonymous callers see the free tier
// as unlocked.
func (h *Handler) ListLevels(c *gin.Context) {
	userID, _ := getUserID(c)

	levels, err := h.Levels.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

func (h *Handler) UnlockedLevels(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	levels, err := h.Levels.Unlocked(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

func (h *Handler) GetLevel(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	levelID, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := h.Levels.Get(c.Request.Context(), userID, levelID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) GetLevelByNumber(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		writeError(c, domain.NewValidationError("number", "must be an integer"))
		return
	}

	detail, err := h.Levels.GetByNumber(c.Request.Context(), userID, n)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) UnlockLevel(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	levelID, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.Gate.Unlock(c.Request.Context(), userID, levelID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) LevelProgress(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	levelID, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.Progress.LevelProgress(c.Request.Context(), userID, levelID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type CompleteExerciseRequest struct {
	ExerciseID string `json:"exercise_id" validate:"required,max=64"`
	Score      int    `json:"score" validate:"gte=0,lte=100"`
	TimeSpent  int    `json:"time_spent" validate:"gte=0"`
}

func (h *Handler) CompleteExercise(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	levelID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CompleteExerciseRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Progress.RecordExercise(c.Request.Context(), userID, levelID, req.ExerciseID, req.Score, req.TimeSpent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type SubmitQuizRequest struct {
	ExerciseID string `json:"exercise_id" validate:"required,max=64"`
	Answers    []int  `json:"answers" validate:"required,dive,gte=0"`
	TimeSpent  int    `json:"time_spent" validate:"gte=0"`
}

func (h *Handler) SubmitQuiz(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	levelID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SubmitQuizRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Progress.SubmitQuiz(c.Request.Context(), userID, levelID, req.ExerciseID, req.Answers, req.TimeSpent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type LevelScoreRequest struct {
	Score     int                     `json:"score" validate:"gte=0,lte=100"`
	TimeSpent int                     `json:"time_spent" validate:"gte=0"`
	Exercises []service.ExerciseScore `json:"exercises"`
}

func (h *Handler) SubmitLevelScore(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	levelID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req LevelScoreRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Progress.RecordLevelScore(c.Request.Context(), userID, levelID, req.Score, req.TimeSpent, req.Exercises)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
