package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/StrokeRisk/internal/assessment"
)

type handlers struct {
	svc    *assessment.Service
	logger *slog.Logger
}

type mainPageData struct {
	Prediction  string
	Probability *float64
	Suggestion  string
}

func (h *handlers) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

func (h *handlers) verification(c *gin.Context) {
	c.HTML(http.StatusOK, "verification.html", nil)
}

func (h *handlers) verify(c *gin.Context) {
	c.Redirect(http.StatusFound, "/main.html")
}

func (h *handlers) mainPage(c *gin.Context) {
	c.HTML(http.StatusOK, "main.html", mainPageData{})
}

// assess always renders the page; failures surface as text in the result
// section rather than as error statuses.
func (h *handlers) assess(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Warn("could not parse form", "error", err, "request_id", c.GetString(requestIDKey))
	}

	res := h.svc.AssessForm(c.Request.Context(), c.Request.PostForm)
	c.HTML(http.StatusOK, "main.html", mainPageData{
		Prediction:  res.Prediction,
		Probability: res.Probability,
		Suggestion:  res.Suggestion,
	})
}

type assessmentRequest struct {
	Gender       *int     `json:"gender" binding:"required"`
	Age          *float64 `json:"age" binding:"required"`
	Hypertension *int     `json:"hypertension" binding:"required"`
	HeartDisease *int     `json:"heart_disease" binding:"required"`
	EverMarried  *int     `json:"ever_married" binding:"required"`
	WorkType     *int     `json:"work_type" binding:"required"`
	Residence    string   `json:"residence" binding:"required"`
	Glucose      *float64 `json:"glucose" binding:"required"`
	BMI          *float64 `json:"bmi" binding:"required"`
	Smoking      *int     `json:"smoking" binding:"required"`
}

func (r assessmentRequest) input() assessment.Input {
	return assessment.Input{
		Gender:       *r.Gender,
		Age:          *r.Age,
		Hypertension: *r.Hypertension,
		HeartDisease: *r.HeartDisease,
		EverMarried:  *r.EverMarried,
		WorkType:     *r.WorkType,
		Residence:    r.Residence,
		Glucose:      *r.Glucose,
		BMI:          *r.BMI,
		Smoking:      *r.Smoking,
	}
}

func (h *handlers) assessJSON(c *gin.Context) {
	if !h.svc.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      assessment.ModelUnavailablePrediction,
			"suggestion": assessment.ModelUnavailableSuggestion,
		})
		return
	}

	var payload assessmentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	res := h.svc.Assess(c.Request.Context(), payload.input())
	if res.Status != assessment.StatusOK {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      res.Prediction,
			"suggestion": res.Suggestion,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          res.ID,
		"prediction":  res.Prediction,
		"riskTier":    res.RiskTier(),
		"probability": *res.Probability,
		"suggestion":  res.Suggestion,
	})
}
