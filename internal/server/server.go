package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/config"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/model"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/repository"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/service"
)

// Server owns the HTTP surface: token minting and the scheduling routes.
type Server struct {
	cfg    config.Config
	users  *repository.UserRepository
	plans  *service.PlanService
	issuer *TokenIssuer
	log    *zap.SugaredLogger
}

func New(cfg config.Config, users *repository.UserRepository, plans *service.PlanService, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		cfg:    cfg,
		users:  users,
		plans:  plans,
		issuer: NewTokenIssuer(cfg.JWTSecret),
		log:    log,
	}
}

// Router assembles the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/api/v1")
	{
		public.POST("/auth/token", s.issueToken)
	}

	private := r.Group("/api/v1")
	private.Use(AuthRequired(s.issuer))
	{
		private.POST("/schedule/suggest", s.suggestSchedule)
		private.POST("/schedule/confirm", s.confirmSchedule)
		private.GET("/schedule/events", s.listEvents)
	}

	return r
}

type tokenRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// issueToken exchanges the shared bot secret for a user-scoped JWT. Token
// holders must already be known to the bot.
func (s *Server) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.cfg.BotSecret == "" || req.Secret != s.cfg.BotSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	user, err := s.users.FindByTelegramID(c.Request.Context(), req.TelegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user, talk to the bot first"})
			return
		}
		s.log.Errorw("find user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := s.issuer.Generate(user.ID)
	if err != nil {
		s.log.Errorw("generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type suggestRequest struct {
	Instruction      string `json:"instruction"`
	StartDate        string `json:"start_date" binding:"required"`
	EndDate          string `json:"end_date" binding:"required"`
	AvoidConflict    bool   `json:"avoid_conflict"`
	ConsiderPriority bool   `json:"consider_priority"`
	BalanceWorkload  bool   `json:"balance_workload"`
}

func (s *Server) suggestSchedule(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		return
	}

	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := user.Location()
	start, err := time.ParseInLocation("2006-01-02", req.StartDate, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.ParseInLocation("2006-01-02", req.EndDate, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	outcome, err := s.plans.SuggestSchedule(c.Request.Context(), user, req.Instruction, start, end, planner.Options{
		AvoidConflict:    req.AvoidConflict,
		ConsiderPriority: req.ConsiderPriority,
		BalanceWorkload:  req.BalanceWorkload,
	})
	if err != nil {
		if errors.Is(err, planner.ErrInvalidDateRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date is before start_date"})
			return
		}
		s.log.Errorw("suggest schedule", "user", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type confirmRequest struct {
	BatchID string `json:"batch_id" binding:"required"`
}

func (s *Server) confirmSchedule(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := s.plans.Confirm(c.Request.Context(), user, req.BatchID)
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found or already confirmed"})
	case errors.Is(err, service.ErrDuplicateConfirm):
		c.JSON(http.StatusConflict, gin.H{"error": "identical confirmation already accepted"})
	case err != nil:
		s.log.Errorw("confirm schedule", "user", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, gin.H{"events_created": created})
	}
}

func (s *Server) listEvents(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		return
	}

	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 31 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be 1..31"})
			return
		}
		days = n
	}

	events, err := s.plans.UpcomingEvents(c.Request.Context(), user, days)
	if err != nil {
		s.log.Errorw("list events", "user", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// currentUser resolves the authenticated user or writes the error response.
func (s *Server) currentUser(c *gin.Context) *model.User {
	id, ok := c.Get(ctxUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return nil
	}
	user, err := s.users.FindByID(c.Request.Context(), id.(uint))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return nil
	}
	return user
}
