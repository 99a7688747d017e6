// Package devserver is a local stand-in for the exam scheduling service.
// It keeps the schedule in memory, detects clashes by shared students and
// speaks the same envelope format as the real service.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/javiermolinar/examdesk/internal/api"
	"github.com/javiermolinar/examdesk/internal/exam"
)

// Server serves a State over HTTP.
type Server struct {
	state  *State
	tokens *Tokens
	logger zerolog.Logger
	router *gin.Engine
	http   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithTokens requires a valid bearer token on every api route.
func WithTokens(t *Tokens) Option {
	return func(s *Server) { s.tokens = t }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the router for state.
func New(state *State, opts ...Option) *Server {
	s := &Server{state: state, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.logRequests())

	g := r.Group("/api")
	if s.tokens != nil {
		g.Use(s.tokens.requireToken())
	}
	g.POST(trim(api.PathVerify), s.verifyPlacement)
	g.POST(trim(api.PathCommit), s.commitPlacement)
	g.POST(trim(api.PathRemove), s.remove)
	g.POST(trim(api.PathSlotTime), s.slotTime)
	g.GET(trim(api.PathUnscheduled), s.unscheduled)
	g.GET(trim(api.PathScheduled), s.scheduled)
	g.GET(trim(api.PathSlots), s.slots)
	g.POST(trim(api.PathVerifyRoom), s.verifyRoom)
	g.POST(trim(api.PathChangeRoom), s.changeRoom)
	g.POST(trim(api.PathVerifyStudents), s.verifyRoom)
	g.POST(trim(api.PathChangeStudents), s.changeStudents)

	s.router = r
	return s
}

func trim(path string) string {
	return path[len("/api"):]
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("dev server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting dev server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info().Msg("shutting down dev server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down dev server: %w", err)
	}
	return nil
}

// requestID echoes the client's request id, minting one when absent.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(api.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(api.HeaderRequestID, id)
		c.Header(api.HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		evt := s.logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = s.logger.Error()
		}
		evt.Str("request_id", c.GetString(api.HeaderRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("operator", operator(c)).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// Response helpers

func succeed(c *gin.Context, data any) {
	env := api.Envelope{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.Envelope{Message: err.Error()})
			return
		}
		env.Data = raw
	}
	c.JSON(http.StatusOK, env)
}

// reject answers 200 with success=false, the way the service reports
// business rule violations.
func reject(c *gin.Context, err error) {
	c.JSON(http.StatusOK, api.Envelope{Message: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.Envelope{Message: err.Error()})
}

func verdict(c *gin.Context, conflicts []exam.ConflictRecord, all []exam.Suggestion, best *exam.Suggestion) {
	if len(conflicts) == 0 {
		c.JSON(http.StatusOK, api.Envelope{Success: true, Message: "no conflicts"})
		return
	}
	raw, err := json.Marshal(conflicts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.Envelope{Message: err.Error()})
		return
	}
	env := api.Envelope{
		Success:  true,
		Conflict: true,
		Message:  fmt.Sprintf("%d conflicts", len(conflicts)),
		Data:     raw,
	}
	for _, sug := range all {
		env.AllSuggestions = append(env.AllSuggestions, api.NewSuggestionDTO(sug))
	}
	if best != nil {
		dto := api.NewSuggestionDTO(*best)
		env.BestSuggestion = &dto
	}
	c.JSON(http.StatusOK, env)
}

var wireKinds = map[string]exam.EntityKind{
	exam.KindCourse.String():         exam.KindCourse,
	exam.KindCourseGroup.String():    exam.KindCourseGroup,
	exam.KindScheduledGroup.String(): exam.KindScheduledGroup,
}

func bindPlacement(c *gin.Context) (api.PlacementRequest, exam.EntityKind, exam.SlotRef, bool) {
	var req api.PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, 0, exam.SlotRef{}, false
	}
	kind, known := wireKinds[req.Kind]
	if !known {
		badRequest(c, fmt.Errorf("unknown kind %q", req.Kind))
		return req, 0, exam.SlotRef{}, false
	}
	ref, err := exam.ParseSlotRef(req.Day, req.SlotName)
	if err != nil {
		badRequest(c, err)
		return req, 0, exam.SlotRef{}, false
	}
	return req, kind, ref, true
}

func (s *Server) verifyPlacement(c *gin.Context) {
	req, kind, target, valid := bindPlacement(c)
	if !valid {
		return
	}
	if err := s.state.CheckPlacement(kind, req.CourseID, req.GroupID); err != nil {
		reject(c, err)
		return
	}
	conflicts, all, best, err := s.state.VerifyPlacement(req.GroupID, target)
	if err != nil {
		reject(c, err)
		return
	}
	verdict(c, conflicts, all, best)
}

func (s *Server) commitPlacement(c *gin.Context) {
	req, kind, target, valid := bindPlacement(c)
	if !valid {
		return
	}
	if err := s.state.CheckPlacement(kind, req.CourseID, req.GroupID); err != nil {
		reject(c, err)
		return
	}
	placed, err := s.state.Place(req.GroupID, target, "")
	if err != nil {
		reject(c, err)
		return
	}
	s.logger.Debug().Int64("group_id", req.GroupID).Str("slot", target.Key()).
		Int64("exam_id", placed.ExamID).Str("room", placed.Room).Msg("placed")
	succeed(c, api.CommitData{ExamID: placed.ExamID, Room: placed.Room})
}

func (s *Server) remove(c *gin.Context) {
	var req api.PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.state.Remove(req.GroupID); err != nil {
		reject(c, err)
		return
	}
	succeed(c, nil)
}

func (s *Server) slotTime(c *gin.Context) {
	var req api.SlotTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ref, err := exam.ParseSlotRef(req.Date, req.SlotName)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.state.SetSlotTime(exam.Slot{SlotRef: ref, Start: req.StartTime, End: req.EndTime}); err != nil {
		reject(c, err)
		return
	}
	succeed(c, nil)
}

func (s *Server) unscheduled(c *gin.Context) {
	succeed(c, s.state.Unscheduled())
}

func (s *Server) scheduled(c *gin.Context) {
	payload := api.ScheduledPayload{}
	for _, e := range s.state.Scheduled() {
		day := e.Slot.DayKey()
		if payload[day] == nil {
			payload[day] = map[string][]api.ScheduledExamDTO{}
		}
		name := string(e.Slot.Name)
		payload[day][name] = append(payload[day][name], api.ScheduledExamDTO{ID: e.ID, Group: e.Group, Room: e.Room})
	}
	succeed(c, payload)
}

func (s *Server) slots(c *gin.Context) {
	slots := s.state.Slots()
	out := make([]api.SlotDTO, 0, len(slots))
	for _, sl := range slots {
		out = append(out, api.SlotDTO{
			Date:      sl.DayKey(),
			SlotName:  string(sl.Name),
			StartTime: sl.Start,
			EndTime:   sl.End,
		})
	}
	succeed(c, out)
}

func (s *Server) verifyRoom(c *gin.Context) {
	var req api.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	conflicts, all, best, err := s.state.VerifyRoom(req.GroupID, req.Room, len(req.StudentIDs))
	if err != nil {
		reject(c, err)
		return
	}
	verdict(c, conflicts, all, best)
}

func (s *Server) changeRoom(c *gin.Context) {
	var req api.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.state.SetRoom(req.GroupID, req.Room); err != nil {
		reject(c, err)
		return
	}
	succeed(c, nil)
}

func (s *Server) changeStudents(c *gin.Context) {
	var req api.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.StudentIDs) == 0 {
		badRequest(c, errors.New("student_ids is required"))
		return
	}
	if err := s.state.SplitStudents(req.GroupID, req.Room, req.StudentIDs); err != nil {
		reject(c, err)
		return
	}
	succeed(c, nil)
}
