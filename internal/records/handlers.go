package records

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// Service names accepted by Register.
const (
	ServiceUser       = "user"
	ServiceAttendance = "attendance"
	ServiceLeaves     = "leaves"
)

// DefaultPorts are the ports each service listens on by default.
var DefaultPorts = map[string]int{
	ServiceUser:       3001,
	ServiceAttendance: 3002,
	ServiceLeaves:     3003,
}

// Reader is the read side of the records store.
type Reader interface {
	GetUser(ctx context.Context, userID int) (*User, error)
	AttendanceFor(ctx context.Context, userID int, month string) ([]Attendance, error)
	LeavesFor(ctx context.Context, userID int) ([]Leave, error)
}

// Handlers serves the records services over HTTP.
type Handlers struct {
	store  Reader
	logger observability.Logger
}

// NewHandlers creates the records handlers.
func NewHandlers(store Reader, logger observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handlers{store: store, logger: logger}
}

// Register mounts the routes of the named service.
func (h *Handlers) Register(r gin.IRouter, service string) error {
	switch service {
	case ServiceUser:
		r.GET("/user/:user_id", h.GetUser)
	case ServiceAttendance:
		r.GET("/attendance/:user_id/:month", h.GetAttendance)
	case ServiceLeaves:
		r.GET("/leaves/:user_id/history", h.GetLeaveHistory)
	default:
		return fmt.Errorf("unknown service %q", service)
	}
	return nil
}

// GetUser handles GET /user/:user_id.
func (h *Handlers) GetUser(c *gin.Context) {
	raw := c.Param("user_id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		h.fail(c, ServiceUser, &NotFoundError{UserID: raw})
		return
	}

	u, err := h.store.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, ServiceUser, err)
		return
	}

	c.JSON(http.StatusOK, UserView{
		UserID:     u.UserID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
		Status:     u.Status,
	})
}

// GetAttendance handles GET /attendance/:user_id/:month.
func (h *Handlers) GetAttendance(c *gin.Context) {
	id, ok := h.userID(c, ServiceAttendance)
	if !ok {
		return
	}
	month := c.Param("month")

	rows, err := h.store.AttendanceFor(c.Request.Context(), id, month)
	if err != nil {
		h.fail(c, ServiceAttendance, err)
		return
	}

	c.JSON(http.StatusOK, AttendanceView{
		UserID:       id,
		Month:        month,
		Records:      rows,
		TotalRecords: len(rows),
	})
}

// GetLeaveHistory handles GET /leaves/:user_id/history.
func (h *Handlers) GetLeaveHistory(c *gin.Context) {
	id, ok := h.userID(c, ServiceLeaves)
	if !ok {
		return
	}

	rows, err := h.store.LeavesFor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, ServiceLeaves, err)
		return
	}

	c.JSON(http.StatusOK, LeaveHistoryView{
		UserID:      id,
		Records:     rows,
		TotalLeaves: len(rows),
	})
}

func (h *Handlers) userID(c *gin.Context, service string) (int, bool) {
	id, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		h.fail(c, service, fmt.Errorf("invalid user_id %q", c.Param("user_id")))
		return 0, false
	}
	return id, true
}

// fail answers with 500 and the error message, like every records service.
func (h *Handlers) fail(c *gin.Context, service string, err error) {
	_ = c.Error(err)
	h.logger.WithContext(c.Request.Context()).Error("records request failed",
		observability.String("service", service),
		observability.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
