package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/dto"
	staysapp "stayregister/internal/app/handlers/stays"
	"stayregister/internal/app/queries"
	domainstays "stayregister/internal/domain/stays"
)

type StayHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h StayHandler) List(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	q := staysapp.ListStaysQuery{OwnerID: p.OwnerID, Filter: rawFilter(c)}
	result, err := queries.Ask[staysapp.ListStaysQuery, dto.StayCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h StayHandler) Groups(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	q := staysapp.GroupStaysQuery{OwnerID: p.OwnerID, Filter: rawFilter(c)}
	result, err := queries.Ask[staysapp.GroupStaysQuery, dto.GroupCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h StayHandler) Calendar(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	q := staysapp.CalendarQuery{OwnerID: p.OwnerID, Filter: rawFilter(c)}
	result, err := queries.Ask[staysapp.CalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h StayHandler) Create(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	var in staysapp.StayInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.errors().respondWithError(c, http.StatusBadRequest, fmt.Errorf("invalid stay payload: %w", err))
		return
	}
	cmd := staysapp.CreateStayCommand{
		OwnerID:         p.OwnerID,
		Input:           in,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[staysapp.CreateStayCommand, dto.Stay](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/stays/%d", result.ID))
	c.JSON(http.StatusCreated, result)
}

func (h StayHandler) Update(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	id, err := stayID(c)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	var req updateStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors().respondWithError(c, http.StatusBadRequest, fmt.Errorf("invalid stay payload: %w", err))
		return
	}
	cmd := staysapp.UpdateStayCommand{OwnerID: p.OwnerID, StayID: id, Input: req.StayInput, Version: req.Version}
	result, err := commands.Dispatch[staysapp.UpdateStayCommand, dto.Stay](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h StayHandler) Delete(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	id, err := stayID(c)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	cmd := staysapp.DeleteStayCommand{OwnerID: p.OwnerID, StayID: id}
	if _, err := commands.Dispatch[staysapp.DeleteStayCommand, staysapp.DeleteStayResult](c.Request.Context(), h.Commands, cmd); err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateStayRequest is a stay payload plus the version it was edited from.
type updateStayRequest struct {
	staysapp.StayInput
	Version *int64 `json:"version"`
}

func (h StayHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "stay"}
}

func stayID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domainstays.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

// rawFilter reads the three filter axes from the query string unvalidated.
func rawFilter(c *gin.Context) domainstays.RawFilter {
	return domainstays.RawFilter{
		ApartmentID: c.Query("apartment_id"),
		Year:        c.Query("year"),
		Month:       c.Query("month"),
	}
}
