package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayregister/internal/app/dto"
	apartmentsapp "stayregister/internal/app/handlers/apartments"
	"stayregister/internal/app/queries"
)

type ApartmentHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ApartmentHandler) List(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	result, err := queries.Ask[apartmentsapp.ListApartmentsQuery, []dto.Apartment](c.Request.Context(), h.Queries, apartmentsapp.ListApartmentsQuery{OwnerID: p.OwnerID})
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

func (h ApartmentHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "apartment"}
}
