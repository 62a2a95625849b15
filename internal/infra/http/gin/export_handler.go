package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/document"
	exportsapp "stayregister/internal/app/handlers/exports"
	"stayregister/internal/app/queries"
	domainstays "stayregister/internal/domain/stays"
)

type ExportHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// Document returns the monthly document as HTML. The print intent embeds an
// auto-print script; the pdf intent is the page the capture pipeline mounts.
func (h ExportHandler) Document(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	intent, err := document.ParseIntent(c.Query("intent"))
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	q := exportsapp.RenderDocumentQuery{OwnerID: p.OwnerID, Filter: rawFilter(c), Intent: intent}
	doc, err := queries.Ask[exportsapp.RenderDocumentQuery, document.Document](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", doc.HTML)
}

// PDF captures the document. A saved file is answered with the outcome as
// JSON; otherwise the PDF itself is streamed as an attachment.
func (h ExportHandler) PDF(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	save := exportsapp.SaveMode(strings.ToLower(strings.TrimSpace(c.DefaultQuery("save", string(exportsapp.SaveAuto)))))
	if save != exportsapp.SaveAuto && save != exportsapp.SaveDownload {
		h.errors().handleError(c, &domainstays.ValidationError{Field: "save", Reason: "must be auto or download"})
		return
	}
	cmd := exportsapp.ExportPDFCommand{OwnerID: p.OwnerID, Filter: rawFilter(c), Save: save}
	result, err := commands.Dispatch[exportsapp.ExportPDFCommand, exportsapp.ExportResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	out := result.Outcome
	c.Header("X-Export-Outcome", out.Message)
	if out.Method == exportsapp.MethodSaved {
		c.JSON(http.StatusCreated, out)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}

func (h ExportHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "export"}
}
