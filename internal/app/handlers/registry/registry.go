// Package registry binds every command and query handler to its bus key.
package registry

import (
	"log/slog"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/document"
	apartmentsapp "stayregister/internal/app/handlers/apartments"
	exportsapp "stayregister/internal/app/handlers/exports"
	staysapp "stayregister/internal/app/handlers/stays"
	"stayregister/internal/app/outbox"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/uow"
)

type Deps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Renderer   *document.Renderer
	Capturer   exportsapp.Capturer
	Picker     exportsapp.SavePicker
	Fallback   exportsapp.Fallback
	Observer   exportsapp.Observer
	MinYear    int
	Logger     *slog.Logger
}

func Register(cmds *commands.InMemoryBus, qs *queries.InMemoryBus, d Deps) {
	encoder := d.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	renderer := d.Renderer
	if renderer == nil {
		renderer = document.MustRenderer()
	}

	commands.RegisterHandler(cmds, staysapp.CreateStayCommand{}.Key(), &staysapp.CreateStayHandler{
		UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: d.Logger,
	})
	commands.RegisterHandler(cmds, staysapp.UpdateStayCommand{}.Key(), &staysapp.UpdateStayHandler{
		UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: d.Logger,
	})
	commands.RegisterHandler(cmds, staysapp.DeleteStayCommand{}.Key(), &staysapp.DeleteStayHandler{
		UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: d.Logger,
	})

	documents := &exportsapp.RenderDocumentHandler{
		UoWFactory: d.UoWFactory,
		Renderer:   renderer,
		MinYear:    d.MinYear,
		Logger:     d.Logger,
	}
	commands.RegisterHandler(cmds, exportsapp.ExportPDFCommand{}.Key(), &exportsapp.ExportPDFHandler{
		Documents: documents,
		Capturer:  d.Capturer,
		Picker:    d.Picker,
		Fallback:  d.Fallback,
		Observer:  d.Observer,
		Logger:    d.Logger,
	})

	queries.RegisterHandler(qs, apartmentsapp.ListApartmentsQuery{}.Key(), &apartmentsapp.ListApartmentsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(qs, staysapp.ListStaysQuery{}.Key(), &staysapp.ListStaysHandler{UoWFactory: d.UoWFactory, MinYear: d.MinYear, Logger: d.Logger})
	queries.RegisterHandler(qs, staysapp.GroupStaysQuery{}.Key(), &staysapp.GroupStaysHandler{UoWFactory: d.UoWFactory, MinYear: d.MinYear})
	queries.RegisterHandler(qs, staysapp.CalendarQuery{}.Key(), &staysapp.CalendarHandler{UoWFactory: d.UoWFactory, MinYear: d.MinYear})
	queries.RegisterHandler(qs, exportsapp.RenderDocumentQuery{}.Key(), documents)
}
