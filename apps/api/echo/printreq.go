package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/printreq"
	"github.com/schoolrecords/sf10/core/report"
)

var errRequestNotAccepted = errors.New("only accepted printing requests can be printed")

type printRequestApi struct {
	svc     *printreq.Service
	reports *report.Service
}

func registerPrintRequestAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *printreq.Service, reports *report.Service) {
	api := printRequestApi{
		svc:     svc,
		reports: reports,
	}

	pg := g.Group("/print-requests", jwt)
	pg.POST("", api.create, teacherMiddleware())
	pg.GET("", api.query)
	pg.GET("/export", api.export, adminMiddleware())
	pg.GET("/:id", api.retrieve)
	pg.POST("/:id/accept", api.accept, adminMiddleware())
	pg.POST("/:id/reject", api.reject, adminMiddleware())
	pg.GET("/:id/sf10", api.sf10, adminMiddleware())
}

// Handlers

func (api *printRequestApi) create(ctx echo.Context) error {
	var data printreq.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}

	r, err := api.svc.Create(ctx.Request().Context(), sessionFromContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating printing request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *printRequestApi) bindFilter(ctx echo.Context) (printreq.Filter, error) {
	var filter printreq.Filter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to printreq.Filter")
	}
	return filter, nil
}

func (api *printRequestApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	reqs, err := api.svc.Query(ctx.Request().Context(), sessionFromContext(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying printing requests")
	}
	if reqs == nil {
		reqs = []printreq.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *printRequestApi) export(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	return workbook(ctx, "printing-requests.xlsx", func(w io.Writer) error {
		return api.svc.Export(ctx.Request().Context(), sessionFromContext(ctx), filter, w)
	})
}

func (api *printRequestApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting printing request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *printRequestApi) accept(ctx echo.Context) error {
	r, err := api.svc.Accept(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "accepting printing request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *printRequestApi) reject(ctx echo.Context) error {
	r, err := api.svc.Reject(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting printing request")
	}
	return ctx.JSON(http.StatusOK, r)
}

// sf10 generates the SF10 of an accepted request, then marks the request as completed
// and mails the printout to the requester.
func (api *printRequestApi) sf10(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sess := sessionFromContext(ctx)

	r, err := api.svc.Get(reqCtx, sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting printing request")
	}
	if r.Status != printreq.StatusAccepted {
		return core.NewValidationError(errRequestNotAccepted, core.FieldError{Field: "status", Error: errRequestNotAccepted.Error()})
	}

	doc, err := api.reports.Generate(reqCtx, sess, r.LRN)
	if err != nil {
		return errors.Wrap(err, "generating SF10")
	}
	if _, err = api.svc.Complete(reqCtx, sess, r.ID, printreq.Printout{FileName: doc.FileName, Content: doc.Content}); err != nil {
		return errors.Wrap(err, "completing printing request")
	}
	return attachment(ctx, doc.FileName, mimeApplicationPDF, doc.Content)
}
