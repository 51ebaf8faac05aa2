package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/report"
	"github.com/schoolrecords/sf10/core/student"
)

type studentApi struct {
	students *student.Service
	grades   *grade.Service
	reports  *report.Service
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	students *student.Service,
	grades *grade.Service,
	reports *report.Service,
) {
	api := studentApi{
		students: students,
		grades:   grades,
		reports:  reports,
	}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.GET("/export", api.export)

	dg := sg.Group("/:lrn")
	dg.GET("", api.retrieve)
	dg.PUT("", api.save, adminMiddleware())
	dg.GET("/grades", api.quarters)
	dg.POST("/grades", api.saveGrades)
	dg.DELETE("/grades", api.deleteGrades)
	dg.GET("/records", api.records)
	dg.GET("/sf10", api.sf10, adminMiddleware())
}

// Handlers

func (api *studentApi) bindFilter(ctx echo.Context) (student.Filter, error) {
	var filter student.Filter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to student.Filter")
	}
	return filter, nil
}

func (api *studentApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	students, err := api.students.Query(ctx.Request().Context(), sessionFromContext(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) export(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	return workbook(ctx, "students.xlsx", func(w io.Writer) error {
		return api.students.Export(ctx.Request().Context(), sessionFromContext(ctx), filter, w)
	})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.students.Get(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("lrn"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) save(ctx echo.Context) error {
	var data student.Student
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Student")
	}
	data.LRN = ctx.Param("lrn")

	s, err := api.students.Save(ctx.Request().Context(), sessionFromContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

// quarters lists the stored quarters of one grade level, for the entry form.
func (api *studentApi) quarters(ctx echo.Context) error {
	recs, err := api.grades.Quarters(
		ctx.Request().Context(),
		sessionFromContext(ctx),
		ctx.Param("lrn"),
		ctx.QueryParam("grade_level"),
	)
	if err != nil {
		return errors.Wrap(err, "getting grade quarters")
	}
	if recs == nil {
		recs = []grade.GradeRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *studentApi) saveGrades(ctx echo.Context) error {
	var data grade.GradeRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRecord")
	}
	data.LRN = ctx.Param("lrn")

	recs, err := api.grades.Save(ctx.Request().Context(), sessionFromContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving grades")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *studentApi) deleteGrades(ctx echo.Context) error {
	var key grade.Key
	if err := ctx.Bind(&key); err != nil {
		return errors.Wrap(err, "binding to grade.Key")
	}
	key.LRN = ctx.Param("lrn")

	if err := api.grades.Delete(ctx.Request().Context(), sessionFromContext(ctx), key); err != nil {
		return errors.Wrap(err, "deleting grades")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) records(ctx echo.Context) error {
	recs, err := api.grades.Records(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("lrn"))
	if err != nil {
		return errors.Wrap(err, "getting scholastic records")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *studentApi) sf10(ctx echo.Context) error {
	doc, err := api.reports.Generate(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("lrn"))
	if err != nil {
		return errors.Wrap(err, "generating SF10")
	}
	return attachment(ctx, doc.FileName, mimeApplicationPDF, doc.Content)
}
