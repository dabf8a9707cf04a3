package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
)

var errNoTerm = errors.New("at least one term is required")

type gradingApi struct {
	svc *grading.Service
}

// records are decoded one by one by the service, so a malformed one only rejects itself
type bulkGrades struct {
	Grades []json.RawMessage `json:"grades"`
}

func registerGradingAPI(g *echo.Group, svc *grading.Service) {
	api := gradingApi{svc: svc}

	cg := g.Group("/classes/:class")
	cg.GET("/averages", api.classAverages)
	cg.GET("/terms/:term/bulletins", api.classBulletins)
	cg.GET("/terms/:term/students/:student/bulletin", api.bulletin)

	g.POST("/grades/bulk", api.ingest)
}

// Handlers

func (api *gradingApi) bulletin(ctx echo.Context) error {
	blt, err := api.svc.Bulletin(ctx.Request().Context(), ctx.Param("class"), ctx.Param("term"), ctx.Param("student"))
	if err != nil {
		return errors.Wrap(err, "compiling bulletin")
	}
	return ctx.JSON(http.StatusOK, blt)
}

func (api *gradingApi) classBulletins(ctx echo.Context) error {
	bulletins, err := api.svc.ClassBulletins(ctx.Request().Context(), ctx.Param("class"), ctx.Param("term"))
	if err != nil {
		return errors.Wrap(err, "compiling class bulletins")
	}
	return ctx.JSON(http.StatusOK, bulletins)
}

func (api *gradingApi) classAverages(ctx echo.Context) error {
	terms := [3]string{
		core.CleanString(ctx.QueryParam("t1")),
		core.CleanString(ctx.QueryParam("t2")),
		core.CleanString(ctx.QueryParam("t3")),
	}
	if terms == [3]string{} {
		return core.NewValidationError(errNoTerm, core.FieldError{Field: "t1", Error: errNoTerm.Error()})
	}

	averages, err := api.svc.ClassAverages(ctx.Request().Context(), ctx.Param("class"), terms)
	if err != nil {
		return errors.Wrap(err, "computing class averages")
	}
	return ctx.JSON(http.StatusOK, averages)
}

func (api *gradingApi) ingest(ctx echo.Context) error {
	var data bulkGrades
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to bulkGrades")
	}

	res, err := api.svc.IngestJSON(ctx.Request().Context(), data.Grades)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}
