package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/grade"
	"github.com/darasahq/darasa/core/user"
)

type gradeApi struct {
	svc      grade.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc grade.Service, usrSvc user.Service, validate *validator.Validate) {
	api := gradeApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.query)
	gg.POST("", api.record, teacherOrAdminMiddleware())
	gg.PUT("/:id", api.update, teacherOrAdminMiddleware())
}

// Handlers

func (api *gradeApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grds, err := api.svc.QueryForUser(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grds == nil {
		grds = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grds)
}

func (api *gradeApi) record(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grd, err := api.svc.Record(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *gradeApi) update(ctx echo.Context) error {
	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grd, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}
