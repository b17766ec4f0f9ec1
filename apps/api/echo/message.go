package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
)

type messageApi struct {
	svc      message.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc message.Service, usrSvc user.Service, validate *validator.Validate) {
	api := messageApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.query)
	mg.POST("", api.send)
	mg.PATCH("/:id/read", api.markRead)

	cg := g.Group("/conversations", jwt)
	cg.GET("/:id", api.conversation)
	cg.GET("/:id/participants", api.participants)

	g.POST("/communications", api.broadcast, jwt, adminMiddleware())
	g.POST("/admin/cleanup-messages", api.cleanup, jwt, adminMiddleware())
}

type (
	MessageListResponse struct {
		Messages []message.Message `json:"messages"`
		Stats    message.Stats     `json:"stats"`
	}

	BroadcastResponse struct {
		Recipients int               `json:"recipients"`
		Messages   []message.Message `json:"messages"`
	}

	CleanupResponse struct {
		Deleted int `json:"deleted"`
	}
)

// Handlers

func (api *messageApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msgs, stats, err := api.svc.QueryForUser(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, MessageListResponse{Messages: msgs, Stats: stats})
}

func (api *messageApi) send(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.Send(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) conversation(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	conv, err := api.svc.ResolveThread(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conv)
}

func (api *messageApi) participants(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	participants, err := api.svc.Participants(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	if participants == nil {
		participants = []message.Participant{}
	}
	return ctx.JSON(http.StatusOK, participants)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.MarkRead(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) broadcast(ctx echo.Context) error {
	var data message.NewBroadcast
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBroadcast")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msgs, err := api.svc.Broadcast(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, BroadcastResponse{Recipients: len(msgs), Messages: msgs})
}

func (api *messageApi) cleanup(ctx echo.Context) error {
	deleted, err := api.svc.CleanupDuplicates(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "cleaning up duplicate messages")
	}
	return ctx.JSON(http.StatusOK, CleanupResponse{Deleted: deleted})
}
