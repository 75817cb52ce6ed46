package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/asmaktab/backend/core/purchase"
)

type purchaseApi struct {
	svc *purchase.Service
}

func registerPurchaseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *purchase.Service) {
	api := purchaseApi{svc: svc}

	pg := g.Group("/purchases", jwt)
	pg.POST("", api.create)
	pg.GET("", api.query, adminMiddleware())
	pg.GET("/student/:email", api.queryByStudent)
	pg.PATCH("/:id/confirm", api.confirm, adminMiddleware())
	pg.PATCH("/:id/deny", api.deny, adminMiddleware())
	pg.POST("/:id/student-review", api.addStudentReview)
	pg.POST("/:id/tutor-review", api.addTutorReview)

	yg := g.Group("/payments", jwt)
	yg.POST("", api.submitPayment)
	yg.GET("", api.queryPayments, adminMiddleware())
	yg.GET("/student/:email", api.queryStudentPayments)
	yg.PATCH("/:id/confirm", api.confirmPayment, adminMiddleware())
	yg.PATCH("/:id/deny", api.denyPayment, adminMiddleware())
}

func (api *purchaseApi) create(ctx echo.Context) error {
	var data purchase.NewPurchase
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPurchase")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.Create(ctx.Request().Context(), claims.Email, data)
	if err != nil {
		return errors.Wrap(err, "creating purchase")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *purchaseApi) query(ctx echo.Context) error {
	purchases, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying purchases")
	}
	if purchases == nil {
		purchases = []purchase.Purchase{}
	}
	return ctx.JSON(http.StatusOK, purchases)
}

func (api *purchaseApi) queryByStudent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	email := ctx.Param("email")
	if !claims.IsAdmin && claims.Email != email {
		return errHttpForbidden
	}

	purchases, err := api.svc.QueryByStudent(ctx.Request().Context(), email)
	if err != nil {
		return errors.Wrap(err, "querying purchases")
	}
	if purchases == nil {
		purchases = []purchase.Purchase{}
	}
	return ctx.JSON(http.StatusOK, purchases)
}

func (api *purchaseApi) confirm(ctx echo.Context) error {
	var data ConfirmPurchaseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmPurchaseRequest")
	}

	p, err := api.svc.Confirm(ctx.Request().Context(), ctx.Param("id"), data.TutorID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *purchaseApi) deny(ctx echo.Context) error {
	p, err := api.svc.Deny(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *purchaseApi) addStudentReview(ctx echo.Context) error {
	return api.addReview(ctx, purchase.StudentReview)
}

func (api *purchaseApi) addTutorReview(ctx echo.Context) error {
	return api.addReview(ctx, purchase.TutorReview)
}

func (api *purchaseApi) addReview(ctx echo.Context, kind purchase.ReviewKind) error {
	var data purchase.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rev, err := api.svc.AddReview(ctx.Request().Context(), ctx.Param("id"), kind, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *purchaseApi) submitPayment(ctx echo.Context) error {
	var data purchase.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	pay, err := api.svc.SubmitPayment(ctx.Request().Context(), claims.Email, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, pay)
}

func (api *purchaseApi) queryPayments(ctx echo.Context) error {
	payments, err := api.svc.QueryAllPayments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []purchase.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *purchaseApi) confirmPayment(ctx echo.Context) error {
	pay, err := api.svc.ConfirmPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pay)
}

func (api *purchaseApi) denyPayment(ctx echo.Context) error {
	pay, err := api.svc.DenyPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pay)
}

func (api *purchaseApi) queryStudentPayments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	email := ctx.Param("email")
	if !claims.IsAdmin && claims.Email != email {
		return errHttpForbidden
	}

	payments, err := api.svc.QueryPaymentsByStudent(ctx.Request().Context(), email)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []purchase.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}
