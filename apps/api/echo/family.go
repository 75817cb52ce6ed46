package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/asmaktab/backend/core/family"
	"github.com/asmaktab/backend/core/user"
)

type familyApi struct {
	svc     *family.Service
	userSvc *user.Service
}

func registerFamilyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *family.Service, userSvc *user.Service) {
	api := familyApi{svc: svc, userSvc: userSvc}

	fg := g.Group("/family/groups", jwt)
	fg.POST("", api.createGroup)
	fg.POST("/:id/join", api.joinGroup)
	fg.POST("/:id/approve", api.approveRequest, groupOwnerOrAdminMiddleware(userSvc))
	fg.POST("/:id/approve-group", api.approveGroup, adminMiddleware())
}

func (api *familyApi) createGroup(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	groupID, err := api.svc.CreateGroup(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, GroupCreatedResponse{GroupID: groupID})
}

func (api *familyApi) joinGroup(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.JoinGroup(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Join request submitted."})
}

func (api *familyApi) approveRequest(ctx echo.Context) error {
	var data ApproveRequestBody
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRequestBody")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	member, err := api.svc.ApproveRequest(ctx.Request().Context(), ctx.Param("id"), data.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, member)
}

func (api *familyApi) approveGroup(ctx echo.Context) error {
	var data ApproveGroupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveGroupRequest")
	}

	if err := api.svc.ApproveGroup(ctx.Request().Context(), ctx.Param("id"), data.Discount); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Group approved."})
}

// groupOwnerOrAdminMiddleware lets the group owner or an admin through.
func groupOwnerOrAdminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}

			usr, err := getContextUser(ctx, svc, claims)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if fg := usr.FamilyGroup; fg != nil && fg.GroupID == ctx.Param("id") && fg.CreatedBy == usr.ID {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
