package api

import (
	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/controller"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	"github.com/Andi3172/fullstack-tic-project/pkg/users"
)

type syncUserResponse struct {
	Message string      `json:"message"`
	User    *users.User `json:"user"`
}

func (h *Handler) syncUser(c router.Context) error {
	var id users.Identity
	if claims := auth.GetClaims(c.Request().Context()); claims != nil {
		id = users.Identity{UID: claims.Subject, Email: claims.Email}
	}
	user, created, err := h.users.Sync(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if created {
		return controller.Created(c, syncUserResponse{Message: "User created", User: user})
	}
	return controller.Success(c, syncUserResponse{Message: "User synced", User: user})
}
