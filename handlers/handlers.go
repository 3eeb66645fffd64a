package handlers

import (
	"food-marketplace-api/cart"
	"food-marketplace-api/errs"
	"food-marketplace-api/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	cartSvc  *cart.Service
	orderSvc *orders.Service
)

// Init wires the services the handlers delegate to. Called once from main.
func Init(c *cart.Service, o *orders.Service) {
	cartSvc = c
	orderSvc = o
}

// respondError translates a service error into the client-facing shape:
// a stable machine-checkable kind plus a human-readable message. Internal
// errors are not leaked.
func respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	msg := err.Error()
	if status == 500 {
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "kind": errs.Kind(err)})
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid " + name + ": must be a UUID", "kind": "invalid_argument"})
		return uuid.Nil, false
	}
	return id, true
}
