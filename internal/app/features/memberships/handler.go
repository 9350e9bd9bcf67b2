// internal/app/features/memberships/handler.go
package memberships

import (
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"go.uber.org/zap"
)

// Handler serves joining, leaving, role changes and the two membership
// views (club roster, student's clubs). Every write goes through the
// membership store so the indexes and member_count stay in step.
type Handler struct {
	Members *membershipstore.Store
	Flash   *flash.Manager
	Log     *zap.Logger
}

func NewHandler(members *membershipstore.Store, fl *flash.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		Members: members,
		Flash:   fl,
		Log:     logger,
	}
}
