// internal/app/features/clubs/handler.go
package clubs

import (
	clubstore "github.com/dalemusser/clubhouse/internal/app/store/clubs"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"go.uber.org/zap"
)

// Handler serves the club CRUD and search endpoints.
type Handler struct {
	Clubs *clubstore.Store
	Flash *flash.Manager
	Log   *zap.Logger
}

// NewHandler constructs a clubs Handler. fl may be nil.
func NewHandler(clubs *clubstore.Store, fl *flash.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		Clubs: clubs,
		Flash: fl,
		Log:   logger,
	}
}
