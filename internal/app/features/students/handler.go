// internal/app/features/students/handler.go
package students

import (
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"go.uber.org/zap"
)

// Handler serves the student endpoints.
type Handler struct {
	Students *studentstore.Store
	Flash    *flash.Manager
	Log      *zap.Logger
}

func NewHandler(students *studentstore.Store, fl *flash.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		Students: students,
		Flash:    fl,
		Log:      logger,
	}
}
