// Package di wires the application's dependency graph with google/wire.
package di

import (
	"photopedia-backend/application/ports"
	"photopedia-backend/infrastructure/config"
	"photopedia-backend/infrastructure/storage"
	"photopedia-backend/pkg/auth"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	UserRepo  ports.UserRepository
	EventRepo ports.EventRepository
	MediaRepo ports.MediaRepository
	Storage   *storage.MediaStorage
	Guard     *auth.Guard
}
