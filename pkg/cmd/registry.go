// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/dukex/opsdesk/pkg/actions/sendnotification"
	"github.com/dukex/opsdesk/pkg/actions/updatestatus"
	"github.com/dukex/opsdesk/pkg/notification"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/registry"
)

// NewRegistry creates the action registry with the native actions registered.
func NewRegistry(p persistence.Persistence, logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	gateway := notification.NewDispatcher(p, logger)

	reg.RegisterAction(sendnotification.NewActionFactory(gateway, logger))
	reg.RegisterAction(updatestatus.NewActionFactory(p, logger))

	return reg
}
