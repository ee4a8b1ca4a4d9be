// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/relay/pkg/actions/branch"
	"github.com/dukex/relay/pkg/actions/createtask"
	"github.com/dukex/relay/pkg/actions/delay"
	"github.com/dukex/relay/pkg/actions/logmsg"
	"github.com/dukex/relay/pkg/actions/sendemail"
	"github.com/dukex/relay/pkg/actions/updatefield"
	"github.com/dukex/relay/pkg/actions/webhookcall"
	"github.com/dukex/relay/pkg/registry"
)

func registerNativeActions(reg *registry.Registry, logger *slog.Logger) {
	reg.RegisterAction(logmsg.NewActionFactory())
	reg.RegisterAction(webhookcall.NewActionFactory())
	reg.RegisterAction(delay.NewActionFactory())
	reg.RegisterAction(branch.NewActionFactory())
	reg.RegisterAction(sendemail.NewActionFactory(&logSender{logger: logger}))
	reg.RegisterAction(createtask.NewActionFactory(&logTaskCreator{logger: logger}))
	reg.RegisterAction(updatefield.NewActionFactory(&logRecordStore{logger: logger}))
}

// NewRegistry builds the action registry with the built-in action set.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeActions(reg, logger)

	return reg
}
