package notifications

import "github.com/ModPilotProject/modpilot-core/pkg/api/models"

func ToolStarted(ns chan<- models.Notification, payload models.ToolStartedParams) {
	ns <- models.Notification{
		Method: models.NotificationToolStarted,
		Params: payload,
	}
}

func ToolStopped(ns chan<- models.Notification, payload models.ToolStoppedParams) {
	ns <- models.Notification{
		Method: models.NotificationToolStopped,
		Params: payload,
	}
}

func SettingsReloaded(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationSettingsReloaded,
	}
}
