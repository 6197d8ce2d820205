package services

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

// Notifier dipanggil sekali per message baru. Hasilnya diabaikan.
type Notifier interface {
	Notify(alias string, entry models.Entry) error
}

// LogNotifier -> tulis ke log
type LogNotifier struct{}

func (LogNotifier) Notify(alias string, entry models.Entry) error {
	utils.InfoLogger.WithFields(logrus.Fields{
		"alias":    alias,
		"entry_id": entry.ID,
	}).Infof("🔔 New order at %s: %s", alias, entry.Action)
	return nil
}

// HubNotifier -> browser staff membunyikan alert
type HubNotifier struct {
	Hub *kds.Hub
}

func (n HubNotifier) Notify(alias string, entry models.Entry) error {
	n.Hub.BroadcastOrderReceived(alias, entry)
	return nil
}

type Notifiers []Notifier

func (ns Notifiers) Notify(alias string, entry models.Entry) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(alias, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
