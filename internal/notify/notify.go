// Package notify sends desktop notifications for quiz events.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

const appName = "SignSpell"

// send is swapped out in tests.
var send = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier sends desktop notifications when enabled.
type Notifier struct {
	enabled bool
}

func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// Correct announces a matched letter.
func (n *Notifier) Correct(letter string) {
	n.notify("Correct", fmt.Sprintf("%s is right", letter))
}

// Incorrect announces a mismatch and what was expected.
func (n *Notifier) Incorrect(got, expected string) {
	n.notify("Try again", fmt.Sprintf("Saw %s, expected %s", got, expected))
}

// Complete announces a finished question.
func (n *Notifier) Complete(answer string) {
	n.notify("Question complete", truncate(answer))
}

func (n *Notifier) Error(msg string) {
	n.notify("Error", truncate(msg))
}

// Info shows an untitled notification.
func (n *Notifier) Info(msg string) {
	n.notify("", truncate(msg))
}

func truncate(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

func (n *Notifier) notify(title, message string) {
	if !n.enabled {
		return
	}
	// Notification failures are not fatal
	if title != "" {
		_ = send(appName+": "+title, message)
	} else {
		_ = send(appName, message)
	}
}
