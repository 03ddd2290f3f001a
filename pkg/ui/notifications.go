package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification.
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier reports finished campaigns on the console and, when enabled
// and supported, on the desktop.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for the current platform. With desktop
// false, or on a platform without a sender, only the console is used.
func NewNotifier(desktop bool) *Notifier {
	if !desktop {
		return &Notifier{}
	}
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: &LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: &MacOSNotificationSender{}}
	}
	return &Notifier{}
}

// NewNotifierWithSender is used by tests.
func NewNotifierWithSender(s NotificationSender) *Notifier {
	return &Notifier{sender: s}
}

// CampaignFinished reports the outcome of one campaign run.
func (n *Notifier) CampaignFinished(campaign, account string, count int, err error) {
	title := "instabot: " + campaign
	if err != nil {
		msg := fmt.Sprintf("@%s stopped after %d actions: %v", account, count, err)
		fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(msg))
		n.send(title, msg)
		return
	}
	msg := fmt.Sprintf("@%s finished with %d actions", account, count)
	fmt.Fprintf(Output, "\n%s: %s\n", Green(title), Green(msg))
	n.send(title, msg)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// Desktop delivery is best effort.
	_ = n.sender.Send(title, message)
}
