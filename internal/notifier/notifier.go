// Package notifier delivers trade notifications.
package notifier

import "context"

// Nop drops every notification. Used when notifications are disabled.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }
