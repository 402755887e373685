package discord

import "github.com/Strob0t/taskalign/internal/port/notifier"

func init() {
	notifier.Register(providerName, notifier.WebhookFactory(NewNotifier))
}
