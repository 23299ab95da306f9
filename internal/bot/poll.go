package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/merch-order-bot/internal/observability"
)

// Updater is the long-polling side of the Telegram client.
type Updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poll feeds updates from api into d until ctx is cancelled or the update
// channel closes.
func Poll(ctx context.Context, api Updater, d *Dispatcher, timeout int) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := api.GetUpdatesChan(cfg)
	log.Info().Int("timeout", timeout).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := FromUpdate(u)
			if !ok {
				observability.ObserveUpdate("other", "ignored")
				continue
			}
			d.Dispatch(ctx, ev)
		}
	}
}
