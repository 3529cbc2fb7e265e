package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/config"
)

// Notifier delivers a formatted message to the fixed operator destination.
// Delivery is best-effort: callers make at most one attempt and, outside the
// wholesale-inquiry path, swallow failures after logging them.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Module wires the notifier into the Fx graph.
var Module = fx.Provide(NewNotifier)

// NewNotifier builds the configured notifier (telegram or noop).
func NewNotifier(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Notifier, error) {
	switch cfg.Notifier.Driver {
	case "noop":
		logger.Info("notifier disabled; using noop driver")
		return noopNotifier{}, nil
	case "telegram":
		return newTelegramNotifier(lc, cfg.Notifier, logger)
	default:
		return nil, fmt.Errorf("unsupported notifier driver: %s", cfg.Notifier.Driver)
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) error { return nil }

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func newTelegramNotifier(lc fx.Lifecycle, cfg config.Notifier, logger *zap.Logger) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	n := &telegramNotifier{bot: bot, chatID: cfg.AdminChatID}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Startup ping so the operator knows the bot is linked. A
			// failure here must not keep the service from taking orders.
			if err := n.Notify(ctx, "🚀 Servidor de Jamonería iniciado y bot vinculado correctamente."); err != nil {
				logger.Warn("telegram startup ping failed", zap.Error(err))
			} else {
				logger.Info("telegram notifier connected", zap.String("bot", bot.Self.UserName))
			}
			return nil
		},
	})

	return n, nil
}

func (n *telegramNotifier) Notify(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
