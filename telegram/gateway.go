// Package telegram adapts the Bot API to the dispatcher's event model.
package telegram

import (
	"context"
	"fmt"

	"shopbot-svc/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pollTimeout = 60

// botAPI is the subset of *tgbotapi.BotAPI the gateway calls.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Gateway struct {
	bot    botAPI
	logger *zap.Logger
}

func New(token string, logger *zap.Logger) (*Gateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))
	return &Gateway{bot: bot, logger: logger}, nil
}

// Run long-polls for updates and hands each recognized one to handle. At most
// workerLimit handlers run at once; Run returns after ctx is cancelled and the
// in-flight handlers have finished.
func (g *Gateway) Run(ctx context.Context, workerLimit int, handle func(context.Context, models.Event)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := g.bot.GetUpdatesChan(u)

	// In-flight handlers finish their work after shutdown begins.
	handlerCtx := context.WithoutCancel(ctx)
	var group errgroup.Group
	group.SetLimit(workerLimit)

	g.logger.Info("Polling for updates", zap.Int("worker_limit", workerLimit))
	for {
		select {
		case <-ctx.Done():
			g.bot.StopReceivingUpdates()
			return group.Wait()
		case update, ok := <-updates:
			if !ok {
				return group.Wait()
			}
			event, ok := toEvent(update)
			if !ok {
				continue
			}
			group.Go(func() error {
				handle(handlerCtx, event)
				return nil
			})
		}
	}
}

func (g *Gateway) SendText(_ context.Context, buyerID int64, text string, markup *models.Markup) error {
	msg := tgbotapi.NewMessage(buyerID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil && len(markup.Buttons) > 0 {
		msg.ReplyMarkup = keyboard(markup)
	}
	if _, err := g.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (g *Gateway) SendInvoice(_ context.Context, buyerID int64, invoice models.Invoice) error {
	cfg := invoiceConfig(buyerID, invoice)
	if _, err := g.bot.Send(cfg); err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	return nil
}

func (g *Gateway) AnswerPreCheckout(_ context.Context, queryID string, ok bool, reason string) error {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
	}
	if !ok {
		cfg.ErrorMessage = reason
	}
	if _, err := g.bot.Request(cfg); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", err)
	}
	return nil
}

func (g *Gateway) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := g.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func invoiceConfig(buyerID int64, invoice models.Invoice) tgbotapi.InvoiceConfig {
	// Stars invoices carry no provider token.
	cfg := tgbotapi.NewInvoice(buyerID, invoice.Title, invoice.Description, invoice.PayloadToken,
		"", "", invoice.Currency,
		[]tgbotapi.LabeledPrice{{Label: invoice.Title, Amount: int(invoice.Amount)}})
	cfg.SuggestedTipAmounts = []int{}
	return cfg
}

func keyboard(markup *models.Markup) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(markup.Buttons))
	for _, b := range markup.Buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Action)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// toEvent maps an update to a dispatcher event. Updates the bot does not
// act on (edits, channel posts, service messages) report false.
func toEvent(update tgbotapi.Update) (models.Event, bool) {
	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		if q.From == nil {
			return nil, false
		}
		return models.PreCheckoutQuery{
			QueryID:      q.ID,
			BuyerID:      q.From.ID,
			PayloadToken: q.InvoicePayload,
			Amount:       int64(q.TotalAmount),
			Currency:     q.Currency,
		}, true

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil {
			return nil, false
		}
		return models.ButtonPress{BuyerID: cb.From.ID, Action: cb.Data, CallbackID: cb.ID}, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return nil, false
		}
		if p := msg.SuccessfulPayment; p != nil {
			return models.SuccessfulPayment{
				BuyerID:      msg.From.ID,
				PayloadToken: p.InvoicePayload,
				Amount:       int64(p.TotalAmount),
				Currency:     p.Currency,
				ChargeID:     p.TelegramPaymentChargeID,
			}, true
		}
		if msg.IsCommand() && msg.Command() == "start" {
			return models.StartCommand{BuyerID: msg.From.ID}, true
		}
		if msg.Text == "" {
			return nil, false
		}
		return models.TextMessage{BuyerID: msg.From.ID, Text: msg.Text}, true
	}
	return nil, false
}
