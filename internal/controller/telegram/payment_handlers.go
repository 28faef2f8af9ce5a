package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"digi-shop/internal/entity"
	"digi-shop/pkg/payment"
)

const invoiceTTLSeconds = 900

func (b *Bot) handleTopup(ctx context.Context, msg *tgbotapi.Message) {
	if b.invoices == nil && b.cfg.TelegramProviderToken == "" && b.cfg.StarsPerUnit <= 0 {
		b.reply(msg.Chat.ID, "Payments are not configured.")
		return
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || amount < b.cfg.MinTopUp || amount > b.cfg.MaxTopUp {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Usage: /topup <amount>\nAmount must be between %d and %d %s.",
			b.cfg.MinTopUp, b.cfg.MaxTopUp, b.cfg.PayCurrency))
		return
	}

	// Make sure the account exists before issuing an invoice.
	if _, err := b.catalog.GetProfile(ctx, msg.From.ID); err != nil {
		b.reply(msg.Chat.ID, reasonText(entity.ReasonUserNotFound))
		return
	}

	if b.invoices != nil {
		b.sendCryptoInvoice(ctx, msg, amount)
		return
	}
	if b.cfg.StarsPerUnit > 0 {
		b.sendStarsInvoice(msg.Chat.ID, amount)
		return
	}
	b.sendFiatInvoice(msg.Chat.ID, amount)
}

func (b *Bot) sendCryptoInvoice(ctx context.Context, msg *tgbotapi.Message, amount int64) {
	invoice, err := b.invoices.CreateInvoice(ctx, amount, b.cfg.PayCurrency,
		fmt.Sprintf("Balance top-up for user %d", msg.From.ID), invoiceTTLSeconds)
	if err != nil {
		b.logger.Error("CryptoPay invoice for user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, "Could not create the invoice, try again later.")
		return
	}

	externalID := strconv.FormatInt(invoice.InvoiceID, 10)
	if err := b.settlement.OpenTopup(ctx, msg.From.ID, amount, entity.ProviderCryptoPay, externalID); err != nil {
		b.logger.Error("Open topup for user %d: %v", msg.From.ID, err)
	}
	b.setActiveInvoice(msg.Chat.ID, externalID)

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Invoice for %s created. It expires in %d minutes.\n\nPay here: %s\n\nAfter paying, send /check.",
		formatAmount(amount, b.cfg.PayCurrency), invoiceTTLSeconds/60, invoice.PayURL))
}

func (b *Bot) handleCheck(ctx context.Context, msg *tgbotapi.Message) {
	if b.invoices == nil {
		b.reply(msg.Chat.ID, "Payments are not configured.")
		return
	}

	externalID, ok := b.takeActiveInvoice(msg.Chat.ID)
	if !ok {
		if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
			externalID = arg
		} else {
			b.reply(msg.Chat.ID, "No active invoice. Create one with /topup.")
			return
		}
	}

	// The invoice must belong to the sender. External ids are guessable,
	// and in group chats the per-chat invoice may not be the sender's,
	// so the pending row is the authority on who gets credited.
	pending, err := b.settlement.PendingTopup(ctx, entity.ProviderCryptoPay, externalID)
	if err != nil || pending.UserID != msg.From.ID {
		b.reply(msg.Chat.ID, "No active invoice. Create one with /topup.")
		return
	}

	// Verification happens outside any transaction; only a confirmed
	// status reaches the settlement engine.
	invoice, err := b.invoices.GetInvoice(ctx, externalID)
	if err != nil {
		b.logger.Error("Invoice %s lookup: %v", externalID, err)
		b.reply(msg.Chat.ID, "Could not verify the invoice, try again in a minute.")
		return
	}

	switch invoice.Status {
	case payment.InvoiceStatusPaid:
		amount, err := invoice.AmountMinor()
		if err != nil {
			b.logger.Error("Invoice %s amount: %v", externalID, err)
			b.reply(msg.Chat.ID, msgSomethingWrong)
			return
		}
		outcome := b.settlement.SettlePayment(ctx, pending.UserID, amount,
			entity.ProviderCryptoPay, externalID, b.cfg.ReferralPercent)
		b.finishTopup(ctx, msg, amount, outcome)
	case payment.InvoiceStatusExpired, payment.InvoiceStatusFailed:
		b.clearActiveInvoice(msg.Chat.ID)
		b.reply(msg.Chat.ID, "The invoice expired. Create a new one with /topup.")
	default:
		b.reply(msg.Chat.ID, "Not paid yet. Pay the invoice and send /check again.")
	}
}

func (b *Bot) finishTopup(ctx context.Context, msg *tgbotapi.Message, amount int64, outcome entity.SettlementOutcome) {
	if !outcome.Success {
		b.reply(msg.Chat.ID, reasonText(outcome.Reason))
		return
	}
	b.clearActiveInvoice(msg.Chat.ID)
	b.reply(msg.Chat.ID, fmt.Sprintf("Balance topped up by %s.", formatAmount(amount, b.cfg.PayCurrency)))
	b.notifyReferrer(ctx, msg.From, amount)
}

// notifyReferrer pings the referrer about a fresh bonus. Best effort,
// the money already moved inside the settlement transaction.
func (b *Bot) notifyReferrer(ctx context.Context, from *tgbotapi.User, amount int64) {
	if b.cfg.ReferralPercent <= 0 {
		return
	}
	user, err := b.catalog.GetProfile(ctx, from.ID)
	if err != nil || user.ReferrerID == nil {
		return
	}
	bonus := amount * int64(b.cfg.ReferralPercent) / 100
	if bonus <= 0 {
		return
	}
	b.reply(*user.ReferrerID, fmt.Sprintf(
		"You received a referral bonus of %s from %s's top-up.",
		formatAmount(bonus, b.cfg.PayCurrency), from.FirstName))
}

// sendStarsInvoice bills through Telegram Stars. The credited amount
// travels in the invoice payload and comes back on SuccessfulPayment.
func (b *Bot) sendStarsInvoice(chatID int64, amount int64) {
	stars := amount / int64(b.cfg.StarsPerUnit)
	if stars <= 0 {
		stars = 1
	}
	invoice := tgbotapi.NewInvoice(chatID,
		"Balance top-up",
		fmt.Sprintf("Add %s to your balance", formatAmount(amount, b.cfg.PayCurrency)),
		strconv.FormatInt(amount, 10),
		"", "", "XTR",
		[]tgbotapi.LabeledPrice{{Label: "Top-up", Amount: int(stars)}})
	invoice.SuggestedTipAmounts = []int{}
	if _, err := b.api.Send(invoice); err != nil {
		b.logger.Error("Stars invoice for chat %d: %v", chatID, err)
		b.reply(chatID, "Could not create the invoice, try again later.")
	}
}

func (b *Bot) sendFiatInvoice(chatID int64, amount int64) {
	if b.cfg.TelegramProviderToken == "" {
		b.reply(chatID, "Payments are not configured.")
		return
	}
	invoice := tgbotapi.NewInvoice(chatID,
		"Balance top-up",
		fmt.Sprintf("Add %s to your balance", formatAmount(amount, b.cfg.PayCurrency)),
		strconv.FormatInt(amount, 10),
		b.cfg.TelegramProviderToken, "", b.cfg.PayCurrency,
		[]tgbotapi.LabeledPrice{{Label: "Top-up", Amount: int(amount * 100)}})
	invoice.SuggestedTipAmounts = []int{}
	if _, err := b.api.Send(invoice); err != nil {
		b.logger.Error("Fiat invoice for chat %d: %v", chatID, err)
		b.reply(chatID, "Could not create the invoice, try again later.")
	}
}

func (b *Bot) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := b.api.Request(answer); err != nil {
		b.logger.Error("Pre-checkout answer for %s: %v", query.ID, err)
	}
}

// handleSuccessfulPayment settles Stars and fiat payments. Telegram
// pushes these once; the charge id keeps retries harmless.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	sp := msg.SuccessfulPayment

	amount, err := strconv.ParseInt(sp.InvoicePayload, 10, 64)
	if err != nil || amount <= 0 {
		b.logger.Error("Successful payment with bad payload %q from user %d", sp.InvoicePayload, msg.From.ID)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}

	provider := entity.ProviderTelegram
	if sp.Currency == "XTR" {
		provider = entity.ProviderStars
	}

	outcome := b.settlement.SettlePayment(ctx, msg.From.ID, amount,
		provider, sp.TelegramPaymentChargeID, b.cfg.ReferralPercent)
	if !outcome.Success {
		if outcome.Reason != entity.ReasonAlreadyProcessed {
			b.logger.Error("Settlement of %s charge %s failed: %s", provider, sp.TelegramPaymentChargeID, outcome.Reason)
		}
		b.reply(msg.Chat.ID, reasonText(outcome.Reason))
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("Balance topped up by %s.", formatAmount(amount, b.cfg.PayCurrency)))
	b.notifyReferrer(ctx, msg.From, amount)
}
