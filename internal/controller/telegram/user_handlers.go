package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"digi-shop/internal/entity"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	var referrerID *int64
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
			referrerID = &id
		}
	}

	if err := b.catalog.RegisterUser(ctx, msg.From.ID, referrerID); err != nil {
		b.logger.Error("Registration of user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}

	b.reply(msg.Chat.ID, "Welcome to the shop!\n\n"+
		"/shop — browse categories\n"+
		"/profile — balance and account\n"+
		"/topup <amount> — add funds\n"+
		"/help — all commands")
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	text := `Available commands:
/shop — list categories
/goods <category> — items in a category
/item <name> — item details and stock
/buy <name> — buy an item
/profile — your balance
/purchases — your purchase history
/referrals — your referral earnings
/topup <amount> — create a payment invoice
/check — verify your pending invoice`

	if ok, _ := b.catalog.HasPermission(ctx, msg.From.ID, entity.PermissionShopManage); ok {
		text += `

Admin:
/addcategory <name>
/additem <name> <price> <category> [description]
/addstock <item> <payload>
/addinfinite <item> <payload>
/delitem <name>
/broadcast <text>`
	}
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) handleShop(ctx context.Context, msg *tgbotapi.Message) {
	categories, err := b.catalog.ListCategories(ctx)
	if err != nil {
		b.logger.Error("List categories: %v", err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	if len(categories) == 0 {
		b.reply(msg.Chat.ID, "The shop is empty for now.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "• %s\n", c.Name)
	}
	sb.WriteString("\nUse /goods <category> to see items.")
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleGoods(ctx context.Context, msg *tgbotapi.Message) {
	category := strings.TrimSpace(msg.CommandArguments())
	if category == "" {
		b.reply(msg.Chat.ID, "Usage: /goods <category>")
		return
	}

	goods, err := b.catalog.ListGoods(ctx, category)
	if err != nil {
		b.logger.Error("List goods in %q: %v", category, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	if len(goods) == 0 {
		b.reply(msg.Chat.ID, "Nothing in that category.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Items in %s:\n", category)
	for _, g := range goods {
		fmt.Fprintf(&sb, "• %s — %s\n", g.Name, formatAmount(g.Price, b.cfg.PayCurrency))
	}
	sb.WriteString("\nUse /item <name> for details.")
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleItem(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg.Chat.ID, "Usage: /item <name>")
		return
	}

	info, err := b.catalog.GetItemInfo(ctx, name)
	if errors.Is(err, entity.ErrItemNotFound) {
		b.reply(msg.Chat.ID, reasonText(entity.ReasonItemNotFound))
		return
	}
	if err != nil {
		b.logger.Error("Item info for %q: %v", name, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}

	stock := fmt.Sprintf("%d in stock", info.Available)
	if info.Unlimited {
		stock = "unlimited"
	}
	text := fmt.Sprintf("%s\nPrice: %s\nAvailability: %s",
		info.Good.Name, formatAmount(info.Good.Price, b.cfg.PayCurrency), stock)
	if info.Good.Description != "" {
		text += "\n\n" + info.Good.Description
	}
	text += "\n\nBuy with /buy " + info.Good.Name
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) handleBuy(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg.Chat.ID, "Usage: /buy <name>")
		return
	}

	outcome := b.purchase.BuyItem(ctx, msg.From.ID, name)
	if !outcome.Success {
		b.reply(msg.Chat.ID, reasonText(outcome.Reason))
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Purchase complete!\n\n%s\n\nPaid: %s\nBalance left: %s\nOrder: %s",
		outcome.Data.Payload,
		formatAmount(outcome.Data.Price, b.cfg.PayCurrency),
		formatAmount(outcome.Data.NewBalance, b.cfg.PayCurrency),
		outcome.Data.SaleID,
	))
}

func (b *Bot) handleProfile(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.catalog.GetProfile(ctx, msg.From.ID)
	if errors.Is(err, entity.ErrUserNotFound) {
		b.reply(msg.Chat.ID, reasonText(entity.ReasonUserNotFound))
		return
	}
	if err != nil {
		b.logger.Error("Profile of user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Your profile\nBalance: %s\nRegistered: %s\n\nReferral link: t.me/%s?start=%d",
		formatAmount(user.Balance, b.cfg.PayCurrency),
		user.RegistrationDate.Format("02.01.2006"),
		b.api.Self.UserName,
		user.TelegramID,
	))
}

func (b *Bot) handlePurchases(ctx context.Context, msg *tgbotapi.Message) {
	purchases, err := b.catalog.ListPurchases(ctx, msg.From.ID, 10, 0)
	if err != nil {
		b.logger.Error("Purchases of user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	if len(purchases) == 0 {
		b.reply(msg.Chat.ID, "You have no purchases yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your recent purchases:\n")
	for _, p := range purchases {
		fmt.Fprintf(&sb, "• %s — %s (%s)\n%s\n",
			p.ItemName,
			formatAmount(p.Price, b.cfg.PayCurrency),
			p.BoughtAt.Format("02.01.2006"),
			p.Payload)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleReferrals(ctx context.Context, msg *tgbotapi.Message) {
	report, err := b.catalog.ReferralStats(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("Referral stats of user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Referral program: you earn %d%% of every top-up made by users you invite.\n\n"+
			"Invited: %d\nBonuses received: %d\nTotal earned: %s\n\n"+
			"Your link: t.me/%s?start=%d",
		b.cfg.ReferralPercent,
		report.Referrals,
		report.EarningsCount,
		formatAmount(report.EarningsTotal, b.cfg.PayCurrency),
		b.api.Self.UserName,
		msg.From.ID,
	))
}
