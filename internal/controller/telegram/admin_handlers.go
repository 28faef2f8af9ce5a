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

func (b *Bot) handleAddCategory(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requirePermission(ctx, msg, entity.PermissionShopManage) {
		return
	}

	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg.Chat.ID, "Usage: /addcategory <name>")
		return
	}

	if err := b.catalog.CreateCategory(ctx, name); err != nil {
		b.logger.Error("Create category %q: %v", name, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Category %q created.", name))
}

func (b *Bot) handleAddItem(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requirePermission(ctx, msg, entity.PermissionShopManage) {
		return
	}

	parts := strings.Fields(msg.CommandArguments())
	if len(parts) < 3 {
		b.reply(msg.Chat.ID, "Usage: /additem <name> <price> <category> [description]")
		return
	}

	price, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || price <= 0 {
		b.reply(msg.Chat.ID, "Price must be a positive whole number.")
		return
	}

	good := &entity.Good{
		Name:         parts[0],
		Price:        price,
		CategoryName: parts[2],
	}
	if len(parts) > 3 {
		good.Description = strings.Join(parts[3:], " ")
	}

	if err := b.catalog.CreateGood(ctx, good); err != nil {
		b.logger.Error("Create good %q: %v", good.Name, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Item %q added at %s.", good.Name, formatAmount(price, b.cfg.PayCurrency)))
}

func (b *Bot) handleAddStock(ctx context.Context, msg *tgbotapi.Message, infinite bool) {
	if !b.requirePermission(ctx, msg, entity.PermissionShopManage) {
		return
	}

	parts := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if len(parts) < 2 {
		usage := "/addstock <item> <payload>"
		if infinite {
			usage = "/addinfinite <item> <payload>"
		}
		b.reply(msg.Chat.ID, "Usage: "+usage)
		return
	}

	unit := &entity.StockUnit{
		ItemName:   parts[0],
		Payload:    strings.TrimSpace(parts[1]),
		IsInfinite: infinite,
	}
	added, err := b.catalog.AddStockUnit(ctx, unit)
	if errors.Is(err, entity.ErrItemNotFound) {
		b.reply(msg.Chat.ID, reasonText(entity.ReasonItemNotFound))
		return
	}
	if err != nil {
		b.logger.Error("Add stock to %q: %v", unit.ItemName, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	if !added {
		b.reply(msg.Chat.ID, "That unit already exists, skipped.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Stock added to %q.", unit.ItemName))
}

func (b *Bot) handleDelItem(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requirePermission(ctx, msg, entity.PermissionShopManage) {
		return
	}

	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg.Chat.ID, "Usage: /delitem <name>")
		return
	}

	err := b.catalog.DeleteGood(ctx, name)
	if errors.Is(err, entity.ErrItemNotFound) {
		b.reply(msg.Chat.ID, reasonText(entity.ReasonItemNotFound))
		return
	}
	if err != nil {
		b.logger.Error("Delete good %q: %v", name, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Item %q and its stock removed.", name))
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requirePermission(ctx, msg, entity.PermissionBroadcast) {
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Usage: /broadcast <text>")
		return
	}

	queued, err := b.broadcast.Broadcast(ctx, text)
	if err != nil {
		b.logger.Error("Broadcast: %v", err)
		b.reply(msg.Chat.ID, "Broadcast failed: "+err.Error())
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Broadcast queued for %d users.", queued))
}
