package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"digi-shop/internal/entity"
	"digi-shop/internal/usecase"
	"digi-shop/pkg/config"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/middleware"
	"digi-shop/pkg/payment"
	"digi-shop/pkg/queue"
)

// Bot runs the long-poll loop and dispatches commands to the engines.
type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        *config.Config
	settlement usecase.SettlementUseCase
	purchase   usecase.PurchaseUseCase
	catalog    usecase.CatalogUseCase
	broadcast  usecase.BroadcastUseCase
	invoices   *payment.CryptoPayClient
	redis      *redis.Client
	logger     *logger.Logger

	// open CryptoPay invoice per chat, what /check verifies
	mu             sync.Mutex
	activeInvoices map[int64]string
}

func NewBot(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	settlement usecase.SettlementUseCase,
	purchase usecase.PurchaseUseCase,
	catalog usecase.CatalogUseCase,
	broadcastUC usecase.BroadcastUseCase,
	invoices *payment.CryptoPayClient,
	redisClient *redis.Client,
	log *logger.Logger,
) *Bot {
	return &Bot{
		api:            api,
		cfg:            cfg,
		settlement:     settlement,
		purchase:       purchase,
		catalog:        catalog,
		broadcast:      broadcastUC,
		invoices:       invoices,
		redis:          redisClient,
		logger:         log,
		activeInvoices: make(map[int64]string),
	}
}

// Run consumes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot %s is accepting updates", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.PreCheckoutQuery != nil {
		b.handlePreCheckout(update.PreCheckoutQuery)
		return
	}
	if update.Message == nil {
		return
	}

	msg := update.Message
	if msg.From == nil {
		return
	}

	if b.redis != nil && !b.allowed(ctx, msg.From.ID) {
		return
	}

	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, msg)
		return
	}

	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, "Use /help to see available commands.")
		return
	}

	b.dispatch(ctx, msg)
}

func (b *Bot) allowed(ctx context.Context, userID int64) bool {
	limit := b.cfg.RateLimitPerMinute
	if limit <= 0 {
		return true
	}
	return middleware.AllowUpdate(ctx, b.redis, userID, limit, time.Minute)
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.handleHelp(ctx, msg)
	case "shop":
		b.handleShop(ctx, msg)
	case "goods":
		b.handleGoods(ctx, msg)
	case "item":
		b.handleItem(ctx, msg)
	case "buy":
		b.handleBuy(ctx, msg)
	case "profile":
		b.handleProfile(ctx, msg)
	case "purchases":
		b.handlePurchases(ctx, msg)
	case "referrals":
		b.handleReferrals(ctx, msg)
	case "topup":
		b.handleTopup(ctx, msg)
	case "check":
		b.handleCheck(ctx, msg)
	case "addcategory":
		b.handleAddCategory(ctx, msg)
	case "additem":
		b.handleAddItem(ctx, msg)
	case "addstock":
		b.handleAddStock(ctx, msg, false)
	case "addinfinite":
		b.handleAddStock(ctx, msg, true)
	case "delitem":
		b.handleDelItem(ctx, msg)
	case "broadcast":
		b.handleBroadcast(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help.")
	}
}

// requirePermission replies with a refusal when the user lacks the bit.
func (b *Bot) requirePermission(ctx context.Context, msg *tgbotapi.Message, permission int) bool {
	ok, err := b.catalog.HasPermission(ctx, msg.From.ID, permission)
	if err != nil {
		b.logger.Error("Permission check for user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, msgSomethingWrong)
		return false
	}
	if !ok {
		b.reply(msg.Chat.ID, "You are not allowed to do that.")
		return false
	}
	return true
}

// Notify sends a standalone message, used by background workers.
func (b *Bot) Notify(chatID int64, text string) {
	b.reply(chatID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) setActiveInvoice(chatID int64, invoiceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeInvoices[chatID] = invoiceID
}

func (b *Bot) takeActiveInvoice(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.activeInvoices[chatID]
	return id, ok
}

func (b *Bot) clearActiveInvoice(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.activeInvoices, chatID)
}

// ConsumeBroadcasts drains the broadcast queue and delivers messages.
// Blocks until ctx is cancelled once the consumer is registered.
func (b *Bot) ConsumeBroadcasts(ctx context.Context, client *queue.Client) error {
	err := client.ConsumeBroadcasts(func(task queue.BroadcastTask) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, err := b.api.Send(tgbotapi.NewMessage(task.ChatID, task.Text))
		if err != nil {
			return fmt.Errorf("deliver broadcast to chat %d: %w", task.ChatID, err)
		}
		// Telegram allows ~30 messages per second
		time.Sleep(40 * time.Millisecond)
		return nil
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d %s", amount, strings.ToUpper(currency))
}

func reasonText(reason entity.Reason) string {
	switch reason {
	case entity.ReasonAlreadyProcessed:
		return "This payment has already been credited."
	case entity.ReasonUserNotFound:
		return "You are not registered yet. Send /start first."
	case entity.ReasonItemNotFound:
		return "That item does not exist."
	case entity.ReasonInsufficientFunds:
		return "Not enough balance. Top up with /topup."
	case entity.ReasonOutOfStock:
		return "Sold out. Check back later."
	default:
		return msgSomethingWrong
	}
}

const msgSomethingWrong = "Something went wrong, try again later."
