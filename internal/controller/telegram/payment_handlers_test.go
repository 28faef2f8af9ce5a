package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digi-shop/internal/entity"
	"digi-shop/pkg/config"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/payment"
)

type settleCall struct {
	userID     int64
	amount     int64
	provider   string
	externalID string
}

// settlementStub records settlement requests and serves pending rows
// from a map, standing in for the real engine behind the bot.
type settlementStub struct {
	pendings map[string]*entity.PendingTopup
	settled  []settleCall
	outcome  entity.SettlementOutcome
}

func newSettlementStub() *settlementStub {
	return &settlementStub{
		pendings: make(map[string]*entity.PendingTopup),
		outcome:  entity.SettlementOutcome{Success: true, Reason: entity.ReasonSuccess},
	}
}

func (s *settlementStub) SettlePayment(_ context.Context, userID, amount int64, provider, externalID string, _ int) entity.SettlementOutcome {
	s.settled = append(s.settled, settleCall{userID, amount, provider, externalID})
	return s.outcome
}

func (s *settlementStub) OpenTopup(_ context.Context, userID, amount int64, provider, externalID string) error {
	s.pendings[provider+"|"+externalID] = &entity.PendingTopup{
		UserID:     userID,
		Amount:     amount,
		Provider:   provider,
		ExternalID: externalID,
	}
	return nil
}

func (s *settlementStub) PendingTopup(_ context.Context, provider, externalID string) (*entity.PendingTopup, error) {
	pending, ok := s.pendings[provider+"|"+externalID]
	if !ok {
		return nil, fmt.Errorf("pending topup %s/%s not found", provider, externalID)
	}
	return pending, nil
}

// newTelegramServer fakes the Bot API far enough for getMe and
// sendMessage, which is all the check flow touches.
func newTelegramServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": map[string]interface{}{
				"id":         int64(1),
				"is_bot":     true,
				"first_name": "Test",
				"username":   "testbot",
				"message_id": 1,
				"chat":       map[string]interface{}{"id": int64(1)},
			},
		})
	}))
}

// newInvoiceServer answers getInvoices with a fixed status and amount
// for any invoice id.
func newInvoiceServer(t *testing.T, status, amount string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": map[string]interface{}{
				"items": []map[string]interface{}{
					{"invoice_id": int64(77), "status": status, "amount": amount},
				},
			},
		})
	}))
}

func newTestBot(t *testing.T, settlement *settlementStub, invoiceURL string) *Bot {
	t.Helper()

	tg := newTelegramServer(t)
	t.Cleanup(tg.Close)

	api, err := tgbotapi.NewBotAPIWithClient("test-token", tg.URL+"/bot%s/%s", tg.Client())
	require.NoError(t, err)

	cfg := &config.Config{PayCurrency: "RUB"}
	invoices := payment.NewCryptoPayClient("test-token").WithBaseURL(invoiceURL)

	return NewBot(api, cfg, settlement, nil, nil, nil, invoices, nil, logger.New())
}

func checkMessage(chatID, fromID int64, args string) *tgbotapi.Message {
	text := "/check"
	if args != "" {
		text += " " + args
	}
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: fromID, FirstName: "Tester"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/check")}},
	}
}

func TestHandleCheck_SettlesOwnInvoice(t *testing.T) {
	srv := newInvoiceServer(t, "paid", "500")
	defer srv.Close()

	settlement := newSettlementStub()
	bot := newTestBot(t, settlement, srv.URL)

	ctx := context.Background()
	require.NoError(t, settlement.OpenTopup(ctx, 555, 500, entity.ProviderCryptoPay, "77"))
	bot.setActiveInvoice(555, "77")

	bot.handleCheck(ctx, checkMessage(555, 555, ""))

	require.Len(t, settlement.settled, 1)
	assert.Equal(t, int64(555), settlement.settled[0].userID)
	assert.Equal(t, int64(500), settlement.settled[0].amount)
	assert.Equal(t, entity.ProviderCryptoPay, settlement.settled[0].provider)
	assert.Equal(t, "77", settlement.settled[0].externalID)
}

func TestHandleCheck_RejectsForeignInvoiceID(t *testing.T) {
	srv := newInvoiceServer(t, "paid", "500")
	defer srv.Close()

	settlement := newSettlementStub()
	bot := newTestBot(t, settlement, srv.URL)

	ctx := context.Background()
	require.NoError(t, settlement.OpenTopup(ctx, 555, 500, entity.ProviderCryptoPay, "77"))

	// A stranger passing someone else's invoice id must not trigger a
	// settlement, regardless of the invoice being paid.
	bot.handleCheck(ctx, checkMessage(666, 666, "77"))

	assert.Empty(t, settlement.settled)
}

func TestHandleCheck_GroupChatInvoiceStaysWithOwner(t *testing.T) {
	srv := newInvoiceServer(t, "paid", "500")
	defer srv.Close()

	settlement := newSettlementStub()
	bot := newTestBot(t, settlement, srv.URL)

	ctx := context.Background()
	const groupChat = int64(-100200)
	require.NoError(t, settlement.OpenTopup(ctx, 555, 500, entity.ProviderCryptoPay, "77"))
	bot.setActiveInvoice(groupChat, "77")

	// Another member of the chat sends /check; the per-chat invoice
	// belongs to user 555, so nothing is credited.
	bot.handleCheck(ctx, checkMessage(groupChat, 666, ""))

	assert.Empty(t, settlement.settled)
}

func TestHandleCheck_UnknownInvoiceID(t *testing.T) {
	srv := newInvoiceServer(t, "paid", "500")
	defer srv.Close()

	settlement := newSettlementStub()
	bot := newTestBot(t, settlement, srv.URL)

	bot.handleCheck(context.Background(), checkMessage(666, 666, "99"))

	assert.Empty(t, settlement.settled)
}

func TestHandleCheck_UnpaidInvoiceDoesNotSettle(t *testing.T) {
	srv := newInvoiceServer(t, "active", "500")
	defer srv.Close()

	settlement := newSettlementStub()
	bot := newTestBot(t, settlement, srv.URL)

	ctx := context.Background()
	require.NoError(t, settlement.OpenTopup(ctx, 555, 500, entity.ProviderCryptoPay, "77"))
	bot.setActiveInvoice(555, "77")

	bot.handleCheck(ctx, checkMessage(555, 555, ""))

	assert.Empty(t, settlement.settled)
	// The invoice stays active so /check can be retried.
	id, ok := bot.takeActiveInvoice(555)
	require.True(t, ok)
	assert.Equal(t, "77", id)
}
