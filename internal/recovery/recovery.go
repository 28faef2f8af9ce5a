package recovery

import (
	"context"
	"time"

	"digi-shop/internal/entity"
	"digi-shop/internal/repo/persistent"
	"digi-shop/internal/usecase"
	"digi-shop/pkg/config"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/payment"
)

// Notifier delivers a message to a chat. Satisfied by the bot.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Poller resolves invoices that were paid but never confirmed by the
// user, and closes out expired ones. Crediting goes through the same
// settlement engine as the interactive path, so a user who confirms
// at the same moment loses nothing and gains nothing twice.
type Poller struct {
	store      persistent.Store
	settlement usecase.SettlementUseCase
	invoices   *payment.CryptoPayClient
	notifier   Notifier
	cfg        *config.Config
	logger     *logger.Logger
}

func NewPoller(
	store persistent.Store,
	settlement usecase.SettlementUseCase,
	invoices *payment.CryptoPayClient,
	notifier Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Poller {
	return &Poller{
		store:      store,
		settlement: settlement,
		invoices:   invoices,
		notifier:   notifier,
		cfg:        cfg,
		logger:     log,
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.invoices == nil {
		p.logger.Info("Recovery poller disabled: no invoice provider configured")
		return
	}

	interval := time.Duration(p.cfg.RecoveryIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("Recovery poller running every %s", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.Ping(ctx); err != nil {
				p.logger.Error("Skipping recovery sweep, database unreachable: %v", err)
				continue
			}
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-time.Duration(p.cfg.PendingCutoffMin) * time.Minute)
	stale, err := p.store.ListStalePendingTopups(ctx, entity.ProviderCryptoPay, cutoff)
	if err != nil {
		p.logger.Error("Recovery sweep: %v", err)
		return
	}

	for _, pending := range stale {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.resolve(ctx, pending)
	}
}

func (p *Poller) resolve(ctx context.Context, pending *entity.PendingTopup) {
	invoice, err := p.invoices.GetInvoice(ctx, pending.ExternalID)
	if err != nil {
		p.logger.Error("Recovery lookup of invoice %s: %v", pending.ExternalID, err)
		return
	}

	switch invoice.Status {
	case payment.InvoiceStatusPaid:
		amount, err := invoice.AmountMinor()
		if err != nil {
			p.logger.Error("Recovery of invoice %s: %v", pending.ExternalID, err)
			return
		}
		outcome := p.settlement.SettlePayment(ctx, pending.UserID, amount,
			pending.Provider, pending.ExternalID, p.cfg.ReferralPercent)
		switch outcome.Reason {
		case entity.ReasonSuccess:
			p.logger.Info("Recovered payment %s for user %d", pending.ExternalID, pending.UserID)
			if p.notifier != nil {
				p.notifier.Notify(pending.UserID, "Your payment came through, balance topped up.")
			}
		case entity.ReasonAlreadyProcessed:
			// Settled elsewhere, just make sure the pending row is gone.
			if err := p.store.DeletePendingTopup(ctx, pending.Provider, pending.ExternalID); err != nil {
				p.logger.Error("Clear settled pending %s: %v", pending.ExternalID, err)
			}
		default:
			p.logger.Error("Recovery settlement of %s failed: %s", pending.ExternalID, outcome.Reason)
		}

	case payment.InvoiceStatusExpired, payment.InvoiceStatusFailed:
		p.closeFailed(ctx, pending)
	}
}

// closeFailed writes the terminal failed record and drops the pending
// row. The failed insert also retires the external id for good.
func (p *Poller) closeFailed(ctx context.Context, pending *entity.PendingTopup) {
	err := p.store.WithinTx(ctx, func(tx persistent.Store) error {
		record := &entity.PaymentRecord{
			Provider:   pending.Provider,
			ExternalID: pending.ExternalID,
			Amount:     pending.Amount,
			Status:     entity.PaymentStatusFailed,
			UserID:     pending.UserID,
		}
		if err := tx.InsertPayment(ctx, record); err != nil {
			return err
		}
		return tx.DeletePendingTopup(ctx, pending.Provider, pending.ExternalID)
	})
	if err != nil {
		p.logger.Error("Close expired invoice %s: %v", pending.ExternalID, err)
		return
	}
	p.logger.Info("Closed expired invoice %s for user %d", pending.ExternalID, pending.UserID)
}
