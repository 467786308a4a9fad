package eventing

import (
	"context"
	"sync"
	"time"
)

// VoucherPosted is published after a voucher is durably appended.
type VoucherPosted struct {
	VoucherID  string
	Sequence   int64
	Date       time.Time
	AccountIDs []string
	ReversalOf string
	OccurredAt time.Time
}

// YearClosed is published after a financial year transitions to closed.
type YearClosed struct {
	YearID           string
	ClosingVoucherID string
	OccurredAt       time.Time
}

// Bus is a lightweight in-process event bus. Handlers run synchronously
// on the publisher's goroutine; a handler error stops dispatch.
type Bus struct {
	mu              sync.RWMutex
	voucherHandlers []func(context.Context, VoucherPosted) error
	yearHandlers    []func(context.Context, YearClosed) error
}

// NewBus constructs a new bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeVoucherPosted registers a handler for VoucherPosted.
func (b *Bus) SubscribeVoucherPosted(handler func(context.Context, VoucherPosted) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voucherHandlers = append(b.voucherHandlers, handler)
}

// PublishVoucherPosted publishes a VoucherPosted event.
func (b *Bus) PublishVoucherPosted(ctx context.Context, event VoucherPosted) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, VoucherPosted) error(nil), b.voucherHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeYearClosed registers a handler for YearClosed.
func (b *Bus) SubscribeYearClosed(handler func(context.Context, YearClosed) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.yearHandlers = append(b.yearHandlers, handler)
}

// PublishYearClosed publishes a YearClosed event.
func (b *Bus) PublishYearClosed(ctx context.Context, event YearClosed) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, YearClosed) error(nil), b.yearHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
