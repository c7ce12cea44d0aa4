// Package notify delivers chat messages to users and error reports to the
// operator.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers one text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Reporter receives operational error reports.
type Reporter interface {
	Report(ctx context.Context, text string)
}

// AdminReporter forwards error reports to the admin chat. Reports beyond the
// limiter's budget are dropped and counted; the count is attached to the
// next report that goes out.
type AdminReporter struct {
	sender  Sender
	adminID int64
	limiter *rate.Limiter
	logger  *zap.Logger

	mu         sync.Mutex
	suppressed int
}

// NewAdminReporter allows one report per interval with the given burst.
// adminID 0 disables delivery; reports are then only logged.
func NewAdminReporter(sender Sender, adminID int64, interval time.Duration, burst int, logger *zap.Logger) *AdminReporter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &AdminReporter{
		sender:  sender,
		adminID: adminID,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

func (r *AdminReporter) Report(ctx context.Context, text string) {
	if r.adminID == 0 {
		r.logger.Warn("admin report (no admin configured)", zap.String("report", text))
		return
	}

	r.mu.Lock()
	if !r.limiter.Allow() {
		r.suppressed++
		r.mu.Unlock()
		r.logger.Debug("admin report suppressed", zap.String("report", text))
		return
	}
	dropped := r.suppressed
	r.suppressed = 0
	r.mu.Unlock()

	if dropped > 0 {
		text = fmt.Sprintf("%s\n(%d earlier reports suppressed)", text, dropped)
	}

	if err := r.sender.Send(ctx, r.adminID, text); err != nil {
		r.logger.Error("failed to deliver admin report", zap.String("report", text), zap.Error(err))
		r.mu.Lock()
		r.suppressed += dropped
		r.mu.Unlock()
	}
}

// Suppressed returns how many reports are waiting to be mentioned.
func (r *AdminReporter) Suppressed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suppressed
}

// LogSender only logs messages. It stands in for a chat transport when none
// is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, chatID int64, text string) error {
	s.Logger.Info("message", zap.Int64("chat_id", chatID), zap.String("text", text))
	return nil
}
