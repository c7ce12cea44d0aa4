// Package bot implements the chat command surface and the Telegram
// transport used for replies and alerts.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"volumebot/internal/asset"
	"volumebot/internal/notify"
	"volumebot/internal/subscription"

	"go.uber.org/zap"
)

const (
	welcomeText = "Hello! This bot monitors cryptocurrency transactions.\n" +
		"Use /status to get the current status of monitored cryptocurrencies.\n" +
		"Use /set_threshold <percentage> to set the transaction threshold for notifications.\n" +
		"Use /get_coins to get the list of available cryptocurrencies for monitoring.\n" +
		"Use /set_coins <coin> to add or remove a cryptocurrency from monitoring.\n" +
		"Use /settings to view your current settings.\n" +
		"For any questions or support, please contact the admin."

	helpText = "Here are the available commands:\n" +
		"/start - Start the bot and get a welcome message.\n" +
		"/status - Get the current status of monitored cryptocurrencies.\n" +
		"/set_threshold <percentage> - Set the transaction threshold for notifications.\n" +
		"/get_coins - Get the list of available cryptocurrencies for monitoring.\n" +
		"/set_coins <coin> - Add or remove a cryptocurrency from monitoring.\n" +
		"/settings - View your current settings.\n" +
		"\nFor any questions or support, please contact the admin."

	saveFailedText  = "Sorry, your settings could not be saved. Please try again later."
	noCoinsText     = "You are not monitoring any coins. Use /get_coins to see what is available."
	unknownCmdText  = "Unknown command. Use /help to see the available commands."
	thresholdUsage  = "Usage: /set_threshold <percentage>"
	thresholdBounds = "Please provide a valid percentage between 0 and 100."
	coinsUsage      = "Usage: /set_coins <coin>"
)

// Subscriptions is the part of the subscription store commands use.
type Subscriptions interface {
	Start(ctx context.Context, userID int64) (subscription.Subscription, bool, error)
	ToggleAsset(ctx context.Context, userID int64, asset string) (subscription.Subscription, bool, error)
	SetThreshold(ctx context.Context, userID int64, value float64) (subscription.Subscription, error)
}

type StatusBuilder interface {
	Build(ctx context.Context, assets []string, now time.Time) []string
}

// Handler turns one command into the replies for the user. It does not
// know about the transport.
type Handler struct {
	subs     Subscriptions
	universe *asset.Universe
	status   StatusBuilder
	reporter notify.Reporter
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(subs Subscriptions, universe *asset.Universe, status StatusBuilder, reporter notify.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		subs:     subs,
		universe: universe,
		status:   status,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle runs command (without the leading slash) for the user and returns
// the reply messages in order.
func (h *Handler) Handle(ctx context.Context, userID int64, command, args string) []string {
	h.logger.Debug("command received",
		zap.Int64("user_id", userID), zap.String("command", command), zap.String("args", args))

	// any interaction registers the user with the defaults
	sub, created, err := h.subs.Start(ctx, userID)
	if err != nil {
		return h.saveFailed(ctx, commandName(command), userID, err)
	}
	if created {
		h.logger.Info("new user", zap.Int64("user_id", userID), zap.String("command", command))
	}

	switch command {
	case "start":
		return []string{welcomeText}
	case "status":
		return h.statusReport(ctx, sub)
	case "set_threshold":
		return h.setThreshold(ctx, userID, args)
	case "get_coins":
		return h.getCoins()
	case "set_coins":
		return h.setCoins(ctx, userID, args)
	case "settings":
		return h.settings(sub)
	case "help":
		return []string{helpText}
	default:
		return []string{unknownCmdText}
	}
}

func commandName(command string) string {
	switch command {
	case "start", "status", "set_threshold", "get_coins", "set_coins", "settings", "help":
		return command
	}
	return "unknown"
}

func (h *Handler) statusReport(ctx context.Context, sub subscription.Subscription) []string {
	if len(sub.Assets) == 0 {
		return []string{noCoinsText}
	}
	return h.status.Build(ctx, sub.Assets, h.now())
}

func (h *Handler) setThreshold(ctx context.Context, userID int64, args string) []string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return []string{thresholdUsage}
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return []string{thresholdUsage}
	}

	sub, err := h.subs.SetThreshold(ctx, userID, value)
	switch {
	case errors.Is(err, subscription.ErrInvalidThreshold):
		return []string{thresholdBounds}
	case err != nil:
		return h.saveFailed(ctx, "set_threshold", userID, err)
	}
	return []string{fmt.Sprintf("Transaction threshold set to %s%%.", formatThreshold(sub.Threshold))}
}

func (h *Handler) getCoins() []string {
	return []string{fmt.Sprintf(
		"Here is the list of available cryptocurrencies:\n%s\n\nUse /set_coins <coin> to add or remove a cryptocurrency from monitoring.",
		strings.Join(h.universe.Assets(), "\n"))}
}

func (h *Handler) setCoins(ctx context.Context, userID int64, args string) []string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return []string{coinsUsage}
	}
	coin := asset.Normalize(fields[0])

	sub, added, err := h.subs.ToggleAsset(ctx, userID, coin)
	switch {
	case errors.Is(err, subscription.ErrUnknownAsset):
		return []string{fmt.Sprintf("The coin %s is not valid. Please use /get_coins to see the list of available cryptocurrencies.", coin)}
	case err != nil:
		return h.saveFailed(ctx, "set_coins", userID, err)
	}

	action := "removed from"
	if added {
		action = "added to"
	}
	return []string{fmt.Sprintf("The coin %s has been %s your selection.\nCurrent selection: %s",
		coin, action, strings.Join(sub.Assets, ", "))}
}

func (h *Handler) settings(sub subscription.Subscription) []string {
	return []string{fmt.Sprintf(
		"Your current settings:\nMonitored coins: %s\nTransaction threshold for notifications: %s%%",
		strings.Join(sub.Assets, ", "), formatThreshold(sub.Threshold))}
}

func (h *Handler) saveFailed(ctx context.Context, command string, userID int64, err error) []string {
	h.logger.Error("failed to persist settings",
		zap.String("command", command), zap.Int64("user_id", userID), zap.Error(err))
	h.reporter.Report(ctx, fmt.Sprintf("Error in %s_command: %v", command, err))
	return []string{saveFailedText}
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
