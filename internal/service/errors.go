package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/auth"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/middleware"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
)

// errAuthRequired is returned when a handler runs without a user.
var errAuthRequired = errors.New("authentication required")

// Code maps a domain error to the Connect code clients see.
func Code(err error) connect.Code {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case limits.IsExceeded(err):
		return connect.CodeResourceExhausted
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, calculator.ErrInvalidAllocation):
		return connect.CodeInvalidArgument
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, errAuthRequired):
		return connect.CodeUnauthenticated
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

// fail converts err for the client. Internal errors are logged here and
// replaced with a generic message.
func fail(logger *slog.Logger, op string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}
	code := Code(err)
	if code == connect.CodeInternal {
		logger.Error(op+" failed", "error", err)
		return connect.NewError(code, errors.New("internal error"))
	}
	return connect.NewError(code, err)
}

// requireUser returns the authenticated user ID from ctx.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	return userID, nil
}

// parseMoney parses a decimal amount. An empty string is zero.
func parseMoney(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a decimal number, got %q", models.ErrInvalidInput, field, s)
	}
	return d, nil
}
