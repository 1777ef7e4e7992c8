// Package service holds the shop's business rules. Handlers call services
// with the caller's identity; services talk to storage only through the
// repository interfaces and report failures as *apperr.Error values.
package service

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/repository"
)

// notFound translates a repository miss into kind, passing other failures
// through as INTERNAL.
func notFound(err error, kind apperr.Kind, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(kind, msg)
	}
	return apperr.Internal(err)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Prices are stored as DECIMAL(12,2) and quantities as INT.
var maxPrice = decimal.RequireFromString("9999999999.99")

const maxQuantity = math.MaxInt32

// checkPrice rejects amounts the price columns cannot hold exactly.
func checkPrice(field string, p decimal.Decimal) error {
	switch {
	case !p.IsPositive():
		return apperr.New(apperr.KindValidation, field+" must be greater than zero")
	case !p.Equal(p.Round(2)):
		return apperr.New(apperr.KindValidation, field+" must have at most two decimal places")
	case p.GreaterThan(maxPrice):
		return apperr.New(apperr.KindValidation, field+" must not exceed "+maxPrice.String())
	}
	return nil
}
