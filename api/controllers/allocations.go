package controllers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/promo-engine/api/responses"
	"github.com/angelmondragon/promo-engine/api/validators"
	"github.com/angelmondragon/promo-engine/internal/allocation"
	"github.com/angelmondragon/promo-engine/internal/quotes"
	pkgerrors "github.com/angelmondragon/promo-engine/pkg/errors"
	"github.com/angelmondragon/promo-engine/pkg/logger"
)

type allocationItemRequest struct {
	ID        string `json:"id" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type allocationDiscountRequest struct {
	Type   string `json:"type" validate:"required,oneof=percentage fixed_amount"`
	Rate   string `json:"rate,omitempty"`
	Amount string `json:"amount,omitempty"`
}

type allocationRequest struct {
	Currency string                    `json:"currency" validate:"required,len=3"`
	Discount allocationDiscountRequest `json:"discount" validate:"required"`
	Items    []allocationItemRequest   `json:"items" validate:"dive"`
}

type allocationRecordResponse struct {
	ItemID           string          `json:"item_id"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	DiscountedAmount decimal.Decimal `json:"discounted_amount"`
}

type allocationResponse struct {
	Records       []allocationRecordResponse `json:"records"`
	Subtotal      decimal.Decimal            `json:"subtotal"`
	TotalDiscount decimal.Decimal            `json:"total_discount"`
	Currency      string                     `json:"currency"`
	Signature     string                     `json:"signature"`
	CacheHit      bool                       `json:"cache_hit"`
}

// PostAllocation quotes a discount allocation for a cart snapshot.
func PostAllocation(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req allocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := buildQuoteInput(req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		output, err := svc.Quote(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, mapAllocationError(err))
			return
		}

		if logg != nil {
			ctx = logg.WithSignature(ctx, string(output.Signature))
			logg.Info(ctx, "allocation.quoted")
		}

		responses.WriteSuccess(w, toAllocationResponse(req.Currency, output))
	}
}

func buildQuoteInput(req allocationRequest) (quotes.QuoteInput, error) {
	discount := allocation.Discount{Kind: allocation.DiscountKind(req.Discount.Type)}

	switch discount.Kind {
	case allocation.DiscountPercentage:
		rate, err := decimal.NewFromString(req.Discount.Rate)
		if err != nil {
			return quotes.QuoteInput{}, pkgerrors.New(pkgerrors.CodeValidation, "discount rate is not a valid number").
				WithDetails(map[string]string{"rate": req.Discount.Rate})
		}
		discount.Rate = rate
	case allocation.DiscountFixed:
		amount, err := decimal.NewFromString(req.Discount.Amount)
		if err != nil {
			return quotes.QuoteInput{}, pkgerrors.New(pkgerrors.CodeValidation, "discount amount is not a valid number").
				WithDetails(map[string]string{"amount": req.Discount.Amount})
		}
		discount.Amount = amount
	}

	items := make([]allocation.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return quotes.QuoteInput{}, pkgerrors.New(pkgerrors.CodeValidation, "item unit price is not a valid number").
				WithDetails(map[string]string{"id": it.ID, "unit_price": it.UnitPrice})
		}
		items = append(items, allocation.LineItem{
			ID:        it.ID,
			UnitPrice: price,
			Quantity:  it.Quantity,
		})
	}

	return quotes.QuoteInput{
		Items:    items,
		Discount: discount,
		Currency: req.Currency,
	}, nil
}

func mapAllocationError(err error) error {
	switch {
	case errors.Is(err, allocation.ErrInvalidDiscount),
		errors.Is(err, allocation.ErrInvalidItem),
		errors.Is(err, allocation.ErrUnknownCurrency):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case errors.Is(err, allocation.ErrDegenerateCart):
		return pkgerrors.Wrap(pkgerrors.CodeUnprocessable, err, err.Error())
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocation failed")
	}
}

func toAllocationResponse(currency string, output *quotes.QuoteOutput) allocationResponse {
	records := make([]allocationRecordResponse, 0, len(output.Result.Records))
	for _, rec := range output.Result.Records {
		records = append(records, allocationRecordResponse{
			ItemID:           rec.ItemID,
			OriginalAmount:   rec.OriginalAmount,
			DiscountAmount:   rec.DiscountAmount,
			DiscountedAmount: rec.DiscountedAmount,
		})
	}
	return allocationResponse{
		Records:       records,
		Subtotal:      output.Result.Subtotal,
		TotalDiscount: output.Result.TotalDiscount,
		Currency:      currency,
		Signature:     string(output.Signature),
		CacheHit:      output.CacheHit,
	}
}
