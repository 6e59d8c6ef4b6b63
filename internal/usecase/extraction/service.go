package extraction

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

// DefaultPrompt asks the extractor for broker order confirmations in ExtractedRecord shape
const DefaultPrompt = `Extract every executed order shown in this screenshot of a broker order history.
Return a JSON array. Each element must have exactly these string fields:
orderNumber, type, filledQuantity, icebergValue, averagePrice, conditions, fee, total, creationDate, updateDate.
Copy numbers and currency codes exactly as displayed, including thousands and decimal separators.
Use an empty string for any field that is not visible. Return [] when no orders are visible.`

// RecordAppender stores extracted records on an order; OrderService implements it
type RecordAppender interface {
	AppendRecords(ctx context.Context, orderID string, records []domain.ExtractedRecord) (*domain.Order, error)
}

// Result reports how far a batch got
type Result struct {
	Order     *domain.Order
	Processed int // Images whose records were appended
	Appended  int // Records appended across all processed images
}

// ExtractionService runs uploaded images through an Extractor and files the records on an order
type ExtractionService struct {
	Extractor domain.Extractor
	Orders    RecordAppender
	Prompt    string
	log       zerolog.Logger
}

// NewExtractionService creates a new ExtractionService instance
func NewExtractionService(extractor domain.Extractor, orders RecordAppender, log zerolog.Logger) *ExtractionService {
	return &ExtractionService{
		Extractor: extractor,
		Orders:    orders,
		Prompt:    DefaultPrompt,
		log:       log.With().Str("component", "extraction").Logger(),
	}
}

// ExtractInto processes images one at a time, appending each image's records before
// moving to the next. The first failure stops the batch; records appended by earlier
// images are kept and reported in the returned Result.
func (s *ExtractionService) ExtractInto(ctx context.Context, orderID string, images []domain.Image) (Result, error) {
	if len(images) == 0 {
		return Result{}, fmt.Errorf("%w: no images given", domain.ErrInvalidInput)
	}

	var res Result
	for i, image := range images {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		records, err := s.Extractor.Extract(ctx, image, s.Prompt)
		if err != nil {
			s.log.Error().Err(err).
				Str("order_id", orderID).
				Str("file", image.Name).
				Int("remaining", len(images)-i-1).
				Msg("Extraction failed, aborting batch")
			return res, fmt.Errorf("failed to extract %s: %w", image.Name, err)
		}

		order, err := s.Orders.AppendRecords(ctx, orderID, records)
		if err != nil {
			return res, fmt.Errorf("failed to append records from %s: %w", image.Name, err)
		}

		res.Order = order
		res.Processed++
		res.Appended += len(records)
		s.log.Info().
			Str("order_id", orderID).
			Str("file", image.Name).
			Int("records", len(records)).
			Msg("Records extracted")
	}

	return res, nil
}
