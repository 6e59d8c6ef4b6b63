package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

// MockExtractor is a mock implementation of Extractor for testing
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, image domain.Image, prompt string) ([]domain.ExtractedRecord, error) {
	args := m.Called(ctx, image, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedRecord), args.Error(1)
}

// MockRecordAppender is a mock implementation of RecordAppender for testing
type MockRecordAppender struct {
	mock.Mock
}

func (m *MockRecordAppender) AppendRecords(ctx context.Context, orderID string, records []domain.ExtractedRecord) (*domain.Order, error) {
	args := m.Called(ctx, orderID, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func images(names ...string) []domain.Image {
	out := make([]domain.Image, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Image{Name: n, ContentType: "image/png", Data: []byte(n)})
	}
	return out
}

func TestExtractInto_AllImages(t *testing.T) {
	extractor := new(MockExtractor)
	orders := new(MockRecordAppender)
	svc := NewExtractionService(extractor, orders, zerolog.Nop())
	ctx := context.Background()
	imgs := images("a.png", "b.png")

	first := []domain.ExtractedRecord{{OrderNumber: "1"}, {OrderNumber: "2"}}
	second := []domain.ExtractedRecord{{OrderNumber: "3"}}

	extractor.On("Extract", ctx, imgs[0], DefaultPrompt).Return(first, nil).Once()
	extractor.On("Extract", ctx, imgs[1], DefaultPrompt).Return(second, nil).Once()
	orders.On("AppendRecords", ctx, "order-1", first).Return(&domain.Order{ID: "order-1"}, nil).Once()
	orders.On("AppendRecords", ctx, "order-1", second).Return(&domain.Order{ID: "order-1", ExtractedRecords: append(first, second...)}, nil).Once()

	res, err := svc.ExtractInto(ctx, "order-1", imgs)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 3, res.Appended)
	assert.Len(t, res.Order.ExtractedRecords, 3)
	extractor.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestExtractInto_FailFastKeepsEarlierRecords(t *testing.T) {
	extractor := new(MockExtractor)
	orders := new(MockRecordAppender)
	svc := NewExtractionService(extractor, orders, zerolog.Nop())
	ctx := context.Background()
	imgs := images("a.png", "b.png", "c.png")

	first := []domain.ExtractedRecord{{OrderNumber: "1"}}
	extractor.On("Extract", ctx, imgs[0], DefaultPrompt).Return(first, nil).Once()
	extractor.On("Extract", ctx, imgs[1], DefaultPrompt).Return(nil, errors.New("model overloaded")).Once()
	orders.On("AppendRecords", ctx, "order-1", first).Return(&domain.Order{ID: "order-1"}, nil).Once()

	res, err := svc.ExtractInto(ctx, "order-1", imgs)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.png")
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Appended)
	extractor.AssertNotCalled(t, "Extract", ctx, imgs[2], DefaultPrompt)
	orders.AssertNumberOfCalls(t, "AppendRecords", 1)
}

func TestExtractInto_RegisteredOrderStopsBatch(t *testing.T) {
	extractor := new(MockExtractor)
	orders := new(MockRecordAppender)
	svc := NewExtractionService(extractor, orders, zerolog.Nop())
	ctx := context.Background()
	imgs := images("a.png", "b.png")

	records := []domain.ExtractedRecord{{OrderNumber: "1"}}
	extractor.On("Extract", ctx, imgs[0], DefaultPrompt).Return(records, nil).Once()
	orders.On("AppendRecords", ctx, "order-1", records).Return(nil, domain.ErrExecutionRegistered).Once()

	res, err := svc.ExtractInto(ctx, "order-1", imgs)

	assert.ErrorIs(t, err, domain.ErrExecutionRegistered)
	assert.Zero(t, res.Processed)
	extractor.AssertNumberOfCalls(t, "Extract", 1)
}

func TestExtractInto_NoImages(t *testing.T) {
	svc := NewExtractionService(new(MockExtractor), new(MockRecordAppender), zerolog.Nop())

	_, err := svc.ExtractInto(context.Background(), "order-1", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractInto_CancelledContext(t *testing.T) {
	extractor := new(MockExtractor)
	svc := NewExtractionService(extractor, new(MockRecordAppender), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ExtractInto(ctx, "order-1", images("a.png"))

	assert.ErrorIs(t, err, context.Canceled)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}
