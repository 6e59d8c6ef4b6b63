package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/splitpay-backend/internal/domain"
	"github.com/simaogato/splitpay-backend/internal/usecase/order"
)

// Server implements the SplitPayService gRPC server
type Server struct {
	OrderService *order.OrderService
}

var _ SplitPayServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(orderService *order.OrderService) *Server {
	return &Server{
		OrderService: orderService,
	}
}

type generateSplitRequest struct {
	Total      int64 `json:"total"`
	MaxPerPart int64 `json:"maxPerPart"`
}

type createOrderRequest struct {
	TotalAmount int64              `json:"totalAmount"`
	Links       []domain.SplitItem `json:"links"`
}

type orderRequest struct {
	OrderID string `json:"orderId"`
	Locale  string `json:"locale"`
}

type updateItemRequest struct {
	OrderID string  `json:"orderId"`
	ItemID  string  `json:"itemId"`
	Value   *int64  `json:"value"`
	LinkURL *string `json:"linkUrl"`
	IsPaid  *bool   `json:"isPaid"`
}

type aggregateRequest struct {
	Records []domain.ExtractedRecord `json:"records"`
	Locale  string                   `json:"locale"`
}

// GenerateSplit handles the GenerateSplit RPC
func (s *Server) GenerateSplit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in generateSplitRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	items, err := s.OrderService.GenerateSplit(in.Total, in.MaxPerPart)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(map[string]interface{}{"total": in.Total, "items": items})
}

// CreateOrder handles the CreateOrder RPC
func (s *Server) CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createOrderRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	created, err := s.OrderService.CreateOrder(ctx, in.TotalAmount, in.Links)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(created)
}

// GetOrder handles the GetOrder RPC
func (s *Server) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orderRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "orderId is required")
	}

	o, err := s.OrderService.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(o)
}

// ListOrders handles the ListOrders RPC
func (s *Server) ListOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orders, err := s.OrderService.ListOrders(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	return encodeResponse(map[string]interface{}{"orders": orders})
}

// UpdateItem handles the UpdateItem RPC
func (s *Server) UpdateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateItemRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	updated, err := s.OrderService.UpdateItem(ctx, in.OrderID, in.ItemID, order.ItemPatch{
		Value:   in.Value,
		LinkURL: in.LinkURL,
		IsPaid:  in.IsPaid,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(updated)
}

// AggregateRecords handles the AggregateRecords RPC
func (s *Server) AggregateRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in aggregateRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	return encodeResponse(s.OrderService.Aggregate(in.Records, parseLocale(in.Locale)))
}

// RegisterExecution handles the RegisterExecution RPC
func (s *Server) RegisterExecution(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orderRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	registered, err := s.OrderService.RegisterExecution(ctx, in.OrderID, parseLocale(in.Locale))
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(registered)
}

func parseLocale(tag string) domain.Locale {
	if tag == "" {
		return ""
	}
	return domain.ParseLocale(tag)
}

// maxExactInteger bounds the integers a Struct number carries without rounding
const maxExactInteger = 1<<53 - 1

// decodeRequest converts a Struct message into a request type through its JSON form.
// Numbers beyond maxExactInteger are rejected since the double encoding has already rounded them.
func decodeRequest(req *structpb.Struct, dst interface{}) error {
	for name, field := range req.GetFields() {
		if err := checkExactNumbers(field); err != nil {
			return status.Errorf(codes.InvalidArgument, "invalid request: field %q: %v", name, err)
		}
	}

	raw, err := req.MarshalJSON()
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func checkExactNumbers(v *structpb.Value) error {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if math.Abs(kind.NumberValue) > maxExactInteger {
			return fmt.Errorf("number %.0f exceeds the exact range of ±%d", kind.NumberValue, int64(maxExactInteger))
		}
	case *structpb.Value_StructValue:
		for _, field := range kind.StructValue.GetFields() {
			if err := checkExactNumbers(field); err != nil {
				return err
			}
		}
	case *structpb.Value_ListValue:
		for _, elem := range kind.ListValue.GetValues() {
			if err := checkExactNumbers(elem); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeResponse converts a value into a Struct message through its JSON form
func encodeResponse(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrAllocationUnresolvable):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrItemNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrExecutionRegistered):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
