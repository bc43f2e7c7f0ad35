package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
	pb "pizzeria-service/pkg/grpc/kitchen/v1"
)

// requestIDHeader - метаданные, в которых клиент может передать свой request id.
const requestIDHeader = "x-request-id"

type Server struct {
	pb.UnimplementedKitchenServiceServer

	log      *slog.Logger
	orders   domain.AdminOrderService
	grpcServ *grpc.Server
	health   *health.Server
	port     string
	lis      net.Listener
}

func NewServer(log *slog.Logger, orders domain.AdminOrderService, port string) *Server {
	grpcServerInstance := grpc.NewServer(grpc.ChainUnaryInterceptor(requestIDInterceptor))
	healthServer := health.NewServer()

	s := &Server{
		log:      log,
		orders:   orders,
		grpcServ: grpcServerInstance,
		health:   healthServer,
		port:     port,
	}

	pb.RegisterKitchenServiceServer(grpcServerInstance, s)
	healthpb.RegisterHealthServer(grpcServerInstance, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(pb.KitchenService_ServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// requestIDInterceptor кладёт request id в контекст так же, как HTTP middleware.
func requestIDInterceptor(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	reqID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(requestIDHeader); len(values) > 0 {
			reqID = values[0]
		}
	}
	if reqID == "" {
		reqID = uuid.New().String()
	}
	return handler(context.WithValue(ctx, middleware.RequestIDKey, reqID), req)
}

func (s *Server) ListActiveOrders(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	const op = "GRPCServer.ListActiveOrders"

	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	orders, err := s.orders.ListActiveOrders(ctx)
	if err != nil {
		log.Error("Failed to list active orders", slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve active orders")
	}

	values := make([]interface{}, 0, len(orders))
	for _, order := range orders {
		values = append(values, orderToMap(order))
	}

	list, err := structpb.NewList(values)
	if err != nil {
		log.Error("Failed to encode orders", slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to encode orders")
	}

	log.Debug("Active orders listed", slog.Int("count", len(orders)))
	return list, nil
}

func (s *Server) GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	const op = "GRPCServer.GetOrder"

	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	orderID, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "order id must be a UUID")
	}

	details, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "order %s not found", orderID)
		}
		log.Error("Failed to get order", slog.String("order_id", orderID.String()), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve order")
	}

	fields := orderToMap(details.Order)
	if details.Payment != nil {
		fields["paymentStatus"] = string(details.Payment.Status)
	}
	if details.Customer != nil {
		fields["customer"] = map[string]interface{}{
			"name":  details.Customer.Name,
			"phone": details.Customer.Phone,
		}
	}

	result, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error("Failed to encode order", slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to encode order")
	}
	return result, nil
}

// orderToMap переводит заказ в значения, допустимые для structpb. Деньги передаются строкой.
func orderToMap(order domain.Order) map[string]interface{} {
	items := make([]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"productName": item.ProductName,
			"variantName": item.VariantName,
			"quantity":    item.Quantity,
			"unitPrice":   item.UnitPrice.StringFixed(2),
			"lineTotal":   item.LineTotal.StringFixed(2),
		})
	}

	var deliveryAt interface{}
	if order.DeliveryAt != nil {
		deliveryAt = order.DeliveryAt.UTC().Format(time.RFC3339)
	}

	return map[string]interface{}{
		"id":          order.ID.String(),
		"status":      string(order.Status),
		"total":       order.Total.StringFixed(2),
		"addressLine": order.AddressLine,
		"comment":     order.Comment,
		"deliveryAt":  deliveryAt,
		"createdAt":   order.CreatedAt.UTC().Format(time.RFC3339),
		"items":       items,
	}
}

func (s *Server) Start() error {
	const op = "GRPCServer.Start"
	log := s.log.With(slog.String("op", op))

	address := ":" + s.port
	lis, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("Failed to listen on gRPC port", slog.String("address", address), slog.String("error", err.Error()))
		return fmt.Errorf("failed to listen on gRPC port %s: %w", s.port, err)
	}

	return s.Serve(lis)
}

// Serve обслуживает готовый listener. В тестах сюда передаётся bufconn.
func (s *Server) Serve(lis net.Listener) error {
	const op = "GRPCServer.Serve"
	log := s.log.With(slog.String("op", op))

	s.lis = lis
	log.Info("Starting gRPC server listener", slog.String("address", lis.Addr().String()))

	if err := s.grpcServ.Serve(lis); err != nil {
		log.Error("gRPC server Serve failed", slog.String("error", err.Error()))
		return fmt.Errorf("gRPC server failed to serve: %w", err)
	}

	log.Info("gRPC server has stopped serving")
	return nil
}

func (s *Server) Stop() {
	const op = "GRPCServer.Stop"
	log := s.log.With(slog.String("op", op))
	log.Info("Stopping gRPC server gracefully...")

	s.health.Shutdown()
	s.grpcServ.GracefulStop()

	if s.lis != nil {
		_ = s.lis.Close()
	}

	log.Info("gRPC server stopped")
}
