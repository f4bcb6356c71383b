package api

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"breezbook/internal/models"
	"breezbook/internal/service"
)

const (
	availabilityServiceName = "breezbook.availability.v1.AvailabilityService"
	methodGetAvailability   = "/" + availabilityServiceName + "/GetAvailability"
	methodListServices      = "/" + availabilityServiceName + "/ListServices"
)

// AvailabilityServer is the gRPC availability API. Requests and responses are
// google.protobuf.Struct documents shaped like the HTTP JSON bodies.
type AvailabilityServer interface {
	GetAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListServices(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailability", Handler: unaryHandler(methodGetAvailability, AvailabilityServer.GetAvailability)},
		{MethodName: "ListServices", Handler: unaryHandler(methodListServices, AvailabilityServer.ListServices)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "breezbook/availability/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AvailabilityService serves availability over gRPC.
type AvailabilityService struct {
	availability *service.AvailabilityService
	tenants      *service.TenantService
}

func NewAvailabilityService(availability *service.AvailabilityService, tenants *service.TenantService) *AvailabilityService {
	return &AvailabilityService{availability: availability, tenants: tenants}
}

// GetAvailability reads tenant_id, service_id, from, to and the optional
// addons and options strings ("wax:2,polish").
func (s *AvailabilityService) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenantID := stringField(req, "tenant_id")
	if tenantID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}
	serviceID := stringField(req, "service_id")
	if serviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "service_id is required")
	}
	if err := authorize(ctx, "", tenantID); err != nil {
		return nil, grpcError(err)
	}

	from, to, err := parseRange(stringField(req, "from"), stringField(req, "to"))
	if err != nil {
		return nil, grpcError(err)
	}
	addOns, err := parseAddOns(stringField(req, "addons"))
	if err != nil {
		return nil, grpcError(err)
	}
	options, err := parseOptions(stringField(req, "options"))
	if err != nil {
		return nil, grpcError(err)
	}

	res, err := s.availability.GetAvailability(ctx, models.TenantID(tenantID), service.AvailabilityQuery{
		ServiceID: models.ServiceID(serviceID),
		From:      from,
		To:        to,
		AddOns:    addOns,
		Options:   options,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(newAvailabilityResponse(res))
}

// ListServices returns the services of tenant_id with their duration and base price.
func (s *AvailabilityService) ListServices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenantID := stringField(req, "tenant_id")
	if tenantID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}
	if err := authorize(ctx, "", tenantID); err != nil {
		return nil, grpcError(err)
	}

	tenant, err := s.tenants.Load(ctx, models.TenantID(tenantID))
	if err != nil {
		return nil, grpcError(err)
	}

	type serviceItem struct {
		ID              string       `json:"id"`
		Name            string       `json:"name"`
		DurationMinutes int          `json:"duration_minutes"`
		Price           models.Money `json:"price"`
	}
	items := make([]serviceItem, 0, len(tenant.Config.Services))
	for _, svc := range tenant.Config.Services {
		items = append(items, serviceItem{
			ID:              string(svc.ID),
			Name:            svc.Name,
			DurationMinutes: int(svc.Duration.Minutes()),
			Price:           svc.Price,
		})
	}
	return toStruct(map[string]any{"tenant_id": tenantID, "services": items})
}

func stringField(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.GetFields()[name].GetStringValue())
}

// toStruct converts a JSON-tagged value into a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
