package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	BookingEngineServiceName = "agenda.v1.BookingEngine"
	SchedulePanelServiceName = "agenda.v1.SchedulePanel"
)

// BookingEngineServer is the public customer-facing API.
type BookingEngineServer interface {
	GetAvailableDays(ctx context.Context, req *GetAvailableDaysRequest) (*GetAvailableDaysResponse, error)
	GetMonthAvailability(ctx context.Context, req *GetMonthAvailabilityRequest) (*GetMonthAvailabilityResponse, error)
	GetAvailableSlots(ctx context.Context, req *GetAvailableSlotsRequest) (*GetAvailableSlotsResponse, error)
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error)
}

// SchedulePanelServer is the owner-facing API. It is only reachable by
// collaborators, never by the public booking page.
type SchedulePanelServer interface {
	UpsertScheduleConfig(ctx context.Context, req *UpsertScheduleConfigRequest) (*UpsertScheduleConfigResponse, error)
	SetWeeklyOverride(ctx context.Context, req *SetWeeklyOverrideRequest) (*SetWeeklyOverrideResponse, error)
	AddRecurringBlock(ctx context.Context, req *AddRecurringBlockRequest) (*AddRecurringBlockResponse, error)
	AddDateRangeBlock(ctx context.Context, req *AddDateRangeBlockRequest) (*AddDateRangeBlockResponse, error)
	DeleteBlock(ctx context.Context, req *DeleteBlockRequest) (*DeleteBlockResponse, error)
	UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest) (*UpdateBookingStatusResponse, error)
	ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error)
	InvalidateOwnerCache(ctx context.Context, req *InvalidateOwnerCacheRequest) (*InvalidateOwnerCacheResponse, error)
}

func RegisterBookingEngineServer(s grpc.ServiceRegistrar, srv BookingEngineServer) {
	s.RegisterService(&bookingEngineDesc, srv)
}

func RegisterSchedulePanelServer(s grpc.ServiceRegistrar, srv SchedulePanelServer) {
	s.RegisterService(&schedulePanelDesc, srv)
}

var bookingEngineDesc = grpc.ServiceDesc{
	ServiceName: BookingEngineServiceName,
	HandlerType: (*BookingEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(BookingEngineServiceName, "GetAvailableDays", BookingEngineServer.GetAvailableDays),
		unaryMethod(BookingEngineServiceName, "GetMonthAvailability", BookingEngineServer.GetMonthAvailability),
		unaryMethod(BookingEngineServiceName, "GetAvailableSlots", BookingEngineServer.GetAvailableSlots),
		unaryMethod(BookingEngineServiceName, "CreateBooking", BookingEngineServer.CreateBooking),
	},
	Metadata: "agenda/v1/agenda.json",
}

var schedulePanelDesc = grpc.ServiceDesc{
	ServiceName: SchedulePanelServiceName,
	HandlerType: (*SchedulePanelServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(SchedulePanelServiceName, "UpsertScheduleConfig", SchedulePanelServer.UpsertScheduleConfig),
		unaryMethod(SchedulePanelServiceName, "SetWeeklyOverride", SchedulePanelServer.SetWeeklyOverride),
		unaryMethod(SchedulePanelServiceName, "AddRecurringBlock", SchedulePanelServer.AddRecurringBlock),
		unaryMethod(SchedulePanelServiceName, "AddDateRangeBlock", SchedulePanelServer.AddDateRangeBlock),
		unaryMethod(SchedulePanelServiceName, "DeleteBlock", SchedulePanelServer.DeleteBlock),
		unaryMethod(SchedulePanelServiceName, "UpdateBookingStatus", SchedulePanelServer.UpdateBookingStatus),
		unaryMethod(SchedulePanelServiceName, "ListBookings", SchedulePanelServer.ListBookings),
		unaryMethod(SchedulePanelServiceName, "InvalidateOwnerCache", SchedulePanelServer.InvalidateOwnerCache),
	},
	Metadata: "agenda/v1/agenda.json",
}

// unaryMethod builds the handler generated code would emit for one unary RPC.
func unaryMethod[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BookingEngineClient calls BookingEngine over a connection using the JSON codec.
type BookingEngineClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingEngineClient(cc grpc.ClientConnInterface) *BookingEngineClient {
	return &BookingEngineClient{cc: cc}
}

func (c *BookingEngineClient) GetAvailableDays(ctx context.Context, in *GetAvailableDaysRequest, opts ...grpc.CallOption) (*GetAvailableDaysResponse, error) {
	out := new(GetAvailableDaysResponse)
	return out, invoke(ctx, c.cc, BookingEngineServiceName, "GetAvailableDays", in, out, opts)
}

func (c *BookingEngineClient) GetMonthAvailability(ctx context.Context, in *GetMonthAvailabilityRequest, opts ...grpc.CallOption) (*GetMonthAvailabilityResponse, error) {
	out := new(GetMonthAvailabilityResponse)
	return out, invoke(ctx, c.cc, BookingEngineServiceName, "GetMonthAvailability", in, out, opts)
}

func (c *BookingEngineClient) GetAvailableSlots(ctx context.Context, in *GetAvailableSlotsRequest, opts ...grpc.CallOption) (*GetAvailableSlotsResponse, error) {
	out := new(GetAvailableSlotsResponse)
	return out, invoke(ctx, c.cc, BookingEngineServiceName, "GetAvailableSlots", in, out, opts)
}

func (c *BookingEngineClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*CreateBookingResponse, error) {
	out := new(CreateBookingResponse)
	return out, invoke(ctx, c.cc, BookingEngineServiceName, "CreateBooking", in, out, opts)
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, service, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...)
}
