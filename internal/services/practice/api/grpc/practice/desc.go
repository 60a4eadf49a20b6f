package practice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mathly.practice.v1.PracticeService"

// Method names of ServiceName.
const (
	MethodFetchProblem    = "FetchProblem"
	MethodSubmitAnswer    = "SubmitAnswer"
	MethodUpgradeSector   = "UpgradeSector"
	MethodGetProgress     = "GetProgress"
	MethodListSectors     = "ListSectors"
	MethodListLeaderboard = "ListLeaderboard"
)

// FullMethod returns the "/service/method" path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// PracticeServer is the server API of ServiceName. Every message is a
// google.protobuf.Struct document.
type PracticeServer interface {
	FetchProblem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAnswer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpgradeSector(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProgress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSectors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLeaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PracticeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PracticeServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PracticeServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes ServiceName for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PracticeServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodFetchProblem, PracticeServer.FetchProblem),
		methodDesc(MethodSubmitAnswer, PracticeServer.SubmitAnswer),
		methodDesc(MethodUpgradeSector, PracticeServer.UpgradeSector),
		methodDesc(MethodGetProgress, PracticeServer.GetProgress),
		methodDesc(MethodListSectors, PracticeServer.ListSectors),
		methodDesc(MethodListLeaderboard, PracticeServer.ListLeaderboard),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mathly/practice/v1/practice.proto",
}

// RegisterPracticeServer registers srv with s.
func RegisterPracticeServer(s grpc.ServiceRegistrar, srv PracticeServer) {
	s.RegisterService(&ServiceDesc, srv)
}
