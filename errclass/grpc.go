package errclass

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fromGRPC maps a gRPC status error to a classified error. The second
// return is false when err carries no gRPC status.
func fromGRPC(err error) (*Error, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	var kind Kind
	switch st.Code() {
	case codes.InvalidArgument, codes.OutOfRange:
		kind = Validation
	case codes.DeadlineExceeded:
		kind = Timeout
	case codes.ResourceExhausted:
		kind = RateLimited
	case codes.Unavailable:
		kind = ServiceUnavailable
	case codes.Unauthenticated:
		kind = AuthFailure
	case codes.PermissionDenied:
		kind = PermissionDenied
	case codes.NotFound:
		kind = NotFound
	default:
		kind = Internal
	}
	return Wrap(err, kind, st.Message()), true
}
