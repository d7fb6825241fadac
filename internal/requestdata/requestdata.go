package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the identity resolved for one request. SessionID is always
// set; UserID is uuid.Nil for guest traffic.
type RequestData struct {
	SessionID string
	UserID    uuid.UUID
	Role      string
}

func (rd *RequestData) IsGuest() bool {
	return rd == nil || rd.UserID == uuid.Nil
}
