package momo

import (
	"reflect"

	"github.com/brave-intl/momo-go/services/momo/events"
)

var (
	// APIResponseTypes - the request, response and event types clients of the service depend on,
	// json-schema is generated for each of them
	APIResponseTypes = []reflect.Type{
		reflect.TypeOf(InitiateRequest{}),
		reflect.TypeOf(InitiateResponse{}),
		reflect.TypeOf(VerifyResponse{}),
		reflect.TypeOf(StatusResponse{}),
		reflect.TypeOf(ListResponse{}),
		reflect.TypeOf(HealthResponse{}),
		reflect.TypeOf(events.Event{}),
	}
)
