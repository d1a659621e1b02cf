package internal

import (
	"context"
	"net"
	"net/http/httptrace"
	"reflect"
)

// The context a caller passes in may carry net/http's ClientTrace, and
// net.Dialer fires the hooks it finds there. This client reports nothing
// through those hooks, so both trace keys are masked before dialing. The key
// types are unexported; they are captured by asking each package to look
// itself up in a recording context.
var stdNetTraceKey, stdHttpTraceKey interface{}

type keyRecorder struct {
	context.Context
	record func(reflect.Type)
}

func (c keyRecorder) Value(key interface{}) interface{} {
	c.record(reflect.TypeOf(key))
	return nil
}

func init() {
	var netKey, httpKey reflect.Type
	rec := keyRecorder{context.Background(), func(t reflect.Type) { netKey = t }}
	(&net.Dialer{}).DialContext(rec, "invalid", "")
	rec.record = func(t reflect.Type) { httpKey = t }
	httptrace.ContextClientTrace(rec)

	if netKey != nil {
		stdNetTraceKey = reflect.New(netKey).Elem().Interface()
	}
	if httpKey != nil {
		stdHttpTraceKey = reflect.New(httpKey).Elem().Interface()
	}
}

func shadowStandardClientTrace(ctx context.Context) context.Context {
	if stdHttpTraceKey != nil {
		ctx = context.WithValue(ctx, stdHttpTraceKey, nil)
	}
	if stdNetTraceKey != nil {
		ctx = context.WithValue(ctx, stdNetTraceKey, nil)
	}
	return ctx
}
