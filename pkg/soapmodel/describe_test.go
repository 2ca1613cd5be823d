package soapmodel

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderService struct {
	MessageHeaders fakeHeaders
}

type fakeHeaders struct {
	Action string
}

func (s *orderService) PlaceOrder(ctx context.Context, id int, note string) (string, error) {
	return "", nil
}

func (s *orderService) CancelOrder(ctx context.Context, id int, reason *string) error {
	return nil
}

func (s *orderService) Ping() {}

func TestDescribe_Basics(t *testing.T) {
	sd, err := Describe(&orderService{},
		WithNamespace("http://example.com/orders"),
		WithOperation("PlaceOrder", OperationConfig{ParamNames: []string{"id", "note"}}),
	)
	require.NoError(t, err)
	require.Len(t, sd.Contracts, 1)

	contract := sd.Contracts[0]
	assert.Equal(t, "orderService", contract.Name)
	assert.Equal(t, "http://example.com/orders", contract.Namespace)
	require.Len(t, contract.Operations, 3)

	var place *OperationDescription
	for _, op := range contract.Operations {
		if op.Name == "PlaceOrder" {
			place = op
		}
	}
	require.NotNil(t, place)
	assert.Equal(t, "http://example.com/orders/orderService/PlaceOrder", place.SoapAction)
	assert.Equal(t, "http://example.com/orders/orderService/PlaceOrderResponse", place.ReplyAction)
	assert.Equal(t, "PlaceOrderResponse", place.ResponseName)
	assert.True(t, place.HasContext)
	assert.True(t, place.ReturnsError)
	assert.Equal(t, []string{"PlaceOrderResult"}, place.ReturnNames)

	require.Len(t, place.Parameters, 2)
	assert.Equal(t, "id", place.Parameters[0].Name)
	assert.Equal(t, DirectionIn, place.Parameters[0].Direction)
	assert.Equal(t, "note", place.Parameters[1].Name)
	assert.Equal(t, DirectionIn, place.Parameters[1].Direction)
}

func TestDescribe_PointerParamsAreInOut(t *testing.T) {
	sd, err := Describe(&orderService{},
		WithOperation("CancelOrder", OperationConfig{ParamNames: []string{"id", "reason"}}),
	)
	require.NoError(t, err)

	var cancel *OperationDescription
	for _, op := range sd.Contracts[0].Operations {
		if op.Name == "CancelOrder" {
			cancel = op
		}
	}
	require.NotNil(t, cancel)
	assert.Equal(t, DirectionInOut, cancel.Parameters[1].Direction)
	assert.Len(t, cancel.OutParameters(), 1)
}

func TestDescribe_OutParamsByName(t *testing.T) {
	sd, err := Describe(&orderService{},
		WithOperation("CancelOrder", OperationConfig{
			ParamNames: []string{"id", "reason"},
			OutParams:  []string{"reason"},
		}),
	)
	require.NoError(t, err)

	for _, op := range sd.Contracts[0].Operations {
		if op.Name == "CancelOrder" {
			assert.Equal(t, DirectionOut, op.Parameters[1].Direction)
		}
	}
}

func TestDescribe_Excluded(t *testing.T) {
	sd, err := Describe(&orderService{}, WithOperationExcluded("Ping", "CancelOrder"))
	require.NoError(t, err)
	require.Len(t, sd.Contracts[0].Operations, 1)
	assert.Equal(t, "PlaceOrder", sd.Contracts[0].Operations[0].Name)
}

func TestDescribe_NilService(t *testing.T) {
	_, err := Describe(nil)
	assert.ErrorIs(t, err, ErrNilService)
}

func TestDescribe_DuplicateAction(t *testing.T) {
	_, err := Describe(&orderService{},
		WithOperation("PlaceOrder", OperationConfig{Action: "urn:op"}),
		WithOperation("CancelOrder", OperationConfig{Action: "urn:op"}),
	)
	assert.ErrorIs(t, err, ErrDuplicateAction)
}

func TestDescribe_HeaderSink(t *testing.T) {
	sd, err := Describe(&orderService{},
		WithHeaderSinkType(reflect.TypeOf(fakeHeaders{})))
	require.NoError(t, err)
	assert.NotEmpty(t, sd.HeaderSink)

	// A mismatched sink type finds nothing.
	sd, err = Describe(&orderService{},
		WithHeaderSinkType(reflect.TypeOf(struct{ X int }{})))
	require.NoError(t, err)
	assert.Empty(t, sd.HeaderSink)
}

func TestDeriveAction(t *testing.T) {
	assert.Equal(t, "http://ns/Svc/Op", DeriveAction("http://ns/", "Svc", "Op"))
	assert.Equal(t, "http://ns/Svc/Op", DeriveAction("http://ns", "Svc", "Op"))
}

func TestTrimAction(t *testing.T) {
	assert.Equal(t, "http://ns/Op", TrimAction(`  "http://ns/Op" `))
	assert.Equal(t, "Op", TrimAction("Op"))
}

func TestTrimAndClearAction(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		namespace string
		want      string
	}{
		{"full action", "http://ns/Svc/Op", "http://ns/", "Op"},
		{"quoted", `"http://ns/Svc/Op"`, "http://ns", "Op"},
		{"bare", "Op", "http://ns/", "Op"},
		{"foreign namespace", "http://other/Op", "http://ns/", "Op"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimAndClearAction(tt.action, tt.namespace))
		})
	}
}
