package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsErrorIsCompatibleWithSentinel(t *testing.T) {
	err := AsError(ErrInvalidConfig, "bad hex")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "bad hex")
}

func TestAsErrorOkReturnsNil(t *testing.T) {
	assert.NoError(t, AsError(ReturnOk, "anything"))
}

func TestReportCodeIsFailure(t *testing.T) {
	assert.False(t, ReportOk.IsFailure())
	assert.True(t, ReportError.IsFailure())
	assert.True(t, ReportTimeout.IsFailure())
}

func TestInstanceEndpoint(t *testing.T) {
	i := Instance{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", i.Endpoint())
}

func TestServiceDataRefCount(t *testing.T) {
	data := NewServiceData("svc", "rev1", []Instance{{ID: "i1"}})
	assert.Equal(t, int32(0), data.RefCount())
	data.Retain()
	data.Retain()
	assert.Equal(t, int32(2), data.RefCount())
	data.Release()
	assert.Equal(t, int32(1), data.RefCount())
}

func TestErrorCountStatusTransitions(t *testing.T) {
	s := NewErrorCountStatus(100)
	assert.Equal(t, Closed, s.State())
	assert.True(t, s.CompareAndSwapState(Closed, Open))
	assert.False(t, s.CompareAndSwapState(Closed, HalfOpen), "CAS must fail once state has already moved")
	assert.Equal(t, Open, s.State())
}
