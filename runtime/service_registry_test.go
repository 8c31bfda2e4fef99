package runtime

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	status error
}
type secondMockService struct {
	status error
}

func (_ *mockService) Start() {
}

func (_ *mockService) Stop() error {
	return nil
}

func (m *mockService) Status() error {
	return m.status
}

func (_ *secondMockService) Start() {
}

func (_ *secondMockService) Stop() error {
	return nil
}

func (s *secondMockService) Status() error {
	return s.status
}

func TestRegisterService_Twice(t *testing.T) {
	registry := &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}

	m := &mockService{}
	require.NoError(t, registry.RegisterService(m), "Failed to register first service")

	require.Equal(t, 1, len(registry.serviceTypes))
	assert.ErrorContains(t, registry.RegisterService(m), "service already exists")
}

func TestRegisterService_Different(t *testing.T) {
	registry := &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}

	m := &mockService{}
	s := &secondMockService{}
	require.NoError(t, registry.RegisterService(m), "Failed to register first service")
	require.NoError(t, registry.RegisterService(s), "Failed to register second service")

	require.Equal(t, 2, len(registry.serviceTypes))

	_, exists := registry.services[reflect.TypeOf(m)]
	assert.True(t, exists, "service of type %v not registered", reflect.TypeOf(m))

	_, exists = registry.services[reflect.TypeOf(s)]
	assert.True(t, exists, "service of type %v not registered", reflect.TypeOf(s))
}

func TestFetchService_OK(t *testing.T) {
	registry := &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}

	m := &mockService{}
	require.NoError(t, registry.RegisterService(m), "Failed to register first service")

	assert.ErrorContains(t, registry.FetchService(*m), "input must be of pointer type")

	var s *secondMockService
	assert.ErrorContains(t, registry.FetchService(&s), "unknown service")

	var m2 *mockService
	require.NoError(t, registry.FetchService(&m2))
	assert.Equal(t, m, m2, "fetched service pointer not equal to the registered one")
}

func TestServiceStatus_OK(t *testing.T) {
	registry := &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}

	m := &mockService{}
	s := &secondMockService{}
	require.NoError(t, registry.RegisterService(m), "Failed to register first service")
	require.NoError(t, registry.RegisterService(s), "Failed to register second service")

	m.status = errors.New("something bad has happened")
	statuses := registry.Statuses()

	require.Len(t, statuses, 2)
	assert.Equal(t, reflect.TypeOf(m), statuses[0].Type)
	assert.Equal(t, m.status, statuses[0].Err)
	assert.Equal(t, reflect.TypeOf(s), statuses[1].Type)
	assert.NoError(t, statuses[1].Err)
}
