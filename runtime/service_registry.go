// Package runtime manages the lifecycles of the long-running services that
// make up the dashboard backend process.
package runtime

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "registry")

// Service is a long-running component of the dashboard process, such as the
// aggregator, the refresh scheduler, or the HTTP gateway.
type Service interface {
	// Start spawns any goroutines required by the service.
	Start()
	// Stop terminates all goroutines belonging to the service,
	// blocking until they are all terminated.
	Stop() error
	// Status returns error if the service is not considered healthy.
	Status() error
}

// ServiceStatus is the health of a single registered service.
type ServiceStatus struct {
	Type reflect.Type
	Err  error
}

// ServiceRegistry keeps one instance of each service type, starts them in
// registration order and stops them in reverse, so that consumers shut down
// before the components they depend on.
type ServiceRegistry struct {
	services     map[reflect.Type]Service
	serviceTypes []reflect.Type // registration order.
}

// NewServiceRegistry starts a registry instance for convenience.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}
}

// StartAll initializes each service in order of registration.
func (s *ServiceRegistry) StartAll() {
	log.Debugf("Starting %d services: %v", len(s.serviceTypes), s.serviceTypes)
	for _, kind := range s.serviceTypes {
		log.Debugf("Starting service type %v", kind)
		go s.services[kind].Start()
	}
}

// StopAll ends every service in reverse order of registration, logging an
// error if any of them fail to stop.
func (s *ServiceRegistry) StopAll() {
	for i := len(s.serviceTypes) - 1; i >= 0; i-- {
		kind := s.serviceTypes[i]
		if err := s.services[kind].Stop(); err != nil {
			log.WithError(err).Errorf("Could not stop service %v", kind)
		}
	}
}

// Statuses reports the health of every registered service in registration
// order, which keeps /healthz output stable between calls.
func (s *ServiceRegistry) Statuses() []ServiceStatus {
	statuses := make([]ServiceStatus, 0, len(s.serviceTypes))
	for _, kind := range s.serviceTypes {
		statuses = append(statuses, ServiceStatus{Type: kind, Err: s.services[kind].Status()})
	}
	return statuses
}

// RegisterService stores the service under its concrete type. Only one
// service per type may be registered.
func (s *ServiceRegistry) RegisterService(service Service) error {
	kind := reflect.TypeOf(service)
	if _, exists := s.services[kind]; exists {
		return fmt.Errorf("service already exists: %v", kind)
	}
	s.services[kind] = service
	s.serviceTypes = append(s.serviceTypes, kind)
	return nil
}

// FetchService takes in a struct pointer and sets the value of that pointer
// to a service currently stored in the registry, so that dependents share the
// originally registered instance.
func (s *ServiceRegistry) FetchService(service interface{}) error {
	if reflect.TypeOf(service).Kind() != reflect.Ptr {
		return fmt.Errorf("input must be of pointer type, received value type instead: %T", service)
	}
	element := reflect.ValueOf(service).Elem()
	if running, ok := s.services[element.Type()]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return fmt.Errorf("unknown service: %T", service)
}
