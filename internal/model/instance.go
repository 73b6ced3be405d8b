package model

import (
	"strconv"
	"sync/atomic"
)

// Instance is a single, immutable remote endpoint within a ServiceData
// snapshot. Instances are never mutated in place; a change to an instance's
// metadata or weight is published by constructing a new ServiceData snapshot
// that contains a replacement Instance value.
type Instance struct {
	ID       string
	Host     string
	Port     int
	Weight   int
	Metadata map[string]string
}

// Endpoint returns the "host:port" form used by detectors and net clients.
func (i Instance) Endpoint() string {
	if i.Host == "" {
		return ""
	}
	return i.Host + ":" + strconv.Itoa(i.Port)
}

// ServiceData is an ordered, immutable snapshot of a service's instances
// plus a revision token. It is shared by many readers; each reader retains
// it for the duration of a read critical section via Retain/Release so the
// owning rcu.Map knows when it is safe to reclaim a superseded snapshot.
type ServiceData struct {
	Service   string
	Revision  string
	Instances []Instance

	refCount int32
}

// NewServiceData constructs a snapshot with an initial reference count of
// zero. The rcu.Map never calls Retain or Release itself; references are
// taken by readers such as Runtime.LookupService.
func NewServiceData(service, revision string, instances []Instance) *ServiceData {
	return &ServiceData{Service: service, Revision: revision, Instances: instances}
}

// Retain increments the reference count. Safe for concurrent use.
func (s *ServiceData) Retain() { atomic.AddInt32(&s.refCount, 1) }

// Release decrements the reference count. It does not free anything itself
// — the rcu.Map's garbage collector decides reclamation based on reader
// epochs, not on the refcount reaching zero; the refcount exists for
// observability/leak-detection, not as the reclamation trigger itself.
func (s *ServiceData) Release() { atomic.AddInt32(&s.refCount, -1) }

// RefCount returns the current reference count, primarily for tests.
func (s *ServiceData) RefCount() int32 { return atomic.LoadInt32(&s.refCount) }
