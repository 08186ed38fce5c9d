package services

import (
	"sync"
	"time"
)

// ServiceStatus represents the current state of a background service
type ServiceStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Running     bool      `json:"running"`
	Interval    string    `json:"interval"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
	LastError   string    `json:"last_error,omitempty"`
	RunCount    int64     `json:"run_count"`
	// Progress tracking
	Progress        int    `json:"progress"` // 0-100 percentage
	ProgressMessage string `json:"progress_message"`
	ItemsProcessed  int    `json:"items_processed"`
	ItemsTotal      int    `json:"items_total"`
}

// ServiceScheduler tracks background job status for the operator endpoint.
// Diagnostic only; it drives no control flow.
type ServiceScheduler struct {
	services map[string]*ServiceStatus
	mu       sync.RWMutex
}

// Service name constants
const (
	ServicePopulate = "rating_population"
)

// NewServiceScheduler creates a new service scheduler
func NewServiceScheduler() *ServiceScheduler {
	s := &ServiceScheduler{
		services: make(map[string]*ServiceStatus),
	}
	s.Register(ServicePopulate, "Warms the rating cache from popular catalog pages", 24*time.Hour)
	return s
}

// Register adds a new service to track
func (s *ServiceScheduler) Register(name, description string, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[name] = &ServiceStatus{
		Name:        name,
		Description: description,
		Interval:    interval.String(),
		NextRun:     time.Now().Add(interval),
	}
}

// MarkRunning marks a service as currently running
func (s *ServiceScheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, exists := s.services[name]; exists {
		svc.Running = true
	}
}

// MarkComplete marks a service run as complete
func (s *ServiceScheduler) MarkComplete(name string, err error, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, exists := s.services[name]; exists {
		svc.Running = false
		svc.LastRun = time.Now()
		svc.NextRun = time.Now().Add(interval)
		svc.RunCount++
		svc.Progress = 0
		svc.ProgressMessage = ""
		svc.ItemsProcessed = 0
		svc.ItemsTotal = 0
		if err != nil {
			svc.LastError = err.Error()
		} else {
			svc.LastError = ""
		}
	}
}

// UpdateProgress updates the progress of a running service
func (s *ServiceScheduler) UpdateProgress(name string, processed, total int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, exists := s.services[name]; exists {
		svc.ItemsProcessed = processed
		svc.ItemsTotal = total
		svc.ProgressMessage = message
		if total > 0 {
			svc.Progress = (processed * 100) / total
			if svc.Progress > 100 {
				svc.Progress = 100
			}
		}
	}
}

// GetStatus returns a copy of the status of a specific service
func (s *ServiceScheduler) GetStatus(name string) *ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if svc, exists := s.services[name]; exists {
		copied := *svc
		return &copied
	}
	return nil
}

// GetAllStatus returns the status of all services
func (s *ServiceScheduler) GetAllStatus() []*ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]*ServiceStatus, 0, len(s.services))
	for _, svc := range s.services {
		copied := *svc
		statuses = append(statuses, &copied)
	}
	return statuses
}
