package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/isajjim/estimator/internal/models"
	"github.com/isajjim/estimator/internal/utils"
)

// ErrNotFound is returned for unknown estimates and objects.
var ErrNotFound = errors.New("not found")

// EstimateStatus tracks an estimate through the stub analysis job.
type EstimateStatus string

const (
	StatusCreated   EstimateStatus = "CREATED"
	StatusAnalyzing EstimateStatus = "ANALYZING"
	StatusAnalyzed  EstimateStatus = "ANALYZED"
)

type Estimate struct {
	ID        int64
	ImageURLs []string
	Answers   *models.DetailAnswers
	Status    EstimateStatus
	Result    *models.AnalysisResult
	CreatedAt time.Time
}

func (e *Estimate) clone() *Estimate {
	out := *e
	out.ImageURLs = append([]string(nil), e.ImageURLs...)
	if e.Answers != nil {
		answers := *e.Answers
		out.Answers = &answers
	}
	if e.Result != nil {
		result := e.Result.Clone()
		out.Result = &result
	}
	return &out
}

type Object struct {
	ContentType string
	Data        []byte
	ETag        string
}

// Store keeps estimates and uploaded objects in memory.
type Store struct {
	estimates map[int64]*Estimate
	objects   map[string]Object
	nextID    int64
	mu        sync.RWMutex
}

func New() *Store {
	return &Store{
		estimates: make(map[int64]*Estimate),
		objects:   make(map[string]Object),
	}
}

// CreateEstimate stores a new estimate and assigns it the next id.
func (s *Store) CreateEstimate(imageURLs []string) *Estimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	estimate := &Estimate{
		ID:        s.nextID,
		ImageURLs: append([]string(nil), imageURLs...),
		Status:    StatusCreated,
		CreatedAt: time.Now(),
	}
	s.estimates[estimate.ID] = estimate
	return estimate.clone()
}

// Get returns a copy of the estimate.
func (s *Store) Get(id int64) (*Estimate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	estimate, exists := s.estimates[id]
	if !exists {
		return nil, false
	}
	return estimate.clone(), true
}

// Update applies fn to the stored estimate under the write lock. Changes are
// kept only when fn returns nil.
func (s *Store) Update(id int64, fn func(*Estimate) error) (*Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	estimate, exists := s.estimates[id]
	if !exists {
		return nil, ErrNotFound
	}
	working := estimate.clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.estimates[id] = working
	return working.clone(), nil
}

// GetAll returns a copy of every estimate keyed by id.
func (s *Store) GetAll() map[int64]*Estimate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]*Estimate, len(s.estimates))
	for k, v := range s.estimates {
		result[k] = v.clone()
	}
	return result
}

// PutObject stores data under key, replacing any previous object.
func (s *Store) PutObject(key, contentType string, data []byte) Object {
	obj := Object{
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		ETag:        utils.CalculateDataMD5(data),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = obj
	return obj
}

func (s *Store) GetObject(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, exists := s.objects[key]
	return obj, exists
}
