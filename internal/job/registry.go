package job

import (
	"sort"
	"sync"
	"time"
)

// Registry is an in-memory job store. All methods are safe for
// concurrent use; reads return copies so callers never observe a
// record mid-update.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create stores a new job record.
func (r *Registry) Create(j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = r.now()
	}
	r.jobs[j.ID] = &j
}

// Get returns a copy of the job, if present.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Update applies fn to the job under the registry lock. It returns
// false if the job does not exist. A transition into a terminal status
// stamps CompletedAt.
func (r *Registry) Update(id string, fn func(*Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	if j.Status.Terminal() && j.CompletedAt == nil {
		t := r.now()
		j.CompletedAt = &t
	}
	return true
}

// SetProgress moves the job to the given status with a progress message.
func (r *Registry) SetProgress(id string, status Status, progress string) bool {
	return r.Update(id, func(j *Job) {
		j.Status = status
		j.Progress = progress
	})
}

// Complete marks the job finished with its transcript and result file.
func (r *Registry) Complete(id, transcription, resultFile string) bool {
	return r.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = "Transcription completed successfully"
		j.Transcription = transcription
		j.ResultFile = resultFile
	})
}

// Fail marks the job failed with the given error message.
func (r *Registry) Fail(id, errMsg string) bool {
	return r.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Progress = "Error: " + errMsg
		j.Error = errMsg
	})
}

// List returns up to limit jobs sorted newest first, plus the total
// number of jobs in the registry. A non-positive limit returns all.
func (r *Registry) List(limit int) ([]Job, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, *j)
	}
	sort.Slice(all, func(i, k int) bool {
		if all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].ID > all[k].ID
		}
		return all[i].CreatedAt.After(all[k].CreatedAt)
	})

	total := len(all)
	if limit > 0 && limit < total {
		all = all[:limit]
	}
	return all, total
}

// Delete removes the job and returns its last state. Removal does not
// interrupt a run already in flight; the worker finishes against a
// record that is no longer visible.
func (r *Registry) Delete(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	delete(r.jobs, id)
	return *j, true
}
