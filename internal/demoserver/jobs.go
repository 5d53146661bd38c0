package demoserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/progress"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

// job is the backend-side record. Stage 0 is queued, stages 1..len(tools)
// run one tool each, and the stage after the last tool completes the job.
type job struct {
	id          string
	target      string
	tools       []string
	failAt      int
	stage       int
	status      jobstatus.Status
	findings    int
	createdAt   time.Time
	startedAt   time.Time
	completedAt *time.Time
}

// snapshot renders the job the way the status endpoint reports it. Running
// stages alternate between a bare numeric progress and a structured object so
// clients see both shapes.
func (j *job) snapshot() jobstatus.Snapshot {
	s := jobstatus.Snapshot{
		JobID:     j.id,
		Status:    j.status,
		Target:    j.target,
		Tools:     append([]string(nil), j.tools...),
		StartedAt: j.startedAt,
	}
	if j.status != jobstatus.StatusQueued {
		n := j.findings
		s.FindingsCount = &n
	}
	if j.completedAt != nil {
		end := *j.completedAt
		s.CompletedAt = &end
		d := end.Sub(j.startedAt).Seconds()
		s.Duration = &d
	}

	total := len(j.tools)
	done := j.stage - 1
	switch {
	case j.status == jobstatus.StatusQueued, j.status == jobstatus.StatusCompleted:
		// queued has nothing to report; completed leaves it to the client.
	case j.stage%2 == 1:
		s.Progress = progress.Numeric(float64(done) * 100 / float64(total))
	default:
		c, t := float64(done), float64(total)
		step := j.tools[min(done, total-1)]
		s.Progress = progress.FromStructured(progress.Structured{
			CurrentStep: &step,
			Completed:   &c,
			Total:       &t,
		})
	}
	return s
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Target string   `json:"target" example:"https://example.com"`
	Tools  []string `json:"tools" example:"subfinder,nuclei"`
	// FailAt makes the job fail when it reaches this 1-based tool.
	FailAt int `json:"fail_at,omitempty" example:"0"`
}

type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*job
	subs map[string]map[chan jobstatus.Snapshot]struct{}
	now  func() time.Time
}

func newJobStore(now func() time.Time) *jobStore {
	return &jobStore{
		jobs: make(map[string]*job),
		subs: make(map[string]map[chan jobstatus.Snapshot]struct{}),
		now:  now,
	}
}

func (s *jobStore) create(req CreateJobRequest, defaultTools []string) jobstatus.Snapshot {
	tools := make([]string, 0, len(req.Tools))
	for _, t := range req.Tools {
		if t = strings.TrimSpace(t); t != "" {
			tools = append(tools, t)
		}
	}
	if len(tools) == 0 {
		tools = append(tools, defaultTools...)
	}

	now := s.now().UTC()
	j := &job{
		id:        uuid.NewString(),
		target:    req.Target,
		tools:     tools,
		failAt:    req.FailAt,
		status:    jobstatus.StatusQueued,
		createdAt: now,
		startedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.id] = j
	return j.snapshot()
}

func (s *jobStore) get(id string) (jobstatus.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return jobstatus.Snapshot{}, ErrJobNotFound
	}
	return j.snapshot(), nil
}

// list returns every job, oldest first.
func (s *jobStore) list() []jobstatus.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	js := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		js = append(js, j)
	}
	sort.Slice(js, func(a, b int) bool {
		if js[a].createdAt.Equal(js[b].createdAt) {
			return js[a].id < js[b].id
		}
		return js[a].createdAt.Before(js[b].createdAt)
	})
	out := make([]jobstatus.Snapshot, len(js))
	for i, j := range js {
		out[i] = j.snapshot()
	}
	return out
}

func (s *jobStore) cancel(id string) (jobstatus.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return jobstatus.Snapshot{}, ErrJobNotFound
	}
	if j.status.Terminal() {
		return j.snapshot(), ErrJobFinished
	}
	s.finishLocked(j, jobstatus.StatusCancelled)
	return j.snapshot(), nil
}

// step advances every unfinished job by one stage and returns how many moved.
func (s *jobStore) step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	for _, j := range s.jobs {
		if j.status.Terminal() {
			continue
		}
		moved++
		j.stage++
		switch {
		case j.failAt > 0 && j.stage == j.failAt:
			s.finishLocked(j, jobstatus.StatusFailed)
			continue
		case j.stage > len(j.tools):
			s.finishLocked(j, jobstatus.StatusCompleted)
			continue
		case j.stage == 1:
			j.startedAt = s.now().UTC()
		}
		j.status = jobstatus.StatusRunning
		j.findings += j.stage % 3
		s.publishLocked(j)
	}
	return moved
}

func (s *jobStore) finishLocked(j *job, status jobstatus.Status) {
	end := s.now().UTC()
	j.status = status
	j.completedAt = &end
	s.publishLocked(j)
}

// subscribe returns a channel that receives every change to id and a func to
// release it. The channel is closed after the job's terminal snapshot.
func (s *jobStore) subscribe(id string) (<-chan jobstatus.Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil, ErrJobNotFound
	}
	ch := make(chan jobstatus.Snapshot, 16)
	ch <- j.snapshot()
	if j.status.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}
	if s.subs[id] == nil {
		s.subs[id] = make(map[chan jobstatus.Snapshot]struct{})
	}
	s.subs[id][ch] = struct{}{}

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id][ch]; ok {
			delete(s.subs[id], ch)
			close(ch)
		}
	}
	return ch, release, nil
}

func (s *jobStore) publishLocked(j *job) {
	snap := j.snapshot()
	terminal := j.status.Terminal()
	for ch := range s.subs[j.id] {
		if terminal {
			// The terminal snapshot must not be lost: make room for it.
			select {
			case ch <- snap:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- snap
			}
			close(ch)
			continue
		}
		select {
		case ch <- snap:
		default: // subscriber lags; intermediate snapshots are droppable
		}
	}
	if terminal {
		delete(s.subs, j.id)
	}
}
