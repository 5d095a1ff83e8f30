package jobserver

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/api/types"
)

func (js *JobServer) worker(c context.Context) {
	for {
		select {
		case <-c.Done():
			logrus.Debug("worker shutting down")
			return

		case j := <-js.jobChan:
			logrus.Debugf("Job received: %s (%s)", j.UUID, j.Type)
			js.doWork(j)
		}
	}
}

// worker is one registered job executor. Progress records published through
// report become visible to status polls immediately; the returned result is
// cached once as the job's final outcome.
type worker interface {
	ExecuteJob(j types.Job, report types.ProgressFn) (types.JobResult, error)
}

func (js *JobServer) doWork(j types.Job) error {
	w, exists := js.jobWorkers[j.Type]
	if !exists {
		js.results.Set(j.UUID, types.JobResult{
			Error: fmt.Sprintf("unknown job type: %s", j.Type),
		})
		js.setStatus(j.UUID, types.JobStatus{
			State:  types.JobStateFailure,
			Status: fmt.Sprintf("unknown job type: %s", j.Type),
		})
		return fmt.Errorf("unknown job type: %s", j.Type)
	}

	report := func(status types.JobStatus) {
		js.setStatus(j.UUID, status)
	}

	result, err := w.ExecuteJob(j, report)
	if err != nil {
		if result.Error == "" {
			result.Error = err.Error()
		}
		js.setStatus(j.UUID, types.JobStatus{
			State:  types.JobStateFailure,
			Status: result.Error,
		})
	} else {
		var meta map[string]any
		if result.Data != nil {
			meta = map[string]any{"result": result.Data}
		}
		js.setStatus(j.UUID, types.JobStatus{
			State:  types.JobStateSuccess,
			Status: "Task completed",
			Meta:   meta,
		})
	}

	js.results.Set(j.UUID, result)
	return nil
}

func (js *JobServer) setStatus(uuid string, status types.JobStatus) {
	status.UpdatedAt = time.Now().UTC()
	js.statuses.Set(uuid, status)
}
