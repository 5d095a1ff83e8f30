package jobserver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobs"
	"github.com/fimi-watch/archive-worker/internal/jobs/stats"
	"github.com/fimi-watch/archive-worker/internal/jobs/twitter"
)

type JobServer struct {
	jobChan chan types.Job
	workers int

	results          *Cache[types.JobResult]
	statuses         *Cache[types.JobStatus]
	jobConfiguration types.JobConfiguration

	jobWorkers map[string]worker

	stats *stats.StatsCollector
}

func NewJobServer(workers int, jc types.JobConfiguration) *JobServer {
	logrus.Info("Initializing JobServer...")

	if workers <= 0 {
		logrus.Infof("Invalid worker count (%d), defaulting to 1 worker.", workers)
		workers = 1
	}

	bufSize := jc.GetUint("stats_buf_size", 128)
	s := stats.StartCollector(bufSize)
	if workerID := jc.GetString("worker_id", ""); workerID != "" {
		s.SetWorkerID(workerID)
	}

	// The app-only pool serves estimate jobs submitted without a user token.
	appClients := twitter.NewAppClients(
		jc.GetStringSlice("twitter_bearer_tokens", nil),
		twitter.ClientConfig{FullArchive: jc.GetBool("twitter_full_archive", false)},
	)
	pool := twitter.NewClientPool(appClients, jc.GetDuration("twitter_pool_max_wait_seconds", 0))
	logrus.Infof("App-only twitter client pool holds %d clients", pool.Size())

	jobWorkers := map[string]worker{
		jobs.TweetDownloadJobType: jobs.NewTweetDownloader(jc, s),
		jobs.TweetEstimateJobType: jobs.NewTweetEstimator(jc, pool, s),
	}
	for jobType := range jobWorkers {
		logrus.Infof("Initialized job worker for: %s", jobType)
	}

	maxSize := jc.GetInt("result_cache_max_size", 1000)
	maxAge := jc.GetDuration("result_cache_max_age_seconds", 600*time.Second)

	logrus.Info("JobServer initialization complete.")
	return &JobServer{
		jobChan:          make(chan types.Job),
		results:          NewCache[types.JobResult](maxSize, maxAge),
		statuses:         NewCache[types.JobStatus](maxSize, maxAge),
		workers:          workers,
		jobConfiguration: jc,
		jobWorkers:       jobWorkers,
		stats:            s,
	}
}

// Run starts the worker goroutines and blocks until the context is done.
func (js *JobServer) Run(ctx context.Context) {
	for i := 0; i < js.workers; i++ {
		go js.worker(ctx)
	}

	<-ctx.Done()
}

// AddJob queues a job for asynchronous processing and returns its UUID. The
// job is immediately visible to status polls as PENDING.
func (js *JobServer) AddJob(j types.Job) (string, error) {
	if _, exists := js.jobWorkers[j.Type]; !exists {
		return "", fmt.Errorf("%w: %s", ErrInvalidJobType, j.Type)
	}

	j.Timeout = js.jobConfiguration.GetDuration("job_timeout_seconds", 300*time.Second)
	j.UUID = uuid.New().String()

	js.statuses.Set(j.UUID, types.JobStatus{
		State:     types.JobStatePending,
		Status:    "Task is queued",
		UpdatedAt: time.Now().UTC(),
	})

	go func() {
		js.jobChan <- j
	}()

	return j.UUID, nil
}

// GetJobResult returns the final result of a finished job.
func (js *JobServer) GetJobResult(uuid string) (types.JobResult, bool) {
	return js.results.Get(uuid)
}

// GetJobStatus returns the latest progress record of a job.
func (js *JobServer) GetJobStatus(uuid string) (types.JobStatus, bool) {
	return js.statuses.Get(uuid)
}

// Stats renders the collected per-job statistics as JSON.
func (js *JobServer) Stats() ([]byte, error) {
	return js.stats.Json()
}
