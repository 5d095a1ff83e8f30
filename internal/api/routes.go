package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobserver"
)

// add queues a new job.
//
// The request body is a types.Job (type + arguments). The response carries
// the UUID under which status and result can be polled. Unknown job types are
// rejected up front with a 400.
func add(jobServer *jobserver.JobServer) func(c echo.Context) error {
	return func(c echo.Context) error {
		job := types.Job{}
		if err := c.Bind(&job); err != nil {
			return c.JSON(http.StatusBadRequest, types.JobError{Error: err.Error()})
		}

		uuid, err := jobServer.AddJob(job)
		if err != nil {
			if errors.Is(err, jobserver.ErrInvalidJobType) {
				return c.JSON(http.StatusBadRequest, types.JobError{Error: err.Error()})
			}
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, types.JobResponse{UID: uuid})
	}
}

// status returns the latest lifecycle record of a job: PENDING while queued,
// STARTED/PROGRESS while running, SUCCESS or FAILURE once finished. Unknown
// or expired UUIDs yield 404.
func status(jobServer *jobserver.JobServer) func(c echo.Context) error {
	return func(c echo.Context) error {
		jobStatus, exists := jobServer.GetJobStatus(c.Param("job_id"))
		if !exists {
			return c.JSON(http.StatusNotFound, types.JobError{Error: jobserver.ErrJobNotFound.Error()})
		}
		return c.JSON(http.StatusOK, jobStatus)
	}
}

// result returns the final outcome of a finished job. While the job is still
// running there is no result yet, which is indistinguishable from an unknown
// UUID here; clients poll status first.
func result(jobServer *jobserver.JobServer) func(c echo.Context) error {
	return func(c echo.Context) error {
		res, exists := jobServer.GetJobResult(c.Param("job_id"))
		if !exists {
			return c.JSON(http.StatusNotFound, types.JobError{Error: jobserver.ErrJobNotFound.Error()})
		}

		if !res.Success() {
			return c.JSON(http.StatusInternalServerError, res)
		}
		return c.JSON(http.StatusOK, res)
	}
}

// serverStats exposes the per-job counters kept by the stats collector.
func serverStats(jobServer *jobserver.JobServer) func(c echo.Context) error {
	return func(c echo.Context) error {
		data, err := jobServer.Stats()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}
