package jobserver_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fimi-watch/archive-worker/api/types"
	. "github.com/fimi-watch/archive-worker/internal/jobserver"
)

var _ = Describe("Jobserver", func() {
	It("rejects unregistered job types", func() {
		jobserver := NewJobServer(2, types.JobConfiguration{})

		uuid, err := jobserver.AddJob(types.Job{
			Type:      "mystery-job",
			Arguments: map[string]interface{}{},
		})

		Expect(uuid).To(BeEmpty())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid job type"))
	})

	It("marks a queued job as pending before any worker picks it up", func() {
		jobserver := NewJobServer(2, types.JobConfiguration{})

		uuid, err := jobserver.AddJob(types.Job{
			Type:      "tweet-download",
			Arguments: map[string]interface{}{},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(uuid).ToNot(BeEmpty())

		status, exists := jobserver.GetJobStatus(uuid)
		Expect(exists).To(BeTrue())
		Expect(status.State).To(Equal(types.JobStatePending))

		_, exists = jobserver.GetJobResult(uuid)
		Expect(exists).ToNot(BeTrue())
	})

	It("runs jobs and surfaces worker failures as FAILURE", func() {
		jobserver := NewJobServer(2, types.JobConfiguration{})

		// No tokens in the arguments, so the download fails at client setup.
		uuid, err := jobserver.AddJob(types.Job{
			Type: "tweet-download",
			Arguments: map[string]interface{}{
				"accounts":   []string{"newsbot"},
				"start_date": "2023-06-10",
				"end_date":   "2023-06-12",
			},
		})
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go jobserver.Run(ctx)

		Eventually(func() types.JobState {
			status, _ := jobserver.GetJobStatus(uuid)
			return status.State
		}, "5s").Should(Equal(types.JobStateFailure))

		status, _ := jobserver.GetJobStatus(uuid)
		Expect(status.Status).To(ContainSubstring("twitter client initialization failed"))

		result, exists := jobserver.GetJobResult(uuid)
		Expect(exists).To(BeTrue())
		Expect(result.Error).To(ContainSubstring("twitter client initialization failed"))
	})

	It("reports statistics as JSON", func() {
		jobserver := NewJobServer(1, types.JobConfiguration{"worker_id": "test-worker"})

		data, err := jobserver.Stats()
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"worker_id":"test-worker"`))
	})
})
