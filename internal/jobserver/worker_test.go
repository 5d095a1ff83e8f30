package jobserver

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fimi-watch/archive-worker/api/types"
)

type stubWorker struct {
	result types.JobResult
}

func (s stubWorker) ExecuteJob(j types.Job, report types.ProgressFn) (types.JobResult, error) {
	return s.result, nil
}

var _ = Describe("doWork", func() {
	It("attaches the result payload to the terminal SUCCESS status", func() {
		js := NewJobServer(1, types.JobConfiguration{})
		js.jobWorkers["stub-job"] = stubWorker{result: types.JobResult{
			Data: map[string]any{"tweets_downloaded": 3, "file_name": "archive.json"},
		}}

		uuid, err := js.AddJob(types.Job{Type: "stub-job", Arguments: types.JobArguments{}})
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go js.Run(ctx)

		Eventually(func() types.JobState {
			status, _ := js.GetJobStatus(uuid)
			return status.State
		}, "5s").Should(Equal(types.JobStateSuccess))

		status, _ := js.GetJobStatus(uuid)
		Expect(status.Meta).To(HaveKeyWithValue("result",
			map[string]any{"tweets_downloaded": 3, "file_name": "archive.json"}))
	})

	It("leaves the SUCCESS status meta empty for jobs without a payload", func() {
		js := NewJobServer(1, types.JobConfiguration{})
		js.jobWorkers["stub-job"] = stubWorker{}

		uuid, err := js.AddJob(types.Job{Type: "stub-job", Arguments: types.JobArguments{}})
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go js.Run(ctx)

		Eventually(func() types.JobState {
			status, _ := js.GetJobStatus(uuid)
			return status.State
		}, "5s").Should(Equal(types.JobStateSuccess))

		status, _ := js.GetJobStatus(uuid)
		Expect(status.Meta).To(BeEmpty())
	})
})
