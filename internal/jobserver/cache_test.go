package jobserver

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fimi-watch/archive-worker/api/types"
)

var _ = Describe("Cache", func() {
	It("should set and get values", func() {
		cache := NewCache[types.JobResult](10, time.Minute)
		cache.Set("abc", types.JobResult{Data: "payload"})
		got, ok := cache.Get("abc")
		Expect(ok).To(BeTrue())
		Expect(got.Data).To(Equal("payload"))
	})

	It("should overwrite existing keys in place", func() {
		cache := NewCache[types.JobStatus](10, time.Minute)
		cache.Set("job", types.JobStatus{State: types.JobStatePending})
		cache.Set("job", types.JobStatus{State: types.JobStateProgress})
		got, ok := cache.Get("job")
		Expect(ok).To(BeTrue())
		Expect(got.State).To(Equal(types.JobStateProgress))
	})

	It("should evict oldest when max size is reached", func() {
		cache := NewCache[types.JobResult](3, time.Minute)
		for i := 0; i < 5; i++ {
			cache.Set(fmt.Sprintf("key-%d", i), types.JobResult{})
		}
		Expect(len(cache.entries)).To(Equal(3))
		_, ok := cache.Get("key-0")
		Expect(ok).To(BeFalse())
	})

	It("should evict by age", func() {
		cache := NewCache[types.JobResult](10, time.Second)
		cache.Set("expireme", types.JobResult{})
		time.Sleep(1100 * time.Millisecond)
		_, ok := cache.Get("expireme")
		Expect(ok).To(BeFalse())
	})

	It("should clean up expired entries periodically", func() {
		cache := NewCache[types.JobResult](10, time.Second)
		cache.Set("periodic", types.JobResult{})
		time.Sleep(2200 * time.Millisecond)
		cache.lock.Lock()
		size := len(cache.entries)
		cache.lock.Unlock()
		Expect(size).To(BeZero())
	})
})
