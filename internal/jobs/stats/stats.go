package stats

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/internal/versioning"
)

// These are the types of statistics that we can add. The value is the JSON key that will be used for serialization.
type StatType string

const (
	DownloadJobs      StatType = "download_jobs"
	TweetsDownloaded  StatType = "tweets_downloaded"
	DownloadErrors    StatType = "download_errors"
	EstimateQueries   StatType = "estimate_queries"
	EstimateErrors    StatType = "estimate_errors"
	DriveUploads      StatType = "drive_uploads"
	DriveErrors       StatType = "drive_errors"
	TwitterAuthErrors StatType = "twitter_auth_errors"
	TwitterRateErrors StatType = "twitter_ratelimit_errors"
)

// AddStat is the struct used in the rest of the worker for sending statistics
type AddStat struct {
	Type     StatType
	WorkerID string
	Num      uint
}

// Stats is the structure we use to store the statistics
type Stats struct {
	BootTimeUnix       int64                        `json:"boot_time"`
	LastOperationUnix  int64                        `json:"last_operation_time"`
	CurrentTimeUnix    int64                        `json:"current_time"`
	WorkerID           string                       `json:"worker_id"`
	Stats              map[string]map[StatType]uint `json:"stats"`
	ApplicationVersion string                       `json:"application_version"`
	sync.Mutex
}

// StatsCollector is the object used to collect statistics
type StatsCollector struct {
	Stats *Stats
	Chan  chan AddStat
}

// StartCollector starts a goroutine that listens to a channel for AddStat messages and updates the stats accordingly.
func StartCollector(bufSize uint) *StatsCollector {
	logrus.Info("Starting stats collector")

	s := Stats{
		BootTimeUnix:       time.Now().Unix(),
		Stats:              make(map[string]map[StatType]uint),
		ApplicationVersion: versioning.ApplicationVersion,
	}

	ch := make(chan AddStat, bufSize)

	go func(s *Stats, ch chan AddStat) {
		for {
			stat := <-ch
			s.Lock()
			s.LastOperationUnix = time.Now().Unix()
			if _, ok := s.Stats[stat.WorkerID]; !ok {
				s.Stats[stat.WorkerID] = make(map[StatType]uint)
			}
			s.Stats[stat.WorkerID][stat.Type] += stat.Num
			s.Unlock()
			logrus.Debugf("Added %d to stat %s", stat.Num, stat.Type)
		}
	}(&s, ch)

	return &StatsCollector{Stats: &s, Chan: ch}
}

// Json returns the current statistics as a JSON byte array
func (s *StatsCollector) Json() ([]byte, error) {
	s.Stats.Lock()
	defer s.Stats.Unlock()
	s.Stats.CurrentTimeUnix = time.Now().Unix()
	return json.Marshal(s.Stats)
}

// Add is a convenience method to add a number to a statistic
func (s *StatsCollector) Add(workerID string, typ StatType, num uint) {
	if s == nil {
		return
	}
	s.Chan <- AddStat{WorkerID: workerID, Type: typ, Num: num}
}

// SetWorkerID sets the worker ID for the stats collector
func (s *StatsCollector) SetWorkerID(workerID string) {
	s.Stats.Lock()
	defer s.Stats.Unlock()
	s.Stats.WorkerID = workerID
}
