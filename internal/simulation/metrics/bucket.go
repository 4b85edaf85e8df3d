package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// bucketStore keeps interval buckets in a ring buffer. Completions are
// accumulated with atomics and folded into a bucket on each tick.
type bucketStore struct {
	buckets    []*TimeBucket
	head       int
	count      int
	maxBuckets int
	mu         sync.RWMutex

	lastBucketTime time.Time

	currentTasks    atomic.Int64
	currentFailures atomic.Int64
}

func newBucketStore(maxBuckets int) *bucketStore {
	if maxBuckets <= 0 {
		maxBuckets = 3600
	}

	return &bucketStore{
		buckets:        make([]*TimeBucket, maxBuckets),
		maxBuckets:     maxBuckets,
		lastBucketTime: time.Now(),
	}
}

func (bs *bucketStore) record(success bool) {
	bs.currentTasks.Add(1)
	if !success {
		bs.currentFailures.Add(1)
	}
}

// emit closes the current interval into a new bucket. base carries the
// cumulative fields; interval fields are filled in here.
func (bs *bucketStore) emit(base TimeBucket) *TimeBucket {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	now := time.Now()
	tasks := bs.currentTasks.Swap(0)
	failures := bs.currentFailures.Swap(0)

	seconds := now.Sub(bs.lastBucketTime).Seconds()
	if seconds <= 0 {
		seconds = 1.0
	}

	bucket := base
	bucket.Timestamp = now
	bucket.IntervalTasks = tasks
	bucket.IntervalThroughput = float64(tasks-failures) / seconds
	if tasks > 0 {
		bucket.IntervalErrorRate = float64(failures) / float64(tasks)
	}

	bs.buckets[bs.head] = &bucket
	bs.head = (bs.head + 1) % bs.maxBuckets
	if bs.count < bs.maxBuckets {
		bs.count++
	}
	bs.lastBucketTime = now

	return &bucket
}

// all returns the buckets in chronological order.
func (bs *bucketStore) all() []*TimeBucket {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.count == 0 {
		return nil
	}

	result := make([]*TimeBucket, bs.count)
	start := 0
	if bs.count == bs.maxBuckets {
		start = bs.head
	}
	for i := 0; i < bs.count; i++ {
		result[i] = bs.buckets[(start+i)%bs.maxBuckets]
	}
	return result
}
