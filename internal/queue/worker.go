package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Worker processes jobs from a queue and runs scheduled maintenance tasks.
type Worker struct {
	queue      *Queue
	numWorkers int
	wg         sync.WaitGroup
	quit       chan struct{}
	scheduler  *gocron.Scheduler
}

// NewWorker creates a new worker
func NewWorker(queue *Queue, numWorkers int) *Worker {
	return &Worker{
		queue:      queue,
		numWorkers: numWorkers,
		quit:       make(chan struct{}),
		scheduler:  gocron.NewScheduler(time.UTC),
	}
}

// ScheduleEvery registers a recurring maintenance task.
func (w *Worker) ScheduleEvery(interval time.Duration, name string, task func()) error {
	_, err := w.scheduler.Every(interval).Name(name).Do(task)
	return err
}

// Start starts the worker goroutines and the maintenance scheduler.
func (w *Worker) Start() {
	log.Printf("Starting %d notification workers", w.numWorkers)

	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	w.scheduler.StartAsync()
}

// Stop stops the worker
func (w *Worker) Stop() {
	close(w.quit)
	w.wg.Wait()
	w.scheduler.Stop()
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()

	ctx := context.Background()
	for {
		select {
		case <-w.quit:
			log.Printf("Worker %d stopped", workerID)
			return
		default:
			processed, err := w.queue.ProcessNext(ctx)
			if err != nil {
				log.Printf("Worker %d: error processing job: %v", workerID, err)
				time.Sleep(1 * time.Second)
				continue
			}
			if !processed {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}
