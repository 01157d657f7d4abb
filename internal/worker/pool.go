// Package worker runs pipeline stages as background jobs on a fixed pool.
// Jobs carry a serialization key (the project id): two jobs with the same
// key are never queued or running at the same time, which is what keeps
// one project's stages strictly ordered while different projects proceed
// concurrently.
package worker

import (
	"errors"
	"log"
	"sync"
)

// Job is a unit of background work.
type Job interface {
	Execute() error
	ID() string
	// Key is the serialization key. Submitting a job whose key is already
	// in flight is rejected, not queued.
	Key() string
}

// ErrKeyBusy rejects a job whose serialization key already has a job
// queued or running.
var ErrKeyBusy = errors.New("a job for this key is already in flight")

// ErrQueueFull rejects a job when the queue has no room.
var ErrQueueFull = errors.New("job queue is full")

// Worker pulls jobs from its own channel after registering it with the
// shared pool.
type Worker struct {
	id         int
	workerPool chan chan Job
	jobChannel chan Job
	quit       chan bool
	dispatcher *Dispatcher
}

func newWorker(id int, d *Dispatcher) Worker {
	return Worker{
		id:         id,
		workerPool: d.workerPool,
		jobChannel: make(chan Job),
		quit:       make(chan bool),
		dispatcher: d,
	}
}

// start makes the worker listen for jobs on its channel.
func (w Worker) start() {
	w.dispatcher.wg.Add(1)
	go func() {
		defer w.dispatcher.wg.Done()
		for {
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				log.Printf("Worker %d: started job %s (key %s)", w.id, job.ID(), job.Key())
				if err := job.Execute(); err != nil {
					log.Printf("Worker %d: job %s failed: %v", w.id, job.ID(), err)
				} else {
					log.Printf("Worker %d: finished job %s", w.id, job.ID())
				}
				w.dispatcher.release(job.Key())
			case <-w.quit:
				log.Printf("Worker %d: stopping", w.id)
				return
			}
		}
	}()
}

func (w Worker) stop() {
	go func() {
		w.quit <- true
	}()
}

// Dispatcher owns the worker pool, the job queue and the in-flight key
// set.
type Dispatcher struct {
	maxWorkers int
	workerPool chan chan Job
	jobQueue   chan Job
	workers    []Worker
	quit       chan bool
	wg         sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]string // key -> job id
}

func NewDispatcher(maxWorkers, jobQueueSize int) *Dispatcher {
	return &Dispatcher{
		maxWorkers: maxWorkers,
		workerPool: make(chan chan Job, maxWorkers),
		jobQueue:   make(chan Job, jobQueueSize),
		workers:    make([]Worker, 0, maxWorkers),
		quit:       make(chan bool),
		inFlight:   make(map[string]string),
	}
}

// Run starts the dispatcher and its workers.
func (d *Dispatcher) Run() {
	log.Printf("Dispatcher starting with %d workers", d.maxWorkers)
	for i := 1; i <= d.maxWorkers; i++ {
		worker := newWorker(i, d)
		d.workers = append(d.workers, worker)
		worker.start()
	}
	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			go func(job Job) {
				jobChannel := <-d.workerPool
				jobChannel <- job
			}(job)
		case <-d.quit:
			log.Println("Dispatcher: stopping dispatch loop")
			return
		}
	}
}

// Submit queues a job. It fails with ErrKeyBusy when a job for the same
// key is still in flight, and ErrQueueFull when the queue has no room; in
// both cases the job is dropped and the caller decides what to tell the
// client.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.Lock()
	if inflightID, busy := d.inFlight[job.Key()]; busy {
		d.mu.Unlock()
		log.Printf("Dispatcher: rejected job %s, key %s busy with job %s", job.ID(), job.Key(), inflightID)
		return ErrKeyBusy
	}
	d.inFlight[job.Key()] = job.ID()
	d.mu.Unlock()

	select {
	case d.jobQueue <- job:
		return nil
	default:
		d.release(job.Key())
		return ErrQueueFull
	}
}

// release frees a serialization key once its job has finished (or could
// not be queued).
func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.inFlight, key)
	d.mu.Unlock()
}

// Stop shuts down the dispatcher and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	log.Println("Dispatcher: initiating shutdown")
	d.quit <- true
	for _, worker := range d.workers {
		worker.stop()
	}
	d.wg.Wait()
	log.Println("Dispatcher: shutdown complete")
}
