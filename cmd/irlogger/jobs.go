package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mtraver/irthermo/cache"
	"github.com/mtraver/irthermo/cmd/irlogger/pending"
	"github.com/mtraver/irthermo/measurement"
	"github.com/mtraver/irthermo/sensor"
)

const (
	latestTTL  = 2 * time.Hour
	historyTTL = 24 * time.Hour

	// Most measurements kept in the history cache.
	historyLen = 1440
)

// Saver stores measurements in a database.
type Saver interface {
	Save(ctx context.Context, m measurement.Measurement) error
}

type SetupJob struct {
	Sensors []string
}

func (j SetupJob) Run() {
	for _, name := range j.Sensors {
		s, err := sensor.Get(name)
		if err != nil {
			log.Printf("Error getting sensor %q: %v", name, err)
			continue
		}
		if err := s.Init(); err != nil {
			log.Printf("Failed to init %q: %v", name, err)
			continue
		}
	}
}

type SenseJob struct {
	DeviceID string
	Sensors  []string

	Publisher pending.Publisher
	Topic     string
	// Measurements that fail to publish are saved here and published on the
	// next connect.
	PendingDir string

	// DB is optional.
	DB Saver

	Latest  *cache.Cache[measurement.Measurement]
	History *cache.Cache[[]measurement.Measurement]

	Dryrun bool

	now func() time.Time
}

func (j SenseJob) Run() {
	if _, err := j.sense(); err != nil {
		log.Print(err)
	}
}

// sense takes one measurement from every sensor and sends it on. The
// returned error is non-nil if nothing was measured or sending failed.
func (j SenseJob) sense() (measurement.Measurement, error) {
	now := time.Now
	if j.now != nil {
		now = j.now
	}

	// Create a Measurement that we'll pass along to each sensor.
	m := measurement.Measurement{
		DeviceID:  j.DeviceID,
		Timestamp: now().UTC(),
	}

	count := 0
	for _, name := range j.Sensors {
		s, err := sensor.Get(name)
		if err != nil {
			log.Printf("Error getting sensor %q: %v", name, err)
			continue
		}
		if err := s.Sense(&m); err != nil {
			log.Printf("Failed to take measurement from %q: %v", name, err)
			continue
		}
		count++
	}

	if count <= 0 {
		return m, errors.New("took no measurements, will not publish")
	}

	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("invalid measurement: %w", err)
	}

	j.record(m)

	if j.Dryrun {
		log.Print(m)
		return m, nil
	}

	if err := j.publish(m); err != nil {
		return m, fmt.Errorf("failed to publish measurement: %w", err)
	}
	return m, nil
}

func (j SenseJob) record(m measurement.Measurement) {
	if j.Latest != nil {
		j.Latest.Set(measurement.CacheKeyLatest(m.DeviceID), m, latestTTL)
	}

	if j.History != nil {
		key := measurement.CacheKeyHistory(m.DeviceID)
		// Copy so readers of the cached slice never see it change.
		h := append(append([]measurement.Measurement{}, j.History.Get(key)...), m)
		if len(h) > historyLen {
			h = h[len(h)-historyLen:]
		}
		j.History.Set(key, h, historyTTL)
	}
}

func (j SenseJob) publish(m measurement.Measurement) error {
	var wg sync.WaitGroup

	// One slot per sink. Each goroutine sends at most once.
	sinks := []func(measurement.Measurement) error{j.sendMQTT}
	if j.DB != nil {
		sinks = append(sinks, j.sendDB)
	}
	errs := make(chan error, len(sinks))

	for _, send := range sinks {
		wg.Add(1)
		go func(send func(measurement.Measurement) error) {
			defer wg.Done()

			if err := send(m); err != nil {
				errs <- err
			}
		}(send)
	}

	wg.Wait()
	close(errs)

	errSlice := []error{}
	for e := range errs {
		errSlice = append(errSlice, e)
	}

	return errors.Join(errSlice...)
}

// sendMQTT publishes m, falling back to the pending queue on failure.
func (j SenseJob) sendMQTT(m measurement.Measurement) error {
	err := j.publishMQTT(m)
	if err == nil {
		log.Print("[mqtt] successful publish")
		return nil
	}
	err = fmt.Errorf("[mqtt] %w", err)

	if j.PendingDir == "" {
		return err
	}
	if perr := pending.Save(m, j.PendingDir); perr != nil {
		return errors.Join(err, fmt.Errorf("[pending] failed to save: %w", perr))
	}
	log.Print("[pending] saved measurement for later upload")
	return err
}

func (j SenseJob) sendDB(m measurement.Measurement) error {
	ctx, cancel := context.WithTimeout(context.Background(), pending.WaitTimeout)
	defer cancel()

	if err := j.DB.Save(ctx, m); err != nil {
		return fmt.Errorf("[db] %w", err)
	}
	log.Printf("[db] saved to %v", j.DB)
	return nil
}

func (j SenseJob) publishMQTT(m measurement.Measurement) error {
	if j.Publisher == nil {
		return errors.New("no MQTT client")
	}

	// Marshal to bytes for publication.
	b, err := m.Marshal()
	if err != nil {
		return err
	}

	return pending.Wait(j.Publisher.Publish(j.Topic, 1, false, b))
}

type ShutdownJob struct {
	Sensors []string
}

func (j ShutdownJob) Run() {
	for _, name := range j.Sensors {
		s, err := sensor.Get(name)
		if err != nil {
			log.Printf("Error getting sensor %q: %v", name, err)
			continue
		}
		if err := s.Shutdown(); err != nil {
			log.Printf("Failed to shut down %q: %v", name, err)
			continue
		}
	}
}
