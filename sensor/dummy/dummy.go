package dummy

import (
	"log"

	"github.com/mtraver/irthermo/measurement"
)

// Dummy logs each call and fills in fixed temperatures, for dry runs without
// hardware.
type Dummy struct{}

func (d Dummy) Init() error {
	log.Printf("DUMMY SENSOR INIT")
	return nil
}

func (d Dummy) Sense(m *measurement.Measurement) error {
	log.Printf("DUMMY SENSOR SENSE")
	m.AmbientTemp = measurement.Float(25.0)
	m.ObjectTemp = measurement.Float(25.0)
	return nil
}

func (d Dummy) Shutdown() error {
	log.Printf("DUMMY SENSOR SHUTDOWN")
	return nil
}
