// Package db stores measurements in InfluxDB.
package db

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/mtraver/irthermo/measurement"
)

const influxMeasurement = "irtemp"

// newInfluxDBPoints returns one point per temperature set in m.
func newInfluxDBPoints(m measurement.Measurement) []*write.Point {
	vm := m.ValueMap()
	points := make([]*write.Point, 0, len(vm))
	for name, v := range vm {
		p := influxdb2.NewPointWithMeasurement(influxMeasurement)
		if metric, ok := measurement.GetMetric(name); ok {
			p = p.AddField(metric.Abbrv, v)
		} else {
			p = p.AddField(name, v)
		}

		points = append(points, p.AddTag("device", m.DeviceID).SetTime(m.Timestamp))
	}

	return points
}

type InfluxDB struct {
	serverURL string
	token     string
	org       string
	bucket    string
}

func NewInfluxDB(serverURL, token, org, bucket string) *InfluxDB {
	return &InfluxDB{
		serverURL: serverURL,
		token:     token,
		org:       org,
		bucket:    bucket,
	}
}

func (db *InfluxDB) String() string {
	return fmt.Sprintf("InfluxDB{%s %s/%s}", db.serverURL, db.org, db.bucket)
}

// Save writes m and blocks until the server has accepted it.
func (db *InfluxDB) Save(ctx context.Context, m measurement.Measurement) error {
	points := newInfluxDBPoints(m)
	if len(points) == 0 {
		return nil
	}

	client := influxdb2.NewClient(db.serverURL, db.token)
	defer client.Close()

	writeAPI := client.WriteAPIBlocking(db.org, db.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("db: failed to write to InfluxDB: %w", err)
	}

	return nil
}
