// Package pending stores measurements that failed to publish and publishes
// them later.
package pending

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mtraver/irthermo/measurement"
)

const fileExt = ".json"

// WaitTimeout bounds how long a single publish may take.
var WaitTimeout = 10 * time.Second

// Publisher is the subset of mqtt.Client used to publish measurements.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Save converts the given Measurement to JSON and saves it to disk.
func Save(m measurement.Measurement, dir string) error {
	b, err := m.ToJSON("  ")
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("%x%s", sha256.Sum256(b), fileExt)
	return os.WriteFile(filepath.Join(dir, filename), b, 0644)
}

// List returns the paths of all saved measurements in dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileExt) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// PublishAll reads any Measurements saved to disk and attempts to publish
// them. Files are removed once published. It returns the first error
// encountered, or nil if all publishes succeed.
func PublishAll(client Publisher, topic string, dir string) error {
	paths, err := List(dir)
	if err != nil {
		return err
	}

	for _, p := range paths {
		if err := publish(client, topic, p); err != nil {
			return err
		}

		os.Remove(p)
	}

	return nil
}

func publish(client Publisher, topic string, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m, err := measurement.FromJSON(b)
	if err != nil {
		return fmt.Errorf("pending: %s: %w", filepath.Base(path), err)
	}

	// Set the upload timestamp, since this is a delayed upload.
	m.UploadTimestamp = time.Now().UTC()

	payload, err := m.Marshal()
	if err != nil {
		return err
	}

	return Wait(client.Publish(topic, 1, false, payload))
}

// Wait waits up to WaitTimeout for the token to complete.
func Wait(token mqtt.Token) error {
	if ok := token.WaitTimeout(WaitTimeout); !ok {
		return fmt.Errorf("pending: publish timed out after %v", WaitTimeout)
	} else if token.Error() != nil {
		return fmt.Errorf("pending: publish failed: %w", token.Error())
	}

	return nil
}
