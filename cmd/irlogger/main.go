// Program irlogger samples MLX90632 and other thermometers on a cron schedule
// and publishes the measurements over MQTT, optionally also writing them to
// InfluxDB.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/mtraver/envtools"
	"github.com/mtraver/irthermo/cache"
	"github.com/mtraver/irthermo/db"
	"github.com/mtraver/irthermo/measurement"
	cron "github.com/robfig/cron/v3"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Flags.
var (
	configFilePath string
	cronSpec       string
	port           int
	dryrun         bool
	influxURL      string
	influxOrg      string
	influxBucket   string
)

var (
	// This directory is where we'll store anything the program needs to persist, like
	// measurements that are pending upload. This is joined with the user's home directory
	// in init.
	dotDir = ".irlogger"

	// Backing store for the MQTT client's in-flight messages. This is joined with the
	// user's home directory in init.
	mqttStoreDir = path.Join(dotDir, "mqtt_store")

	// Measurements that failed to publish, e.g. because the network went down. This is
	// joined with the user's home directory in init.
	pendingDir = path.Join(dotDir, "pending")
)

func init() {
	flag.StringVar(&configFilePath, "config", "", "path to a JSON config file naming the device, MQTT broker and sensors")
	flag.StringVar(&cronSpec, "cronspec", "", "cron spec that specifies when to take and publish measurements")
	flag.IntVar(&port, "port", 8080, "port on which the device's web server should listen")
	flag.BoolVar(&dryrun, "dryrun", false, "set to true to print rather than publish measurements")
	flag.StringVar(&influxURL, "influxurl", "", "InfluxDB server URL; if set, measurements are also written there.\nThe token is read from $INFLUXDB_TOKEN.")
	flag.StringVar(&influxOrg, "influxorg", "", "InfluxDB organization")
	flag.StringVar(&influxBucket, "influxbucket", "", "InfluxDB bucket")

	// Update directory paths by joining them to the user's home directory.
	home, err := homedir.Dir()
	if err != nil {
		log.Fatalf("Failed to get home dir: %v", err)
	}
	dotDir = path.Join(home, dotDir)
	mqttStoreDir = path.Join(home, mqttStoreDir)
	pendingDir = path.Join(home, pendingDir)
}

func parseFlags() error {
	flag.Parse()

	if configFilePath == "" {
		return fmt.Errorf("config flag must be given")
	}

	if cronSpec == "" {
		return fmt.Errorf("cronspec flag must be given")
	}

	if influxURL != "" && (influxOrg == "" || influxBucket == "") {
		return fmt.Errorf("influxorg and influxbucket flags must be given with influxurl")
	}

	return nil
}

func main() {
	if err := parseFlags(); err != nil {
		fmt.Printf("argument error: %v\n", err)
		os.Exit(2)
	}

	// Make all directories required by the program.
	for _, dir := range []string{dotDir, mqttStoreDir, pendingDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Fatalf("Failed to make dir %s: %v", dir, err)
		}
	}

	config, err := ParseConfigFile(configFilePath)
	if err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	// Initialize periph.
	if _, err := host.Init(); err != nil {
		log.Fatalf("Failed to initialize periph: %v", err)
	}

	bus, err := i2creg.Open(config.Bus)
	if err != nil {
		log.Fatalf("Failed to open I²C bus: %v", err)
	}
	defer bus.Close()

	sensors, err := registerSensors(config, bus)
	if err != nil {
		log.Fatal(err)
	}

	latest := cache.New[measurement.Measurement]()
	history := cache.New[[]measurement.Measurement]()

	job := SenseJob{
		DeviceID:   config.DeviceID,
		Sensors:    sensors,
		Topic:      config.TelemetryTopic,
		PendingDir: pendingDir,
		Latest:     latest,
		History:    history,
		Dryrun:     dryrun,
	}

	if !dryrun {
		client, err := MQTTConnect(config, mqttStoreDir, pendingDir)
		if err != nil {
			log.Fatal(err)
		}
		job.Publisher = client

		// If the program is killed, shut down the sensors and disconnect from the MQTT server.
		c := make(chan os.Signal, 2)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			log.Println("Cleaning up...")
			ShutdownJob{Sensors: sensors}.Run()
			client.Disconnect(250)
			time.Sleep(500 * time.Millisecond)
			os.Exit(1)
		}()

		if influxURL != "" {
			job.DB = db.NewInfluxDB(influxURL, envtools.MustGetenv("INFLUXDB_TOKEN"), influxOrg, influxBucket)
		}
	}

	SetupJob{Sensors: sensors}.Run()

	// Schedule the measurement publication routine.
	cr := cron.New()
	log.Printf("Starting cron scheduler with spec %q", cronSpec)
	if _, err := cr.AddJob(cronSpec, job); err != nil {
		log.Fatalf("Bad cron spec: %v", err)
	}
	cr.AddJob("@every 1h", latest)
	cr.AddJob("@every 1h", history)
	cr.Start()

	// Start up a web server that provides basic info about the device.
	http.Handle("/", indexHandler{
		DeviceID: config.DeviceID,
		Latest:   latest,
		History:  history,
		Template: templates,
	})
	http.Handle("/latest", latestHandler{
		DeviceID: config.DeviceID,
		Latest:   latest,
	})
	if err := http.ListenAndServe(fmt.Sprintf(":%v", port), nil); err != nil {
		log.Fatal(err)
	}
}
