package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mtraver/irthermo/cmd/irlogger/pending"
)

const mqttWait = 10 * time.Second

func tlsConfig(caCertsPath string) (*tls.Config, error) {
	pem, err := os.ReadFile(caCertsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open certs file: %v", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certs found in %s", caCertsPath)
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

func clientOptions(c Config, mqttStoreDir, pendingDir string) (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetStore(mqtt.NewFileStore(mqttStoreDir)).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttWait)

	if c.CACerts != "" {
		tc, err := tlsConfig(c.CACerts)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tc)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("[mqtt] Connected to MQTT broker %s", c.Broker)

		// Anything that failed to publish while disconnected goes out now.
		if err := pending.PublishAll(client, c.TelemetryTopic, pendingDir); err != nil {
			log.Printf("[mqtt] Failed to publish pending measurements: %v", err)
		}
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[mqtt] Connection to MQTT broker lost: %v", err)
	})

	return opts, nil
}

func MQTTConnect(c Config, mqttStoreDir, pendingDir string) (mqtt.Client, error) {
	if err := os.MkdirAll(mqttStoreDir, 0700); err != nil {
		return nil, err
	}

	opts, err := clientOptions(c, mqttStoreDir, pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to make MQTT client: %v", err)
	}
	client := mqtt.NewClient(opts)

	// Connect to the MQTT server.
	if token := client.Connect(); !token.WaitTimeout(mqttWait) {
		return nil, fmt.Errorf("MQTT connection attempt timed out after %v", mqttWait)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	return client, nil
}
