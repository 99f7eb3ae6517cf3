package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/internal/config"
)

const (
	registryID = "fleet-registry"
	projectID  = "auto-fleet-mgnt"
	region     = "europe-west1"
	algorithm  = "RS256"
	username   = "unused" // always this value in GCP
)

// newPassword signs the JWT used as the MQTT password.
func newPassword(keyData []byte, alg string, now time.Time) (string, error) {
	var key interface{}
	var err error
	switch alg {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Errorf("unknown algorithm: %s", alg)
	}
	if err != nil {
		return "", errors.WithMessage(err, "parse private key")
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(alg), &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
		Audience:  projectID,
	})
	return token.SignedString(key)
}

func newMQTTClient(deviceID string, cfg config.MQTT, l log.FieldLogger) (mqtt.Client, error) {
	l = l.WithField("broker", cfg.Broker)

	clientID := fmt.Sprintf(
		"projects/%s/locations/%s/registries/%s/devices/%s",
		projectID, region, registryID, deviceID)
	l.WithField("client_id", clientID).Info("MQTT client")

	keyData, err := os.ReadFile(cfg.PrivateKey)
	if err != nil {
		return nil, errors.WithMessage(err, "read private key")
	}
	pass, err := newPassword(keyData, algorithm, time.Now())
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(username).
		SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetPassword(pass).
		SetProtocolVersion(4) // Use MQTT 3.1.1

	client := mqtt.NewClient(opts)

	for {
		l.Info("Connecting MQTT...")
		tok := client.Connect()
		if !tok.WaitTimeout(5 * time.Second) {
			l.Warn("Connection Timeout")
			continue
		}
		if err := tok.Error(); err != nil {
			return nil, errors.WithMessage(err, "connect mqtt")
		}
		l.Info("..Connected")
		return client, nil
	}
}
