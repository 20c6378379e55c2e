// Package mqtt provides MQTT client connectivity for dessmon-core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// dessmon publishes normalized inverter telemetry as retained state topics
// plus per-device availability, with Home Assistant discovery configs so the
// fleet appears in HA without manual configuration.
//
//	DessMonitor cloud → dessmon → MQTT Broker → Home Assistant / subscribers
//
// # Security Considerations
//
//   - TLS is recommended for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceState("Q1234567890", "pv_power")
//	client.Publish(topic, []byte("1520.0"), 1, true)
package mqtt
