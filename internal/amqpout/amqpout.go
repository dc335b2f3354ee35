// Package amqpout implements an optional AMQP fanout publisher,
// generalizing billglover-go-adsb-console's startUpdater/aircraft:
// that function dials github.com/streadway/amqp once, declares a
// fanout exchange, and republishes every modified aircraft on a
// ticker. This package keeps that shape but drives it from
// internal/track.Store's reliable aircraft list instead of a flat
// in-memory map, and reconnects the channel on NotifyClose the same
// way that reference function does.
package amqpout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/go1090/trackserver/internal/logging"
	"github.com/go1090/trackserver/internal/track"
)

// Message is the wire shape published to the fanout exchange, matching
// the field selection billglover's aircraft struct makes (flight,
// position, speed/track, altitude, station) generalized to this
// server's richer Aircraft record.
type Message struct {
	Hex         string  `json:"hex"`
	Flight      string  `json:"flight,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Track       float64 `json:"track"`
	GroundSpeed float64 `json:"speed,omitempty"`
	Altitude    int     `json:"altitude"`
	VertRate    int     `json:"vert_rate,omitempty"`
	Squawk      string  `json:"squawk,omitempty"`
	RSSI        float64 `json:"rssi,omitempty"`
	Messages    int64   `json:"messages,omitempty"`
	Timestamp   int64   `json:"timestamp,omitempty"`
	StationName string  `json:"groundStationName,omitempty"`
}

// Publisher republishes the reliable subset of a track.Store onto a
// fanout exchange once per tick, the way billglover's updater does.
type Publisher struct {
	exchange    string
	stationName string
	log         *logging.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker at url and declares the fanout exchange,
// mirroring billglover's amqp.Dial + ExchangeDeclare sequence.
func Dial(url, exchange, stationName string, log *logging.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqpout: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpout: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", false, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqpout: declare exchange: %w", err)
	}

	p := &Publisher{exchange: exchange, stationName: stationName, log: log, conn: conn, ch: ch}
	return p, nil
}

// Run republishes every reliable aircraft from snapshot() once per
// tick until ctx is cancelled, reopening the channel whenever the
// broker signals NotifyClose (billglover's reconnect goroutine).
func (p *Publisher) Run(ctx context.Context, tick time.Duration, snapshot func() []*track.Aircraft) {
	closures := p.conn.NotifyClose(make(chan *amqp.Error))
	reopen := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-closures:
				ch, err := p.conn.Channel()
				if err != nil {
					p.logf("amqpout: reopen channel: %v", err)
					continue
				}
				p.ch = ch
				select {
				case reopen <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer p.ch.Close()
	defer p.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishAll(snapshot())
		}
	}
}

func (p *Publisher) publishAll(aircraft []*track.Aircraft) {
	for _, ac := range aircraft {
		if !ac.Reliability.Reliable(4) {
			continue
		}
		msg := toMessage(ac, p.stationName)
		body, err := json.Marshal(msg)
		if err != nil {
			p.logf("amqpout: marshal aircraft %s: %v", msg.Hex, err)
			continue
		}
		publishing := amqp.Publishing{
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
			ContentType:  "application/json",
			Body:         body,
		}
		if err := p.ch.Publish(p.exchange, "", false, false, publishing); err != nil {
			p.logf("amqpout: publish aircraft %s: %v", msg.Hex, err)
		}
	}
}

func toMessage(ac *track.Aircraft, station string) Message {
	m := Message{
		Hex:         ac.HexAddr(),
		Flight:      ac.Callsign,
		Lat:         ac.Position.Lat,
		Lon:         ac.Position.Lon,
		Track:       ac.Kinematics.Track,
		GroundSpeed: ac.Kinematics.GS,
		Messages:    ac.Messages,
		Timestamp:   ac.SeenMs,
		StationName: station,
	}
	if ac.Kinematics.BaroAltValid.Valid() {
		m.Altitude = ac.Kinematics.BaroAlt
	}
	if ac.Kinematics.BaroRateValid.Valid() {
		m.VertRate = ac.Kinematics.BaroRate
	}
	if ac.SquawkValid.Valid() {
		m.Squawk = fmt.Sprintf("%04d", ac.Squawk)
	}
	m.RSSI = ac.Signal.Mean()
	return m
}

func (p *Publisher) logf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Printf(format, args...)
	}
}
