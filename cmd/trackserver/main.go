// Command trackserver is the track server's process entrypoint,
// generalizing Regentag-go1090's main.go: Regentag-go1090 wires an RTL-SDR
// reader into a decoder into a gocui dashboard on a single ticker. This
// entrypoint instead wires configuration into an aircraft store, a
// position pipeline, one or more inbound netio services and outbound
// connectors, a maintenance loop, and the optional AMQP/console sinks,
// following the same "build the pieces, then start the goroutines"
// shape as Regentag-go1090's main().
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go1090/trackserver/internal/amqpout"
	"github.com/go1090/trackserver/internal/config"
	"github.com/go1090/trackserver/internal/console"
	"github.com/go1090/trackserver/internal/globeindex"
	"github.com/go1090/trackserver/internal/ingest"
	"github.com/go1090/trackserver/internal/logging"
	"github.com/go1090/trackserver/internal/maint"
	"github.com/go1090/trackserver/internal/netio"
	"github.com/go1090/trackserver/internal/proto"
	"github.com/go1090/trackserver/internal/stats"
	"github.com/go1090/trackserver/internal/track"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	log := logging.New("trackserver")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("shutting down")
		cancel()
	}()

	store := track.NewStore()
	receivers := track.NewReceiverTable(cfg.ReceiverIdleTTL)
	collector := stats.NewCollector()
	globe := globeindex.NewIndex(globeindex.DefaultTiles)

	pipeline := &track.Pipeline{
		Cfg: track.PipelineConfig{
			JSONReliable:     cfg.JSONReliableThr,
			MaxRangeM:        cfg.MaxRangeM,
			HaveUserPosition: cfg.HaveUserPosition,
			UserLat:          cfg.UserLat,
			UserLon:          cfg.UserLon,
			ReduceIntervalMs: cfg.ReduceInterval.Milliseconds(),
		},
		Receivers: receivers,
		Globe:     globe,
	}

	ingestCfg := ingest.Config{Store: store, Pipeline: pipeline, Receivers: receivers, Collector: collector}
	decoder := proto.NewDecoder()

	services := startListeners(cfg.Listeners, log, ingestCfg, decoder)
	defer func() {
		for _, s := range services {
			s.Close()
		}
	}()

	for _, c := range cfg.Connectors {
		startConnector(ctx, c, log, ingestCfg, decoder)
	}

	maintLoop := maint.New(maint.Config{
		Tick:            cfg.MaintenanceTick,
		Workers:         cfg.MaintenanceWorkers,
		StaleWindow:     cfg.StaleWindow,
		JSONReliableThr: cfg.JSONReliableThr,
		OutputDir:       cfg.OutputDir,
	}, store, nil, collector, log)
	go maintLoop.Run(ctx)

	if cfg.AMQP.Enabled {
		startAMQP(ctx, cfg, log, store)
	}

	if cfg.Console.Enabled {
		startConsole(store, receivers, collector, log)
	}

	<-ctx.Done()
}

func startListeners(listeners []config.NetListener, log *logging.Logger, ingestCfg ingest.Config, decoder *proto.Decoder) []*netio.Service {
	var services []*netio.Service
	for _, l := range listeners {
		protocol := netio.Protocol(l.Protocol)
		svc, err := netio.Listen(l.Name, l.Addr, protocol, log)
		if err != nil {
			log.Printf("listen %s on %s: %v", l.Name, l.Addr, err)
			continue
		}
		svc.OnAccept = func(c *netio.Client) {
			go consumeClient(c, svc, protocol, ingestCfg, decoder, log)
		}
		services = append(services, svc)
	}
	return services
}

func startConnector(ctx context.Context, conn config.NetConnector, log *logging.Logger, ingestCfg ingest.Config, decoder *proto.Decoder) {
	protocol := netio.Protocol(conn.Protocol)
	go func() {
		c, err := netio.DialConnector(ctx, conn.Name, conn.Addr, protocol, log)
		if err != nil {
			log.Printf("connector %s: %v", conn.Name, err)
			return
		}
		consumeClient(c, nil, protocol, ingestCfg, decoder, log)
	}()
}

// consumeClient drains one client's decoded frames into the aircraft
// store, branching on wire format: Beast and AVR frames carry raw
// Mode-S bytes that still need proto.Decoder.Decode, while an SBS line
// arrives pre-decoded. When svc is non-nil (an accepted, not dialed,
// client), every successfully-decoded Beast frame is also re-broadcast
// to the service's other clients, so listeners sharing one inbound
// port see each other's traffic per spec §4.7/§4.8 fan-out; AVR/SBS
// text frames are re-broadcast too, just without the receiver-id
// sub-record Beast alone defines.
func consumeClient(c *netio.Client, svc *netio.Service, protocol netio.Protocol, ingestCfg ingest.Config, decoder *proto.Decoder, log *logging.Logger) {
	receiverID := stableReceiverID(c.Name)
	for frame := range c.Messages {
		nowMs := time.Now().UnixMilli()
		switch protocol {
		case netio.ProtoSBS:
			m, err := proto.DecodeSBS(string(frame))
			if err != nil {
				continue
			}
			if err := ingest.ApplySBS(ingestCfg, m, receiverID, nowMs); err != nil && log != nil {
				log.Printf("%s: %v", c.Name, err)
			}
			if svc != nil {
				svc.Broadcast(append(append([]byte(nil), frame...), '\n'))
			}
		default:
			m, err := decoder.Decode(frame)
			if err != nil {
				continue
			}
			if err := ingest.Apply(ingestCfg, m, receiverID, nowMs, false); err != nil {
				continue
			}
			if svc != nil {
				if protocol == netio.ProtoBeast {
					if wire, ok := reencodeBeast(frame, nowMs); ok {
						svc.BroadcastFromReceiver(receiverID, wire)
					}
				} else {
					svc.Broadcast(proto.EncodeAVR(frame))
				}
			}
		}
	}
}

// reencodeBeast rebuilds a Beast wire frame around a decoded Mode-S
// payload for re-broadcast: the netio read side only hands consumeClient
// the de-escaped message bytes (internal/netio/framer.go's beastDecoder
// discards the marker/timestamp/signal), so fanning a message back out
// to other clients needs a fresh Beast header around it. The original
// receive timestamp/signal level aren't preserved past that point, so
// the re-broadcast frame carries the current time and a zero signal
// level rather than the receiver's own values.
func reencodeBeast(payload []byte, nowMs int64) ([]byte, bool) {
	var marker byte
	switch len(payload) {
	case 7:
		marker = proto.BeastModeSShort
	case 14:
		marker = proto.BeastModeSLong
	default:
		return nil, false
	}
	wire, err := proto.EncodeBeast(marker, uint64(nowMs), 0, payload)
	if err != nil {
		return nil, false
	}
	return wire, true
}

// stableReceiverID derives a receiver table key from a client's name
// (service/address), a simple FNV-1a hash since receiver identity only
// needs to be stable per connection, not globally unique across
// restarts.
func stableReceiverID(name string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h
}

func startAMQP(ctx context.Context, cfg *config.Config, log *logging.Logger, store *track.Store) {
	pub, err := amqpout.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, fmt.Sprintf("%d", cfg.ReceiverID), log)
	if err != nil {
		log.Printf("amqp: %v", err)
		return
	}
	go pub.Run(ctx, time.Second, store.Snapshot)
}

func startConsole(store *track.Store, receivers *track.ReceiverTable, collector *stats.Collector, log *logging.Logger) {
	dash, err := console.New(store, receivers, collector)
	if err != nil {
		log.Printf("console: %v", err)
		return
	}
	go func() {
		defer dash.Close()
		if err := dash.Run(time.Second); err != nil {
			log.Printf("console: %v", err)
		}
	}()
}
