package mdns

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/ipv4"
)

// MulticastAddr is the IPv4 mDNS group and port per RFC 6762.
var MulticastAddr = &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: 5353}

const probeInterval = 250 * time.Millisecond
const probeCount = 3
const announceCount = 2
const announceInterval = time.Second
const conflictSuppressWindow = time.Second

// Responder is a self-contained mDNS/DNS-SD responder: it owns a set of
// local records, probes and announces them, answers incoming queries, and
// maintains a cache of records it has learned from the network. It runs on
// its own goroutine reading the multicast socket, the Go equivalent of the
// dedicated select-loop thread described for this subsystem.
type Responder struct {
	conn    *ipv4.PacketConn
	udpConn *net.UDPConn
	iface   *net.Interface

	mu              sync.Mutex
	records         []*localRecord
	cache           *Cache
	probesSuspended time.Time

	rng *rand.Rand

	closeOnce sync.Once
	done      chan struct{}
}

// New binds the mDNS multicast socket on the given interface (nil for the
// system default) and returns a Responder ready to have records added via
// AddRecord before Start is called.
func New(iface *net.Interface) (*Responder, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: MulticastAddr.Port})
	if err != nil {
		return nil, fmt.Errorf("mdns: listen: %w", err)
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(iface, MulticastAddr); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mdns: join group: %w", err)
	}
	_ = pc.SetMulticastLoopback(true)

	return &Responder{
		conn:    pc,
		udpConn: conn,
		iface:   iface,
		cache:   NewCache(512),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		done:    make(chan struct{}),
	}, nil
}

// AddRecord registers a unique record for probing and announcement. TTL
// defaults to 120s if unset.
func (r *Responder) AddRecord(rec Record, onConflict func(*localRecord)) *localRecord {
	if rec.TTL == 0 {
		rec.TTL = defaultTTL
	}
	if !rec.Shared() {
		rec.Class |= CacheFlushBit
	}
	lr := &localRecord{rec: rec, state: StateUnique, OnConflict: onConflict}

	r.mu.Lock()
	r.records = append(r.records, lr)
	r.mu.Unlock()
	return lr
}

// AddService is a convenience wrapper registering the PTR/SRV/TXT/A record
// set for one service instance, matching the "two services per host"
// contract in §6.
func (r *Responder) AddService(instance, service, hostname string, ip net.IP, port uint16, txt []string) {
	ptrName := service
	srvName := instance + "." + service

	r.AddRecord(Record{Name: ptrName, Type: TypePTR, Class: ClassIN, TTL: defaultTTL, PTR: srvName}, nil)
	r.AddRecord(Record{Name: srvName, Type: TypeSRV, Class: ClassIN, TTL: defaultTTL,
		SRV: SRVData{Priority: 0, Weight: 0, Port: port, Target: hostname}}, nil)
	r.AddRecord(Record{Name: srvName, Type: TypeTXT, Class: ClassIN, TTL: defaultTTL, TXT: txt}, nil)
	r.AddRecord(Record{Name: hostname, Type: TypeA, Class: ClassIN, TTL: defaultTTL, A: ipv4Bytes(ip)}, nil)
}

func ipv4Bytes(ip net.IP) [4]byte {
	var b [4]byte
	v4 := ip.To4()
	if v4 != nil {
		copy(b[:], v4)
	}
	return b
}

// Start runs the responder's event loop until ctx is cancelled: it drives
// probing/announcing for pending records and answers incoming queries. It
// blocks until the loop exits.
func (r *Responder) Start(ctx context.Context) error {
	go r.readLoop(ctx)

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case <-r.done:
			return nil
		case now := <-ticker.C:
			r.tick(now)
		}
	}
}

func (r *Responder) shutdown() {
	r.closeOnce.Do(func() {
		r.goodbyeAll()
		r.conn.Close()
		close(r.done)
	})
}

// Close stops the responder immediately.
func (r *Responder) Close() error {
	r.shutdown()
	return nil
}

func (r *Responder) tick(now time.Time) {
	r.mu.Lock()
	pending := make([]*localRecord, len(r.records))
	copy(pending, r.records)
	suspended := now.Before(r.probesSuspended)
	r.mu.Unlock()

	for _, lr := range pending {
		switch lr.state {
		case StateUnique:
			if lr.rec.Shared() {
				// Shared records skip probing and go straight to announcing.
				lr.state = StateVerified
				continue
			}
			if suspended {
				continue
			}
			r.stepProbe(lr, now)
		case StateVerified:
			r.stepAnnounce(lr, now)
		}
	}

	for _, rec := range r.cache.Expired(now) {
		slog.Debug("mdns: record expired", "name", rec.Name, "type", rec.Type)
	}
}

func (r *Responder) stepProbe(lr *localRecord, now time.Time) {
	if lr.probesSent > 0 && now.Sub(lr.lastProbeAt) < probeInterval {
		return
	}
	if lr.probesSent >= probeCount {
		lr.state = StateVerified
		lr.probesSent = 0
		return
	}

	q := Question{Name: lr.rec.Name, Type: lr.rec.Type, Class: ClassIN}
	msg := EncodeProbe(uint16(r.rng.Intn(1<<16)), []Question{q}, []Record{lr.rec})
	r.send(msg, MulticastAddr)

	lr.probesSent++
	lr.lastProbeAt = now
}

func (r *Responder) stepAnnounce(lr *localRecord, now time.Time) {
	if lr.announceSent == 0 {
		lr.announceWait = 0
	}
	if lr.announceSent > 0 && now.Sub(lr.lastAnnounce) < lr.announceWait {
		return
	}

	msg := EncodeResponse(0, []Record{lr.rec}, nil)
	r.send(msg, MulticastAddr)

	lr.announceSent++
	lr.lastAnnounce = now
	lr.state = StateActive

	if lr.announceSent < announceCount {
		lr.state = StateVerified
		lr.announceWait = announceInterval
		return
	}
	if lr.rec.Shared() {
		// Exponential back-off keeps shared records refreshed in peers'
		// caches without the strict probe/verify cycle unique records use.
		lr.announceWait = lr.announceWait * 2
		if lr.announceWait == 0 {
			lr.announceWait = announceInterval
		}
		lr.state = StateVerified
	}
}

// goodbyeAll announces TTL=0 for every active record, per the sleep and
// shutdown paths in §4.K.
func (r *Responder) goodbyeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lr := range r.records {
		if lr.state != StateActive {
			continue
		}
		goodbye := lr.rec
		goodbye.TTL = 0
		r.send(EncodeResponse(0, []Record{goodbye}, nil), MulticastAddr)
		lr.state = StateDeregistering
	}
}

// Sleep marks every shared record with TTL 0 and broadcasts a goodbye,
// per §4.K.
func (r *Responder) Sleep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lr := range r.records {
		if !lr.rec.Shared() {
			continue
		}
		goodbye := lr.rec
		goodbye.TTL = 0
		r.send(EncodeResponse(0, []Record{goodbye}, nil), MulticastAddr)
	}
}

// Wake returns every Verified record to Unique with a full probe count, per
// §4.K. Idempotent: Active/Unique records are untouched.
func (r *Responder) Wake() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lr := range r.records {
		if lr.state == StateVerified {
			lr.state = StateUnique
			lr.probesSent = 0
		}
	}
}

func (r *Responder) send(msg []byte, addr *net.UDPAddr) {
	if _, err := r.udpConn.WriteToUDP(msg, addr); err != nil {
		slog.Warn("mdns: send failed", "error", err)
	}
}

func (r *Responder) readLoop(ctx context.Context) {
	buf := make([]byte, 9000) // accommodate jumbo mDNS responses
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		default:
		}

		r.udpConn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, srcAddr, err := r.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-r.done:
				return
			default:
				slog.Warn("mdns: read failed", "error", err)
				continue
			}
		}

		msg, err := ParseMessage(buf[:n])
		if err != nil {
			continue
		}
		if msg.Response {
			r.handleResponse(msg)
		} else {
			r.handleQuery(msg, srcAddr)
		}
	}
}

func (r *Responder) handleResponse(msg *Message) {
	now := time.Now()
	for _, rec := range msg.Answers {
		r.checkConflict(rec)
		r.cache.Add(rec, now)
	}
	for _, rec := range msg.Additionals {
		r.cache.Add(rec, now)
	}
}

// checkConflict implements the probing and active-record conflict rules
// from §4.K: a conflict during probing triggers relabel+restart; a
// conflict on an Active record invokes the owner's callback and suppresses
// new probes for one second.
func (r *Responder) checkConflict(incoming Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lr := range r.records {
		if !lr.conflicts(incoming) {
			continue
		}
		// Each conflict gets its own id so a relabel-storm across several
		// records in the same incoming packet can still be told apart in
		// the logs.
		conflictID := uuid.NewString()
		switch lr.state {
		case StateUnique:
			slog.Warn("mdns: conflict during probing, relabeling", "conflict_id", conflictID, "name", lr.rec.Name)
			relabel(&lr.rec)
			lr.probesSent = 0
		case StateActive:
			slog.Warn("mdns: conflict on active record, relabeling", "conflict_id", conflictID, "name", lr.rec.Name)
			if lr.OnConflict != nil {
				lr.OnConflict(lr)
			}
			relabel(&lr.rec)
			lr.state = StateUnique
			lr.probesSent = 0
			r.probesSuspended = time.Now().Add(conflictSuppressWindow)
		}
	}
}
