package mdns

import (
	"math/rand"
	"net"
	"time"
)

const (
	minUnicastResponseDelay = 20 * time.Millisecond
	maxUnicastResponseDelay = 120 * time.Millisecond
)

// handleQuery implements §4.K's Answering rules: for each question, select
// matching local records, apply known-answer suppression, follow
// SRV-target-to-A additional links, and decide unicast vs. multicast
// delivery.
func (r *Responder) handleQuery(msg *Message, src *net.UDPAddr) {
	r.mu.Lock()
	records := make([]*localRecord, len(r.records))
	copy(records, r.records)
	r.mu.Unlock()

	var answers, additionals []Record
	anyLocalAnswer := false

	for _, q := range msg.Questions {
		matched := matchQuestion(records, q)
		for _, rec := range matched {
			if knownAnswerSuppressed(msg.Answers, rec) {
				continue
			}
			answers = append(answers, rec)
			anyLocalAnswer = true
			additionals = append(additionals, additionalsFor(records, rec)...)
		}
	}
	if len(answers) == 0 {
		return
	}

	unicast := wantsUnicast(msg.Questions) || src.Port != MulticastAddr.Port
	resp := EncodeResponse(0, answers, dedupeRecords(additionals))

	if unicast {
		r.send(resp, src)
		return
	}

	if anyLocalAnswer {
		delay := minUnicastResponseDelay + time.Duration(rand.Int63n(int64(maxUnicastResponseDelay-minUnicastResponseDelay)))
		time.AfterFunc(delay, func() { r.send(resp, MulticastAddr) })
	}
}

func wantsUnicast(questions []Question) bool {
	for _, q := range questions {
		if q.wantsUnicastResponse() {
			return true
		}
	}
	return false
}

// matchQuestion selects local records whose (name, type, class) match the
// question. CNAME matches any qtype; qtype ANY matches every type.
func matchQuestion(records []*localRecord, q Question) []Record {
	var out []Record
	for _, lr := range records {
		if lr.state != StateActive && lr.state != StateVerified {
			continue
		}
		if lr.rec.Name != q.Name {
			continue
		}
		if lr.rec.ClassOnly() != q.Class&0x7fff {
			continue
		}
		if q.Type == TypeANY || lr.rec.Type == q.Type || lr.rec.Type == TypeCNAME {
			out = append(out, lr.rec)
		}
	}
	return out
}

// knownAnswerSuppressed reports whether the querier already listed rec (or
// a fresher copy of it) in its known-answer section with TTL at least half
// of rec's own TTL.
func knownAnswerSuppressed(known []Record, rec Record) bool {
	for _, k := range known {
		if k.Name != rec.Name || k.Type != rec.Type {
			continue
		}
		if !sameRData(k, rec) {
			continue
		}
		if k.TTL*2 >= rec.TTL {
			return true
		}
	}
	return false
}

// additionalsFor follows the SRV-target-to-A link: when rec is an SRV
// record, its target's A record is included as an additional.
func additionalsFor(records []*localRecord, rec Record) []Record {
	if rec.Type != TypeSRV {
		return nil
	}
	var out []Record
	for _, lr := range records {
		if lr.rec.Type == TypeA && lr.rec.Name == rec.SRV.Target {
			out = append(out, lr.rec)
		}
	}
	return out
}

func dedupeRecords(recs []Record) []Record {
	seen := make(map[string]bool, len(recs))
	var out []Record
	for _, r := range recs {
		k := cacheKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
