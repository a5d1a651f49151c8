package testutil

import (
	"math/rand/v2"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// Ping is a canned atomic model that alternates between sending a message
// to Peer and waiting for a reply, counting round trips. Used for the
// sequential ping-pong and optimistic-straggler seed scenarios.
type Ping struct {
	id       types.ModelID
	peer     types.ModelID
	name     string
	Max      int
	Sends    int
	Received int
	waiting  bool
}

func NewPing(id, peer types.ModelID, name string, max int) *Ping {
	return &Ping{id: id, peer: peer, name: name, Max: max}
}

func (p *Ping) ID() types.ModelID { return p.id }
func (p *Ping) Name() string      { return p.name }
func (p *Ping) Priority() int     { return 0 }
func (p *Ping) Lookahead() types.Timestamp {
	return types.IntEpsilon()
}

func (p *Ping) TimeAdvance() types.Timestamp {
	if p.waiting || p.Sends >= p.Max {
		return types.InfiniteIntTime()
	}
	return types.NewIntTime(1)
}

func (p *Ping) Output() []types.Message {
	return []types.Message{{Dst: p.peer, Payload: p.Sends}}
}

func (p *Ping) InternalTransition() {
	p.Sends++
	p.waiting = true
}

func (p *Ping) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	p.Received += len(bag)
	p.waiting = false
}

func (p *Ping) ConfluentTransition(bag []types.Message) {
	p.InternalTransition()
	p.ExternalTransition(types.NewIntTime(0), bag)
}

// SaveState/RestoreState make Ping usable under the optimistic discipline.
func (p *Ping) SaveState() interface{} {
	return [3]int{p.Sends, p.Received, boolToInt(p.waiting)}
}

func (p *Ping) RestoreState(s interface{}) {
	v := s.([3]int)
	p.Sends, p.Received, p.waiting = v[0], v[1], v[2] != 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ types.AtomicModel   = (*Ping)(nil)
	_ types.Snapshottable = (*Ping)(nil)
)

// PassiveSink never produces output and never advances on its own; it
// only reacts to external messages, recording every one it receives.
// Used for the passive-sink seed scenario.
type PassiveSink struct {
	id       types.ModelID
	name     string
	Received []types.Message
}

func NewPassiveSink(id types.ModelID, name string) *PassiveSink {
	return &PassiveSink{id: id, name: name}
}

func (s *PassiveSink) ID() types.ModelID           { return s.id }
func (s *PassiveSink) Name() string                { return s.name }
func (s *PassiveSink) Priority() int                { return 0 }
func (s *PassiveSink) Lookahead() types.Timestamp   { return types.InfiniteIntTime() }
func (s *PassiveSink) TimeAdvance() types.Timestamp { return types.InfiniteIntTime() }
func (s *PassiveSink) Output() []types.Message      { return nil }
func (s *PassiveSink) InternalTransition()          {}
func (s *PassiveSink) ConfluentTransition(bag []types.Message) {
	s.ExternalTransition(types.NewIntTime(0), bag)
}
func (s *PassiveSink) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	s.Received = append(s.Received, bag...)
}

var _ types.AtomicModel = (*PassiveSink)(nil)

// Confluence is a canned atomic model for exercising simultaneous
// internal/external events: every instance is scheduled on the same
// fixed period regardless of incoming mail, so two Confluence models
// addressing each other are guaranteed to hit ConfluentTransition every
// tick instead of racing between internal and external dispatch.
type Confluence struct {
	id       types.ModelID
	peer     types.ModelID
	name     string
	Period   int64
	Count    int
	Received int
}

func NewConfluence(id, peer types.ModelID, name string, period int64) *Confluence {
	return &Confluence{id: id, peer: peer, name: name, Period: period}
}

func (c *Confluence) ID() types.ModelID          { return c.id }
func (c *Confluence) Name() string               { return c.name }
func (c *Confluence) Priority() int               { return 0 }
func (c *Confluence) Lookahead() types.Timestamp  { return types.NewIntTime(c.Period) }
func (c *Confluence) TimeAdvance() types.Timestamp { return types.NewIntTime(c.Period) }
func (c *Confluence) Output() []types.Message {
	return []types.Message{{Dst: c.peer, Payload: c.Count}}
}
func (c *Confluence) InternalTransition() { c.Count++ }
func (c *Confluence) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	c.Received += len(bag)
}
func (c *Confluence) ConfluentTransition(bag []types.Message) {
	c.InternalTransition()
	c.ExternalTransition(types.NewIntTime(0), bag)
}

var _ types.AtomicModel = (*Confluence)(nil)

// Phold is a PHOLD-style generator: each instance holds a randomly
// shifting delay within [MinDelay, MaxDelay] and, on every internal
// transition, forwards one event to a randomly chosen peer (possibly
// itself) -- the
// standard DEVS/PDES parallel benchmark workload, adapted from
// adevs/benchmarks/phold.cpp for the conservative-lookahead and
// optimistic-straggler seed scenarios, since both need a workload with
// genuine cross-LP fan-out instead of a fixed two-model exchange.
type Phold struct {
	id    types.ModelID
	name  string
	peers []types.ModelID
	rng   *rand.Rand

	MinDelay, MaxDelay int64
	delay              int64
	EventCount         int
}

// NewPhold builds a Phold instance with its own PRNG stream, seeded from
// seed (typically derived from the Controller configuration's RNGSeed and
// this model's LP index, per the LP-local-PRNG design note).
func NewPhold(id types.ModelID, name string, peers []types.ModelID, seed uint64, minDelay, maxDelay int64) *Phold {
	p := &Phold{
		id:       id,
		name:     name,
		peers:    peers,
		rng:      rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d)),
		MinDelay: minDelay,
		MaxDelay: maxDelay,
	}
	p.delay = p.nextDelay()
	return p
}

func (p *Phold) nextDelay() int64 {
	if p.MaxDelay <= p.MinDelay {
		return p.MinDelay
	}
	return p.MinDelay + p.rng.Int64N(p.MaxDelay-p.MinDelay+1)
}

func (p *Phold) ID() types.ModelID { return p.id }
func (p *Phold) Name() string      { return p.name }
func (p *Phold) Priority() int     { return 0 }

// Lookahead is the minimum possible delay: no event this model produces
// can ever be timestamped sooner than MinDelay after now.
func (p *Phold) Lookahead() types.Timestamp {
	return types.NewIntTime(p.MinDelay)
}

func (p *Phold) TimeAdvance() types.Timestamp {
	return types.NewIntTime(p.delay)
}

func (p *Phold) Output() []types.Message {
	dst := p.peers[p.rng.IntN(len(p.peers))]
	return []types.Message{{Dst: dst, Payload: p.EventCount}}
}

func (p *Phold) InternalTransition() {
	p.EventCount++
	p.delay = p.nextDelay()
}

func (p *Phold) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	p.EventCount += len(bag)
}

func (p *Phold) ConfluentTransition(bag []types.Message) {
	p.InternalTransition()
	p.ExternalTransition(types.NewIntTime(0), bag)
}

// SaveState/RestoreState make Phold usable under the optimistic
// discipline; the PRNG stream itself is not rewound (draws already
// consumed are not replayable), so a replay after a rollback does not
// reproduce the same delays and destinations.
func (p *Phold) SaveState() interface{} {
	return [2]int64{p.delay, int64(p.EventCount)}
}

func (p *Phold) RestoreState(s interface{}) {
	v := s.([2]int64)
	p.delay, p.EventCount = v[0], int(v[1])
}

var (
	_ types.AtomicModel   = (*Phold)(nil)
	_ types.Snapshottable = (*Phold)(nil)
)
