package querygen

import (
	"fmt"
	"sync"

	"github.com/gopacket/gopacket/layers"

	"github.com/shmup/flamethrower/internal/dnswire"
)

// numberQnameGenerator synthesizes qnames of the form "{n}.{base}" for n
// walking [LOW, HIGH]. The walk order comes from an lcgWalk rather than a
// materialized, shuffled slice, so HIGH-LOW in the millions costs no more
// memory than HIGH-LOW in the hundreds. One instance is shared by every
// TrafGen in the fleet, each calling qname()/Finished() from its own
// goroutine, so walk/done are guarded by mu.
type numberQnameGenerator struct {
	cfg    Config
	low    int
	high   int
	qtype  layers.DNSType
	qclass layers.DNSClass
	loops  int

	mu   sync.Mutex
	walk *lcgWalk
	done int
}

func (g *numberQnameGenerator) SetArgs(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	g.low = 0
	g.high = 100000
	for key, val := range parsed {
		switch key {
		case "LOW":
			if _, err := fmt.Sscanf(val, "%d", &g.low); err != nil {
				return fmt.Errorf("querygen: numberqname LOW=%q: %w", val, err)
			}
		case "HIGH":
			if _, err := fmt.Sscanf(val, "%d", &g.high); err != nil {
				return fmt.Errorf("querygen: numberqname HIGH=%q: %w", val, err)
			}
		default:
			return errUnknownKeys(map[string]string{key: val}, "numberqname")
		}
	}
	return nil
}

func (g *numberQnameGenerator) Init() error {
	if g.high < g.low {
		return fmt.Errorf("querygen: numberqname HIGH (%d) must be >= LOW (%d)", g.high, g.low)
	}
	qtype, qclass, err := resolveQtypeQclass(g.cfg.Qtype, g.cfg.Qclass)
	if err != nil {
		return err
	}
	g.qtype = qtype
	g.qclass = qclass
	g.loops = g.cfg.Loops
	g.walk = newLCGWalk(g.high - g.low + 1)
	return nil
}

func (g *numberQnameGenerator) Size() int { return g.high - g.low + 1 }

// Randomize is a no-op: lcgWalk already visits [LOW, HIGH] in a
// non-sequential pseudorandom order by construction.
func (g *numberQnameGenerator) Randomize() {}

func (g *numberQnameGenerator) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loops > 0 && g.done >= g.loops
}

func (g *numberQnameGenerator) Name() string { return "numberqname" }

func (g *numberQnameGenerator) qname() string {
	g.mu.Lock()
	n, wrapped := g.walk.next()
	if wrapped {
		g.done++
	}
	g.mu.Unlock()
	return fmt.Sprintf("%d.%s", g.low+n, g.cfg.QnameBase)
}

func (g *numberQnameGenerator) NextUDP(id uint16) ([]byte, error) {
	return dnswire.BuildQuery(g.qname(), g.qtype, g.qclass, g.cfg.DnssecDO, id)
}

func (g *numberQnameGenerator) NextTCP(ids []uint16) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		wire, err := g.NextUDP(id)
		if err != nil {
			return nil, err
		}
		prefix := []byte{byte(len(wire) >> 8), byte(len(wire))}
		out = append(out, prefix...)
		out = append(out, wire...)
	}
	return out, nil
}
