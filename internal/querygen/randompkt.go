package querygen

import (
	"fmt"
	"math/rand"
)

// randomPktGenerator emits raw random bytes of length uniform in
// [1, SIZE], up to COUNT distinct packets. randomize() is a no-op: the
// packets are already independently random.
type randomPktGenerator struct {
	cfg    Config
	count  int
	size   int
	engine listEngine
}

func (g *randomPktGenerator) SetArgs(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	g.count = 1000
	g.size = 600
	for key, val := range parsed {
		switch key {
		case "COUNT":
			if _, err := fmt.Sscanf(val, "%d", &g.count); err != nil {
				return fmt.Errorf("querygen: randompkt COUNT=%q: %w", val, err)
			}
		case "SIZE":
			if _, err := fmt.Sscanf(val, "%d", &g.size); err != nil {
				return fmt.Errorf("querygen: randompkt SIZE=%q: %w", val, err)
			}
		default:
			return errUnknownKeys(map[string]string{key: val}, "randompkt")
		}
	}
	return nil
}

func (g *randomPktGenerator) Init() error {
	if g.count <= 0 || g.size <= 0 {
		return fmt.Errorf("querygen: randompkt COUNT and SIZE must be positive")
	}
	_, qclass, err := resolveQtypeQclass(g.cfg.Qtype, g.cfg.Qclass)
	if err != nil {
		return err
	}
	records := make([]record, g.count)
	for i := 0; i < g.count; i++ {
		n := 1 + rand.Intn(g.size)
		buf := make([]byte, n)
		rand.Read(buf)
		records[i] = record{raw: buf}
	}
	g.engine = listEngine{
		records: records,
		qclass:  qclass,
		do:      g.cfg.DnssecDO,
		loops:   g.cfg.Loops,
	}
	return nil
}

func (g *randomPktGenerator) Size() int           { return g.engine.size() }
func (g *randomPktGenerator) Randomize()          {} // no-op: already independently random
func (g *randomPktGenerator) Finished() bool      { return g.engine.finished() }
func (g *randomPktGenerator) Name() string        { return "randompkt" }
func (g *randomPktGenerator) NextUDP(id uint16) ([]byte, error)    { return g.engine.nextUDP(id) }
func (g *randomPktGenerator) NextTCP(ids []uint16) ([]byte, error) { return g.engine.nextTCP(ids) }
