package querygen

import (
	"fmt"
	"math/rand"
)

// randomQnameGenerator emits COUNT distinct queries whose qname is random
// bytes (including NULs) of length uniform in [1, SIZE], under base.
// randomize() is a no-op: already independently random.
type randomQnameGenerator struct {
	cfg    Config
	count  int
	size   int
	engine listEngine
}

func (g *randomQnameGenerator) SetArgs(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	g.count = 1000
	g.size = 255
	for key, val := range parsed {
		switch key {
		case "COUNT":
			if _, err := fmt.Sscanf(val, "%d", &g.count); err != nil {
				return fmt.Errorf("querygen: randomqname COUNT=%q: %w", val, err)
			}
		case "SIZE":
			if _, err := fmt.Sscanf(val, "%d", &g.size); err != nil {
				return fmt.Errorf("querygen: randomqname SIZE=%q: %w", val, err)
			}
		default:
			return errUnknownKeys(map[string]string{key: val}, "randomqname")
		}
	}
	return nil
}

func (g *randomQnameGenerator) Init() error {
	if g.count <= 0 || g.size <= 0 {
		return fmt.Errorf("querygen: randomqname COUNT and SIZE must be positive")
	}
	qtype, qclass, err := resolveQtypeQclass(g.cfg.Qtype, g.cfg.Qclass)
	if err != nil {
		return err
	}
	records := make([]record, g.count)
	for i := 0; i < g.count; i++ {
		n := 1 + rand.Intn(g.size)
		label := randomLabelBytes(n)
		records[i] = record{
			qname: string(label) + "." + g.cfg.QnameBase,
			qtype: qtype,
		}
	}
	g.engine = listEngine{
		records: records,
		qclass:  qclass,
		do:      g.cfg.DnssecDO,
		loops:   g.cfg.Loops,
	}
	return nil
}

func (g *randomQnameGenerator) Size() int           { return g.engine.size() }
func (g *randomQnameGenerator) Randomize()          {} // no-op: already independently random
func (g *randomQnameGenerator) Finished() bool      { return g.engine.finished() }
func (g *randomQnameGenerator) Name() string        { return "randomqname" }
func (g *randomQnameGenerator) NextUDP(id uint16) ([]byte, error)    { return g.engine.nextUDP(id) }
func (g *randomQnameGenerator) NextTCP(ids []uint16) ([]byte, error) { return g.engine.nextTCP(ids) }
