package querygen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/shmup/flamethrower/internal/dnswire"
)

// randomLabelGenerator emits COUNT queries under base, each qname made of
// rand(1..=LBLCOUNT) labels of rand(1..=LBLSIZE) random bytes, with qtype
// drawn from dnswire.PopularTypes. randomize() is a no-op.
type randomLabelGenerator struct {
	cfg      Config
	count    int
	lblSize  int
	lblCount int
	engine   listEngine
}

func (g *randomLabelGenerator) SetArgs(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	g.count = 1000
	g.lblSize = 10
	g.lblCount = 5
	for key, val := range parsed {
		switch key {
		case "COUNT":
			if _, err := fmt.Sscanf(val, "%d", &g.count); err != nil {
				return fmt.Errorf("querygen: randomlabel COUNT=%q: %w", val, err)
			}
		case "LBLSIZE":
			if _, err := fmt.Sscanf(val, "%d", &g.lblSize); err != nil {
				return fmt.Errorf("querygen: randomlabel LBLSIZE=%q: %w", val, err)
			}
		case "LBLCOUNT":
			if _, err := fmt.Sscanf(val, "%d", &g.lblCount); err != nil {
				return fmt.Errorf("querygen: randomlabel LBLCOUNT=%q: %w", val, err)
			}
		default:
			return errUnknownKeys(map[string]string{key: val}, "randomlabel")
		}
	}
	return nil
}

func (g *randomLabelGenerator) Init() error {
	if g.count <= 0 || g.lblSize <= 0 || g.lblCount <= 0 {
		return fmt.Errorf("querygen: randomlabel COUNT, LBLSIZE and LBLCOUNT must be positive")
	}
	_, qclass, err := resolveQtypeQclass(g.cfg.Qtype, g.cfg.Qclass)
	if err != nil {
		return err
	}
	records := make([]record, g.count)
	for i := 0; i < g.count; i++ {
		nLabels := 1 + rand.Intn(g.lblCount)
		labels := make([]string, nLabels)
		for j := 0; j < nLabels; j++ {
			n := 1 + rand.Intn(g.lblSize)
			labels[j] = string(randomLabelBytes(n))
		}
		qtype := dnswire.PopularTypes[rand.Intn(len(dnswire.PopularTypes))]
		records[i] = record{
			qname: strings.Join(labels, ".") + "." + g.cfg.QnameBase,
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

func (g *randomLabelGenerator) Size() int           { return g.engine.size() }
func (g *randomLabelGenerator) Randomize()          {} // no-op: already independently random
func (g *randomLabelGenerator) Finished() bool      { return g.engine.finished() }
func (g *randomLabelGenerator) Name() string        { return "randomlabel" }
func (g *randomLabelGenerator) NextUDP(id uint16) ([]byte, error)    { return g.engine.nextUDP(id) }
func (g *randomLabelGenerator) NextTCP(ids []uint16) ([]byte, error) { return g.engine.nextTCP(ids) }
