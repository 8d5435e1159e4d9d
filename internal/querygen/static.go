package querygen

// staticGenerator sends a single fixed qname/qtype, taken from CLI -r/-T.
// It recognizes no GENOPT keys.
type staticGenerator struct {
	cfg    Config
	engine listEngine
}

func (g *staticGenerator) SetArgs(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed) != 0 {
		return errUnknownKeys(parsed, "static")
	}
	return nil
}

func (g *staticGenerator) Init() error {
	qtype, qclass, err := resolveQtypeQclass(g.cfg.Qtype, g.cfg.Qclass)
	if err != nil {
		return err
	}
	g.engine = listEngine{
		records: []record{{qname: g.cfg.QnameBase, qtype: qtype}},
		qclass:  qclass,
		do:      g.cfg.DnssecDO,
		loops:   g.cfg.Loops,
	}
	return nil
}

func (g *staticGenerator) Size() int              { return g.engine.size() }
func (g *staticGenerator) Randomize()             { g.engine.randomizeList() }
func (g *staticGenerator) Finished() bool         { return g.engine.finished() }
func (g *staticGenerator) Name() string           { return "static" }
func (g *staticGenerator) NextUDP(id uint16) ([]byte, error)       { return g.engine.nextUDP(id) }
func (g *staticGenerator) NextTCP(ids []uint16) ([]byte, error)    { return g.engine.nextTCP(ids) }
