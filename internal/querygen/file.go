package querygen

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/shmup/flamethrower/internal/dnswire"
)

// fileGenerator reads one qname/qtype pair per line of an input file. It
// recognizes no GENOPT keys; the file path itself arrives via -f.
type fileGenerator struct {
	cfg      Config
	filePath string
	engine   listEngine
}

// SetFilePath is called by the Runner with the -f argument before Init.
func (g *fileGenerator) SetFilePath(path string) {
	g.filePath = path
}

func (g *fileGenerator) SetArgs(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed) != 0 {
		return errUnknownKeys(parsed, "file")
	}
	return nil
}

func (g *fileGenerator) Init() error {
	if g.filePath == "" {
		return fmt.Errorf("querygen: file generator requires -f FILE")
	}
	f, err := os.Open(g.filePath)
	if err != nil {
		return fmt.Errorf("querygen: opening %s: %w", g.filePath, err)
	}
	defer f.Close()

	_, qclass, err := resolveQtypeQclass(g.cfg.Qtype, g.cfg.Qclass)
	if err != nil {
		return err
	}

	var records []record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("querygen: malformed line %q, expected QNAME TYPE", line)
		}
		qtype, ok := dnswire.TypeFromString(fields[1])
		if !ok {
			return fmt.Errorf("querygen: unknown query type %q on line %q", fields[1], line)
		}
		records = append(records, record{qname: fields[0], qtype: qtype})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("querygen: reading %s: %w", g.filePath, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("querygen: file %s contained no records", g.filePath)
	}

	g.engine = listEngine{
		records: records,
		qclass:  qclass,
		do:      g.cfg.DnssecDO,
		loops:   g.cfg.Loops,
	}
	return nil
}

func (g *fileGenerator) Size() int           { return g.engine.size() }
func (g *fileGenerator) Randomize()          { g.engine.randomizeList() }
func (g *fileGenerator) Finished() bool      { return g.engine.finished() }
func (g *fileGenerator) Name() string        { return "file" }
func (g *fileGenerator) NextUDP(id uint16) ([]byte, error)    { return g.engine.nextUDP(id) }
func (g *fileGenerator) NextTCP(ids []uint16) ([]byte, error) { return g.engine.nextTCP(ids) }
