// Package querygen synthesizes DNS query wire-bytes for flame's traffic
// generators. Six variants share one configuration surface and two
// production operations (NextUDP, NextTCP) keyed by transaction ID.
package querygen

import (
	"fmt"
	"strings"

	"github.com/gopacket/gopacket/layers"

	"github.com/shmup/flamethrower/internal/dnswire"
)

// Config is the configuration surface shared by every generator variant.
type Config struct {
	QnameBase string
	Qtype     string
	Qclass    string
	DnssecDO  bool
	Loops     int
}

// Generator is the behavior every query-generator variant implements.
type Generator interface {
	// Init validates configuration and GENOPTS and builds the internal
	// record list. It may fail with a descriptive error (bad file, bad
	// option).
	Init() error
	// SetArgs consumes KEY=VAL GENOPTS tokens; keys are case-insensitive.
	// An unknown key fails init.
	SetArgs(args []string) error
	// Size reports the number of distinct records, informational only.
	Size() int
	// Randomize optionally reorders the internal record list. It is a
	// no-op for variants whose records are already independently random.
	Randomize()
	// Finished reports whether loops() > 0 and every pass has completed.
	Finished() bool
	// NextUDP returns a single DNS query packet stamped with id.
	NextUDP(id uint16) ([]byte, error)
	// NextTCP returns len(ids) DNS queries, each preceded by its 2-byte
	// network-order length prefix, stamped with successive ids.
	NextTCP(ids []uint16) ([]byte, error)
	// Name reports the variant's canonical name.
	Name() string
}

// New constructs the named variant. An unrecognized name silently falls
// back to "static", matching the original flame's observed behavior.
func New(name string, cfg Config) Generator {
	switch strings.ToLower(name) {
	case "file":
		return &fileGenerator{cfg: cfg}
	case "numberqname":
		return &numberQnameGenerator{cfg: cfg}
	case "randompkt":
		return &randomPktGenerator{cfg: cfg}
	case "randomqname":
		return &randomQnameGenerator{cfg: cfg}
	case "randomlabel":
		return &randomLabelGenerator{cfg: cfg}
	default:
		return &staticGenerator{cfg: cfg}
	}
}

// parseArgs splits KEY=VAL tokens into a case-insensitively-keyed map,
// failing on any token missing the '='.
func parseArgs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("querygen: malformed GENOPT %q, expected KEY=VAL", a)
		}
		out[strings.ToUpper(parts[0])] = parts[1]
	}
	return out, nil
}

func errUnknownKeys(parsed map[string]string, variant string) error {
	keys := make([]string, 0, len(parsed))
	for k := range parsed {
		keys = append(keys, k)
	}
	return fmt.Errorf("querygen: generator %q does not accept GENOPT key(s) %v", variant, keys)
}

func resolveQtypeQclass(qtype, qclass string) (layers.DNSType, layers.DNSClass, error) {
	t, ok := dnswire.TypeFromString(qtype)
	if !ok {
		return 0, 0, fmt.Errorf("querygen: unknown query type %q", qtype)
	}
	c, ok := dnswire.ClassFromString(qclass)
	if !ok {
		return 0, 0, fmt.Errorf("querygen: unknown query class %q", qclass)
	}
	return t, c, nil
}
