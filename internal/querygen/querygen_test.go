package querygen

import (
	"os"
	"strings"
	"testing"
)

func baseConfig() Config {
	return Config{QnameBase: "test.com", Qtype: "A", Qclass: "IN"}
}

func TestStaticGeneratorSendsFixedRecord(t *testing.T) {
	g := New("static", baseConfig())
	if err := g.SetArgs(nil); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if g.Size() != 1 {
		t.Fatalf("Size = %d, want 1", g.Size())
	}
	wire, err := g.NextUDP(1)
	if err != nil {
		t.Fatalf("NextUDP: %v", err)
	}
	if len(wire) == 0 {
		t.Fatal("NextUDP returned empty wire")
	}
}

func TestStaticGeneratorRejectsGenOpts(t *testing.T) {
	g := New("static", baseConfig())
	if err := g.SetArgs([]string{"KEY=VAL"}); err == nil {
		t.Fatal("SetArgs accepted a GENOPT the static generator does not support")
	}
}

func TestStaticGeneratorLoopsAndFinishes(t *testing.T) {
	cfg := baseConfig()
	cfg.Loops = 2
	g := New("static", cfg)
	g.SetArgs(nil)
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for i := 0; i < 2; i++ {
		if g.Finished() {
			t.Fatalf("Finished() true before %d passes completed", cfg.Loops)
		}
		if _, err := g.NextUDP(uint16(i)); err != nil {
			t.Fatalf("NextUDP: %v", err)
		}
	}
	if !g.Finished() {
		t.Fatal("Finished() false after the configured number of loops completed")
	}
}

func TestNumberQnameGeneratorWalksFullRangeWithoutRepeats(t *testing.T) {
	cfg := baseConfig()
	cfg.Loops = 1
	g := New("numberqname", cfg)
	if err := g.SetArgs([]string{"LOW=0", "HIGH=9"}); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if g.Size() != 10 {
		t.Fatalf("Size = %d, want 10", g.Size())
	}
	// Queries differ only in ID and qname, so wire[2:] identifies the qname.
	seen := make(map[string]bool, 10)
	for i := 0; i < 10; i++ {
		wire, err := g.NextUDP(uint16(i))
		if err != nil {
			t.Fatalf("NextUDP: %v", err)
		}
		if len(wire) == 0 {
			t.Fatal("NextUDP returned empty wire")
		}
		if seen[string(wire[2:])] {
			t.Fatalf("query %d repeats a qname already emitted in this pass", i)
		}
		seen[string(wire[2:])] = true
	}
	if !g.Finished() {
		t.Fatal("Finished() false after walking the full range once with loops=1")
	}
}

func TestNumberQnameGeneratorRejectsInvertedRange(t *testing.T) {
	g := New("numberqname", baseConfig())
	if err := g.SetArgs([]string{"LOW=10", "HIGH=1"}); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err == nil {
		t.Fatal("Init accepted HIGH < LOW")
	}
}

func TestNumberQnameGeneratorRejectsUnknownKey(t *testing.T) {
	g := New("numberqname", baseConfig())
	if err := g.SetArgs([]string{"BOGUS=1"}); err == nil {
		t.Fatal("SetArgs accepted an unknown GENOPT key")
	}
}

func TestRandomPktGeneratorRespectsSizeBound(t *testing.T) {
	g := New("randompkt", baseConfig())
	if err := g.SetArgs([]string{"COUNT=5", "SIZE=20"}); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if g.Size() != 5 {
		t.Fatalf("Size = %d, want 5", g.Size())
	}
	for i := 0; i < 5; i++ {
		wire, err := g.NextUDP(uint16(i))
		if err != nil {
			t.Fatalf("NextUDP: %v", err)
		}
		if len(wire) == 0 || len(wire) > 20 {
			t.Fatalf("packet %d length %d outside (0,20]", i, len(wire))
		}
	}
}

func TestRandomQnameGeneratorProducesDistinctQnames(t *testing.T) {
	g := New("randomqname", baseConfig())
	if err := g.SetArgs([]string{"COUNT=50", "SIZE=30"}); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	wires := make(map[string]bool, 50)
	for i := 0; i < 50; i++ {
		wire, err := g.NextUDP(uint16(i))
		if err != nil {
			t.Fatalf("NextUDP: %v", err)
		}
		// Skip the 2-byte transaction ID, which differs on every call.
		wires[string(wire[2:])] = true
	}
	if len(wires) < 40 {
		t.Fatalf("only %d/50 generated queries were distinct, expected overwhelmingly unique random qnames", len(wires))
	}
}

func TestRandomLabelGeneratorBuildsMultiLabelQnames(t *testing.T) {
	g := New("randomlabel", baseConfig())
	if err := g.SetArgs([]string{"COUNT=10", "LBLSIZE=5", "LBLCOUNT=3"}); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := g.NextUDP(uint16(i)); err != nil {
			t.Fatalf("NextUDP: %v", err)
		}
	}
}

func TestFileGeneratorReadsQnameQtypePairs(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "records*.txt")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteString("one.test.com A\ntwo.test.com AAAA\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	f.Close()

	g := New("file", baseConfig())
	setter, ok := g.(interface{ SetFilePath(string) })
	if !ok {
		t.Fatal("file generator does not implement SetFilePath")
	}
	setter.SetFilePath(f.Name())
	if err := g.SetArgs(nil); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if g.Size() != 2 {
		t.Fatalf("Size = %d, want 2", g.Size())
	}
}

func TestFileGeneratorRequiresPath(t *testing.T) {
	g := New("file", baseConfig())
	if err := g.Init(); err == nil {
		t.Fatal("Init succeeded without a file path having been set")
	}
}

func TestFileGeneratorRejectsMalformedLine(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "records*.txt")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.WriteString("onlyonecolumn\n")
	f.Close()

	g := New("file", baseConfig())
	g.(interface{ SetFilePath(string) }).SetFilePath(f.Name())
	if err := g.Init(); err == nil {
		t.Fatal("Init accepted a line without QNAME TYPE")
	}
}

func TestNewFallsBackToStaticForUnknownName(t *testing.T) {
	g := New("not-a-real-generator", baseConfig())
	if g.Name() != "static" {
		t.Fatalf("Name() = %q, want static fallback", g.Name())
	}
}

func TestParseArgsRejectsMalformedToken(t *testing.T) {
	if _, err := parseArgs([]string{"NOEQUALSSIGN"}); err == nil {
		t.Fatal("parseArgs accepted a token without '='")
	}
}

func TestParseArgsIsCaseInsensitiveOnKeys(t *testing.T) {
	parsed, err := parseArgs([]string{"low=1", "HIGH=2"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if parsed["LOW"] != "1" || parsed["HIGH"] != "2" {
		t.Fatalf("parsed = %v, want upcased keys", parsed)
	}
}

func TestRandomLabelBytesNeverContainsLiteralDot(t *testing.T) {
	for i := 0; i < 100; i++ {
		b := randomLabelBytes(64)
		if strings.ContainsRune(string(b), '.') {
			t.Fatal("randomLabelBytes produced a literal '.' byte")
		}
	}
}
