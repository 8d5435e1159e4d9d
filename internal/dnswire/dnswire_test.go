package dnswire

import (
	"testing"

	"github.com/gopacket/gopacket/layers"
)

func TestTypeFromStringKnownAndUnknown(t *testing.T) {
	if typ, ok := TypeFromString("a"); !ok || typ != layers.DNSTypeA {
		t.Fatalf("TypeFromString(a) = %v, %v", typ, ok)
	}
	if _, ok := TypeFromString("bogus"); ok {
		t.Fatal("TypeFromString accepted an unknown type")
	}
}

func TestClassFromStringKnownAndUnknown(t *testing.T) {
	if cls, ok := ClassFromString("ch"); !ok || cls != layers.DNSClassCH {
		t.Fatalf("ClassFromString(ch) = %v, %v", cls, ok)
	}
	if _, ok := ClassFromString("bogus"); ok {
		t.Fatal("ClassFromString accepted an unknown class")
	}
}

func TestBuildQueryRoundTripsIDAndQuestion(t *testing.T) {
	wire, err := BuildQuery("example.com", layers.DNSTypeA, layers.DNSClassIN, false, 0xBEEF)
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	dns, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dns.ID != 0xBEEF {
		t.Fatalf("ID = %#x, want 0xBEEF", dns.ID)
	}
	if len(dns.Questions) != 1 || string(dns.Questions[0].Name) != "example.com" {
		t.Fatalf("Questions = %v", dns.Questions)
	}
}

func TestBuildQueryWithDNSSECSetsAdditional(t *testing.T) {
	wire, err := BuildQuery("example.com", layers.DNSTypeA, layers.DNSClassIN, true, 1)
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	dns, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(dns.Additionals) != 1 || dns.Additionals[0].Type != layers.DNSTypeOPT {
		t.Fatalf("Additionals = %v, want one OPT record", dns.Additionals)
	}
}

func TestStampIDOverwritesHeaderInPlace(t *testing.T) {
	wire, err := BuildQuery("example.com", layers.DNSTypeA, layers.DNSClassIN, false, 1)
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	StampID(wire, 0x1234)
	dns, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dns.ID != 0x1234 {
		t.Fatalf("ID = %#x, want 0x1234", dns.ID)
	}
}

func TestStampIDIgnoresShortBuffers(t *testing.T) {
	buf := []byte{0x01}
	StampID(buf, 0xFFFF) // must not panic
	if buf[0] != 0x01 {
		t.Fatalf("StampID mutated a too-short buffer")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0x00}); err == nil {
		t.Fatal("Decode accepted a one-byte garbage buffer")
	}
}
