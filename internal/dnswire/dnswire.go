// Package dnswire wraps github.com/gopacket/gopacket/layers for the DNS
// message encode/decode flame needs: building queries stamped with a
// transaction ID, and decoding responses far enough to extract the ID
// and response code.
package dnswire

import (
	"fmt"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

var serializeOpts = gopacket.SerializeOptions{FixLengths: true}

// TypeFromString resolves a CLI-provided query type name (case
// insensitive) to its layers.DNSType, e.g. "a" -> layers.DNSTypeA.
func TypeFromString(s string) (layers.DNSType, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return layers.DNSTypeA, true
	case "NS":
		return layers.DNSTypeNS, true
	case "CNAME":
		return layers.DNSTypeCNAME, true
	case "SOA":
		return layers.DNSTypeSOA, true
	case "PTR":
		return layers.DNSTypePTR, true
	case "MX":
		return layers.DNSTypeMX, true
	case "TXT":
		return layers.DNSTypeTXT, true
	case "AAAA":
		return layers.DNSTypeAAAA, true
	case "SRV":
		return layers.DNSTypeSRV, true
	case "ANY":
		return layers.DNSType(255), true
	default:
		return 0, false
	}
}

// PopularTypes is the fixed set of common query types randomlabel draws
// from.
var PopularTypes = []layers.DNSType{
	layers.DNSTypeA,
	layers.DNSTypeAAAA,
	layers.DNSTypeNS,
	layers.DNSTypeCNAME,
	layers.DNSTypeMX,
	layers.DNSTypeTXT,
	layers.DNSTypeSOA,
	layers.DNSTypeSRV,
	layers.DNSTypePTR,
}

// ClassFromString resolves "IN" or "CH" (case insensitive) to its
// layers.DNSClass.
func ClassFromString(s string) (layers.DNSClass, bool) {
	switch strings.ToUpper(s) {
	case "IN":
		return layers.DNSClassIN, true
	case "CH":
		return layers.DNSClassCH, true
	default:
		return 0, false
	}
}

// BuildQuery serializes a single-question DNS query, optionally carrying
// an EDNS0 OPT record with the DO bit set, stamped with id.
func BuildQuery(qname string, qtype layers.DNSType, qclass layers.DNSClass, do bool, id uint16) ([]byte, error) {
	dns := layers.DNS{
		ID:     id,
		QR:     false,
		OpCode: layers.DNSOpCodeQuery,
		RD:     true,
		Questions: []layers.DNSQuestion{
			{
				Name:  []byte(qname),
				Type:  qtype,
				Class: qclass,
			},
		},
	}
	if do {
		var flags uint32
		flags |= 1 << 15 // DO bit
		dns.Additionals = append(dns.Additionals, layers.DNSResourceRecord{
			Name:  []byte{},
			Type:  layers.DNSTypeOPT,
			Class: 4096, // requestor's UDP payload size
			TTL:   flags,
		})
		dns.ARCount = uint16(len(dns.Additionals))
	}
	dns.QDCount = uint16(len(dns.Questions))

	buf := gopacket.NewSerializeBuffer()
	if err := dns.SerializeTo(buf, serializeOpts); err != nil {
		return nil, fmt.Errorf("dnswire: serialize query: %w", err)
	}
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// StampID overwrites the first two bytes of a raw wire buffer with id,
// the DNS header's transaction ID field, without re-parsing it. Used for
// generators that synthesize raw bytes instead of building through
// layers.DNS (randompkt).
func StampID(wire []byte, id uint16) {
	if len(wire) < 2 {
		return
	}
	wire[0] = byte(id >> 8)
	wire[1] = byte(id)
}

// Decode parses wire bytes as a DNS message far enough to read the
// transaction ID and response code.
func Decode(wire []byte) (*layers.DNS, error) {
	dns := &layers.DNS{}
	if err := dns.DecodeFromBytes(wire, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("dnswire: decode: %w", err)
	}
	return dns, nil
}
