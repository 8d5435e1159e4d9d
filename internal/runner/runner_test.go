package runner

import "testing"

func TestParseFlowSpecValid(t *testing.T) {
	flows, err := parseFlowSpec("100,500;200,1000;50,0")
	if err != nil {
		t.Fatalf("parseFlowSpec: %v", err)
	}
	if len(flows) != 3 {
		t.Fatalf("len(flows) = %d, want 3", len(flows))
	}
	if flows[0].QPS != 100 || flows[0].DurationMS != 500 {
		t.Fatalf("flows[0] = %+v", flows[0])
	}
	if flows[2].QPS != 50 || flows[2].DurationMS != 0 {
		t.Fatalf("flows[2] = %+v", flows[2])
	}
}

func TestParseFlowSpecRejectsMalformedEntry(t *testing.T) {
	if _, err := parseFlowSpec("100;200,500"); err == nil {
		t.Fatal("parseFlowSpec accepted an entry missing its ',MS' half")
	}
}

func TestParseFlowSpecRejectsNonNumeric(t *testing.T) {
	if _, err := parseFlowSpec("abc,500"); err == nil {
		t.Fatal("parseFlowSpec accepted a non-numeric QPS")
	}
}

func TestParseFlowSpecRejectsEmpty(t *testing.T) {
	if _, err := parseFlowSpec(""); err == nil {
		t.Fatal("parseFlowSpec accepted an empty spec")
	}
}

func TestResolveTargetLoopback(t *testing.T) {
	ip, err := resolveTarget("localhost", FamilyInet)
	if err != nil {
		t.Fatalf("resolveTarget: %v", err)
	}
	if ip.To4() == nil {
		t.Fatalf("resolveTarget(localhost, inet) = %v, want an IPv4 address", ip)
	}
}

func TestResolveTargetRejectsBadFamily(t *testing.T) {
	if _, err := resolveTarget("localhost", Family("bogus")); err == nil {
		t.Fatal("resolveTarget accepted an invalid family")
	}
}

func TestTrafGenConfigRejectsBadProtocol(t *testing.T) {
	r := &Runner{opts: Options{Protocol: Protocol("bogus"), Target: "localhost", Family: FamilyInet}}
	if _, err := r.trafGenConfig(); err == nil {
		t.Fatal("trafGenConfig accepted an invalid protocol")
	}
}

func TestNewBuildsRunnerForStaticGenerator(t *testing.T) {
	opts := Options{
		Target:      "localhost",
		Port:        53535,
		Family:      FamilyInet,
		Protocol:    ProtoUDP,
		Concurrency: 2,
		BatchCount:  1,
		SDelayMS:    10,
		RTimeoutSecs: 1,
		Generator:   "static",
		QnameBase:   "test.com",
		Qtype:       "A",
		Qclass:      "IN",
		CommandLine: []string{"flame", "localhost"},
	}
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(r.trafgens) != 2 {
		t.Fatalf("len(trafgens) = %d, want 2", len(r.trafgens))
	}
}

func TestNewAppliesTCPDefaultsWhenNotExplicit(t *testing.T) {
	opts := Options{
		Target:       "localhost",
		Port:         53535,
		Family:       FamilyInet,
		Protocol:     ProtoTCP,
		Concurrency:  1,
		RTimeoutSecs: 1,
		Generator:    "static",
		QnameBase:    "test.com",
		Qtype:        "A",
		Qclass:       "IN",
		CommandLine:  []string{"flame", "-P", "tcp", "localhost"},
	}
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.opts.SDelayMS != 1000 || r.opts.BatchCount != 100 || r.opts.Concurrency != 30 {
		t.Fatalf("tcp defaults not applied: %+v", r.opts)
	}
}
