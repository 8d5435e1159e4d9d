// Command flame is a high-rate DNS traffic generator. It resolves a
// target, builds a query generator, and drives a fleet of concurrent
// TrafGens against it until a runtime limit, loop count, or ^C stops it.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/shmup/flamethrower/internal/config"
	"github.com/shmup/flamethrower/internal/logging"
	"github.com/shmup/flamethrower/internal/metricsserver"
	"github.com/shmup/flamethrower/internal/runner"

	"github.com/prometheus/client_golang/prometheus"
)

const version = "1.0.0"

const usage = `Flamethrower.
Usage:
  flame [flags] TARGET [GENOPTS]...

Flags:
  -c TCOUNT        Number of concurrent traffic generators [default 10]
  -d DELAY_MS      ms delay between each generator's batches [default 1]
  -q QCOUNT        Number of queries to send every -d ms [default 10]
  -l LIMIT_SECS    Limit traffic generation to N seconds, 0 is unlimited [default 0]
  -t TIMEOUT_SECS  Query timeout in seconds [default 3]
  -n LOOP          Loop LOOP times through the record list, 0 is unlimited [default 0]
  -Q QPS           Rate limit to a maximum of QPS, 0 is no limit [default 0]
  --qps-flow SPEC  Change rate limit over time, format: QPS,MS;QPS,MS;...
  -r RECORD        Base record for generators [default test.com]
  -T QTYPE         Query type for generators [default A]
  -f FILE          Read records from FILE, one per row, QNAME TYPE
  -p PORT          Which port to flame [default 53]
  -F FAMILY        Internet family, inet or inet6 [default inet]
  -P PROTOCOL      Protocol, udp or tcp [default udp]
  -g GENERATOR     Query generator: static, file, numberqname, randompkt, randomqname, randomlabel [default static]
  -class CLASS     Default query class, IN or CH [default IN]
  -o FILE          Metrics output file, JSON format.
  -v VERBOSITY     Console verbosity, 0 is silent [default 1]
  -R               Randomize the query list before sending.
  -dnssec          Set the DO flag in EDNS.
  -config FILE     Load settings from a YAML config file, overlaid by flags above.
  -metrics-addr ADDR  Serve live Prometheus metrics and /healthz on ADDR, e.g. :9090
  -profile         Write a CPU profile to cpu.prof for the run's duration.
  -version         Print the version and exit.

Generators:
  static       Single qname/qtype, set with -r and -T. No GENOPTS.
  file         Read qname/qtype pairs from -f, one per line. No GENOPTS.
  numberqname  Synthesize qnames with random numbers in [LOW,HIGH] at zone -r.
               GENOPTS: LOW, HIGH
  randompkt    Generate COUNT randomly-sized [1,SIZE] raw packets.
               GENOPTS: COUNT, SIZE
  randomqname  Generate COUNT queries of random qname length [1,SIZE] at zone -r.
               GENOPTS: COUNT, SIZE
  randomlabel  Generate COUNT queries at zone -r with up to LBLCOUNT labels of up to LBLSIZE bytes.
               GENOPTS: COUNT, LBLSIZE, LBLCOUNT

Example:
  flame -T ANY -g randomlabel target.test.com lblsize=10 lblcount=4 count=1000
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("flame", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	var (
		concurrency  = fs.Int("c", 10, "concurrent traffic generators")
		sdelayMS     = fs.Int("d", 1, "ms delay between batches")
		batchCount   = fs.Int("q", 10, "queries per batch")
		limitSecs    = fs.Int("l", 0, "runtime limit in seconds, 0 unlimited")
		rtimeoutSecs = fs.Int("t", 3, "query timeout in seconds")
		loops        = fs.Int("n", 0, "loop count through record list, 0 unlimited")
		qps          = fs.Uint64("Q", 0, "rate limit, 0 is unlimited")
		qpsFlow      = fs.String("qps-flow", "", "QPS,MS;QPS,MS;... rate-limit schedule")
		qnameBase    = fs.String("r", "test.com", "base record for generators")
		qtype        = fs.String("T", "A", "query type")
		genFile      = fs.String("f", "", "read records from FILE")
		port         = fs.Int("p", 53, "target port")
		family       = fs.String("F", "inet", "internet family: inet or inet6")
		protocol     = fs.String("P", "udp", "protocol: udp or tcp")
		generator    = fs.String("g", "static", "query generator")
		qclass       = fs.String("class", "IN", "query class: IN or CH")
		outputFile   = fs.String("o", "", "metrics output file, JSON")
		verbosity    = fs.Int("v", 1, "console verbosity, 0 is silent")
		randomize    = fs.Bool("R", false, "randomize the query list")
		dnssec       = fs.Bool("dnssec", false, "set DO flag in EDNS")
		configPath   = fs.String("config", "", "YAML config file")
		metricsAddr  = fs.String("metrics-addr", "", "serve live metrics on ADDR")
		profile      = fs.Bool("profile", false, "write a CPU profile to cpu.prof")
		showVersion  = fs.Bool("version", false, "print the version and exit")
	)

	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Println("flame", version)
		return 0
	}

	if *configPath != "" {
		if err := config.Load_config(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	if err := config.Load_env(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	config.Cfg.Verbosity = *verbosity

	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing TARGET")
		fs.Usage()
		return 2
	}
	target := args[0]
	genOpts := args[1:]

	if *profile {
		profFile, err := os.Create("cpu.prof")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer profFile.Close()
		runtime.SetCPUProfileRate(200)
		if err := pprof.StartCPUProfile(profFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	opts := runner.Options{
		Target:              target,
		Port:                *port,
		Family:              runner.Family(*family),
		Protocol:            runner.Protocol(*protocol),
		Concurrency:         *concurrency,
		BatchCount:          *batchCount,
		SDelayMS:            *sdelayMS,
		RTimeoutSecs:        *rtimeoutSecs,
		LimitSecs:           *limitSecs,
		QPS:                 *qps,
		QPSFlowSpec:         *qpsFlow,
		SDelayExplicit:      argExists(argv, "-d"),
		BatchCountExplicit:  argExists(argv, "-q"),
		ConcurrencyExplicit: argExists(argv, "-c"),
		Generator:           *generator,
		GenArgs:             genOpts,
		QnameBase:           *qnameBase,
		Qtype:               *qtype,
		Qclass:              *qclass,
		DnssecDO:            *dnssec,
		Loops:               *loops,
		Randomize:           *randomize,
		OutputFile:          *outputFile,
		Verbosity:           *verbosity,
		CommandLine:         os.Args,
	}
	if *genFile != "" {
		opts.Generator = "file"
		opts.FilePath = *genFile
	}

	var msrv *metricsserver.Server
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts.PromRegistry = reg
		msrv = metricsserver.New(*metricsAddr, reg)
		msrv.Start()
		defer msrv.Stop()
	}

	r, err := runner.New(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := r.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if opts.OutputFile != "" {
		if err := r.Metrics().WriteJSON(opts.OutputFile); err != nil {
			logging.Println(1, "main", "writing metrics output:", err)
			return 1
		}
	}
	return 0
}

// argExists reports whether flag appears literally among argv, mirroring
// original flame's arg_exists: it decides whether -P tcp's own defaults
// for -d/-q/-c should override the un-passed flag.Int default rather than
// an explicitly-typed one.
func argExists(argv []string, flag string) bool {
	for _, a := range argv {
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}
