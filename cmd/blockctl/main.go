// Command blockctl loads one or more filter lists and either reports how
// many rules were loaded or evaluates a single ad-hoc request against
// them.
package main

import (
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/log"
	urlfilter "github.com/filterwall/blockengine"
	"github.com/filterwall/blockengine/cookiefilter"
	"github.com/filterwall/blockengine/filterlist"
	"github.com/filterwall/blockengine/rules"
	goFlags "github.com/jessevdk/go-flags"
)

// Options -- console arguments.
type Options struct {
	// Verbose - should we write debug-level log.
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`

	// FilterLists - paths to the filter lists.
	FilterLists []string `short:"f" long:"filter" description:"Path to a filter list. Can be specified multiple times."`

	// Manifest - path to a YAML manifest naming filter lists and engine config.
	Manifest string `short:"m" long:"manifest" description:"Path to a YAML manifest listing filter lists (alternative to -f)."`

	// URL - the request URL to match.
	URL string `short:"u" long:"url" description:"Request URL to match."`

	// Referrer - the request's source URL.
	Referrer string `short:"r" long:"referrer" description:"Request referrer (source URL)."`

	// RequestType - the name of the request type, e.g. "script" or "image".
	RequestType string `short:"t" long:"type" description:"Request type (document, script, image, ...)." default:"document"`

	// Hostname - a bare hostname to look up (cosmetic/DNS lookup mode).
	Hostname string `short:"H" long:"hostname" description:"Hostname to resolve cosmetic/DNS rules for, instead of matching a URL."`
}

var requestTypesByName = map[string]rules.RequestType{
	"document":       rules.TypeDocument,
	"subdocument":    rules.TypeSubdocument,
	"script":         rules.TypeScript,
	"stylesheet":     rules.TypeStylesheet,
	"object":         rules.TypeObject,
	"image":          rules.TypeImage,
	"xmlhttprequest": rules.TypeXmlhttprequest,
	"media":          rules.TypeMedia,
	"font":           rules.TypeFont,
	"websocket":      rules.TypeWebsocket,
	"ping":           rules.TypePing,
	"other":          rules.TypeOther,
}

func main() {
	var options Options
	parser := goFlags.NewParser(&options, goFlags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*goFlags.Error); ok && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}

	run(options)
}

func run(options Options) {
	if options.Verbose {
		log.SetLevel(log.DEBUG)
	}

	var engineConfig urlfilter.Configuration
	paths := options.FilterLists
	ignoreCosmeticByPath := map[string]bool{}

	if options.Manifest != "" {
		manifest, merr := urlfilter.LoadManifest(options.Manifest)
		if merr != nil {
			log.Fatalf("failed to load manifest: %v", merr)
		}

		engineConfig = manifest.Engine
		for _, src := range manifest.Lists {
			paths = append(paths, src.Path)
			ignoreCosmeticByPath[src.Path] = src.IgnoreCosmetic
		}
	}

	if len(paths) == 0 {
		log.Fatalf("at least one -f/--filter list or -m/--manifest must be specified")
	}

	ruleStorage, err := buildRuleStorage(paths, ignoreCosmeticByPath)
	if err != nil {
		log.Fatalf("failed to load filter lists: %v", err)
	}
	defer func() {
		if cerr := ruleStorage.Close(); cerr != nil {
			log.Error("closing rule storage: %v", cerr)
		}
	}()

	engine := urlfilter.NewEngine(ruleStorage, engineConfig)
	log.Printf("loaded %d rules", engine.RulesCount())

	if options.Verbose {
		if sum, cerr := ruleStorage.Checksum(); cerr == nil {
			log.Debug("rule storage checksum: %x", sum)
		}

		for table, count := range engine.TableStats() {
			log.Debug("lookup table %s: %d rule(s)", table, count)
		}
	}

	switch {
	case options.Hostname != "":
		dnsEngine := urlfilter.NewDNSEngine(ruleStorage)
		matchHostname(engine, dnsEngine, options.Hostname)
	case options.URL != "":
		matchURL(engine, options)
	}
}

func buildRuleStorage(paths []string, ignoreCosmeticByPath map[string]bool) (*filterlist.RuleStorage, error) {
	lists := make([]filterlist.RuleList, 0, len(paths))
	for i, path := range paths {
		list, err := filterlist.NewFileRuleList(i+1, path, ignoreCosmeticByPath[path])
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}

		lists = append(lists, list)
	}

	return filterlist.NewRuleStorage(lists)
}

func matchHostname(engine *urlfilter.Engine, dnsEngine *urlfilter.DNSEngine, hostname string) {
	result := engine.MatchHostname(hostname)

	if r := result.GetBasicResult(); r != nil {
		fmt.Printf("%s: matched %q (whitelist=%t)\n", hostname, r.Text(), r.Whitelist)
	} else {
		fmt.Printf("%s: no match\n", hostname)
	}

	cosmetic := engine.GetCosmeticResult(hostname, rules.CosmeticOptionCSS|rules.CosmeticOptionJS|rules.CosmeticOptionGenericCSS)
	fmt.Printf(
		"cosmetic: %d generic, %d specific element-hiding rules, %d CSS, %d JS\n",
		len(cosmetic.ElementHiding.Generic)+len(cosmetic.ElementHiding.GenericExtCSS),
		len(cosmetic.ElementHiding.Specific)+len(cosmetic.ElementHiding.SpecificExtCSS),
		len(cosmetic.CSS),
		len(cosmetic.JS),
	)

	dnsResult, _ := dnsEngine.Match(hostname)
	if rewrites := dnsResult.DNSRewrites(); len(rewrites) > 0 {
		fmt.Printf("dnsrewrite: %d rule(s) apply after exception filtering\n", len(rewrites))

		if rr, rerr := dnsResult.BuildRewriteRR(hostname); rerr != nil {
			log.Error("building dnsrewrite answer: %v", rerr)
		} else if rr != nil {
			fmt.Printf("dnsrewrite: answer %s\n", rr.String())
		}
	}

	for _, hr := range dnsResult.HostRulesV4 {
		fmt.Printf("hosts (A): %s -> %s\n", hostname, hr.IP)
	}

	for _, hr := range dnsResult.HostRulesV6 {
		fmt.Printf("hosts (AAAA): %s -> %s\n", hostname, hr.IP)
	}
}

func matchURL(engine *urlfilter.Engine, options Options) {
	requestType, ok := requestTypesByName[options.RequestType]
	if !ok {
		log.Fatalf("unknown request type: %s", options.RequestType)
	}

	request := rules.NewRequest(options.URL, options.Referrer, requestType)
	result := engine.MatchRequest(request)

	if r := result.GetBasicResult(); r != nil {
		fmt.Printf("%s: matched %q (whitelist=%t)\n", options.URL, r.Text(), r.Whitelist)
	} else {
		fmt.Printf("%s: no match\n", options.URL)
	}

	if cookieRules := engine.MatchCookieRules(request); len(cookieRules) > 0 {
		requestID := cookiefilter.NewRequestID()
		fmt.Printf("%s: %d $cookie rule(s) apply (request id %s)\n", options.URL, len(cookieRules), requestID)
	}
}
