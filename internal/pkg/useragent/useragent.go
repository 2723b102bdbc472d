package useragent

import (
	"log"
	"strings"
	"sync"

	_ "embed"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Info is the classification of one user agent string.
type Info struct {
	Device string // desktop | mobile | tablet
	OS     string // Windows | macOS | Linux | Android | iOS | Unknown
	Bot    bool
}

const (
	deviceDesktop = "desktop"
	deviceMobile  = "mobile"
	deviceTablet  = "tablet"
	osUnknown     = "Unknown"
)

//go:embed rules.yml
var rulesFile []byte

type osRule struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type matchRule struct {
	Regex string `yaml:"regex"`
}

type ruleSet struct {
	OS     []osRule    `yaml:"os"`
	Tablet []matchRule `yaml:"tablet"`
	Mobile []matchRule `yaml:"mobile"`
	Bot    []matchRule `yaml:"bot"`
}

type compiledRule struct {
	regex *pcre.Regexp
	name  string
}

type classifier struct {
	os     []compiledRule
	tablet []*pcre.Regexp
	mobile []*pcre.Regexp
	bot    []*pcre.Regexp
}

var (
	instance *classifier
	once     sync.Once
)

func compileGroup(rules []matchRule) []*pcre.Regexp {
	out := make([]*pcre.Regexp, 0, len(rules))
	for _, r := range rules {
		regex, err := pcre.Compile(r.Regex)
		if err != nil {
			log.Printf("useragent: skipping bad pattern %q: %v", r.Regex, err)
			continue
		}
		out = append(out, regex)
	}
	return out
}

func getClassifier() *classifier {
	once.Do(func() {
		var rules ruleSet
		if err := yaml.Unmarshal(rulesFile, &rules); err != nil {
			log.Printf("useragent: failed to parse rules: %v", err)
		}

		instance = &classifier{
			tablet: compileGroup(rules.Tablet),
			mobile: compileGroup(rules.Mobile),
			bot:    compileGroup(rules.Bot),
		}
		for _, r := range rules.OS {
			regex, err := pcre.Compile(r.Regex)
			if err != nil {
				log.Printf("useragent: skipping bad pattern %q: %v", r.Regex, err)
				continue
			}
			instance.os = append(instance.os, compiledRule{regex: regex, name: r.Name})
		}
	})
	return instance
}

func matchAny(regexes []*pcre.Regexp, ua string) bool {
	for _, r := range regexes {
		if r.MatchString(ua) {
			return true
		}
	}
	return false
}

// Parse classifies a user agent string. Unrecognized agents default to a
// desktop device with an Unknown OS; an empty string is treated the same way.
func Parse(ua string) Info {
	c := getClassifier()
	info := Info{Device: deviceDesktop, OS: osUnknown}

	if ua == "" {
		return info
	}

	info.Bot = matchAny(c.bot, ua)

	for _, rule := range c.os {
		if rule.regex.MatchString(ua) {
			info.OS = rule.name
			break
		}
	}

	// Tablet rules run before mobile rules.
	switch {
	case matchAny(c.tablet, ua):
		info.Device = deviceTablet
	case matchAny(c.mobile, ua):
		info.Device = deviceMobile
	default:
		info.Device = fallbackDevice(ua)
	}

	return info
}

// fallbackDevice catches agents the rule table misses via coarse substring
// markers, tablet indicators first.
func fallbackDevice(ua string) string {
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad") {
		return deviceTablet
	}
	if strings.Contains(lower, "mobile") || strings.Contains(lower, "iphone") ||
		strings.Contains(lower, "ipod") || strings.Contains(lower, "windows phone") {
		return deviceMobile
	}
	return deviceDesktop
}
