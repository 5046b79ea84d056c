// Package website finds the deployed site of a project from free text and
// keeps website claims unique across projects.
package website

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

const (
	ScoreRejected     = 0
	ScoreStaticSite   = 3
	ScoreCustomDomain = 6
	ScoreHosting      = 10

	// MinScore is the floor for candidates taken from free text.
	MinScore = 5
)

// noiseHosts are never a project's deployed site. Subdomains match too.
var noiseHosts = []string{
	"github.com",
	"githubusercontent.com",
	"gitlab.com",
	"bitbucket.org",
	"shields.io",
	"badge.fury.io",
	"badgen.net",
	"travis-ci.org",
	"travis-ci.com",
	"circleci.com",
	"codecov.io",
	"coveralls.io",
	"sonarcloud.io",
	"snyk.io",
	"app.netlify.com",
	"vercel.com",
	"npmjs.com",
	"npmjs.org",
	"pypi.org",
	"crates.io",
	"rubygems.org",
	"pkg.go.dev",
	"docker.com",
	"nuget.org",
	"packagist.org",
	"opensource.org",
	"choosealicense.com",
	"twitter.com",
	"x.com",
	"discord.gg",
	"discord.com",
	"youtube.com",
	"youtu.be",
	"linkedin.com",
	"wikipedia.org",
	"google.com",
	"gitter.im",
	"example.com",
	"localhost",
}

// noisePaths reject profile links, API endpoints, install scripts and assets.
var noisePaths = []*regexp.Regexp{
	regexp.MustCompile(`^/(users?|u|profiles?)(/|$)`),
	regexp.MustCompile(`^/@`),
	regexp.MustCompile(`(^|/)(api|graphql|rpc)(/|$)`),
	regexp.MustCompile(`(^|/)install(\.sh|\.ps1)?$`),
	regexp.MustCompile(`\.(sh|ps1|bash)$`),
	regexp.MustCompile(`\.(png|jpe?g|gif|svg|webp|ico)$`),
}

type hostingTier struct {
	suffix string
	score  int
}

// hostingTiers score known hosting platforms by suffix. A bare platform host
// is the platform itself, not a deployment.
var hostingTiers = []hostingTier{
	{"pages.dev", ScoreHosting},
	{"vercel.app", ScoreHosting},
	{"netlify.app", ScoreHosting},
	{"workers.dev", ScoreHosting},
	{"web.app", ScoreHosting},
	{"firebaseapp.com", ScoreHosting},
	{"fly.dev", ScoreHosting},
	{"onrender.com", ScoreHosting},
	{"railway.app", ScoreHosting},
	{"herokuapp.com", ScoreHosting},
	{"deno.dev", ScoreHosting},
	{"amplifyapp.com", ScoreHosting},
	{"azurestaticapps.net", ScoreHosting},
	{"cloudfront.net", ScoreHosting},
	{"github.io", ScoreStaticSite},
	{"gitlab.io", ScoreStaticSite},
	{"codeberg.page", ScoreStaticSite},
	{"surge.sh", ScoreStaticSite},
	{"neocities.org", ScoreStaticSite},
	{"glitch.me", ScoreStaticSite},
}

// Score classifies raw as a deployment URL. Zero means rejected.
func Score(raw string) int {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ScoreRejected
	}
	host := hostOf(u)
	if host == "" || !strings.Contains(host, ".") || net.ParseIP(host) != nil {
		return ScoreRejected
	}
	if matchesHost(host, noiseHosts) {
		return ScoreRejected
	}
	path := strings.ToLower(u.Path)
	for _, re := range noisePaths {
		if re.MatchString(path) {
			return ScoreRejected
		}
	}
	for _, tier := range hostingTiers {
		if host == tier.suffix {
			return ScoreRejected
		}
		if strings.HasSuffix(host, "."+tier.suffix) {
			return tier.score
		}
	}
	return ScoreCustomDomain
}

func hostOf(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func matchesHost(host string, hosts []string) bool {
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Normalize returns the comparison key for a URL: lower-cased scheme and
// host, no fragment, no trailing slash.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// OnDomain reports whether raw is served from domain or a subdomain of it.
func OnDomain(raw, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return matchesHost(hostOf(u), []string{domain})
}
