// Package safety evaluates the pre-flight gates that decide whether a
// write-capable command may execute at all. Evaluation is pure given
// explicit inputs and fail-closed: anything unknown blocks.
package safety

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Gate names, fixed and recorded verbatim in manifests.
const (
	GateEnvironment  = "TOOLKIT_ENV"
	GateDatabaseHost = "DATABASE_HOST"
)

// Reason codes form a closed enumeration.
const (
	ReasonAllowed = "allowed"
	ReasonMissing = "missing"
	ReasonBlocked = "blocked"
	ReasonUnknown = "unknown"
)

// Class is the safety classification of a database host
type Class string

const (
	ClassAllowed Class = "ALLOWED"
	ClassBlocked Class = "BLOCKED"
	ClassUnknown Class = "UNKNOWN"
)

// sentinelHost stands in for a hostname that could not be parsed. It can
// never match an allow rule, so unparseable URLs always fail the gate.
const sentinelHost = "[unparseable]"

// writableEnvs are the only TOOLKIT_ENV values that permit writes.
var writableEnvs = map[string]struct{}{
	"LOCAL":       {},
	"DEVELOPMENT": {},
	"TEST":        {},
}

// blockedHostSuffixes are managed-cloud database domains. A hostname
// matching any of these (exactly or by suffix) is blocked regardless of
// the environment gate.
var blockedHostSuffixes = []string{
	"supabase.co",
	"supabase.com",
	"rds.amazonaws.com",
	"redshift.amazonaws.com",
	"database.azure.com",
	"neon.tech",
	"ondigitalocean.com",
	"planetscale.com",
	"psdb.cloud",
	"cockroachlabs.cloud",
	"gcp.cloud.sql",
}

// defaultSafeHosts are loopback addresses and common local container
// service names.
var defaultSafeHosts = map[string]struct{}{
	"localhost":            {},
	"127.0.0.1":            {},
	"::1":                  {},
	"0.0.0.0":              {},
	"postgres":             {},
	"db":                   {},
	"database":             {},
	"host.docker.internal": {},
}

// Gate is one evaluated safety check
type Gate struct {
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	ReasonCode string `json:"reasonCode"`
	Reason     string `json:"reason"`
}

// EnvSummary records the environment classification for audit
type EnvSummary struct {
	Tag      string `json:"tag"`
	Writable bool   `json:"writable"`
}

// DBSummary records the database-host classification for audit. Host and
// database name are captured deliberately; credentials never are.
type DBSummary struct {
	Host     string `json:"host"`
	Database string `json:"database"`
	Class    Class  `json:"class"`
}

// Options are the explicit gate inputs. Use FromEnv to populate them
// from the process environment.
type Options struct {
	ToolkitEnv  string
	DatabaseURL string
	SafeDBHosts []string
}

// Result is the full outcome of a gate evaluation, returned regardless
// of pass or fail so the manifest can record what was checked.
type Result struct {
	Gates         []Gate     `json:"gates"`
	Env           EnvSummary `json:"environment"`
	Database      DBSummary  `json:"database"`
	Blocked       bool       `json:"blocked"`
	BlockedGate   string     `json:"blockedGate,omitempty"`
	BlockedReason string     `json:"blockedReason,omitempty"`
}

// FromEnv builds Options from TOOLKIT_ENV, DATABASE_URL and
// TOOLKIT_SAFE_DB_HOSTS.
func FromEnv() Options {
	return Options{
		ToolkitEnv:  os.Getenv("TOOLKIT_ENV"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SafeDBHosts: splitHosts(os.Getenv("TOOLKIT_SAFE_DB_HOSTS")),
	}
}

func splitHosts(csv string) []string {
	if csv == "" {
		return nil
	}
	var hosts []string
	for _, h := range strings.Split(csv, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Unknown returns the fail-closed default summary recorded when a run
// finalizes without any gate having been evaluated.
func Unknown() Result {
	return Result{
		Env:           EnvSummary{Tag: "", Writable: false},
		Database:      DBSummary{Host: sentinelHost, Class: ClassUnknown},
		Blocked:       true,
		BlockedReason: "safety gates were never evaluated",
	}
}

// Evaluate runs both gates against the given inputs. The environment
// gate takes priority when both fail.
func Evaluate(opts Options) Result {
	envGate, envSummary := evaluateEnvGate(opts.ToolkitEnv)
	dbGate, dbSummary := evaluateDBGate(opts.DatabaseURL, opts.SafeDBHosts)

	res := Result{
		Gates:    []Gate{envGate, dbGate},
		Env:      envSummary,
		Database: dbSummary,
		Blocked:  !envGate.Passed || !dbGate.Passed,
	}
	switch {
	case !envGate.Passed:
		res.BlockedGate = envGate.Name
		res.BlockedReason = envGate.Reason
	case !dbGate.Passed:
		res.BlockedGate = dbGate.Name
		res.BlockedReason = dbGate.Reason
	}
	return res
}

func evaluateEnvGate(tag string) (Gate, EnvSummary) {
	gate := Gate{Name: GateEnvironment}
	upper := strings.ToUpper(strings.TrimSpace(tag))

	switch {
	case upper == "":
		gate.ReasonCode = ReasonMissing
		gate.Reason = "TOOLKIT_ENV is not set"
	default:
		if _, ok := writableEnvs[upper]; ok {
			gate.Passed = true
			gate.ReasonCode = ReasonAllowed
			gate.Reason = fmt.Sprintf("environment %q permits writes", upper)
		} else {
			gate.ReasonCode = ReasonBlocked
			gate.Reason = fmt.Sprintf("environment %q does not permit writes", upper)
		}
	}

	return gate, EnvSummary{Tag: upper, Writable: gate.Passed}
}

func evaluateDBGate(databaseURL string, safeHosts []string) (Gate, DBSummary) {
	gate := Gate{Name: GateDatabaseHost}
	host, dbname := parseHost(databaseURL)
	summary := DBSummary{Host: host, Database: dbname}

	summary.Class = classifyHost(host, safeHosts)
	switch summary.Class {
	case ClassAllowed:
		gate.Passed = true
		gate.ReasonCode = ReasonAllowed
		gate.Reason = fmt.Sprintf("database host %q is safe", host)
	case ClassBlocked:
		gate.ReasonCode = ReasonBlocked
		gate.Reason = fmt.Sprintf("database host %q is a managed cloud database", host)
	default:
		gate.ReasonCode = ReasonUnknown
		gate.Reason = fmt.Sprintf("database host %q is not on any safe-host list", host)
	}

	return gate, summary
}

// parseHost extracts hostname and database name from a connection URL.
// Anything unparseable yields the sentinel host.
func parseHost(databaseURL string) (host, dbname string) {
	if databaseURL == "" {
		return sentinelHost, ""
	}
	u, err := url.Parse(databaseURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return sentinelHost, ""
	}
	return u.Hostname(), strings.TrimPrefix(u.Path, "/")
}

// classifyHost applies the classification order: operator safe list,
// managed-cloud blocklist, default local allowlist, then unknown.
func classifyHost(host string, safeHosts []string) Class {
	for _, safe := range safeHosts {
		if host == safe {
			return ClassAllowed
		}
	}
	lower := strings.ToLower(host)
	for _, suffix := range blockedHostSuffixes {
		if lower == suffix || strings.HasSuffix(lower, "."+suffix) {
			return ClassBlocked
		}
	}
	if _, ok := defaultSafeHosts[lower]; ok {
		return ClassAllowed
	}
	return ClassUnknown
}
