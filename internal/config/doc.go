// Package config holds the crawl configuration and loads it from YAML.
//
// Values are layered: NewConfig defaults, then the .boardcrawl file (with
// an optional .boardcrawl.local merged over it), then command line flags.
package config
