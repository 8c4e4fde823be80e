// Package config holds the server configuration.
//
// Values are layered: Default, then an optional TOML file read by Load,
// then whatever the command line overrides. Resolve fills in the values
// that can only be decided at startup and Validate checks the result.
//
// A configuration file looks like this:
//
//	db_path = "/var/lib/recollect"
//	namespace = "team-notes"
//
//	[server]
//	transport = "http"
//	addr = ":8000"
//
//	[entities]
//	dir = "/etc/recollect/entities"
//	include = ["engineering"]
//	use_custom = true
//
//	[ai]
//	extractor_model = "gpt-4.1-mini"
//	extractor_host = "https://api.openai.com/v1"
package config
