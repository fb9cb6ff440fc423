// Package config loads the tenderqa TOML configuration file.
//
// A file only needs the keys it changes; everything else keeps the values
// from Default. Durations are written as Go duration strings:
//
//	[source]
//	location = "https://docs.example.com/spreadsheets/pub?output=csv"
//
//	[ai]
//	host = "http://localhost:11434"
//	generator_model = "qwen2.5:3b"
//
//	[engine]
//	top_k = 3
//	ttl = "60s"
package config
