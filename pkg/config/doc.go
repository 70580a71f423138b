/*
Package config loads flowkeep configuration with koanf v2.

Three layers, in rising precedence: built-in defaults, an optional YAML
file, and FLOWKEEP_-prefixed environment variables. The result is a
plain Config struct handed to every component explicitly; nothing else
in the codebase consults environment variables or the working directory.

Environment variable mapping uses a double underscore for nesting:

	FLOWKEEP_SNAPSHOT_ROOT=/srv/snapshots      -> snapshot_root
	FLOWKEEP_DATABASE__HOST=db.internal        -> database.host
	FLOWKEEP_APPLICATION__SERVICE=n8n          -> application.service
*/
package config
