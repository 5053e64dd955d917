package config

import (
	"fmt"
	"os"
)

// Template is a commented starting configuration.
func Template() string { return template }

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const template = `# mapdlctl configuration

[admin]
id = "mapdlctl"
addr = ":9050"
cors_origins = ["http://localhost:3000"]
# bearer token required on POST /instances/stop and POST /pool/run
token = ""

[client]
ip = "127.0.0.1"
port = 50052
connect_attempts = 5
connect_timeout = "15s"
security_mode = "development"
# log_apdl = "apdl.log"

[client.tls]
enabled = false
mutual = false
ca_file = ""
cert_file = ""
key_file = ""
server_name = ""

[launch]
# exec = "/usr/ansys_inc/v241/ansys/bin/ansys241"
jobname = "file"
nproc = 2
ram_mb = 0
run_location = ""
switches = ""
override = false
timeout = "45s"

[pool]
size = 0
start_port = 50052
restart = false
monitor_interval = "10s"
`
