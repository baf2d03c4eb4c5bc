package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kswarrior/ks-wings/internal/assets"
	"github.com/kswarrior/ks-wings/internal/deploy"
)

// portBindingBody is the runtime-native `{"80/tcp": [{"HostPort": "18080"}]}`
// shape carried by create/redeploy/reinstall request bodies (spec §8 seed
// test 1).
type portBindingBody struct {
	HostPort string `json:"HostPort"`
}

type scriptBody struct {
	URI  string `json:"uri"`
	Path string `json:"path"`
}

// variablesField accepts spec §4.4 step 2's "variables" either as a JSON
// object or as a JSON-encoded string carrying that same object, since
// callers disagree on which shape they send.
type variablesField map[string]string

func (v *variablesField) UnmarshalJSON(data []byte) error {
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err == nil {
		*v = obj
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("variables must be a JSON object or a JSON-encoded string: %w", err)
	}
	if encoded == "" {
		*v = nil
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &obj); err != nil {
		return fmt.Errorf("invalid JSON-encoded variables string: %w", err)
	}
	*v = obj
	return nil
}

// createRequestBody is the wire shape of POST /instances/create (spec §4.4).
type createRequestBody struct {
	Image        string                       `json:"image"`
	Id           string                       `json:"Id"`
	Cmd          []string                     `json:"cmd,omitempty"`
	Env          []string                     `json:"env,omitempty"`
	PortBindings map[string][]portBindingBody `json:"PortBindings,omitempty"`
	Scripts      []scriptBody                 `json:"scripts,omitempty"`
	Memory       int64                        `json:"Memory"`
	Cpu          int64                        `json:"Cpu"`
	Disk         int64                        `json:"Disk"`
	Variables    variablesField               `json:"variables,omitempty"`
}

// redeployRequestBody is shared by redeploy and reinstall (spec §4.4 "(NEW)
// Redeploy / Reinstall"): same shape as createRequestBody minus the fields
// that don't apply to an existing volume (Id, Disk).
type redeployRequestBody struct {
	Image        string                       `json:"image"`
	Cmd          []string                     `json:"cmd,omitempty"`
	Env          []string                     `json:"env,omitempty"`
	PortBindings map[string][]portBindingBody `json:"PortBindings,omitempty"`
	Scripts      []scriptBody                 `json:"scripts,omitempty"`
	Variables    variablesField               `json:"variables,omitempty"`
	Memory       int64                        `json:"Memory"`
	Cpu          int64                        `json:"Cpu"`
}

type editRequestBody struct {
	Memory int64  `json:"Memory"`
	Cpu    int64  `json:"Cpu"`
	Disk   *int64 `json:"Disk,omitempty"` // nil means leave disk_limit_mib unchanged; an explicit 0 clears the limit
}

type errorBody struct {
	Message string `json:"message"`
}

// toPortSpecs converts the runtime-native port-binding map into the
// pipeline's PortSpec slice, validating "<port>/<proto>" keys.
func toPortSpecs(bindings map[string][]portBindingBody) ([]deploy.PortSpec, error) {
	var specs []deploy.PortSpec
	for portProto, hostBindings := range bindings {
		containerPort, proto, err := splitPortProto(portProto)
		if err != nil {
			return nil, err
		}
		if len(hostBindings) == 0 {
			specs = append(specs, deploy.PortSpec{ContainerPort: containerPort, Protocol: proto})
			continue
		}
		for _, hb := range hostBindings {
			spec := deploy.PortSpec{ContainerPort: containerPort, Protocol: proto}
			if hb.HostPort != "" {
				hostPort, err := strconv.Atoi(hb.HostPort)
				if err != nil {
					return nil, fmt.Errorf("invalid host port %q: %w", hb.HostPort, err)
				}
				spec.HostPort = hostPort
				spec.HostPortSet = true
			}
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

func splitPortProto(portProto string) (int, string, error) {
	parts := strings.SplitN(portProto, "/", 2)
	port, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid container port %q: %w", portProto, err)
	}
	proto := "tcp"
	if len(parts) == 2 && parts[1] != "" {
		proto = parts[1]
	}
	return port, proto, nil
}

func toScripts(in []scriptBody) []assets.Script {
	out := make([]assets.Script, 0, len(in))
	for _, s := range in {
		out = append(out, assets.Script{URI: s.URI, Path: s.Path})
	}
	return out
}
