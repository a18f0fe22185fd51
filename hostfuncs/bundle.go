package hostfuncs

import (
	"context"
	"os"
	"runtime"
	"time"
)

// Bundle is a named group of callbacks registered together.
type Bundle interface {
	Handlers() map[string]ByteHandler
}

type staticBundle map[string]ByteHandler

func (b staticBundle) Handlers() map[string]ByteHandler { return b }

// PlatformResponse describes the host process.
type PlatformResponse struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	GoVersion string `json:"go_version"`
	Module    string `json:"module,omitempty"`
}

// TimeResponse carries the host clock.
type TimeResponse struct {
	UnixNano int64  `json:"unix_nano"`
	RFC3339  string `json:"rfc3339"`
}

// RuntimeBundle exports host_platform and host_time.
func RuntimeBundle() Bundle {
	return staticBundle{
		"host_platform": NewJSONHandler(func(ctx context.Context, _ struct{}) PlatformResponse {
			module, _ := ModuleNameFrom(ctx)
			return PlatformResponse{
				OS:        runtime.GOOS,
				Arch:      runtime.GOARCH,
				GoVersion: runtime.Version(),
				Module:    module,
			}
		}),
		"host_time": NewJSONHandler(func(context.Context, struct{}) TimeResponse {
			now := time.Now()
			return TimeResponse{UnixNano: now.UnixNano(), RFC3339: now.Format(time.RFC3339Nano)}
		}),
	}
}

// EnvRequest asks for one environment variable.
type EnvRequest struct {
	Name string `json:"name"`
}

// EnvResponse answers an EnvRequest. Error is set when the name is not
// on the allow list.
type EnvResponse struct {
	Value string         `json:"value"`
	Found bool           `json:"found"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// EnvBundle exports env_lookup restricted to the allowed variable names.
func EnvBundle(allowed ...string) Bundle {
	allow := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allow[name] = true
	}
	return staticBundle{
		"env_lookup": NewJSONHandler(func(_ context.Context, req EnvRequest) EnvResponse {
			if !allow[req.Name] {
				denied := NewDeniedError("environment variable " + req.Name + " is not exposed")
				return EnvResponse{Error: &denied}
			}
			v, ok := os.LookupEnv(req.Name)
			return EnvResponse{Value: v, Found: ok}
		}),
	}
}

// WithBundle registers every handler of bundle.
func WithBundle(bundle Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle.Handlers() {
			if err := b.addHandler(name, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}
